package middleware

import (
	"bytes"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/branchledger/internal/usecase"
)

// Idempotency headers. ReplayHeader is set on responses served from the
// store instead of the handler.
const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayHeader         = "X-Idempotency-Replay"
)

// IdempotencyMiddleware makes retried mutations safe: the first request with
// a key runs, later ones get its stored 2xx body back. A key is scoped to the
// method and path it was first used with.
type IdempotencyMiddleware struct {
	store  usecase.IdempotencyStore
	ttl    time.Duration
	logger zerolog.Logger
}

// NewIdempotencyMiddleware creates a new IdempotencyMiddleware.
func NewIdempotencyMiddleware(store usecase.IdempotencyStore) *IdempotencyMiddleware {
	return &IdempotencyMiddleware{
		store:  store,
		ttl:    usecase.IdempotencyKeyTTL,
		logger: zerolog.Nop(),
	}
}

// WithTTL sets how long responses are kept.
func (m *IdempotencyMiddleware) WithTTL(ttl time.Duration) *IdempotencyMiddleware {
	if ttl > 0 {
		m.ttl = ttl
	}
	return m
}

// WithLogger sets the logger.
func (m *IdempotencyMiddleware) WithLogger(logger zerolog.Logger) *IdempotencyMiddleware {
	m.logger = logger
	return m
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// storeKey scopes key to the endpoint so one client key reused on two
// different operations does not replay the wrong body.
func storeKey(r *http.Request, key string) string {
	return r.Method + " " + r.URL.Path + " " + key
}

// Wrap wraps an http.Handler with idempotency checking.
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" || !mutating(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		scoped := storeKey(r, key)
		log := m.logger.With().Str("idempotency_key", key).Logger()

		exists, cached, err := m.store.CheckAndSet(r.Context(), scoped, nil, m.ttl)
		switch {
		case err != nil:
			log.Error().Err(err).Msg("idempotency check failed")
			writeJSONError(w, http.StatusInternalServerError, "idempotency check failed", "")
			return
		case exists && string(cached) == usecase.IdempotencyPendingMarker:
			writeJSONError(w, http.StatusConflict, "request with this idempotency key is in progress", key)
			return
		case exists:
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set(ReplayHeader, "true")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(cached)
			return
		}

		var body bytes.Buffer
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ww.Tee(&body)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		if status >= 200 && status < 300 {
			if err := m.store.Update(r.Context(), scoped, body.Bytes(), m.ttl); err != nil {
				log.Warn().Err(err).Msg("failed to store idempotent response")
			}
			return
		}

		// A failed request may be retried with the same key.
		if err := m.store.Release(r.Context(), scoped); err != nil {
			log.Warn().Err(err).Msg("failed to release idempotency key")
		}
	})
}
