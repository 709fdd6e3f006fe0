package middleware

import (
	"net/http"
	"strings"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/infrastructure/auth"
)

// AuthMiddleware verifies the bearer token and stores the actor it names in
// the request context.
func AuthMiddleware(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing authorization header", "")
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeJSONError(w, http.StatusUnauthorized, "invalid authorization header format", "")
				return
			}

			claims, err := jwtManager.Verify(token)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token", err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(domain.WithActor(r.Context(), claims.Actor())))
		})
	}
}

// RequireWriter rejects mutating requests from actors that may only read.
func RequireWriter(next http.Handler) http.Handler {
	writers := requireActor(next, func(actor *domain.Actor) bool { return actor.CanWrite() })

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			writers.ServeHTTP(w, r)
		}
	})
}

// RequireAdmin restricts a route to administrators. Used for operations that
// erase history, such as deleting a rate or an unsettled transfer.
func RequireAdmin(next http.Handler) http.Handler {
	return requireActor(next, func(actor *domain.Actor) bool { return actor.Role == domain.RoleAdmin })
}

func requireActor(next http.Handler, allowed func(*domain.Actor) bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := domain.ActorFromContext(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "")
			return
		}
		if !allowed(actor) {
			writeJSONError(w, http.StatusForbidden, "insufficient permissions", actor.Role)
			return
		}
		next.ServeHTTP(w, r)
	})
}
