package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iho/branchledger/internal/domain"
	"github.com/iho/branchledger/internal/infrastructure/auth"
)

func TestAuthMiddlewareStoresActor(t *testing.T) {
	manager := auth.NewJWTManager("secret", time.Hour)
	token, err := manager.Generate(&domain.Actor{ID: "op-1", Name: "Ana", Role: domain.RoleOperator})
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var got *domain.Actor
	handler := AuthMiddleware(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = domain.ActorFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/fund-transfers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got == nil || got.ID != "op-1" || got.Role != domain.RoleOperator {
		t.Fatalf("expected actor in context, got %+v", got)
	}
}

func TestAuthMiddlewareRejectsBadHeaders(t *testing.T) {
	manager := auth.NewJWTManager("secret", time.Hour)
	handler := AuthMiddleware(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not be called")
	}))

	for _, header := range []string{"", "Token abc", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rr.Code)
		}
	}
}

func TestRequireWriter(t *testing.T) {
	tests := []struct {
		name   string
		method string
		actor  *domain.Actor
		want   int
	}{
		{"viewer can read", http.MethodGet, &domain.Actor{ID: "v", Role: domain.RoleViewer}, http.StatusOK},
		{"viewer cannot write", http.MethodPost, &domain.Actor{ID: "v", Role: domain.RoleViewer}, http.StatusForbidden},
		{"operator can write", http.MethodPost, &domain.Actor{ID: "o", Role: domain.RoleOperator}, http.StatusOK},
		{"anonymous cannot write", http.MethodDelete, nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireWriter(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(tt.method, "/api/v1/payments", nil)
			if tt.actor != nil {
				req = req.WithContext(domain.WithActor(req.Context(), tt.actor))
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for role, want := range map[string]int{
		domain.RoleAdmin:    http.StatusNoContent,
		domain.RoleOperator: http.StatusForbidden,
		domain.RoleViewer:   http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/exchange-rates/2024-03-10", nil)
		req = req.WithContext(domain.WithActor(req.Context(), &domain.Actor{ID: "u", Role: role}))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != want {
			t.Fatalf("role %s: expected %d, got %d", role, want, rr.Code)
		}
	}
}

func TestAuthErrorsAreJSON(t *testing.T) {
	handler := AuthMiddleware(auth.NewJWTManager("secret", time.Hour))(http.NotFoundHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json error, got %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "missing authorization header") {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}
