package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/billbatista/acasinha-trip/localstore"
)

type contextKey string

const (
	LocalStoreKey contextKey = "local_store"
	AdminKey      contextKey = "admin"

	AdminCodeHeader = "X-Admin-Code"
)

// ClientState gives every request a local store backed by the client's
// cookies.
func ClientState(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), LocalStoreKey, localstore.Store(localstore.NewCookie(w, r)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Local returns the request's local store. Outside ClientState it returns a
// throwaway in-memory store.
func Local(ctx context.Context) localstore.Store {
	if s, ok := ctx.Value(LocalStoreKey).(localstore.Store); ok {
		return s
	}
	return localstore.NewMemory()
}

type verifier interface {
	Verify(code string) error
}

// RequireAdmin rejects requests whose X-Admin-Code header does not match.
func RequireAdmin(gate verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := gate.Verify(r.Header.Get(AdminCodeHeader)); err != nil {
				slog.Info("admin code mismatch", "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
				return
			}
			ctx := context.WithValue(r.Context(), AdminKey, true)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsAdmin reports whether the request passed RequireAdmin.
func IsAdmin(ctx context.Context) bool {
	ok, _ := ctx.Value(AdminKey).(bool)
	return ok
}
