package middleware

import (
	"context"
	"net/http"
	"strings"

	"apparel-studio/handlers/auth"

	"github.com/go-chi/render"
)

type contextKey string

const ClaimsContextKey = contextKey("claims")

func AuthJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "Authorization header is required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		tokenString := parts[1]
		claims, err := auth.ParseJWT(tokenString)
		if err != nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "Invalid token"})
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithUser returns a context carrying claims for userID.
func WithUser(ctx context.Context, userID string) context.Context {
	claims := &auth.AppClaims{}
	claims.Subject = userID
	return context.WithValue(ctx, ClaimsContextKey, claims)
}

// UserID returns the authenticated user's id, or "" when the request was not
// authenticated.
func UserID(ctx context.Context) string {
	claims, ok := ctx.Value(ClaimsContextKey).(*auth.AppClaims)
	if !ok {
		return ""
	}
	return claims.Subject
}
