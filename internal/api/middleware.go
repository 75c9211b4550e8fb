package api

import (
	"context"
	"errors"
	"log"
	"net/http"

	"docuchat-backend/internal/auth"
	"docuchat-backend/internal/models"
	"docuchat-backend/internal/services"
	"docuchat-backend/pkg/httputil"
)

// TokenResolver maps a raw access token to the user it authenticates.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware resolves the request's access token and injects the user
// into the request context. The token is taken from the Authorization
// header, the token query parameter or the access_token cookie, in that
// order; the first one present is the only one tried.
func AuthMiddleware(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, source := auth.TokenFromRequest(r)
			if source == auth.SourceNone {
				httputil.RespondUnauthorized(w, "Not authenticated")
				return
			}

			user, err := resolver.ResolveToken(r.Context(), token)
			if err != nil {
				if errors.Is(err, services.ErrUnauthenticated) {
					log.Printf("Auth Middleware: Rejected %s token: %v", source, err)
					httputil.RespondUnauthorized(w, "Could not validate credentials")
					return
				}
				log.Printf("ERROR Auth Middleware: Failed resolving token: %v", err)
				httputil.RespondError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}
