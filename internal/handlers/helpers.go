package handlers

import (
	"errors"
	"log"
	"net/http"

	"docuchat-backend/internal/auth"
	"docuchat-backend/internal/integrations"
	"docuchat-backend/internal/models"
	"docuchat-backend/internal/services"
	"docuchat-backend/internal/store"
	"docuchat-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// currentUser returns the user injected by the auth middleware. It writes a
// 401 and returns false when there is none.
func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		httputil.RespondUnauthorized(w, "Not authenticated")
		return nil, false
	}
	return user, true
}

// pathID parses a UUID URL parameter. An unparseable id cannot name an
// existing resource, so it is reported as not found.
func pathID(w http.ResponseWriter, r *http.Request, param, notFound string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httputil.RespondError(w, http.StatusNotFound, notFound)
		return uuid.Nil, false
	}
	return id, true
}

// respondServiceError maps service and store errors to status codes.
// Unexpected errors are logged in full and answered with a generic 500.
func respondServiceError(w http.ResponseWriter, r *http.Request, notFound string, err error) {
	switch {
	case errors.Is(err, store.ErrDuplicateEmail):
		httputil.RespondError(w, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, services.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		httputil.RespondUnauthorized(w, "Incorrect email or password")
	case errors.Is(err, services.ErrUnauthenticated):
		httputil.RespondUnauthorized(w, "Could not validate credentials")
	case errors.Is(err, store.ErrNotFound), errors.Is(err, services.ErrNoFile):
		httputil.RespondError(w, http.StatusNotFound, notFound)
	case errors.Is(err, services.ErrFileTooLarge):
		httputil.RespondError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, integrations.ErrNotionNotConfigured):
		httputil.RespondError(w, http.StatusServiceUnavailable, "Notion import is not configured")
	case errors.Is(err, integrations.ErrNotionPageNotFound):
		httputil.RespondError(w, http.StatusNotFound, "Notion page not found or not shared with the integration")
	case errors.Is(err, integrations.ErrNotionUnauthorized):
		httputil.RespondError(w, http.StatusBadGateway, "Notion rejected the integration token")
	default:
		log.Printf("ERROR [%s %s] %v", r.Method, r.URL.Path, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
