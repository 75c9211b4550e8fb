package handlers

import (
	"context"
	"errors"
	"log"
	"mime"
	"net/http"
	"time"

	"docuchat-backend/internal/auth"
	api_models "docuchat-backend/internal/models"
	db_models "docuchat-backend/internal/models"
	"docuchat-backend/pkg/httputil"
)

// AuthService defines the interface expected from the auth service.
type AuthService interface {
	Register(ctx context.Context, email, fullName, password string) (*db_models.User, error)
	Login(ctx context.Context, email, password string) (string, *db_models.User, error)
	TokenTTL() time.Duration
}

type AuthHandler struct {
	authService  AuthService
	cookieSecure bool
}

func NewAuthHandler(authSvc AuthService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		authService:  authSvc,
		cookieSecure: cookieSecure,
	}
}

// HandleRegister handles the POST /auth/register request.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req api_models.RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	user, err := h.authService.Register(r.Context(), req.Email, req.FullName, req.Password)
	if err != nil {
		log.Printf("Register handler failed for email %s: %v", req.Email, err)
		respondServiceError(w, r, "User not found", err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, api_models.NewUserResponse(user))
}

// HandleLogin handles the POST /auth/login request. It accepts a JSON body
// or an OAuth2 password-style form, where the email travels as username.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLogin(w, r)
	if !ok {
		return
	}
	if req.Identifier() == "" || req.Password == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	token, _, err := h.authService.Login(r.Context(), req.Identifier(), req.Password)
	if err != nil {
		log.Printf("Login handler failed for email %s: %v", req.Identifier(), err)
		respondServiceError(w, r, "User not found", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.authService.TokenTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.RespondJSON(w, http.StatusOK, api_models.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// HandleLogout clears the auth cookie. Tokens are stateless, so an already
// issued token stays valid until it expires.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	httputil.RespondJSON(w, http.StatusOK, api_models.StatusResponse{Message: "Logged out"})
}

// HandleMe handles GET /auth/me.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	httputil.RespondJSON(w, http.StatusOK, api_models.NewUserResponse(user))
}

func decodeLogin(w http.ResponseWriter, r *http.Request) (api_models.LoginRequest, bool) {
	var req api_models.LoginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid form payload")
			return req, false
		}
		req.Email = r.PostFormValue("email")
		req.Username = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
	default:
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
			return req, false
		}
	}
	return req, true
}
