package auth

import (
	"net/http"
	"strings"
)

// Token carriage names.
const (
	CookieName = "access_token"
	QueryParam = "token"
)

// TokenSource says where a request credential was found.
type TokenSource string

const (
	SourceNone   TokenSource = ""
	SourceHeader TokenSource = "header"
	SourceQuery  TokenSource = "query"
	SourceCookie TokenSource = "cookie"
)

// TokenFromRequest extracts a bearer token from r. The first match wins:
// an "Authorization: Bearer <token>" header (scheme is case-insensitive),
// then the "token" query parameter, then the "access_token" cookie.
// A header with another scheme or an empty token does not match.
func TokenFromRequest(r *http.Request) (string, TokenSource) {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token, SourceHeader
	}
	if token := r.URL.Query().Get(QueryParam); token != "" {
		return token, SourceQuery
	}
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value, SourceCookie
	}
	return "", SourceNone
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
