package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newRequest(header, query, cookie string) *http.Request {
	target := "/api/conversations"
	if query != "" {
		target += "?token=" + query
	}
	r := httptest.NewRequest(http.MethodGet, target, nil)
	if header != "" {
		r.Header.Set("Authorization", header)
	}
	if cookie != "" {
		r.AddCookie(&http.Cookie{Name: CookieName, Value: cookie})
	}
	return r
}

func TestTokenFromRequest_Precedence(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		query      string
		cookie     string
		wantToken  string
		wantSource TokenSource
	}{
		{"header beats query and cookie", "Bearer h-tok", "q-tok", "c-tok", "h-tok", SourceHeader},
		{"scheme is case-insensitive", "bEaReR h-tok", "", "c-tok", "h-tok", SourceHeader},
		{"query beats cookie", "", "q-tok", "c-tok", "q-tok", SourceQuery},
		{"cookie alone", "", "", "c-tok", "c-tok", SourceCookie},
		{"basic scheme falls through", "Basic dXNlcjpwdw==", "q-tok", "", "q-tok", SourceQuery},
		{"empty bearer falls through", "Bearer   ", "", "c-tok", "c-tok", SourceCookie},
		{"nothing", "", "", "", "", SourceNone},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tok, src := TokenFromRequest(newRequest(tc.header, tc.query, tc.cookie))
			assert.Equal(t, tc.wantToken, tok)
			assert.Equal(t, tc.wantSource, src)
		})
	}
}
