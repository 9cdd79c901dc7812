package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/tinyread/pkg/config"
)

func newTestAuthHandler(allowed ...string) *AuthHandler {
	cfg := &config.Config{Auth: config.AuthConfig{
		GoogleClientID:    "client",
		GoogleRedirectURL: "http://localhost/auth/google/callback",
		JWTSecret:         "s3cret",
		FrontendURL:       "http://localhost:3000",
		AllowedEmails:     allowed,
	}}
	return NewAuthHandler(cfg, zerolog.Nop())
}

func TestAuthHandler_Login(t *testing.T) {
	h := newTestAuthHandler()
	rr := httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodGet, "/auth/google/login", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	loc := rr.Header().Get("Location")
	assert.True(t, strings.HasPrefix(loc, "https://accounts.google.com/"), loc)

	var state string
	for _, c := range rr.Result().Cookies() {
		if c.Name == stateCookie {
			state = c.Value
		}
	}
	require.NotEmpty(t, state)
	assert.Contains(t, loc, "state="+url.QueryEscape(state))
}

func TestAuthHandler_CallbackRejectsBadState(t *testing.T) {
	h := newTestAuthHandler()
	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=wrong&code=x", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "right"})
	rr := httptest.NewRecorder()
	h.Callback(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	h.Callback(rr, httptest.NewRequest(http.MethodGet, "/auth/google/callback", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
}

func TestAuthHandler_Logout(t *testing.T) {
	h := newTestAuthHandler()
	rr := httptest.NewRecorder()
	h.Logout(rr, httptest.NewRequest(http.MethodGet, "/auth/logout", nil))

	assert.Equal(t, "http://localhost:3000/login", rr.Header().Get("Location"))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, authCookie, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
}

func TestAuthHandler_EmailAllowed(t *testing.T) {
	assert.True(t, newTestAuthHandler().emailAllowed("anyone@example.com"))

	h := newTestAuthHandler("admin@example.com")
	assert.True(t, h.emailAllowed("admin@example.com"))
	assert.False(t, h.emailAllowed("intruder@example.com"))
}

func TestAuthHandler_IssueToken(t *testing.T) {
	h := newTestAuthHandler()
	signed, _, err := h.issueToken("admin@example.com")
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (interface{}, error) { return []byte("s3cret"), nil })
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", claims.Subject)
}
