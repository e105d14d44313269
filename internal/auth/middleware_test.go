package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-agent/internal/analytics"
)

var secret = []byte("test-secret")

func whoami(w http.ResponseWriter, r *http.Request) {
	uid, _ := analytics.UserIDFromContext(r.Context())
	_, _ = w.Write([]byte(uid))
}

func call(m Middleware, authz string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	if authz != "" {
		r.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	m.Handler(http.HandlerFunc(whoami)).ServeHTTP(w, r)
	return w
}

func TestValidTokenSetsUser(t *testing.T) {
	tok, err := GenerateToken(secret, "0b6f1c4e-user", time.Hour)
	require.NoError(t, err)

	w := call(New(secret), "Bearer "+tok)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0b6f1c4e-user", w.Body.String())
}

func TestMissingAndInvalidTokens(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, call(New(secret), "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(New(secret), "Bearer garbage").Code)

	other, err := GenerateToken([]byte("other"), "u", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(New(secret), "Bearer "+other).Code)

	expired, err := GenerateToken(secret, "u", -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(New(secret), "Bearer "+expired).Code)
}

func TestDisabledWithoutSecret(t *testing.T) {
	m := New(nil)
	assert.False(t, m.Enabled())

	w := call(m, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestParseTokenNeedsSubject(t *testing.T) {
	tok, err := GenerateToken(secret, "", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(secret, tok)
	assert.ErrorIs(t, err, ErrNoSubject)
}
