package auth

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"clinic-agent/internal/analytics"
)

type Middleware struct {
	secret []byte
}

// New returns a middleware that verifies bearer tokens signed with secret.
// With an empty secret every request passes through unauthenticated.
func New(secret []byte) Middleware {
	return Middleware{secret: secret}
}

func (m Middleware) Enabled() bool {
	return len(m.secret) > 0
}

func (m Middleware) Handler(next http.Handler) http.Handler {
	if !m.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		userID, err := ParseToken(m.secret, strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			log.Debug().Err(err).Msg("token rejected")
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(analytics.WithUserID(r.Context(), userID)))
	})
}
