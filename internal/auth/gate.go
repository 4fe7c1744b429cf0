// Package auth implements the PIN gate in front of the application. A PIN is
// never stored in the cookie; the cookie carries its salted hash, which is
// compared against the hashes of the configured PINs.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const (
	CookieName = "cellar_auth"
	cookieAge  = 30 * 24 * time.Hour
)

type Gate struct {
	salt    string
	allowed []string
}

// NewGate hashes the allowed PINs. With no PINs the gate lets everything through.
func NewGate(salt string, pins []string) *Gate {
	g := &Gate{salt: salt}
	for _, pin := range pins {
		if pin = strings.TrimSpace(pin); pin != "" {
			g.allowed = append(g.allowed, g.Hash(pin))
		}
	}
	return g
}

// Enabled reports whether any PIN is configured.
func (g *Gate) Enabled() bool {
	return len(g.allowed) > 0
}

// Hash returns the salted hash stored in the cookie for a PIN.
func (g *Gate) Hash(pin string) string {
	sum := sha256.Sum256([]byte(g.salt + ":" + pin))
	return hex.EncodeToString(sum[:])
}

// Check reports whether token is the hash of an allowed PIN.
func (g *Gate) Check(token string) bool {
	ok := false
	for _, h := range g.allowed {
		if subtle.ConstantTimeCompare([]byte(h), []byte(token)) == 1 {
			ok = true
		}
	}
	return ok
}

// Login returns the cookie token for pin when it is allowed.
func (g *Gate) Login(pin string) (string, bool) {
	token := g.Hash(strings.TrimSpace(pin))
	if !g.Check(token) {
		return "", false
	}
	return token, true
}

// Authorized reports whether r carries a valid cookie.
func (g *Gate) Authorized(r *http.Request) bool {
	if !g.Enabled() {
		return true
	}
	c, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}
	return g.Check(c.Value)
}

// Middleware rejects unauthenticated requests with 401.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Authorized(r) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetCookie stores token on the response.
func SetCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cookieAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the auth cookie.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
