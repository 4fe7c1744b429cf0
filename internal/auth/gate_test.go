package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_Login(t *testing.T) {
	g := NewGate("pepper", []string{"1234", " 9876 ", ""})
	require.True(t, g.Enabled())

	token, ok := g.Login("1234")
	require.True(t, ok)
	assert.Equal(t, g.Hash("1234"), token)
	assert.NotContains(t, token, "1234")

	_, ok = g.Login("9876")
	assert.True(t, ok)

	_, ok = g.Login("0000")
	assert.False(t, ok)

	other := NewGate("salt", []string{"1234"})
	assert.False(t, other.Check(token), "hashes depend on the salt")
}

func TestGate_Middleware(t *testing.T) {
	g := NewGate("pepper", []string{"1234"})
	h := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("no cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/wines", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
	})

	t.Run("forged cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/wines", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: "1234"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("cookie from login", func(t *testing.T) {
		token, _ := g.Login("1234")
		login := httptest.NewRecorder()
		SetCookie(login, token, false)

		req := httptest.NewRequest(http.MethodGet, "/api/wines", nil)
		for _, c := range login.Result().Cookies() {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestGate_DisabledWithoutPins(t *testing.T) {
	g := NewGate("", nil)
	assert.False(t, g.Enabled())
	assert.True(t, g.Authorized(httptest.NewRequest(http.MethodGet, "/", nil)))
}
