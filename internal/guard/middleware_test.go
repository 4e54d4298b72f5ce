package guard

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/honeynil/cinematch/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenExpiringIn(t *testing.T, d time.Duration) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": "42",
		"exp":    time.Now().Add(d).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func newGuardedRouter(served *bool, secret string) *mux.Router {
	r := mux.NewRouter()
	r.Use(Middleware(New(DefaultLoginPath, DefaultPublicRoutes...), session.NewManager(session.NewMemoryStorage(), session.NewDecoder(secret), false)))
	r.HandleFunc("/movies", func(w http.ResponseWriter, r *http.Request) {
		*served = true
		claims, ok := session.ClaimsFromContext(r.Context())
		if !ok {
			http.Error(w, "no claims", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("protected for " + claims.UserID))
	})
	r.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		*served = true
		w.Write([]byte("login page"))
	})
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		*served = true
		if _, ok := session.StoreFromContext(r.Context()); ok {
			http.Error(w, "unexpected session", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	})
	return r
}

func TestMiddleware_AuthorizedRequest(t *testing.T) {
	served := false
	router := newGuardedRouter(&served, "secret")

	req := httptest.NewRequest(http.MethodGet, "/movies", nil)
	req.AddCookie(&http.Cookie{Name: session.TokenCookieName, Value: tokenExpiringIn(t, time.Hour)})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.True(t, served)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "protected for 42", w.Body.String())
}

func TestMiddleware_ExpiredTokenRedirects(t *testing.T) {
	served := false
	router := newGuardedRouter(&served, "secret")

	req := httptest.NewRequest(http.MethodGet, "/movies?page=2", nil)
	req.AddCookie(&http.Cookie{Name: session.TokenCookieName, Value: tokenExpiringIn(t, -time.Second)})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.False(t, served)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?redirect=%2Fmovies%3Fpage%3D2", w.Header().Get("Location"))
	assert.NotContains(t, w.Body.String(), "protected")
}

func TestMiddleware_PublicRouteWithoutToken(t *testing.T) {
	served := false
	router := newGuardedRouter(&served, "secret")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.True(t, served)
	assert.Equal(t, "login page", w.Body.String())
}

func TestMiddleware_UnverifiedCookieTokenCarriesNoIdentity(t *testing.T) {
	served := false
	router := newGuardedRouter(&served, "")

	req := httptest.NewRequest(http.MethodGet, "/movies", nil)
	req.AddCookie(&http.Cookie{Name: session.TokenCookieName, Value: tokenExpiringIn(t, time.Hour)})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.True(t, served)
	assert.NotContains(t, w.Body.String(), "protected for 42")
	assert.Contains(t, w.Body.String(), "no claims")
}

func TestMiddleware_SessionlessRoutesSkipDeviceCookie(t *testing.T) {
	served := false
	router := newGuardedRouter(&served, "secret")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.True(t, served)
	assert.Equal(t, "ok", w.Body.String())
	assert.Empty(t, w.Result().Cookies())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	var names []string
	for _, c := range w.Result().Cookies() {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, session.DeviceCookieName)
}
