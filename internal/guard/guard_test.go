package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuard_PublicRoutesAlwaysAuthorized(t *testing.T) {
	g := New(DefaultLoginPath, DefaultPublicRoutes...)

	for _, route := range []string{"/login", "/login?redirect=%2Fmovies", "/signup", "/signup/", "/register", "/logout", "/healthz"} {
		for _, valid := range []bool{true, false} {
			called := false
			d := g.Evaluate(route, func() bool { called = true; return valid })
			assert.Equal(t, StateAuthorized, d.State, route)
			assert.Empty(t, d.Target)
			assert.False(t, called, "token consulted for public route %s", route)
		}
	}
}

func TestGuard_ProtectedRoutes(t *testing.T) {
	g := New(DefaultLoginPath, DefaultPublicRoutes...)

	tests := []struct {
		route  string
		valid  bool
		state  State
		target string
	}{
		{route: "/movies", valid: true, state: StateAuthorized},
		{route: "/movies", valid: false, state: StateRedirecting, target: "/login?redirect=%2Fmovies"},
		{route: "/movies?page=2", valid: false, state: StateRedirecting, target: "/login?redirect=%2Fmovies%3Fpage%3D2"},
		{route: "/recommendations", valid: false, state: StateRedirecting, target: "/login?redirect=%2Frecommendations"},
		{route: "/", valid: false, state: StateRedirecting, target: "/login?redirect=%2F"},
		{route: "/loginx", valid: false, state: StateRedirecting, target: "/login?redirect=%2Floginx"},
	}
	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			d := g.Evaluate(tt.route, func() bool { return tt.valid })
			assert.Equal(t, tt.state, d.State)
			assert.Equal(t, tt.target, d.Target)
		})
	}
}

func TestGuard_NilValidatorRedirects(t *testing.T) {
	g := New("")
	d := g.Evaluate("/movies", nil)
	assert.Equal(t, StateRedirecting, d.State)
	assert.Equal(t, "/login?redirect=%2Fmovies", d.Target)
}

func TestGuard_ReevaluatesEveryRoute(t *testing.T) {
	g := New(DefaultLoginPath, DefaultPublicRoutes...)
	valid := true
	check := func() bool { return valid }

	assert.Equal(t, StateAuthorized, g.Evaluate("/movies", check).State)
	valid = false // token expired between navigations
	assert.Equal(t, StateRedirecting, g.Evaluate("/recommendations", check).State)
}

func TestSafeRedirect(t *testing.T) {
	tests := map[string]string{
		"":                     "/movies",
		"/recommendations":     "/recommendations",
		"/movies?page=2":       "/movies?page=2",
		"//evil.example.com":   "/movies",
		"/\\evil.example.com":  "/movies",
		"https://evil.example": "/movies",
		"movies":               "/movies",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeRedirect(in), in)
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "checking", StateChecking.String())
	assert.Equal(t, "authorized", StateAuthorized.String())
	assert.Equal(t, "redirecting", StateRedirecting.String())
}
