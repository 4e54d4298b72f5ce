// Package guard decides, per request, whether a route may be served.
//
// Every evaluation starts in StateChecking and ends in exactly one of
// StateAuthorized or StateRedirecting. Public routes are authorized without
// looking at the token; everything else needs a locally valid token. Tokens
// revoked by the backend before their exp are not detected here.
package guard

import (
	"net/url"
	"strings"
)

type State int

const (
	StateChecking State = iota
	StateAuthorized
	StateRedirecting
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateAuthorized:
		return "authorized"
	case StateRedirecting:
		return "redirecting"
	default:
		return "unknown"
	}
}

// Decision is the outcome of one evaluation. Target is set only when redirecting.
type Decision struct {
	State  State
	Target string
}

const (
	DefaultLoginPath   = "/login"
	DefaultLandingPath = "/movies"
	RedirectParam      = "redirect"
)

var DefaultPublicRoutes = []string{"/login", "/signup", "/register", "/logout", "/healthz", "/metrics"}

type Guard struct {
	loginPath string
	public    map[string]struct{}
}

func New(loginPath string, publicRoutes ...string) *Guard {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	public := make(map[string]struct{}, len(publicRoutes)+1)
	public[loginPath] = struct{}{}
	for _, route := range publicRoutes {
		public[normalizePath(route)] = struct{}{}
	}
	return &Guard{loginPath: loginPath, public: public}
}

func (g *Guard) IsPublic(path string) bool {
	_, ok := g.public[normalizePath(path)]
	return ok
}

// Evaluate is side-effect free: route is the requested path (optionally with
// its query string) and valid reports whether the caller holds a usable token.
// valid is not called for public routes.
func (g *Guard) Evaluate(route string, valid func() bool) Decision {
	path := route
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if g.IsPublic(path) {
		return Decision{State: StateAuthorized}
	}
	if valid != nil && valid() {
		return Decision{State: StateAuthorized}
	}
	return Decision{State: StateRedirecting, Target: g.LoginTarget(route)}
}

// LoginTarget is the login route carrying route as the post-login return target.
func (g *Guard) LoginTarget(route string) string {
	if route == "" {
		return g.loginPath
	}
	return g.loginPath + "?" + url.Values{RedirectParam: {route}}.Encode()
}

// SafeRedirect accepts only local absolute paths as post-login return targets.
func SafeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return DefaultLandingPath
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return DefaultLandingPath
	}
	return target
}

func normalizePath(path string) string {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}
