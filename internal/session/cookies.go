package session

import "net/http"

// Cookies is the cookie side of the token store.
type Cookies interface {
	// Value returns the cookie value visible to the current request, taking
	// cookies set earlier in the same request into account.
	Value(name string) (string, bool)
	Set(cookie *http.Cookie)
}

// HTTPCookies reads cookies from an incoming request and writes them to its response.
type HTTPCookies struct {
	w       http.ResponseWriter
	r       *http.Request
	pending map[string]*http.Cookie
}

func NewHTTPCookies(w http.ResponseWriter, r *http.Request) *HTTPCookies {
	return &HTTPCookies{w: w, r: r, pending: make(map[string]*http.Cookie)}
}

func (c *HTTPCookies) Value(name string) (string, bool) {
	if cookie, ok := c.pending[name]; ok {
		if cookie.MaxAge < 0 || cookie.Value == "" {
			return "", false
		}
		return cookie.Value, true
	}
	cookie, err := c.r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func (c *HTTPCookies) Set(cookie *http.Cookie) {
	c.pending[cookie.Name] = cookie
	http.SetCookie(c.w, cookie)
}
