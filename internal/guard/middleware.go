package guard

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/honeynil/cinematch/internal/infrastructure/observability"
	"github.com/honeynil/cinematch/internal/session"
)

// SessionlessRoutes are public routes served without touching the session,
// so probes and scrapes are not handed device cookies.
var SessionlessRoutes = []string{"/healthz", "/metrics"}

// Middleware evaluates the guard on every request. Nothing from next is
// written unless the decision is StateAuthorized; redirected callers get a
// 302 to the login route with a placeholder body.
//
// Authorized protected requests carry the TokenStore and, when the store can
// vouch for it, the caller's identity (see session.TokenStore.Identity).
func Middleware(g *Guard, sessions *session.Manager) mux.MiddlewareFunc {
	sessionless := make(map[string]struct{}, len(SessionlessRoutes))
	for _, route := range SessionlessRoutes {
		sessionless[normalizePath(route)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var store *session.TokenStore
			load := func() *session.TokenStore {
				if store == nil {
					store = sessions.Store(w, r)
				}
				return store
			}

			decision := g.Evaluate(r.URL.RequestURI(), func() bool {
				return load().IsValid(r.Context())
			})
			observability.GuardDecisions.WithLabelValues(decision.State.String()).Inc()

			if decision.State != StateAuthorized {
				slog.Info("redirecting unauthenticated request", "path", r.URL.Path, "target", decision.Target)
				http.Redirect(w, r, decision.Target, http.StatusFound)
				return
			}

			if _, ok := sessionless[normalizePath(r.URL.Path)]; ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := session.WithStore(r.Context(), load())
			if !g.IsPublic(r.URL.Path) {
				if claims := store.Identity(ctx); claims != nil {
					ctx = session.WithClaims(ctx, claims)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
