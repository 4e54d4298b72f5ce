package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/honeynil/cinematch/internal/guard"
	"github.com/honeynil/cinematch/internal/infrastructure/backend"
	"github.com/honeynil/cinematch/internal/models"
	service "github.com/honeynil/cinematch/internal/services"
	"github.com/honeynil/cinematch/internal/session"
	pkgerrors "github.com/honeynil/cinematch/pkg/errors"
)

type Handler struct {
	auth   *service.AuthService
	movies *service.MovieService
}

func NewHandler(auth *service.AuthService, movies *service.MovieService) *Handler {
	return &Handler{auth: auth, movies: movies}
}

type errorResponse struct {
	Error string `json:"error"`
}

type authResponse struct {
	User     *models.User `json:"user,omitempty"`
	Redirect string       `json:"redirect"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// badRequest answers a malformed body without echoing decoder details.
func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	slog.Warn("malformed request body", "path", r.URL.Path, "error", err)
	h.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: invalid request body", pkgerrors.ErrInvalidInput))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pkgerrors.ErrInvalidCredentials),
		errors.Is(err, pkgerrors.ErrUnauthorized),
		errors.Is(err, pkgerrors.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, pkgerrors.ErrEmailExists):
		return http.StatusConflict
	case errors.Is(err, pkgerrors.ErrInvalidInput),
		errors.Is(err, pkgerrors.ErrInvalidInteraction),
		errors.Is(err, pkgerrors.ErrNilInteraction):
		return http.StatusBadRequest
	case errors.Is(err, pkgerrors.ErrMovieNotFound),
		errors.Is(err, pkgerrors.ErrInteractionNotFound):
		return http.StatusNotFound
	case errors.Is(err, pkgerrors.ErrBackendUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// serviceError writes err with its mapped status. A backend 401 means the
// token was revoked or expired server side, so the session is dropped too.
func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if errors.Is(err, pkgerrors.ErrUnauthorized) {
		if store, ok := session.StoreFromContext(r.Context()); ok {
			store.Clear(r.Context())
		}
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "error", err)
	}
	h.writeError(w, status, err)
}

func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/signup", h.Register).Methods("POST")
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/logout", h.Logout).Methods("POST")
}

func (h *Handler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.Me).Methods("GET")
	r.HandleFunc("/movies", h.Movies).Methods("GET")
	r.HandleFunc("/movies/search", h.Search).Methods("GET")
	r.HandleFunc("/movies/{id:[0-9]+}", h.Movie).Methods("GET")
	r.HandleFunc("/movies/{id:[0-9]+}/rate", h.Rate).Methods("POST")
	r.HandleFunc("/recommendations", h.Recommendations).Methods("GET")
	r.HandleFunc("/swipe", h.Swipe).Methods("POST")
	r.HandleFunc("/history", h.History).Methods("GET")
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Redirect string `json:"redirect"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	store, ok := session.StoreFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, errors.New("session unavailable"))
		return
	}

	claims, err := h.auth.Login(r.Context(), store, req.Email, req.Password)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, authResponse{
		User:     userFor(r, store, claims),
		Redirect: guard.SafeRedirect(redirectTarget(r, req.Redirect)),
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
		Redirect string `json:"redirect"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	store, ok := session.StoreFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, errors.New("session unavailable"))
		return
	}

	claims, err := h.auth.Register(r.Context(), store, backend.RegisterRequest{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	if claims == nil {
		h.writeJSON(w, http.StatusCreated, authResponse{Redirect: guard.DefaultLoginPath})
		return
	}
	h.writeJSON(w, http.StatusCreated, authResponse{
		User:     userFor(r, store, claims),
		Redirect: guard.SafeRedirect(redirectTarget(r, req.Redirect)),
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if store, ok := session.StoreFromContext(r.Context()); ok {
		h.auth.Logout(r.Context(), store)
	}
	h.writeJSON(w, http.StatusOK, authResponse{Redirect: guard.DefaultLoginPath})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	store, claims, ok := h.principal(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, userFor(r, store, claims))
}

func (h *Handler) Movies(w http.ResponseWriter, r *http.Request) {
	store, claims, ok := h.principal(w, r)
	if !ok {
		return
	}
	page, err := intParam(r, "page", 1)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	movies, err := h.movies.Movies(r.Context(), claims.UserID, store.Get(r.Context()), page)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, movies)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.principal(w, r)
	if !ok {
		return
	}
	page, err := intParam(r, "page", 1)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	movies, err := h.movies.Search(r.Context(), store.Get(r.Context()), r.URL.Query().Get("query"), page)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, movies)
}

func (h *Handler) Movie(w http.ResponseWriter, r *http.Request) {
	store, _, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, pkgerrors.ErrInvalidInput)
		return
	}

	movie, err := h.movies.Movie(r.Context(), store.Get(r.Context()), id)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, movie)
}

func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	store, claims, ok := h.principal(w, r)
	if !ok {
		return
	}

	movies, err := h.movies.Recommendations(r.Context(), claims.UserID, store.Get(r.Context()))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, movies)
}

func (h *Handler) Swipe(w http.ResponseWriter, r *http.Request) {
	store, claims, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req struct {
		MovieID   int64  `json:"movie_id"`
		Direction string `json:"direction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	var typ models.InteractionType
	switch req.Direction {
	case "right":
		typ = models.InteractionLike
	case "left":
		typ = models.InteractionDislike
	default:
		h.writeError(w, http.StatusBadRequest, errors.New("direction must be left or right"))
		return
	}

	h.interact(w, r, store, claims, &models.Interaction{MovieID: req.MovieID, Type: typ})
}

func (h *Handler) Rate(w http.ResponseWriter, r *http.Request) {
	store, claims, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, pkgerrors.ErrInvalidInput)
		return
	}
	var req struct {
		Rating int `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	h.interact(w, r, store, claims, &models.Interaction{MovieID: id, Type: models.InteractionRate, Rating: req.Rating})
}

func (h *Handler) interact(w http.ResponseWriter, r *http.Request, store *session.TokenStore, claims *models.TokenClaims, interaction *models.Interaction) {
	if err := h.movies.Interact(r.Context(), claims.UserID, store.Get(r.Context()), interaction); err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, interaction)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	_, claims, ok := h.principal(w, r)
	if !ok {
		return
	}
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	history, err := h.movies.History(r.Context(), claims.UserID, uint64(limit), uint64(offset))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, history)
}

// principal returns the caller's session. The guard only lets authorized
// requests through, so a miss here is a wiring bug.
func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (*session.TokenStore, *models.TokenClaims, bool) {
	store, ok := session.StoreFromContext(r.Context())
	claims, hasClaims := session.ClaimsFromContext(r.Context())
	if !ok || !hasClaims {
		h.writeError(w, http.StatusUnauthorized, pkgerrors.ErrUnauthorized)
		return nil, nil, false
	}
	return store, claims, true
}

func userFor(r *http.Request, store *session.TokenStore, claims *models.TokenClaims) *models.User {
	if user := store.User(r.Context()); user != nil && user.ID == claims.UserID {
		return user
	}
	return &models.User{ID: claims.UserID, Email: claims.Email}
}

func redirectTarget(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return r.URL.Query().Get(guard.RedirectParam)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.Join(pkgerrors.ErrInvalidInput, errors.New("bad "+name+" parameter"))
	}
	return v, nil
}
