//go:generate mockgen -source client.go -destination mocks/client.go -package mocks

// Package backend is the client for the external CineMatch REST API.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/honeynil/cinematch/internal/infrastructure/observability"
	"github.com/honeynil/cinematch/internal/models"
	pkgerrors "github.com/honeynil/cinematch/pkg/errors"
)

type Client interface {
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Register(ctx context.Context, req RegisterRequest) (*AuthResult, error)
	ListMovies(ctx context.Context, token string, page int) ([]models.Movie, error)
	SearchMovies(ctx context.Context, token, query string, page int) ([]models.Movie, error)
	GetMovie(ctx context.Context, token string, id int64) (*models.Movie, error)
	Recommendations(ctx context.Context, token, userID string) ([]models.Movie, error)
	SendFeedback(ctx context.Context, token string, feedback Feedback) error
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
}

type Feedback struct {
	UserID      string `json:"userId"`
	MovieID     int64  `json:"movieId"`
	Interaction string `json:"interaction"`
	Rate        int    `json:"rate,omitempty"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e *errorBody) text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// movieList accepts both a bare array and a {"results": [...]} envelope.
type movieList []models.Movie

func (l *movieList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(data, (*[]models.Movie)(l))
	}
	var envelope struct {
		Results []models.Movie `json:"results"`
		Movies  []models.Movie `json:"movies"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	if envelope.Results != nil {
		*l = envelope.Results
	} else {
		*l = envelope.Movies
	}
	return nil
}

type httpClient struct {
	rest *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) Client {
	rest := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	rest.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		path := resp.Request.URL
		if raw := resp.Request.RawRequest; raw != nil {
			path = raw.URL.Path
		}
		observability.BackendDuration.
			WithLabelValues(resp.Request.Method, routeLabel(path), strconv.Itoa(resp.StatusCode())).
			Observe(resp.Time().Seconds())
		if resp.StatusCode() >= http.StatusInternalServerError {
			slog.Error("backend call completed with internal error", "method", resp.Request.Method, "path", path, "status", resp.StatusCode())
		}
		return nil
	})
	rest.OnError(func(req *resty.Request, err error) {
		slog.Error("backend call failed", "method", req.Method, "url", req.URL, "error", err)
	})

	return &httpClient{rest: rest}
}

func (c *httpClient) request(ctx context.Context, token string) *resty.Request {
	req := c.rest.R().SetContext(ctx).SetError(&errorBody{})
	if token != "" {
		req.SetAuthToken(token)
	}
	return req
}

func (c *httpClient) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var result AuthResult
	resp, err := c.request(ctx, "").
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&result).
		Post("/login")
	if err != nil {
		return nil, fmt.Errorf("%w: login: %v", pkgerrors.ErrBackendUnavailable, err)
	}
	switch resp.StatusCode() {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound:
		return nil, pkgerrors.ErrInvalidCredentials
	}
	if err := statusError("login", resp); err != nil {
		return nil, err
	}
	if result.Token == "" {
		return nil, fmt.Errorf("%w: login response without token", pkgerrors.ErrInvalidToken)
	}
	return &result, nil
}

func (c *httpClient) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	var result AuthResult
	resp, err := c.request(ctx, "").
		SetBody(req).
		SetResult(&result).
		Post("/register")
	if err != nil {
		return nil, fmt.Errorf("%w: register: %v", pkgerrors.ErrBackendUnavailable, err)
	}
	if resp.StatusCode() == http.StatusConflict {
		return nil, pkgerrors.ErrEmailExists
	}
	if resp.IsError() && resp.StatusCode() < http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: %s", pkgerrors.ErrInvalidInput, backendMessage(resp))
	}
	if err := statusError("register", resp); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) ListMovies(ctx context.Context, token string, page int) ([]models.Movie, error) {
	var movies movieList
	resp, err := c.request(ctx, token).
		SetQueryParam("page", strconv.Itoa(max(page, 1))).
		SetResult(&movies).
		Get("/movies")
	if err != nil {
		return nil, fmt.Errorf("%w: list movies: %v", pkgerrors.ErrBackendUnavailable, err)
	}
	if err := statusError("list movies", resp); err != nil {
		return nil, err
	}
	return movies, nil
}

func (c *httpClient) SearchMovies(ctx context.Context, token, query string, page int) ([]models.Movie, error) {
	var movies movieList
	resp, err := c.request(ctx, token).
		SetQueryParams(map[string]string{
			"query": query,
			"page":  strconv.Itoa(max(page, 1)),
		}).
		SetResult(&movies).
		Get("/movies/search")
	if err != nil {
		return nil, fmt.Errorf("%w: search movies: %v", pkgerrors.ErrBackendUnavailable, err)
	}
	if err := statusError("search movies", resp); err != nil {
		return nil, err
	}
	return movies, nil
}

func (c *httpClient) GetMovie(ctx context.Context, token string, id int64) (*models.Movie, error) {
	var movie models.Movie
	resp, err := c.request(ctx, token).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		SetResult(&movie).
		Get("/movies/{id}")
	if err != nil {
		return nil, fmt.Errorf("%w: get movie: %v", pkgerrors.ErrBackendUnavailable, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, pkgerrors.ErrMovieNotFound
	}
	if err := statusError("get movie", resp); err != nil {
		return nil, err
	}
	return &movie, nil
}

func (c *httpClient) Recommendations(ctx context.Context, token, userID string) ([]models.Movie, error) {
	var movies movieList
	resp, err := c.request(ctx, token).
		SetPathParam("userID", userID).
		SetResult(&movies).
		Get("/recommendations/{userID}")
	if err != nil {
		return nil, fmt.Errorf("%w: recommendations: %v", pkgerrors.ErrBackendUnavailable, err)
	}
	if err := statusError("recommendations", resp); err != nil {
		return nil, err
	}
	return movies, nil
}

func (c *httpClient) SendFeedback(ctx context.Context, token string, feedback Feedback) error {
	resp, err := c.request(ctx, token).
		SetBody(feedback).
		Post("/feedback")
	if err != nil {
		return fmt.Errorf("%w: feedback: %v", pkgerrors.ErrBackendUnavailable, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return pkgerrors.ErrMovieNotFound
	}
	return statusError("feedback", resp)
}

func statusError(op string, resp *resty.Response) error {
	switch {
	case !resp.IsError():
		return nil
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return fmt.Errorf("%w: %s", pkgerrors.ErrUnauthorized, op)
	case resp.StatusCode() >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s: status %d", pkgerrors.ErrBackendUnavailable, op, resp.StatusCode())
	default:
		return fmt.Errorf("%w: %s: %s", pkgerrors.ErrInvalidInput, op, backendMessage(resp))
	}
}

func backendMessage(resp *resty.Response) string {
	if body, ok := resp.Error().(*errorBody); ok && body.text() != "" {
		return body.text()
	}
	return fmt.Sprintf("status %d", resp.StatusCode())
}

// routeLabel collapses numeric path segments to keep metric cardinality bounded.
func routeLabel(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if _, err := strconv.ParseInt(p, 10, 64); err == nil {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}
