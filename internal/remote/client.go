package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"fretlog/internal/metrics"
)

const (
	defaultBaseURL   = "http://localhost:5000"
	defaultUserAgent = "fretlog-cli"
	defaultTimeout   = 10 * time.Second
	maxErrorBody     = 4096
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.StatusCode)
}

// Options configures a Client. Zero values select defaults; a zero
// RateLimit disables client-side throttling.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64
	RateBurst  int
	UserAgent  string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client talks to the FretLog HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	logger    zerolog.Logger

	categories  *collection[CategoryRecord]
	instruments *collection[InstrumentRecord]
	artists     *collection[ArtistRecord]
	library     *collection[LibraryItemRecord]
	sessions    *collection[SessionRecord]
}

// NewClient builds a Client for the server at opts.BaseURL.
func NewClient(opts Options) (*Client, error) {
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	c := &Client{
		baseURL:   base,
		http:      httpClient,
		limiter:   limiter,
		userAgent: userAgent,
		logger:    opts.Logger.With().Str("component", "remote").Logger(),
	}
	c.categories = &collection[CategoryRecord]{client: c, path: "/api/categories", name: "category"}
	c.instruments = &collection[InstrumentRecord]{client: c, path: "/api/instruments", name: "instrument"}
	c.artists = &collection[ArtistRecord]{client: c, path: "/api/artists", name: "artist"}
	c.library = &collection[LibraryItemRecord]{client: c, path: "/api/library", name: "library_item"}
	c.sessions = &collection[SessionRecord]{client: c, path: "/api/sessions", name: "session"}
	return c, nil
}

// Init fetches every collection, the current session and the theme in one request.
func (c *Client) Init(ctx context.Context) (*InitPayload, error) {
	var payload InitPayload
	if err := c.do(ctx, "init", http.MethodGet, "/api/init", nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) UpdateUser(ctx context.Context, user UserRecord) (*UserRecord, error) {
	var out UserRecord
	if err := c.do(ctx, "update_user", http.MethodPut, "/api/user", user, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Categories() Collection[CategoryRecord]    { return c.categories }
func (c *Client) Instruments() Collection[InstrumentRecord] { return c.instruments }
func (c *Client) Artists() Collection[ArtistRecord]         { return c.artists }
func (c *Client) Library() Collection[LibraryItemRecord]    { return c.library }
func (c *Client) Sessions() Collection[SessionRecord]       { return c.sessions }

// SaveCurrentSession upserts the running session and marks it current.
func (c *Client) SaveCurrentSession(ctx context.Context, session SessionRecord) (*SessionRecord, error) {
	var out SessionRecord
	if err := c.do(ctx, "save_current_session", http.MethodPost, "/api/sessions/current", session, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCurrentSession clears the current-session slot on the server.
func (c *Client) DeleteCurrentSession(ctx context.Context) error {
	return c.do(ctx, "delete_current_session", http.MethodDelete, "/api/sessions/current", nil, nil)
}

type themePayload struct {
	Theme string `json:"theme"`
}

func (c *Client) Theme(ctx context.Context) (string, error) {
	var out themePayload
	if err := c.do(ctx, "get_theme", http.MethodGet, "/api/theme", nil, &out); err != nil {
		return "", err
	}
	return out.Theme, nil
}

func (c *Client) SetTheme(ctx context.Context, theme string) error {
	return c.do(ctx, "set_theme", http.MethodPost, "/api/theme", themePayload{Theme: theme}, nil)
}

func (c *Client) Export(ctx context.Context) (Export, error) {
	var out Export
	if err := c.do(ctx, "export", http.MethodGet, "/api/export", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Import(ctx context.Context, data Export) error {
	return c.do(ctx, "import", http.MethodPost, "/api/import", data, nil)
}

// Reset clears all server data except the user profile and theme.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, "reset", http.MethodPost, "/api/clear", nil, nil)
}

// collection implements Collection against a REST resource path.
type collection[R any] struct {
	client *Client
	path   string
	name   string
}

func (col *collection[R]) Create(ctx context.Context, rec R) (*R, error) {
	var out R
	if err := col.client.do(ctx, "create_"+col.name, http.MethodPost, col.path, rec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (col *collection[R]) Update(ctx context.Context, id string, rec R) (*R, error) {
	var out R
	if err := col.client.do(ctx, "update_"+col.name, http.MethodPut, col.itemPath(id), rec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (col *collection[R]) Delete(ctx context.Context, id string) error {
	return col.client.do(ctx, "delete_"+col.name, http.MethodDelete, col.itemPath(id), nil, nil)
}

func (col *collection[R]) itemPath(id string) string {
	return col.path + "/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, dest any) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveRemote(op, started, err)
		if err != nil {
			c.logger.Debug().Err(err).Str("op", op).Msg("remote request failed")
		}
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	reqURL := c.baseURL.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Dur("elapsed", time.Since(started)).Msg("remote request")

	if resp.StatusCode >= 400 {
		return newStatusError(method, path, resp)
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func newStatusError(method, path string, resp *http.Response) *StatusError {
	statusErr := &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		statusErr.Message = payload.Error
	} else {
		statusErr.Message = strings.TrimSpace(string(raw))
	}
	return statusErr
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", raw, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
