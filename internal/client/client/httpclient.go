package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/docscrib/docscrib-cli/internal/client/models"
	"github.com/docscrib/docscrib-cli/internal/client/notify"
	"github.com/docscrib/docscrib-cli/internal/client/tokens"
	"github.com/docscrib/docscrib-cli/internal/common"
	"github.com/docscrib/docscrib-cli/internal/logging"
	"github.com/google/uuid"
)

// API paths.
const (
	PathLogin          = "/api/auth/login"
	PathRegister       = "/api/auth/register"
	PathMe             = "/api/auth/me"
	PathLogout         = "/api/auth/logout"
	PathGoogleCallback = "/api/auth/google/callback"
	PathUploadImage    = "/api/auth/upload-profile-image"
)

// ProfileImageField is the multipart form field carrying the image.
const ProfileImageField = "file"

// maxBodySize caps how much of a response body is read.
const maxBodySize = 10 << 20

// HTTPClientConfig holds the settings of the HTTP API client.
type HTTPClientConfig struct {
	// BaseURL is the scheme://host[:port] of the API, e.g. http://localhost:8000.
	BaseURL string
	// Timeout bounds a whole request. Zero means no timeout.
	Timeout time.Duration
}

type HTTPClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     tokens.Store
	notifier   notify.Notifier
	log        logging.Logger
	requestID  func() string
}

var _ Client = (*HTTPClient)(nil)

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client. A cookie jar is
// attached when it has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

func WithNotifier(n notify.Notifier) Option {
	return func(c *HTTPClient) { c.notifier = n }
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.log = l }
}

// WithRequestID overrides the X-Request-ID generator.
func WithRequestID(fn func() string) Option {
	return func(c *HTTPClient) { c.requestID = fn }
}

// NewHTTPClient builds the API client. store may be nil, in which case no
// bearer token is sent.
func NewHTTPClient(cfg HTTPClientConfig, store tokens.Store, opts ...Option) (*HTTPClient, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", cfg.BaseURL)
	}

	c := &HTTPClient{
		baseURL:   base,
		tokens:    store,
		notifier:  notify.Nop{},
		log:       logging.NewNop(),
		requestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}
	c.log = c.log.With("component", "client.http")

	return c, nil
}

func (c *HTTPClient) Login(ctx context.Context, creds models.Credentials) (json.RawMessage, error) {
	raw, err := c.postJSON(ctx, PathLogin, creds)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *HTTPClient) Register(ctx context.Context, reg models.Registration) (json.RawMessage, error) {
	raw, err := c.postJSON(ctx, PathRegister, reg)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *HTTPClient) GoogleCallback(ctx context.Context, cb models.GoogleCallback) (json.RawMessage, error) {
	raw, err := c.postJSON(ctx, PathGoogleCallback, cb)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *HTTPClient) Me(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, PathMe, nil, "")
}

func (c *HTTPClient) UpdateMe(ctx context.Context, upd models.ProfileUpdate) (json.RawMessage, error) {
	return c.sendJSON(ctx, http.MethodPut, PathMe, upd)
}

// CompleteOnboarding stores the onboarding fields through the same
// endpoint as profile updates.
func (c *HTTPClient) CompleteOnboarding(ctx context.Context, data models.OnboardingData) (json.RawMessage, error) {
	return c.sendJSON(ctx, http.MethodPut, PathMe, data)
}

func (c *HTTPClient) UploadProfileImage(ctx context.Context, filename string, r io.Reader) (json.RawMessage, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile(ProfileImageField, filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("multipart: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("multipart: %w", err)
	}

	return c.do(ctx, http.MethodPost, PathUploadImage, &buf, w.FormDataContentType())
}

// Logout tells the server to end the session, sending the refresh token
// when one is stored so the server can revoke it.
func (c *HTTPClient) Logout(ctx context.Context) error {
	body := map[string]string{}
	if c.tokens != nil {
		if refresh, err := c.tokens.RefreshToken(ctx); err == nil && refresh != "" {
			body["refresh_token"] = refresh
		}
	}
	_, err := c.postJSON(ctx, PathLogout, body)
	return err
}

func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) postJSON(ctx context.Context, path string, v any) (json.RawMessage, error) {
	return c.sendJSON(ctx, http.MethodPost, path, v)
}

func (c *HTTPClient) sendJSON(ctx context.Context, method, path string, v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", path, err)
	}
	return c.do(ctx, method, path, bytes.NewReader(b), "application/json")
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, contentType string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	reqID := c.requestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(common.RequestIDHeaderName, reqID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.authorize(ctx, req)

	log := c.log.With("method", method, "path", path, "request_id", reqID)
	log.Debug(ctx, "request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, ctxErr)
		}
		log.Warn(ctx, "transport failure", "error", err)
		return nil, fmt.Errorf("%s %s: %w: %w", method, path, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w: %w", method, path, ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp.StatusCode, data)
		log.Warn(ctx, "request failed", "status", resp.StatusCode, "message", apiErr.Message)
		if resp.StatusCode >= http.StatusInternalServerError {
			c.notifier.Notify(ctx, notify.LevelError, apiErr.Message)
		}
		return nil, apiErr
	}

	log.Debug(ctx, "response", "status", resp.StatusCode)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	return json.RawMessage(data), nil
}

func (c *HTTPClient) authorize(ctx context.Context, req *http.Request) {
	if c.tokens == nil {
		return
	}
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		c.log.Warn(ctx, "read access token", "error", err)
		return
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}
}

func newAPIError(status int, body []byte) *APIError {
	return &APIError{Status: status, Message: errorMessage(status, body)}
}

// errorMessage picks the most specific message available: {message},
// then {error}, then the raw body, then a synthesized one.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	// A mistyped field does not stop the others from decoding.
	_ = json.Unmarshal(body, &payload)
	if payload.Message != "" {
		return payload.Message
	}
	if payload.Error != "" {
		return payload.Error
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP error! status: %d", status)
}
