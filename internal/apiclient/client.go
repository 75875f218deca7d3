// Package apiclient is the HTTP transport to the clinic REST API.
package apiclient

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
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-admin/internal/model"
	apperrors "github.com/jwalitptl/clinic-admin/pkg/errors"
	"github.com/jwalitptl/clinic-admin/pkg/logger"
	"github.com/jwalitptl/clinic-admin/pkg/metrics"
)

const (
	IdentityEndpoint = "/userData"
	LoginEndpoint    = "/login"
	LogoutEndpoint   = "/logout"
	ImagesEndpoint   = "/images"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	Burst     int
}

// UnauthorizedHandler is called for a 401 on any endpoint other than the
// identity probe and login.
type UnauthorizedHandler func(endpoint string)

type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	log     *logger.Logger
	metrics *metrics.Metrics

	mu             sync.RWMutex
	token          string
	onUnauthorized UnauthorizedHandler
}

func New(cfg Config, log *logger.Logger, m *metrics.Metrics) (*Client, error) {
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	jar, err := newResettableJar()
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.NewNop()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout, Jar: jar},
		limiter: rate.NewLimiter(limit, cfg.Burst),
		log:     log,
		metrics: m,
	}, nil
}

// SetToken sets the bearer token sent with every request. Empty clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// OnUnauthorized installs the session-expiry hook.
func (c *Client) OnUnauthorized(h UnauthorizedHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = h
}

// ClearCookies drops every cookie the server set.
func (c *Client) ClearCookies() {
	if j, ok := c.http.Jar.(*resettableJar); ok {
		j.reset()
	}
}

func (c *Client) Get(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	return c.Do(ctx, http.MethodGet, endpoint, query, nil, out)
}

func (c *Client) Post(ctx context.Context, endpoint string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPost, endpoint, nil, body, out)
}

func (c *Client) Put(ctx context.Context, endpoint string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPut, endpoint, nil, body, out)
}

func (c *Client) Delete(ctx context.Context, endpoint string) error {
	return c.Do(ctx, http.MethodDelete, endpoint, nil, nil, nil)
}

// Do sends a JSON request and decodes a JSON response into out (if non-nil).
// Non-2xx responses become *errors.AppError values.
func (c *Client) Do(ctx context.Context, method, endpoint string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := c.newRequest(ctx, method, endpoint, query, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, endpoint, out)
}

// Upload posts a single file as multipart/form-data under field.
func (c *Client) Upload(ctx context.Context, endpoint, field, filename string, r io.Reader, out interface{}) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("failed to read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, endpoint, nil, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(req, endpoint, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, body io.Reader) (*http.Request, error) {
	target := c.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, endpoint string, out interface{}) error {
	label := metricEndpoint(endpoint)

	if err := c.limiter.Wait(req.Context()); err != nil {
		return apperrors.Transport(err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.APILatency.WithLabelValues(req.Method, label).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.APIRequests.WithLabelValues(req.Method, label, "error").Inc()
		c.log.Debug("request failed", "method", req.Method, "endpoint", endpoint, "error", err.Error())
		return apperrors.Transport(err)
	}
	defer resp.Body.Close()

	c.metrics.APIRequests.WithLabelValues(req.Method, label, strconv.Itoa(resp.StatusCode)).Inc()
	c.log.Debug("request done", "method", req.Method, "endpoint", endpoint, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		appErr := apperrors.FromStatus(resp.StatusCode, readErrorMessage(resp.Body))
		if resp.StatusCode == http.StatusUnauthorized && triggersExpiry(endpoint) {
			c.mu.RLock()
			h := c.onUnauthorized
			c.mu.RUnlock()
			if h != nil {
				h(endpoint)
			}
		}
		return appErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// triggersExpiry excludes the probe and login, whose 401 is an answer rather
// than an expired session.
func triggersExpiry(endpoint string) bool {
	return endpoint != IdentityEndpoint && endpoint != LoginEndpoint
}

func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body struct {
		model.ErrorBody
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

// metricEndpoint keeps only the first path segment so IDs do not explode
// label cardinality.
func metricEndpoint(endpoint string) string {
	trimmed := strings.TrimPrefix(endpoint, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		trimmed = trimmed[:i]
	}
	return "/" + trimmed
}

type resettableJar struct {
	mu  sync.RWMutex
	jar http.CookieJar
}

func newResettableJar() (*resettableJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &resettableJar{jar: jar}, nil
}

func (j *resettableJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	j.jar.SetCookies(u, cookies)
}

func (j *resettableJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.jar.Cookies(u)
}

func (j *resettableJar) reset() {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return
	}
	j.mu.Lock()
	j.jar = jar
	j.mu.Unlock()
}
