// Package forgehttp is the shared HTTP core for both forge APIs:
// authenticated requests with retry, backoff, a minimum-interval rate
// gate, pagination, and API budget accounting. Discovery clients are
// constructed read-only and refuse every verb other than GET.
package forgehttp

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/Strob0t/ForgeShift/internal/domain"
	"github.com/Strob0t/ForgeShift/internal/resilience"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 5
	defaultBackoff    = time.Second
	maxBackoff        = 60 * time.Second
	maxErrorBody      = 512
)

// AuthStyle selects how the token is attached to requests.
type AuthStyle int

const (
	// AuthPrivateToken sends the token in a PRIVATE-TOKEN header
	// (GitLab style).
	AuthPrivateToken AuthStyle = iota
	// AuthBearer sends the token as an Authorization bearer header
	// (GitHub style).
	AuthBearer
)

// Options configures a Client.
type Options struct {
	BaseURL string
	Token   string
	Auth    AuthStyle

	// Timeout is the per-request transport timeout (default 30s).
	Timeout time.Duration
	// InsecureSkipVerify disables TLS verification. Off by default.
	InsecureSkipVerify bool
	// MaxRetries bounds retry attempts per request (default 5).
	MaxRetries int
	// BackoffBase is the exponential backoff base delay (default 1s).
	BackoffBase time.Duration
	// MaxRequestsPerMinute arms a minimum-interval gate when > 0.
	MaxRequestsPerMinute int
	// ReadOnly makes the client refuse non-GET verbs.
	ReadOnly bool
	// Budget, when set, accounts every dispatch against a call ceiling.
	Budget *Budget

	Logger *slog.Logger
}

// Response is the raw outcome of a forge request.
type Response struct {
	Status int
	Body   []byte
	Header http.Header
}

// Error is a categorized forge request failure carrying the last-seen
// HTTP status and a truncated response body.
type Error struct {
	Category domain.Category
	Status   int
	Body     string
	Method   string
	Path     string
	Err      error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s %s: %s (HTTP %d): %s", e.Method, e.Path, e.Category, e.Status, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Method, e.Path, e.Category, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Category)
}

func (e *Error) Unwrap() error { return e.Err }

// AsError unwraps a forge request failure from an error chain.
func AsError(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// Client is a rate-limited, retrying HTTP client for one forge.
type Client struct {
	baseURL     string
	token       string
	auth        AuthStyle
	httpClient  *http.Client
	maxRetries  int
	backoffBase time.Duration
	readOnly    bool
	budget      *Budget
	limiter     *rate.Limiter
	logger      *slog.Logger

	stats Stats

	mu        sync.Mutex
	notBefore time.Time
}

// New builds a Client. The base URL's trailing slash is stripped so
// request paths can always start with "/".
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = defaultBackoff
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	transport := http.DefaultTransport
	if opts.InsecureSkipVerify {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		transport = t
	}

	c := &Client{
		baseURL:     strings.TrimSuffix(opts.BaseURL, "/"),
		token:       opts.Token,
		auth:        opts.Auth,
		maxRetries:  opts.MaxRetries,
		backoffBase: opts.BackoffBase,
		readOnly:    opts.ReadOnly,
		budget:      opts.Budget,
		logger:      opts.Logger,
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
	}
	if opts.MaxRequestsPerMinute > 0 {
		interval := time.Minute / time.Duration(opts.MaxRequestsPerMinute)
		c.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return c
}

// BaseURL returns the configured forge root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Stats returns a snapshot of the call counters.
func (c *Client) Stats() StatsSnapshot { return c.stats.Snapshot() }

// Budget returns the attached call budget, if any.
func (c *Client) Budget() *Budget { return c.budget }

// Get issues a GET request against path with optional query values.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, query, nil)
}

// GetJSON issues a GET request and decodes the response body into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &Error{Category: domain.CategoryInternal, Status: resp.Status, Method: http.MethodGet, Path: path, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// Do issues a request with the full verb set. Read-only clients refuse
// everything but GET before any budget or network activity happens.
// body, when non-nil, is JSON encoded.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (*Response, error) {
	if c.readOnly && method != http.MethodGet {
		return nil, &Error{
			Category: domain.CategoryValidation,
			Method:   method,
			Path:     path,
			Err:      fmt.Errorf("client is read-only"),
		}
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, &Error{Category: domain.CategoryInternal, Method: method, Path: path, Err: fmt.Errorf("encode request body: %w", err)}
		}
	}
	return c.send(ctx, method, path, query, "application/json", payload)
}

// Upload POSTs a raw body with the given content type, following the
// same retry, rate gate, and budget path as Do. Asset uploads use this
// because their bodies are not JSON.
func (c *Client) Upload(ctx context.Context, path string, query url.Values, contentType string, data []byte) (*Response, error) {
	if c.readOnly {
		return nil, &Error{
			Category: domain.CategoryValidation,
			Method:   http.MethodPost,
			Path:     path,
			Err:      fmt.Errorf("client is read-only"),
		}
	}
	return c.send(ctx, http.MethodPost, path, query, contentType, data)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, contentType string, payload []byte) (*Response, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var (
		lastErr       error
		budgetCrossed bool
	)
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if c.budget != nil {
			if attempt == 0 && c.budget.Exhausted() {
				return nil, domain.ErrBudgetExhausted
			}
			if attempt > 0 && budgetCrossed {
				// The in-flight call crossed the ceiling; no more
				// retries for it.
				return nil, fmt.Errorf("%w: retry abandoned", domain.ErrBudgetExhausted)
			}
			if !c.budget.Register() {
				budgetCrossed = true
			}
		}
		if err := c.waitTurn(ctx); err != nil {
			return nil, &Error{Category: domain.CategoryTransport, Method: method, Path: path, Err: err}
		}

		if attempt > 0 {
			c.stats.retried.Add(1)
		}
		c.stats.total.Add(1)

		resp, retryable, err := c.dispatch(ctx, method, reqURL, contentType, payload)
		if err == nil && resp != nil {
			c.stats.successful.Add(1)
			return resp, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		if attempt < c.maxRetries {
			delay := c.retryDelay(attempt, err)
			c.logger.Debug("retrying forge request",
				"method", method,
				"path", path,
				"attempt", attempt+1,
				"delay", delay.String())
			if err := resilience.Sleep(ctx, delay); err != nil {
				lastErr = &Error{Category: domain.CategoryTransport, Method: method, Path: path, Err: err}
				break
			}
		}
	}

	c.stats.failed.Add(1)
	return nil, lastErr
}

// dispatch performs one HTTP attempt. It returns retryable=true for
// transport errors, 429 and 5xx.
func (c *Client) dispatch(ctx context.Context, method, reqURL, contentType string, payload []byte) (*Response, bool, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, false, &Error{Category: domain.CategoryInternal, Method: method, Path: reqURL, Err: err}
	}
	switch c.auth {
	case AuthPrivateToken:
		req.Header.Set("PRIVATE-TOKEN", c.token)
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, &Error{Category: domain.CategoryTransport, Method: method, Path: req.URL.Path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, &Error{Category: domain.CategoryTransport, Status: resp.StatusCode, Method: method, Path: req.URL.Path, Err: err}
	}

	if ra := resp.Header.Get("Retry-After"); ra != "" {
		c.armNotBefore(ra)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &Response{Status: resp.StatusCode, Body: raw, Header: resp.Header}, false, nil
	}

	fe := &Error{
		Category: domain.CategoryForStatus(resp.StatusCode),
		Status:   resp.StatusCode,
		Body:     truncate(string(raw), maxErrorBody),
		Method:   method,
		Path:     req.URL.Path,
	}
	retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
	return nil, retryable, fe
}

// waitTurn blocks on the minimum-interval gate and on any hard
// not-before timestamp armed by a Retry-After response.
func (c *Client) waitTurn(ctx context.Context) error {
	c.mu.Lock()
	wait := time.Until(c.notBefore)
	c.mu.Unlock()
	if wait > 0 {
		if err := resilience.Sleep(ctx, wait); err != nil {
			return err
		}
	}
	if c.limiter != nil {
		return c.limiter.Wait(ctx)
	}
	return nil
}

func (c *Client) armNotBefore(retryAfter string) {
	var until time.Time
	if secs, err := strconv.Atoi(retryAfter); err == nil {
		until = time.Now().Add(time.Duration(secs) * time.Second)
	} else if t, err := http.ParseTime(retryAfter); err == nil {
		until = t
	} else {
		return
	}
	c.mu.Lock()
	if until.After(c.notBefore) {
		c.notBefore = until
	}
	c.mu.Unlock()
}

// retryDelay computes base·2ⁿ capped at 60s, preferring the server's
// Retry-After when the failure carried one.
func (c *Client) retryDelay(attempt int, err error) time.Duration {
	if fe, ok := AsError(err); ok && fe.Status == http.StatusTooManyRequests {
		c.mu.Lock()
		wait := time.Until(c.notBefore)
		c.mu.Unlock()
		if wait > 0 {
			if wait > maxBackoff {
				wait = maxBackoff
			}
			return wait
		}
	}
	return resilience.Backoff(c.backoffBase, attempt, maxBackoff)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
