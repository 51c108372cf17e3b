package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/aikernel/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/aikernel/internal/infrastructure/tracing"
)

// Options configures a backend HTTP client
type Options struct {
	// Name labels the circuit breaker and log lines
	Name    string
	BaseURL string
	// Token is sent as a bearer token when non-empty
	Token   string
	Timeout time.Duration
	// RateLimit is requests per second; zero means unlimited
	RateLimit  float64
	MaxRetries int
	Headers    map[string]string
	Logger     *zap.Logger
	// OnStateChange observes circuit breaker transitions after they are logged
	OnStateChange func(name string, from, to resilience.State)
}

// DefaultOptions returns production-ready client options
func DefaultOptions() Options {
	return Options{
		Timeout:    60 * time.Second,
		MaxRetries: 3,
	}
}

// Client wraps resty with retries, rate limiting and a circuit breaker
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	logger  *zap.Logger
}

// StatusError reports a non-2xx upstream response
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether the upstream may succeed on a later attempt
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// New creates a client from options
func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	// Retries live in the transport so resty sees one logical request
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.MaxRetries
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	restyClient := resty.NewWithClient(retryClient.StandardClient())
	restyClient.
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", "aikernel/1.0").
		SetHeader("Accept", "application/json")
	restyClient.JSONMarshal = sonic.Marshal
	restyClient.JSONUnmarshal = sonic.Unmarshal

	if opts.Token != "" {
		restyClient.SetAuthToken(opts.Token)
	}
	for k, v := range opts.Headers {
		restyClient.SetHeader(k, v)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	name := opts.Name
	if name == "" {
		name = "backend"
	}
	breaker := resilience.New(name, resilience.Settings{
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5 ||
				(counts.Requests >= 20 && float64(counts.TotalFailures)/float64(counts.Requests) > 0.5)
		},
		IsFailure: isBreakerFailure,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Backend circuit breaker state changed",
				zap.String("backend", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
			if opts.OnStateChange != nil {
				opts.OnStateChange(name, from, to)
			}
		},
	})

	return &Client{
		resty:   restyClient,
		limiter: limiter,
		breaker: breaker,
		logger:  logger,
	}
}

// PostJSON sends body as JSON to path and decodes a successful response into result
func (c *Client) PostJSON(ctx context.Context, path string, body, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		req := c.resty.R().SetContext(ctx)
		tracing.InjectHeaders(ctx, req.Header)

		resp, err := req.
			SetHeader("Content-Type", "application/json").
			SetBody(body).
			SetResult(result).
			Post(path)
		if err != nil {
			return fmt.Errorf("POST %s: %w", path, err)
		}
		if resp.IsError() {
			return &StatusError{
				StatusCode: resp.StatusCode(),
				Message:    errorMessage(resp.Body()),
			}
		}
		return nil
	})
}

// BreakerState returns the current circuit breaker state
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// BreakerCounts returns circuit breaker statistics
func (c *Client) BreakerCounts() resilience.Counts {
	return c.breaker.Counts()
}

// isBreakerFailure keeps client mistakes and caller cancellation from tripping the breaker
func isBreakerFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return true
}

// errorMessage extracts a readable message from common upstream error payloads:
// {"error": "text"} and {"error": {"message": "text"}}
func errorMessage(body []byte) string {
	var payload struct {
		Error   interface{} `json:"error"`
		Message string      `json:"message"`
	}
	if err := sonic.Unmarshal(body, &payload); err == nil {
		switch v := payload.Error.(type) {
		case string:
			return v
		case map[string]interface{}:
			if msg, ok := v["message"].(string); ok {
				return msg
			}
		}
		if payload.Message != "" {
			return payload.Message
		}
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 256 {
		msg = msg[:256] + "..."
	}
	if msg == "" {
		msg = "empty response body"
	}
	return msg
}
