package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/ipc-control-room/ipc-project/internal/infrastructure/resilience"
)

// ErrBroker matches every *BrokerError.
var ErrBroker = errors.New("broker error")

// BrokerError is a non-2xx answer from the broker.
type BrokerError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *BrokerError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
}

// Is reports whether target is ErrBroker.
func (e *BrokerError) Is(target error) bool { return target == ErrBroker }

// Config configures a broker client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
	// Breaker guards every call. Zero fields take resilience defaults.
	Breaker resilience.Settings
}

// DefaultConfig returns settings for a broker on localhost.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "http://localhost:8000",
		Timeout:    35 * time.Second,
		MaxRetries: 3,
		MinWait:    200 * time.Millisecond,
		MaxWait:    2 * time.Second,
		Breaker: resilience.Settings{
			FailureThreshold: 5,
			Cooldown:         10 * time.Second,
		},
	}
}

// Client talks to a broker over its HTTP API
type Client struct {
	resty   *resty.Client
	breaker *resilience.Breaker
	mu      sync.RWMutex
}

// New creates a client. Requests that fail at the transport or come back
// 5xx or 429 are retried; the breaker counts a call failed only after its
// retries are spent.
func New(cfg Config) *Client {
	pooled := retryablehttp.NewClient()
	pooled.Logger = nil

	r := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.MinWait).
		SetRetryMaxWaitTime(cfg.MaxWait).
		SetTransport(pooled.HTTPClient.Transport).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetHeader("User-Agent", "ipc-broker-client/1.0").
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			code := resp.StatusCode()
			return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
		})

	return &Client{
		resty:   r,
		breaker: resilience.New("broker", cfg.Breaker),
	}
}

// SetActor sends X-Actor-ID on every request, so the broker rate limits
// this client per actor.
func (c *Client) SetActor(actor int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resty.SetHeader("X-Actor-ID", strconv.Itoa(actor))
}

// BreakerState reports the breaker guarding this client.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

type apiError struct {
	Error string `json:"error"`
}

// do runs one request through the breaker. result may be nil. Client
// errors (4xx) are returned but do not count against the breaker.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var rejected error
	err := c.breaker.Do(func() error {
		c.mu.RLock()
		req := c.resty.R().SetContext(ctx).SetError(&apiError{})
		c.mu.RUnlock()

		if body != nil {
			req.SetBody(body)
		}
		if result != nil {
			req.SetResult(result)
		}

		resp, err := req.Execute(method, path)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		if !resp.IsError() {
			return nil
		}

		berr := &BrokerError{Method: method, Path: path, Status: resp.StatusCode(), Message: resp.Status()}
		if e, ok := resp.Error().(*apiError); ok && e.Error != "" {
			berr.Message = e.Error
		}
		if berr.Status >= http.StatusInternalServerError {
			return berr
		}
		rejected = berr
		return nil
	})
	if err != nil {
		return err
	}
	return rejected
}
