// internal/common/http/client.go
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"pharmacy-agent/internal/common/logger"
	"pharmacy-agent/internal/common/metrics"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

// ErrServerStatus marks 5xx replies; they count as breaker failures.
var ErrServerStatus = errors.New("SERVER_STATUS")

// BreakerSettings configures the circuit breaker in front of a Client.
type BreakerSettings struct {
	MaxRequests  uint32        // requests allowed while half-open
	Interval     time.Duration // window for counting failures while closed
	Timeout      time.Duration // open period before probing again
	MinRequests  uint32
	FailureRatio float64
}

// Settings configures a Client.
type Settings struct {
	Name    string
	BaseURL string
	Timeout time.Duration
	Breaker BreakerSettings
}

// Client performs JSON requests with a bounded timeout, no retries and a
// circuit breaker.
type Client struct {
	name    string
	rest    *resty.Client
	breaker *gobreaker.CircuitBreaker
	logger  logger.Logger
}

func NewClient(s Settings, log logger.Logger) *Client {
	rest := resty.New().
		SetBaseURL(s.BaseURL).
		SetTimeout(s.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &Client{
		name:    s.Name,
		rest:    rest,
		breaker: NewBreaker(s.Name, s.Breaker, log),
		logger:  log,
	}
}

// NewBreaker builds a gobreaker instance that reports its state to Prometheus.
func NewBreaker(name string, s BreakerSettings, log logger.Logger) *gobreaker.CircuitBreaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= s.FailureRatio
		},
		OnStateChange: func(cbName string, from gobreaker.State, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(cbName).Set(StateValue(to))
			log.Warn("Circuit breaker state changed", map[string]interface{}{
				"circuit": cbName,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	return cb
}

// StateValue maps a breaker state to the gauge value (0=closed, 1=open, 2=half-open).
func StateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

// Do sends a request through the breaker. Non-5xx responses are returned with
// a nil error whatever their status; the caller decodes them.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}) (*resty.Response, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req := c.rest.R().SetContext(ctx)
		if body != nil {
			req.SetHeader("Content-Type", "application/json").SetBody(body)
		}

		resp, httpErr := req.Execute(method, path)
		if httpErr != nil {
			return nil, httpErr
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return resp, fmt.Errorf("%w: %s %s returned %d", ErrServerStatus, method, path, resp.StatusCode())
		}
		return resp, nil
	})

	if err != nil {
		metrics.CircuitBreakerFailures.WithLabelValues(c.name).Inc()
		c.logger.Debug("Backend request failed", map[string]interface{}{
			"circuit": c.name,
			"method":  method,
			"path":    path,
			"error":   err.Error(),
		})
	}

	resp, _ := result.(*resty.Response)
	return resp, err
}

// State reports the breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}
