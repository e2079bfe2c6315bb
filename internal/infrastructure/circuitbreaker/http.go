package circuitbreaker

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// HTTPClient wraps an HTTP client with circuit breaker protection
type HTTPClient struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger
}

// NewHTTPClient creates a new HTTP client with circuit breaker
func NewHTTPClient(client *http.Client, breaker *gobreaker.CircuitBreaker, log *zap.Logger) *HTTPClient {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPClient{
		client:  client,
		breaker: breaker,
		log:     log,
	}
}

// serverError carries a 5xx response through the breaker so it is counted
// as a failure while the caller still gets the body.
type serverError struct {
	resp *http.Response
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error: %d", e.resp.StatusCode)
}

// Do executes an HTTP request with circuit breaker protection. A 5xx
// response trips the breaker but is still returned with a nil error.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return nil, &serverError{resp: resp}
		}
		return resp, nil
	})

	var se *serverError
	if errors.As(err, &se) {
		return se.resp, nil
	}
	if err != nil {
		if IsOpen(err) {
			c.log.Warn("Circuit breaker open, request blocked",
				zap.String("url", req.URL.String()),
				zap.String("breaker", c.breaker.Name()),
			)
		}
		return nil, err
	}

	return result.(*http.Response), nil
}

// State returns the breaker state, e.g. for readiness checks.
func (c *HTTPClient) State() gobreaker.State {
	return c.breaker.State()
}

// HTTPClientSettings configures the HTTP client with circuit breaker
type HTTPClientSettings struct {
	// Timeout bounds a whole request; 0 leaves it to the caller's context.
	// Streaming chat responses can run for minutes.
	Timeout time.Duration

	Breaker Settings
}

// NewHTTPClientWithSettings creates a new HTTP client with the given settings
func NewHTTPClientWithSettings(settings HTTPClientSettings, log *zap.Logger) *HTTPClient {
	client := &http.Client{
		Timeout: settings.Timeout,
	}
	return NewHTTPClient(client, New(settings.Breaker, log), log)
}
