package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/agroflow/irrigation-advisor/internal/resilience"
)

// HTTPClientConfig bundles the HTTP client and retry settings shared by all
// provider implementations.
type HTTPClientConfig struct {
	Client *http.Client
	Retry  resilience.RetryPolicy
}

// defaultRetry matches the provider contract: 3 attempts, 1s base, doubling.
func defaultRetry() resilience.RetryPolicy {
	return resilience.RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 1 * time.Second,
		Factor:          2,
		MaxInterval:     10 * time.Second,
	}
}

var (
	errRateLimited  = errors.New("rate limited")
	errServerError  = errors.New("server error")
	errUnexpected   = errors.New("unexpected status code")
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// doRequestWithResilience executes the HTTP request under the retry policy and
// circuit breaker. Client errors (4xx other than 429) are permanent; rate
// limits and server errors are retried with backoff.
func doRequestWithResilience(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}

	var resp *http.Response
	err := cfg.Retry.Do(ctx, func() error {
		req, err := buildRequest()
		if err != nil {
			return resilience.Permanent{Err: err}
		}

		// Per-attempt timeout is enforced by the injected client's Timeout;
		// the outer ctx carries the overall request deadline.
		req = req.WithContext(ctx)

		result, err := cb.Execute(func() (interface{}, error) {
			r, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			if r.StatusCode == http.StatusTooManyRequests {
				r.Body.Close()
				return nil, errRateLimited
			}
			if r.StatusCode >= 500 {
				r.Body.Close()
				return nil, errServerError
			}
			if r.StatusCode < 200 || r.StatusCode >= 300 {
				r.Body.Close()
				return nil, fmt.Errorf("%w: %d", errUnexpected, r.StatusCode)
			}
			return r, nil
		})
		if err != nil {
			// An open circuit will not recover within this call's retries.
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return resilience.Permanent{Err: fmt.Errorf("%w: %v", errCircuitOpen, err)}
			}
			if errors.Is(err, errUnexpected) {
				return resilience.Permanent{Err: err}
			}
			return err
		}

		r, ok := result.(*http.Response)
		if !ok {
			return resilience.Permanent{Err: fmt.Errorf("unexpected result type from circuit breaker")}
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
