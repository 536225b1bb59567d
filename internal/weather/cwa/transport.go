package cwa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-card/internal/weather"
)

var (
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
	errRateLimited  = errors.New("rate limited")
	// errCallerDone marks requests abandoned because the caller's context
	// ended; they say nothing about the health of the endpoint.
	errCallerDone = errors.New("request abandoned by caller")
)

// countsAsSuccess keeps caller cancellations out of the breaker's failure
// counts.
func countsAsSuccess(err error) bool {
	return err == nil || errors.Is(err, errCallerDone)
}

// endpoint bundles the resilience state of one remote dataset.
type endpoint struct {
	name    string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// do executes a single GET through the limiter and circuit breaker and hands
// the 2xx body to decode. There are no retries; a failed request fails the
// cycle.
func (e *endpoint) do(ctx context.Context, rawURL string, decode func(io.Reader) error) error {
	if e.client == nil {
		return &weather.NetworkError{Op: e.name, Err: errNoHTTPClient}
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return &weather.NetworkError{Op: e.name, Err: fmt.Errorf("rate limit wait canceled: %w", err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &weather.NetworkError{Op: e.name, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	if ctxErr := ctx.Err(); ctxErr != nil {
		return &weather.NetworkError{Op: e.name, Err: fmt.Errorf("%w: %w", errCallerDone, ctxErr)}
	}

	result, err := e.circuit.Execute(func() (interface{}, error) {
		resp, execErr := e.client.Do(req)
		if execErr != nil {
			if ctx.Err() != nil {
				execErr = fmt.Errorf("%w: %w", errCallerDone, execErr)
			}
			return nil, &weather.NetworkError{Op: e.name, Err: execErr}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			netErr := &weather.NetworkError{Op: e.name, StatusCode: resp.StatusCode}
			if resp.StatusCode == http.StatusTooManyRequests {
				netErr.Err = errRateLimited
			}
			return nil, netErr
		}

		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &weather.NetworkError{Op: e.name, Err: fmt.Errorf("%w: %v", errCircuitOpen, err)}
		}
		return err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return &weather.NetworkError{Op: e.name, Err: fmt.Errorf("unexpected result type from circuit breaker")}
	}
	defer resp.Body.Close()

	return decode(resp.Body)
}
