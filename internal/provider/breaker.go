// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package provider

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/rookery/internal/logging"
	"github.com/tomtom215/rookery/internal/metrics"
)

// Doer executes HTTP requests. *http.Client and *BreakerClient satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ServerError is returned by BreakerClient for 5xx responses so that they
// count as breaker failures. The response body has already been closed.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("provider returned HTTP %d", e.StatusCode)
}

// BreakerClient wraps an http.Client with a circuit breaker.
//
// Circuit breaker configuration:
//   - Max 2 concurrent requests in half-open state
//   - 1 minute measurement window
//   - 1 minute timeout before attempting recovery
//   - Opens after 60% failure rate with minimum 5 requests
type BreakerClient struct {
	client *http.Client
	cb     *gobreaker.CircuitBreaker[*http.Response]
	name   string
}

// NewBreakerClient creates a client named after the provider it talks to.
func NewBreakerClient(name string, timeout time.Duration) *BreakerClient {
	return NewBreakerClientWith(name, &http.Client{Timeout: timeout})
}

// NewBreakerClientWith wraps an existing http.Client.
func NewBreakerClientWith(name string, client *http.Client) *BreakerClient {
	cbName := name + "-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().Str("breaker", cbName).Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &BreakerClient{client: client, cb: cb, name: cbName}
}

// Do sends req through the breaker. Network errors and 5xx responses are
// breaker failures; a 429 is passed through to the caller untouched.
func (b *BreakerClient) Do(req *http.Request) (*http.Response, error) {
	resp, err := b.cb.Execute(func() (*http.Response, error) {
		resp, err := b.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			resp.Body.Close()
			return nil, &ServerError{StatusCode: resp.StatusCode}
		}
		return resp, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			logging.Warn().Err(err).Str("breaker", b.name).Msg("[CIRCUIT BREAKER] Request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(float64(b.cb.Counts().ConsecutiveFailures))
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(0)
	return resp, nil
}

// State returns the current breaker state.
func (b *BreakerClient) State() gobreaker.State {
	return b.cb.State()
}

// isBreakerRejection reports whether err came from an open breaker rather
// than from the network. Such errors are not worth retrying.
func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
