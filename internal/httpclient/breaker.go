package httpclient

import (
	"errors"
	"net/http"

	"codeberg.org/pyqpapers/portal/internal/logger"
	"github.com/sony/gobreaker/v2"
)

// returned (wrapped in a NetworkError) while the breaker rejects requests
var ErrServiceUnavailable = errors.New("service unavailable, try again shortly")

// marks a 5xx response as a breaker failure; the response itself is still returned
var errServerStatus = errors.New("server error status")

func newBreaker(cfg Config, m *metrics) *gobreaker.CircuitBreaker[*Response] {
	if cfg.BreakerThreshold == 0 {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        "api",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			m.breaker.WithLabelValues(name).Set(stateToFloat(to))
		},
	}

	return gobreaker.NewCircuitBreaker[*Response](settings)
}

// stateToFloat maps gobreaker states to prometheus gauge values.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func isServerFailure(resp *Response) bool {
	return resp.Status >= http.StatusInternalServerError && resp.Status != http.StatusNotImplemented
}
