package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State represents the state of a circuit breaker
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Settings configures a CircuitBreaker. Zero values fall back to defaults.
type Settings struct {
	Name             string
	MaxFailures      uint32
	Timeout          time.Duration
	HalfOpenMaxCalls uint32
	Logger           *logrus.Logger
	// Now is the clock used for open-state timeouts.
	Now func() time.Time
	// OnStateChange is called with the lock released after every transition.
	OnStateChange func(name string, from, to State)
}

// CircuitBreaker stops calling a failing dependency after MaxFailures
// consecutive failures and probes it again once Timeout has elapsed.
type CircuitBreaker struct {
	settings Settings

	mu              sync.Mutex
	state           State
	failures        uint32
	lastFailureTime time.Time
	halfOpenCalls   uint32
	successCount    uint32
	requestCount    uint64
}

func New(settings Settings) *CircuitBreaker {
	if settings.MaxFailures == 0 {
		settings.MaxFailures = 5
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 30 * time.Second
	}
	if settings.HalfOpenMaxCalls == 0 {
		settings.HalfOpenMaxCalls = 3
	}
	if settings.Logger == nil {
		settings.Logger = logrus.StandardLogger()
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	return &CircuitBreaker{settings: settings, state: StateClosed}
}

// Execute runs fn unless the breaker rejects the call, in which case an
// *OpenError is returned and fn is not invoked.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.before(); err != nil {
		return err
	}

	err := fn(ctx)
	cb.after(err)
	return err
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	from := cb.state
	cb.advance()
	to := cb.state

	var err error
	switch cb.state {
	case StateOpen:
		err = &OpenError{Name: cb.settings.Name, State: cb.state}
	case StateHalfOpen:
		if cb.halfOpenCalls >= cb.settings.HalfOpenMaxCalls {
			err = &OpenError{Name: cb.settings.Name, State: cb.state}
		} else {
			cb.halfOpenCalls++
		}
	}
	if err == nil {
		cb.requestCount++
	}
	cb.mu.Unlock()

	cb.notify(from, to)
	return err
}

func (cb *CircuitBreaker) after(err error) {
	cb.mu.Lock()
	from := cb.state

	if err != nil {
		cb.failures++
		cb.lastFailureTime = cb.settings.Now()
		if cb.state == StateHalfOpen || cb.failures >= cb.settings.MaxFailures {
			cb.state = StateOpen
			cb.settings.Logger.WithFields(logrus.Fields{
				"circuit_breaker": cb.settings.Name,
				"failures":        cb.failures,
				"state":           StateOpen.String(),
			}).Warn("Circuit breaker opened due to failures")
		}
	} else {
		cb.successCount++
		switch cb.state {
		case StateClosed:
			cb.failures = 0
		case StateHalfOpen:
			if cb.successCount >= cb.settings.HalfOpenMaxCalls {
				cb.reset()
				cb.settings.Logger.WithFields(logrus.Fields{
					"circuit_breaker": cb.settings.Name,
					"state":           StateClosed.String(),
				}).Info("Circuit breaker closed after successful recovery")
			}
		}
	}

	to := cb.state
	cb.mu.Unlock()
	cb.notify(from, to)
}

// advance moves an open breaker to half-open once the timeout has elapsed.
// Callers hold cb.mu.
func (cb *CircuitBreaker) advance() {
	if cb.state != StateOpen {
		return
	}
	if cb.settings.Now().Sub(cb.lastFailureTime) < cb.settings.Timeout {
		return
	}
	cb.state = StateHalfOpen
	cb.halfOpenCalls = 0
	cb.successCount = 0
	cb.settings.Logger.WithFields(logrus.Fields{
		"circuit_breaker": cb.settings.Name,
		"state":           StateHalfOpen.String(),
	}).Info("Circuit breaker transitioned to half-open")
}

func (cb *CircuitBreaker) reset() {
	cb.state = StateClosed
	cb.failures = 0
	cb.successCount = 0
	cb.halfOpenCalls = 0
}

func (cb *CircuitBreaker) notify(from, to State) {
	if from != to && cb.settings.OnStateChange != nil {
		cb.settings.OnStateChange(cb.settings.Name, from, to)
	}
}

// State returns the current state, applying any pending open to half-open transition.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	from := cb.state
	cb.advance()
	to := cb.state
	cb.mu.Unlock()

	cb.notify(from, to)
	return to
}

// Stats represents circuit breaker statistics
type Stats struct {
	Name            string
	State           State
	Failures        uint32
	Requests        uint64
	Successes       uint32
	LastFailureTime time.Time
}

func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return Stats{
		Name:            cb.settings.Name,
		State:           cb.state,
		Failures:        cb.failures,
		Requests:        cb.requestCount,
		Successes:       cb.successCount,
		LastFailureTime: cb.lastFailureTime,
	}
}

// OpenError is returned when the breaker rejects a call.
type OpenError struct {
	Name  string
	State State
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker '%s' is %s", e.Name, e.State)
}

// IsOpenError reports whether err, or any error it wraps, is a breaker rejection.
func IsOpenError(err error) bool {
	var openErr *OpenError
	return errors.As(err, &openErr)
}
