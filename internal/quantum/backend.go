package quantum

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// SimulationBackend defines the interface for circuit simulation engines
type SimulationBackend interface {
	// Name returns the name of the backend
	Name() string

	// Simulate runs an OpenQASM circuit and returns its final state
	Simulate(ctx context.Context, qasm string) (*Result, error)

	// IsSimulator returns true for local simulators, false for remote engines
	IsSimulator() bool
}

// StatevectorBackend is the built-in dense state-vector simulator. It needs no external
// engine and is used as the fallback when the remote engine is unavailable.
type StatevectorBackend struct {
	name      string
	simulator *Simulator
}

// NewStatevectorBackend creates the built-in simulator backend
func NewStatevectorBackend(opts Options) *StatevectorBackend {
	return &StatevectorBackend{
		name:      "statevector",
		simulator: NewSimulator(opts),
	}
}

// Name returns the name of the statevector backend
func (b *StatevectorBackend) Name() string {
	return b.name
}

// Simulate runs the circuit on the local state vector
func (b *StatevectorBackend) Simulate(ctx context.Context, qasm string) (*Result, error) {
	result, err := b.simulator.Simulate(ctx, qasm)
	if err != nil {
		return nil, err
	}
	result.Backend = b.name
	return result, nil
}

// IsSimulator returns true since this runs locally
func (b *StatevectorBackend) IsSimulator() bool {
	return true
}

// Options returns the simulator options, used for cache keys
func (b *StatevectorBackend) Options() Options {
	return b.simulator.Options()
}

// BreakerState represents the state of the primary-backend circuit breaker
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// FallbackBackend tries a primary engine first and falls back to a secondary one when the
// primary fails. After maxFailures consecutive failures the primary is skipped until
// resetTimeout has passed, then it is tried again in the half-open state.
type FallbackBackend struct {
	primary  SimulationBackend
	fallback SimulationBackend
	logger   *zap.Logger

	mu           sync.Mutex
	maxFailures  int
	resetTimeout time.Duration
	failures     int
	state        BreakerState
	openedAt     time.Time
	now          func() time.Time
}

// NewFallbackBackend creates a fallback chain. A nil primary means every request goes to
// the fallback.
func NewFallbackBackend(primary, fallback SimulationBackend, maxFailures int, resetTimeout time.Duration, logger *zap.Logger) *FallbackBackend {
	if maxFailures <= 0 {
		maxFailures = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackBackend{
		primary:      primary,
		fallback:     fallback,
		logger:       logger,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		now:          time.Now,
	}
}

// Name returns the name of the chain
func (f *FallbackBackend) Name() string {
	if f.primary == nil {
		return f.fallback.Name()
	}
	return f.primary.Name() + "+" + f.fallback.Name()
}

// IsSimulator reports whether the fallback path is local
func (f *FallbackBackend) IsSimulator() bool {
	return f.fallback.IsSimulator()
}

// State returns the breaker state
func (f *FallbackBackend) State() BreakerState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Simulate runs the circuit on the primary backend, falling back on failure. Results from
// the fallback are marked with Fallback=true. Errors caused by the circuit itself are
// returned as-is from either backend and never count against the primary's breaker.
func (f *FallbackBackend) Simulate(ctx context.Context, qasm string) (*Result, error) {
	if f.primary != nil && f.allow() {
		result, err := f.primary.Simulate(ctx, qasm)
		if err == nil {
			f.recordSuccess()
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if IsClientError(err) {
			// the engine answered, so it is healthy
			f.recordSuccess()
			return nil, err
		}
		f.recordFailure()
		f.logger.Warn("primary backend failed, using fallback",
			zap.String("primary", f.primary.Name()),
			zap.String("fallback", f.fallback.Name()),
			zap.Error(err),
		)
	}

	result, err := f.fallback.Simulate(ctx, qasm)
	if err != nil {
		if IsClientError(err) {
			return nil, err
		}
		return nil, errors.Wrap(ErrBackendUnavailable, err.Error())
	}
	result.Fallback = f.primary != nil
	return result, nil
}

func (f *FallbackBackend) allow() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case BreakerOpen:
		if f.now().Sub(f.openedAt) < f.resetTimeout {
			return false
		}
		f.state = BreakerHalfOpen
		f.logger.Info("primary backend breaker half-open")
		return true
	default:
		return true
	}
}

func (f *FallbackBackend) recordSuccess() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != BreakerClosed {
		f.logger.Info("primary backend breaker closed")
	}
	f.state = BreakerClosed
	f.failures = 0
}

func (f *FallbackBackend) recordFailure() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failures++
	if f.state == BreakerHalfOpen || f.failures >= f.maxFailures {
		if f.state != BreakerOpen {
			f.logger.Warn("primary backend breaker opened", zap.Int("failures", f.failures))
		}
		f.state = BreakerOpen
		f.openedAt = f.now()
	}
}
