package quantum

import (
	"context"
	"fmt"
	"math/bits"

	"github.com/pkg/errors"
)

// Options tunes extraction and evolution
type Options struct {
	// DefaultQubits is the register size used when the circuit declares none
	DefaultQubits int
	// MaxQubits rejects registers whose state vector would be too large
	MaxQubits int
	// Strict turns unknown gate symbols into ErrUnsupportedGate instead of identity
	Strict bool
}

// DefaultOptions returns the lenient defaults
func DefaultOptions() Options {
	return Options{
		DefaultQubits: DefaultQubitCount,
		MaxQubits:     DefaultMaxQubits,
	}
}

func (o Options) withDefaults() Options {
	if o.DefaultQubits <= 0 {
		o.DefaultQubits = DefaultQubitCount
	}
	if o.MaxQubits <= 0 {
		o.MaxQubits = DefaultMaxQubits
	}
	return o
}

// String is used as part of the result cache key
func (o Options) String() string {
	o = o.withDefaults()
	return fmt.Sprintf("default=%d,max=%d,strict=%t", o.DefaultQubits, o.MaxQubits, o.Strict)
}

// Simulator runs circuits on a dense state vector. It holds no mutable state and is safe
// for concurrent use.
type Simulator struct {
	opts Options
}

// NewSimulator creates a simulator with the given options
func NewSimulator(opts Options) *Simulator {
	return &Simulator{opts: opts.withDefaults()}
}

// Options returns the effective options
func (s *Simulator) Options() Options {
	return s.opts
}

// Run extracts and evolves a circuit and returns the final state vector
func (s *Simulator) Run(text string) (*StateVector, error) {
	program, err := Extract(text, s.opts)
	if err != nil {
		return nil, err
	}

	state := NewStateVector(program.NumQubits)
	if err := state.Evolve(program.Instructions, s.opts.Strict); err != nil {
		return nil, err
	}
	return state, nil
}

// Simulate runs a circuit and returns its probability map and amplitudes. The context is
// only checked before the run; evolution itself never blocks.
func (s *Simulator) Simulate(ctx context.Context, text string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	state, err := s.Run(text)
	if err != nil {
		return nil, err
	}

	return &Result{
		NumQubits:     state.NumQubits,
		Probabilities: state.Probabilities(),
		Amplitudes:    state.AmplitudePairs(),
	}, nil
}

// Simulate runs a circuit with the default options
func Simulate(text string) (*Result, error) {
	return NewSimulator(DefaultOptions()).Simulate(context.Background(), text)
}

// StateVectorFromPairs rebuilds a state vector from (real, imaginary) pairs, e.g. the
// payload returned by a remote engine. The length must be a power of two.
func StateVectorFromPairs(pairs []Amplitude) (*StateVector, error) {
	n := len(pairs)
	if n == 0 || n&(n-1) != 0 {
		return nil, errors.Errorf("state vector length %d is not a power of two", n)
	}

	amps := make([]complex128, n)
	for i, p := range pairs {
		amps[i] = complex(p[0], p[1])
	}
	return &StateVector{
		NumQubits:  bits.TrailingZeros(uint(n)),
		Amplitudes: amps,
		scratch:    make([]complex128, n),
	}, nil
}
