package quantum

import (
	"math"

	"github.com/pkg/errors"
)

// StateVector is a dense pure state over NumQubits qubits. Qubit 0 is the least
// significant bit of the basis-state index.
type StateVector struct {
	NumQubits  int
	Amplitudes []complex128

	// scratch is the write buffer for gates that can't be applied in place
	scratch []complex128
}

// NewStateVector returns |0...0⟩ over numQubits qubits
func NewStateVector(numQubits int) *StateVector {
	n := 1 << numQubits
	amps := make([]complex128, n)
	amps[0] = 1
	return &StateVector{
		NumQubits:  numQubits,
		Amplitudes: amps,
		scratch:    make([]complex128, n),
	}
}

// Clone returns an independent copy of the state
func (s *StateVector) Clone() *StateVector {
	amps := make([]complex128, len(s.Amplitudes))
	copy(amps, s.Amplitudes)
	return &StateVector{
		NumQubits:  s.NumQubits,
		Amplitudes: amps,
		scratch:    make([]complex128, len(amps)),
	}
}

// Apply applies a single instruction. Gate symbols outside {h, x, y, z} leave the state
// untouched. Targets outside the register return a *QubitRangeError.
func (s *StateVector) Apply(in Instruction) error {
	if !in.IsSupported() {
		return nil
	}
	if in.Qubit < 0 || in.Qubit >= s.NumQubits {
		return &QubitRangeError{Gate: in.Gate, Qubit: in.Qubit, NumQubits: s.NumQubits}
	}

	switch in.Gate {
	case GateH:
		s.applyH(in.Qubit)
	case GateX:
		s.applyX(in.Qubit)
	case GateY:
		s.applyY(in.Qubit)
	case GateZ:
		s.applyZ(in.Qubit)
	}
	return nil
}

// swap exchanges the read and write buffers after a double-buffered gate
func (s *StateVector) swap() {
	s.Amplitudes, s.scratch = s.scratch, s.Amplitudes
}

func (s *StateVector) clearScratch() {
	for i := range s.scratch {
		s.scratch[i] = 0
	}
}

// applyH accumulates every amplitude into both siblings of the target bit, reading only
// from the pre-step snapshot.
func (s *StateVector) applyH(q int) {
	factor := complex(1/math.Sqrt2, 0)
	bit := 1 << q
	s.clearScratch()
	for i, amp := range s.Amplitudes {
		contrib := factor * amp
		s.scratch[i&^bit] += contrib
		if i&bit == 0 {
			s.scratch[i|bit] += contrib
		} else {
			s.scratch[i|bit] -= contrib
		}
	}
	s.swap()
}

func (s *StateVector) applyX(q int) {
	bit := 1 << q
	for i := range s.Amplitudes {
		if i&bit == 0 {
			j := i | bit
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}
}

func (s *StateVector) applyY(q int) {
	bit := 1 << q
	for i, amp := range s.Amplitudes {
		if i&bit == 0 {
			s.scratch[i^bit] = amp * 1i
		} else {
			s.scratch[i^bit] = amp * -1i
		}
	}
	s.swap()
}

func (s *StateVector) applyZ(q int) {
	bit := 1 << q
	for i := range s.Amplitudes {
		if i&bit != 0 {
			s.Amplitudes[i] = -s.Amplitudes[i]
		}
	}
}

// Evolve applies the program's instructions in order. In strict mode a gate symbol the
// kernel doesn't implement aborts the run with ErrUnsupportedGate; measure and barrier
// are always let through.
func (s *StateVector) Evolve(instructions []Instruction, strict bool) error {
	for i, in := range instructions {
		if strict && !in.IsSupported() && in.Gate != DirectiveMeasure && in.Gate != DirectiveBarrier {
			return errors.Wrapf(ErrUnsupportedGate, "instruction %d: %q", i, in.Gate)
		}
		if err := s.Apply(in); err != nil {
			return errors.Wrapf(err, "instruction %d", i)
		}
	}
	return nil
}

// Norm returns the sum of squared amplitude magnitudes
func (s *StateVector) Norm() float64 {
	total := 0.0
	for _, amp := range s.Amplitudes {
		total += probability(amp)
	}
	return total
}

// Probabilities maps each basis state with non-negligible probability to its bit string
func (s *StateVector) Probabilities() map[string]float64 {
	probs := make(map[string]float64)
	for i, amp := range s.Amplitudes {
		p := probability(amp)
		if p > ProbabilityEpsilon {
			probs[formatBasisState(i, s.NumQubits)] = p
		}
	}
	return probs
}

// AmplitudePairs returns the state as (real, imaginary) pairs in basis-index order
func (s *StateVector) AmplitudePairs() []Amplitude {
	out := make([]Amplitude, len(s.Amplitudes))
	for i, amp := range s.Amplitudes {
		out[i] = Amplitude{real(amp), imag(amp)}
	}
	return out
}

func probability(amp complex128) float64 {
	re, im := real(amp), imag(amp)
	return re*re + im*im
}
