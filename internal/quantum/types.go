package quantum

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Gate symbols understood by the statevector kernel
const (
	GateH = "h"
	GateX = "x"
	GateY = "y"
	GateZ = "z"
)

// Directives that appear in instruction position but never change the state vector.
// Strict mode lets them through.
const (
	DirectiveMeasure = "measure"
	DirectiveBarrier = "barrier"
)

// DefaultQubitCount is used when a circuit carries no qreg declaration
const DefaultQubitCount = 3

// DefaultMaxQubits caps the dense state vector at 2^16 amplitudes
const DefaultMaxQubits = 16

// ProbabilityEpsilon is the threshold below which outcomes are dropped from a probability map
const ProbabilityEpsilon = 1e-10

// Instruction is a single gate application extracted from circuit text
type Instruction struct {
	// Gate is the gate symbol as written, e.g. "h"
	Gate string
	// Qubit is the target qubit index
	Qubit int
}

func (in Instruction) String() string {
	return fmt.Sprintf("%s q[%d]", in.Gate, in.Qubit)
}

// IsSupported reports whether the kernel implements the instruction's gate
func (in Instruction) IsSupported() bool {
	switch in.Gate {
	case GateH, GateX, GateY, GateZ:
		return true
	default:
		return false
	}
}

// Program is the result of lexical extraction: a register size and the ordered gate sequence
type Program struct {
	NumQubits    int
	Instructions []Instruction
}

// Amplitude is a complex amplitude encoded as a (real, imaginary) pair for JSON transport
type Amplitude [2]float64

// Result is the output of a single simulation run
type Result struct {
	NumQubits     int                `json:"num_qubits"`
	Probabilities map[string]float64 `json:"probabilities"`
	Amplitudes    []Amplitude        `json:"amplitudes"`
	// Backend names the engine that produced the result
	Backend string `json:"backend"`
	// Fallback is set by FallbackBackend when the primary engine was bypassed
	Fallback bool `json:"fallback"`
}

// Clone returns a deep copy so cached results can't be mutated by callers
func (r *Result) Clone() *Result {
	out := &Result{
		NumQubits:     r.NumQubits,
		Probabilities: make(map[string]float64, len(r.Probabilities)),
		Amplitudes:    make([]Amplitude, len(r.Amplitudes)),
		Backend:       r.Backend,
		Fallback:      r.Fallback,
	}
	for k, v := range r.Probabilities {
		out.Probabilities[k] = v
	}
	copy(out.Amplitudes, r.Amplitudes)
	return out
}

var (
	// ErrQubitOutOfRange matches every *QubitRangeError
	ErrQubitOutOfRange = errors.New("qubit index out of range")
	// ErrUnsupportedGate is returned in strict mode for gate symbols the kernel can't apply
	ErrUnsupportedGate = errors.New("unsupported gate")
	// ErrTooManyQubits is returned when a register exceeds the configured maximum
	ErrTooManyQubits = errors.New("too many qubits")
	// ErrCircuitRejected is returned when the remote engine answers that the circuit itself is invalid
	ErrCircuitRejected = errors.New("circuit rejected by simulation engine")
	// ErrBackendUnavailable is returned when no backend could serve a request
	ErrBackendUnavailable = errors.New("simulation backend unavailable")
)

// QubitRangeError reports an instruction that targets a qubit outside the register
type QubitRangeError struct {
	Gate      string
	Qubit     int
	NumQubits int
}

func (e *QubitRangeError) Error() string {
	return fmt.Sprintf("%s targets qubit %d but the register has %d qubits", e.Gate, e.Qubit, e.NumQubits)
}

// Is lets errors.Is(err, ErrQubitOutOfRange) match
func (e *QubitRangeError) Is(target error) bool {
	return target == ErrQubitOutOfRange
}

// IsClientError reports whether err was caused by the submitted circuit rather than the backend
func IsClientError(err error) bool {
	return errors.Is(err, ErrQubitOutOfRange) ||
		errors.Is(err, ErrUnsupportedGate) ||
		errors.Is(err, ErrTooManyQubits) ||
		errors.Is(err, ErrCircuitRejected)
}

// formatBasisState renders index i as an n-character bit string, most significant bit first
func formatBasisState(i, n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for q := n - 1; q >= 0; q-- {
		if i&(1<<q) != 0 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
