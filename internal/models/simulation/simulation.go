package simulation

import (
	"strings"

	"github.com/jaskrrish/Go-QSim/internal/quantum"
)

// Shot limits accepted by the simulate endpoint
const (
	MinShots = 1
	MaxShots = 100000
)

// MaxComposerQubits bounds the register size accepted by the composer conversion
const MaxComposerQubits = 32

// SimulateRequest represents a request to run a circuit
type SimulateRequest struct {
	QASM  string `json:"qasm"`
	Shots int    `json:"shots,omitempty"`
}

// StatevectorRequest represents a request for the final state vector only
type StatevectorRequest struct {
	QASM string `json:"qasm"`
}

// ConvertRequest represents a composer grid to be converted to OpenQASM
type ConvertRequest struct {
	Qubits      int                  `json:"qubits"`
	PlacedGates []quantum.PlacedGate `json:"placedGates"`
}

// SimulateResponse is returned by the simulate endpoint
type SimulateResponse struct {
	NumQubits     int                 `json:"num_qubits"`
	Probabilities map[string]float64  `json:"probabilities"`
	Amplitudes    []quantum.Amplitude `json:"amplitudes"`
	Counts        map[string]int      `json:"counts"`
	Shots         int                 `json:"shots"`
	Backend       string              `json:"backend"`
	Fallback      bool                `json:"fallback"`
}

// StatevectorResponse is returned by the statevector endpoint
type StatevectorResponse struct {
	NumQubits   int                 `json:"num_qubits"`
	Statevector []quantum.Amplitude `json:"statevector"`
	Backend     string              `json:"backend"`
	Fallback    bool                `json:"fallback"`
}

// ConvertResponse carries the generated circuit
type ConvertResponse struct {
	QASM string `json:"qasm"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// Validate validates a simulate request and fills in the default shot count
func (r *SimulateRequest) Validate() error {
	if strings.TrimSpace(r.QASM) == "" {
		return ErrEmptyCircuit
	}

	if r.Shots == 0 {
		r.Shots = quantum.DefaultShots
	}

	if r.Shots < MinShots || r.Shots > MaxShots {
		return ErrInvalidShots
	}

	return nil
}

// Validate validates a statevector request
func (r *StatevectorRequest) Validate() error {
	if strings.TrimSpace(r.QASM) == "" {
		return ErrEmptyCircuit
	}
	return nil
}

// Validate validates a conversion request
func (r *ConvertRequest) Validate() error {
	if r.Qubits < 0 || r.Qubits > MaxComposerQubits {
		return ErrInvalidQubits
	}
	return nil
}

// Custom errors
type SimulationError struct {
	Message string
}

func (e *SimulationError) Error() string {
	return e.Message
}

var (
	ErrEmptyCircuit  = &SimulationError{"no QASM provided"}
	ErrInvalidShots  = &SimulationError{"shots must be between 1 and 100000"}
	ErrInvalidQubits = &SimulationError{"qubits must be between 0 and 32"}
	ErrInvalidBody   = &SimulationError{"invalid request body"}
)
