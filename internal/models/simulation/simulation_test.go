package simulation

import (
	"testing"

	"github.com/jaskrrish/Go-QSim/internal/quantum"
	"github.com/stretchr/testify/assert"
)

// TestSimulateRequestValidate tests request validation and defaults
func TestSimulateRequestValidate(t *testing.T) {
	tests := []struct {
		name        string
		req         SimulateRequest
		expectErr   error
		expectShots int
	}{
		{"Default shots", SimulateRequest{QASM: "h q[0];"}, nil, quantum.DefaultShots},
		{"Explicit shots", SimulateRequest{QASM: "h q[0];", Shots: 10}, nil, 10},
		{"Empty circuit", SimulateRequest{QASM: "  \n"}, ErrEmptyCircuit, 0},
		{"Negative shots", SimulateRequest{QASM: "h q[0];", Shots: -1}, ErrInvalidShots, -1},
		{"Too many shots", SimulateRequest{QASM: "h q[0];", Shots: MaxShots + 1}, ErrInvalidShots, MaxShots + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			assert.Equal(t, tt.expectErr, err)
			assert.Equal(t, tt.expectShots, tt.req.Shots)
		})
	}
}

// TestStatevectorRequestValidate tests the empty circuit check
func TestStatevectorRequestValidate(t *testing.T) {
	assert.Equal(t, ErrEmptyCircuit, (&StatevectorRequest{}).Validate())
	assert.NoError(t, (&StatevectorRequest{QASM: "x q[0];"}).Validate())
}

// TestConvertRequestValidate tests register bounds
func TestConvertRequestValidate(t *testing.T) {
	assert.NoError(t, (&ConvertRequest{Qubits: 0}).Validate())
	assert.NoError(t, (&ConvertRequest{Qubits: 5}).Validate())
	assert.Equal(t, ErrInvalidQubits, (&ConvertRequest{Qubits: -2}).Validate())
	assert.Equal(t, ErrInvalidQubits, (&ConvertRequest{Qubits: 33}).Validate())
}
