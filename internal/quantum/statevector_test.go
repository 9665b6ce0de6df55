package quantum

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-9

func assertAmplitude(t *testing.T, expected, actual complex128) {
	t.Helper()
	assert.InDelta(t, real(expected), real(actual), tolerance, "real part")
	assert.InDelta(t, imag(expected), imag(actual), tolerance, "imaginary part")
}

// TestNewStateVector tests the initial |0...0⟩ state
func TestNewStateVector(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5} {
		s := NewStateVector(n)
		require.Len(t, s.Amplitudes, 1<<n)
		assert.Equal(t, complex128(1), s.Amplitudes[0])
		for i := 1; i < len(s.Amplitudes); i++ {
			assert.Equal(t, complex128(0), s.Amplitudes[i])
		}
	}
}

// TestSingleQubitGates tests each kernel on basis states
func TestSingleQubitGates(t *testing.T) {
	r := 1 / math.Sqrt2
	tests := []struct {
		name     string
		prepare  []Instruction
		gate     Instruction
		expected []complex128
	}{
		{"H|0⟩ = |+⟩", nil, Instruction{GateH, 0}, []complex128{complex(r, 0), complex(r, 0)}},
		{"H|1⟩ = |−⟩", []Instruction{{GateX, 0}}, Instruction{GateH, 0}, []complex128{complex(r, 0), complex(-r, 0)}},
		{"X|0⟩ = |1⟩", nil, Instruction{GateX, 0}, []complex128{0, 1}},
		{"Y|0⟩ = i|1⟩", nil, Instruction{GateY, 0}, []complex128{0, 1i}},
		{"Y|1⟩ = −i|0⟩", []Instruction{{GateX, 0}}, Instruction{GateY, 0}, []complex128{-1i, 0}},
		{"Z|0⟩ = |0⟩", nil, Instruction{GateZ, 0}, []complex128{1, 0}},
		{"Z|1⟩ = −|1⟩", []Instruction{{GateX, 0}}, Instruction{GateZ, 0}, []complex128{0, -1}},
		{"Unknown gate is identity", nil, Instruction{"t", 0}, []complex128{1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStateVector(1)
			require.NoError(t, s.Evolve(tt.prepare, false))
			require.NoError(t, s.Apply(tt.gate))
			for i := range tt.expected {
				assertAmplitude(t, tt.expected[i], s.Amplitudes[i])
			}
		})
	}
}

// TestGateTargetsCorrectBit tests that qubit 0 is the least significant bit
func TestGateTargetsCorrectBit(t *testing.T) {
	s := NewStateVector(3)
	require.NoError(t, s.Apply(Instruction{GateX, 1}))
	assert.Equal(t, complex128(1), s.Amplitudes[2])

	require.NoError(t, s.Apply(Instruction{GateX, 2}))
	assert.Equal(t, complex128(1), s.Amplitudes[6])
	assert.Equal(t, map[string]float64{"110": 1}, s.Probabilities())
}

// TestMultiQubitAmplitudes tests exact amplitudes when the target is not qubit 0
func TestMultiQubitAmplitudes(t *testing.T) {
	r := 1 / math.Sqrt2
	tests := []struct {
		name         string
		instructions []Instruction
		expected     []complex128
	}{
		{
			"H on q1 of |010⟩",
			[]Instruction{{GateX, 1}, {GateH, 1}},
			[]complex128{complex(r, 0), 0, complex(-r, 0), 0, 0, 0, 0, 0},
		},
		{
			"H on q2 of |000⟩",
			[]Instruction{{GateH, 2}},
			[]complex128{complex(r, 0), 0, 0, 0, complex(r, 0), 0, 0, 0},
		},
		{
			"H on q1 keeps spectator q0",
			[]Instruction{{GateX, 0}, {GateH, 1}},
			[]complex128{0, complex(r, 0), 0, complex(r, 0), 0, 0, 0, 0},
		},
		{
			"Y on q2 of |000⟩",
			[]Instruction{{GateY, 2}},
			[]complex128{0, 0, 0, 0, 1i, 0, 0, 0},
		},
		{
			"Y on q2 of |100⟩",
			[]Instruction{{GateX, 2}, {GateY, 2}},
			[]complex128{-1i, 0, 0, 0, 0, 0, 0, 0},
		},
		{
			"Y on q2 of |101⟩",
			[]Instruction{{GateX, 0}, {GateX, 2}, {GateY, 2}},
			[]complex128{0, -1i, 0, 0, 0, 0, 0, 0},
		},
		{
			"Z on q1 of (|000⟩+|010⟩)/√2",
			[]Instruction{{GateH, 1}, {GateZ, 1}},
			[]complex128{complex(r, 0), 0, complex(-r, 0), 0, 0, 0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStateVector(3)
			require.NoError(t, s.Evolve(tt.instructions, false))
			require.Len(t, s.Amplitudes, len(tt.expected))
			for i := range tt.expected {
				assertAmplitude(t, tt.expected[i], s.Amplitudes[i])
			}
			assert.InDelta(t, 1.0, s.Norm(), tolerance)
		})
	}
}

// TestUnitarity tests that the norm stays 1 across mixed gate sequences
func TestUnitarity(t *testing.T) {
	sequences := [][]Instruction{
		{{GateH, 0}, {GateH, 1}, {GateH, 2}},
		{{GateH, 0}, {GateY, 0}, {GateZ, 1}, {GateH, 1}, {GateX, 2}, {GateY, 2}},
		{{GateY, 1}, {GateH, 1}, {GateH, 0}, {GateZ, 0}, {GateH, 0}, {GateY, 2}, {GateH, 2}},
	}

	for i, seq := range sequences {
		s := NewStateVector(3)
		for step, in := range seq {
			require.NoError(t, s.Apply(in))
			assert.InDelta(t, 1.0, s.Norm(), tolerance, "sequence %d step %d", i, step)
		}
	}
}

// TestXInvolution tests that X applied twice restores the state exactly
func TestXInvolution(t *testing.T) {
	s := NewStateVector(3)
	require.NoError(t, s.Evolve([]Instruction{{GateH, 0}, {GateY, 1}, {GateH, 2}}, false))
	before := s.Clone()

	for q := 0; q < 3; q++ {
		require.NoError(t, s.Apply(Instruction{GateX, q}))
		require.NoError(t, s.Apply(Instruction{GateX, q}))
		for i := range s.Amplitudes {
			assert.InDelta(t, real(before.Amplitudes[i]), real(s.Amplitudes[i]), 1e-12)
			assert.InDelta(t, imag(before.Amplitudes[i]), imag(s.Amplitudes[i]), 1e-12)
		}
	}
}

// TestHadamardSelfInverse tests that H·H|0⟩ = |0⟩
func TestHadamardSelfInverse(t *testing.T) {
	s := NewStateVector(1)
	require.NoError(t, s.Apply(Instruction{GateH, 0}))
	require.NoError(t, s.Apply(Instruction{GateH, 0}))
	assertAmplitude(t, 1, s.Amplitudes[0])
	assertAmplitude(t, 0, s.Amplitudes[1])
}

// TestOutOfRangeQubit tests the defined boundary behaviour for bad targets
func TestOutOfRangeQubit(t *testing.T) {
	s := NewStateVector(2)
	err := s.Apply(Instruction{GateH, 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQubitOutOfRange)

	var rangeErr *QubitRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, 5, rangeErr.Qubit)
	assert.Equal(t, 2, rangeErr.NumQubits)
	assert.Contains(t, err.Error(), "qubit 5")

	// state is untouched
	assert.Equal(t, complex128(1), s.Amplitudes[0])
}

// TestOutOfRangeUnknownGate tests that identity gates never index the vector
func TestOutOfRangeUnknownGate(t *testing.T) {
	s := NewStateVector(2)
	assert.NoError(t, s.Apply(Instruction{"cx", 7}))
}

// TestEvolveStrict tests strict-mode handling of unknown symbols
func TestEvolveStrict(t *testing.T) {
	t.Run("Unknown gate fails", func(t *testing.T) {
		s := NewStateVector(2)
		err := s.Evolve([]Instruction{{GateH, 0}, {"rx", 1}}, true)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnsupportedGate)
		assert.Contains(t, err.Error(), "instruction 1")
	})

	t.Run("Measure and barrier pass", func(t *testing.T) {
		s := NewStateVector(2)
		err := s.Evolve([]Instruction{{GateH, 0}, {DirectiveMeasure, 0}, {DirectiveBarrier, 1}}, true)
		assert.NoError(t, err)
	})

	t.Run("Lenient mode ignores unknown gates", func(t *testing.T) {
		s := NewStateVector(2)
		assert.NoError(t, s.Evolve([]Instruction{{"rx", 1}}, false))
		assert.Equal(t, map[string]float64{"00": 1}, s.Probabilities())
	})
}

// TestProbabilities tests bit-string formatting and epsilon pruning
func TestProbabilities(t *testing.T) {
	s := NewStateVector(2)
	require.NoError(t, s.Apply(Instruction{GateH, 0}))

	probs := s.Probabilities()
	require.Len(t, probs, 2)
	assert.InDelta(t, 0.5, probs["00"], tolerance)
	assert.InDelta(t, 0.5, probs["01"], tolerance)

	s.Amplitudes[2] = 1e-6
	probs = s.Probabilities()
	assert.NotContains(t, probs, "10")
}

// TestAmplitudePairs tests (real, imaginary) export order
func TestAmplitudePairs(t *testing.T) {
	s := NewStateVector(1)
	require.NoError(t, s.Apply(Instruction{GateY, 0}))
	assert.Equal(t, []Amplitude{{0, 0}, {0, 1}}, s.AmplitudePairs())
}

// TestSimulateKnownCircuits tests the end-to-end pipeline
func TestSimulateKnownCircuits(t *testing.T) {
	tests := []struct {
		name          string
		source        string
		expectQubits  int
		expectProbs   map[string]float64
		expectAmpsLen int
	}{
		{
			name: "Declarations only",
			source: `OPENQASM 2.0;
include "qelib1.inc";
qreg q[2];
creg c[2];`,
			expectQubits:  2,
			expectProbs:   map[string]float64{"00": 1},
			expectAmpsLen: 4,
		},
		{
			name:          "Hadamard on qubit 0",
			source:        "qreg q[2];\nh q[0];",
			expectQubits:  2,
			expectProbs:   map[string]float64{"00": 0.5, "01": 0.5},
			expectAmpsLen: 4,
		},
		{
			name:          "Default register",
			source:        "h q[0];",
			expectQubits:  3,
			expectProbs:   map[string]float64{"000": 0.5, "001": 0.5},
			expectAmpsLen: 8,
		},
		{
			name:          "Empty circuit",
			source:        "",
			expectQubits:  3,
			expectProbs:   map[string]float64{"000": 1},
			expectAmpsLen: 8,
		},
		{
			name:          "Uniform superposition",
			source:        BuildSuperpositionCircuit(2),
			expectQubits:  2,
			expectProbs:   map[string]float64{"00": 0.25, "01": 0.25, "10": 0.25, "11": 0.25},
			expectAmpsLen: 4,
		},
		{
			name:          "Phase flips don't change probabilities",
			source:        "qreg q[2];\nx q[1];\nz q[1];\ny q[0];",
			expectQubits:  2,
			expectProbs:   map[string]float64{"11": 1},
			expectAmpsLen: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Simulate(tt.source)
			require.NoError(t, err)
			assert.Equal(t, tt.expectQubits, result.NumQubits)
			assert.Len(t, result.Amplitudes, tt.expectAmpsLen)
			require.Len(t, result.Probabilities, len(tt.expectProbs))
			for k, v := range tt.expectProbs {
				assert.InDelta(t, v, result.Probabilities[k], tolerance, "outcome %s", k)
			}
		})
	}
}

// TestSimulateErrors tests terminal failures
func TestSimulateErrors(t *testing.T) {
	_, err := Simulate("qreg q[2];\nh q[5];")
	assert.ErrorIs(t, err, ErrQubitOutOfRange)

	strict := NewSimulator(Options{Strict: true})
	_, err = strict.Simulate(context.Background(), "qreg q[1];\nt q[0];")
	assert.ErrorIs(t, err, ErrUnsupportedGate)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewSimulator(DefaultOptions()).Simulate(ctx, "h q[0];")
	assert.ErrorIs(t, err, context.Canceled)
}

// TestStateVectorFromPairs tests rebuilding a remote payload
func TestStateVectorFromPairs(t *testing.T) {
	s, err := StateVectorFromPairs([]Amplitude{{0, 0}, {0, 0}, {1, 0}, {0, 0}})
	require.NoError(t, err)
	assert.Equal(t, 2, s.NumQubits)
	assert.Equal(t, map[string]float64{"10": 1}, s.Probabilities())

	_, err = StateVectorFromPairs([]Amplitude{{1, 0}, {0, 0}, {0, 0}})
	assert.Error(t, err)

	_, err = StateVectorFromPairs(nil)
	assert.Error(t, err)
}

func BenchmarkApplyHadamard(b *testing.B) {
	s := NewStateVector(10)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Apply(Instruction{GateH, i % 10})
	}
}

func BenchmarkApplyX(b *testing.B) {
	s := NewStateVector(10)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Apply(Instruction{GateX, i % 10})
	}
}
