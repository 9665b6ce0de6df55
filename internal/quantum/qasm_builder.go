package quantum

import (
	"fmt"
	"sort"
	"strings"
)

// QASMBuilder builds OpenQASM 2.0 circuits
type QASMBuilder struct {
	version      string
	includeStmt  string
	registers    []string
	gates        []string
	measurements []string
}

// NewQASMBuilder creates a new OpenQASM circuit builder
func NewQASMBuilder(numQubits int, numClassical int) *QASMBuilder {
	builder := &QASMBuilder{
		version:      "OPENQASM 2.0;",
		includeStmt:  "include \"qelib1.inc\";",
		registers:    make([]string, 0),
		gates:        make([]string, 0),
		measurements: make([]string, 0),
	}

	builder.registers = append(builder.registers,
		fmt.Sprintf("qreg q[%d];", numQubits),
		fmt.Sprintf("creg c[%d];", numClassical),
	)

	return builder
}

// AddGate adds a raw gate statement
func (b *QASMBuilder) AddGate(gate string) {
	b.gates = append(b.gates, gate)
}

// AddSingleQubitGate adds "<gate> q[<qubit>];"
func (b *QASMBuilder) AddSingleQubitGate(gate string, qubit int) {
	b.AddGate(fmt.Sprintf("%s q[%d];", gate, qubit))
}

// AddMeasurement adds a measurement operation
func (b *QASMBuilder) AddMeasurement(qubit int, classical int) {
	b.measurements = append(b.measurements,
		fmt.Sprintf("measure q[%d] -> c[%d];", qubit, classical))
}

// Build generates the complete QASM circuit string
func (b *QASMBuilder) Build() string {
	var circuit strings.Builder

	circuit.WriteString(b.version + "\n")
	circuit.WriteString(b.includeStmt + "\n")

	for _, reg := range b.registers {
		circuit.WriteString(reg + "\n")
	}

	for _, gate := range b.gates {
		circuit.WriteString(gate + "\n")
	}

	for _, meas := range b.measurements {
		circuit.WriteString(meas + "\n")
	}

	return strings.TrimRight(circuit.String(), "\n")
}

// PlacedGate is a gate dropped on the composer grid
type PlacedGate struct {
	Gate  string `json:"gate"`
	Qubit int    `json:"qubit"`
	Slot  int    `json:"slot"`
	// Control is the control qubit for two-qubit gates, if the composer sent one
	Control *int `json:"control,omitempty"`
}

// gateAliases maps composer gate names to qelib1 names
var gateAliases = map[string]string{
	"cnot": "cx",
}

// BuildFromPlacedGates converts composer gates to QASM. Gates are emitted in (slot, qubit)
// order with lower-cased names.
func BuildFromPlacedGates(numQubits int, placed []PlacedGate) (string, error) {
	if numQubits <= 0 {
		numQubits = DefaultQubitCount
	}

	ordered := make([]PlacedGate, len(placed))
	copy(ordered, placed)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Slot != ordered[j].Slot {
			return ordered[i].Slot < ordered[j].Slot
		}
		return ordered[i].Qubit < ordered[j].Qubit
	})

	builder := NewQASMBuilder(numQubits, numQubits)
	for _, pg := range ordered {
		name := strings.ToLower(strings.TrimSpace(pg.Gate))
		if name == "" {
			return "", fmt.Errorf("gate at slot %d has no name", pg.Slot)
		}
		if alias, ok := gateAliases[name]; ok {
			name = alias
		}
		if pg.Qubit < 0 || pg.Qubit >= numQubits {
			return "", &QubitRangeError{Gate: name, Qubit: pg.Qubit, NumQubits: numQubits}
		}

		if pg.Control != nil {
			if *pg.Control < 0 || *pg.Control >= numQubits {
				return "", &QubitRangeError{Gate: name, Qubit: *pg.Control, NumQubits: numQubits}
			}
			builder.AddGate(fmt.Sprintf("%s q[%d],q[%d];", name, *pg.Control, pg.Qubit))
			continue
		}
		builder.AddSingleQubitGate(name, pg.Qubit)
	}

	return builder.Build(), nil
}

// BuildSuperpositionCircuit puts every qubit in |+⟩
func BuildSuperpositionCircuit(numQubits int) string {
	builder := NewQASMBuilder(numQubits, numQubits)
	for i := 0; i < numQubits; i++ {
		builder.AddSingleQubitGate(GateH, i)
	}
	return builder.Build()
}

// BuildBellPairCircuit creates a Bell pair (EPR pair) circuit. The built-in statevector
// backend treats cx as identity; the remote engine evaluates it.
func BuildBellPairCircuit() string {
	builder := NewQASMBuilder(2, 2)

	builder.AddGate("h q[0];")
	builder.AddGate("cx q[0],q[1];")

	builder.AddMeasurement(0, 0)
	builder.AddMeasurement(1, 1)

	return builder.Build()
}

// BuildGHZStateCircuit creates a GHZ state circuit
func BuildGHZStateCircuit(numQubits int) (string, error) {
	if numQubits < 2 {
		return "", fmt.Errorf("GHZ state requires at least 2 qubits")
	}

	builder := NewQASMBuilder(numQubits, numQubits)

	builder.AddGate("h q[0];")
	for i := 1; i < numQubits; i++ {
		builder.AddGate(fmt.Sprintf("cx q[0],q[%d];", i))
	}

	for i := 0; i < numQubits; i++ {
		builder.AddMeasurement(i, i)
	}

	return builder.Build(), nil
}

// CountsToProbabilities normalises measurement counts into a probability map
func CountsToProbabilities(counts map[string]int) map[string]float64 {
	totalShots := 0
	for _, count := range counts {
		totalShots += count
	}

	probabilities := make(map[string]float64)
	if totalShots == 0 {
		return probabilities
	}
	for outcome, count := range counts {
		probabilities[outcome] = float64(count) / float64(totalShots)
	}

	return probabilities
}
