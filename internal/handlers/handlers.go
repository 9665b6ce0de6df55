package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jaskrrish/Go-QSim/internal/version"
)

// HomeHandler handles requests to the root path
func HomeHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Go-QSim quantum circuit simulator API",
		"version": version.Get().Version,
		"status":  "running",
		"endpoints": map[string]string{
			"simulate":     "POST /api/v1/simulate",
			"statevector":  "POST /api/v1/statevector",
			"convert-qasm": "POST /api/v1/convert-qasm",
			"qubit-info":   "GET /qubit-info",
			"circuit":      "GET /circuit",
			"health":       "GET /health",
			"ready":        "GET /readyz",
			"version":      "GET /version",
		},
	})
}

// HealthHandler handles health check requests
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "go-qsim-api",
	})
}

// VersionHandler returns build information
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, version.Get())
}

// GateInfo describes a gate the composer can place
type GateInfo struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Qubits      int    `json:"qubits_required"`
	// Fallback is true when the built-in simulator applies the gate; other gates are
	// passed through unchanged unless the remote engine is running
	Fallback bool `json:"fallback_supported"`
}

// QubitInfo is the body of GET /qubit-info
type QubitInfo struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Properties  map[string]string `json:"properties"`
	Gates       []GateInfo        `json:"available_gates"`
}

var gateCatalogue = []GateInfo{
	{Name: "Pauli-X", Symbol: "X", Description: "Bit flip (NOT) gate", Qubits: 1, Fallback: true},
	{Name: "Pauli-Y", Symbol: "Y", Description: "Bit and phase flip gate", Qubits: 1, Fallback: true},
	{Name: "Pauli-Z", Symbol: "Z", Description: "Phase flip gate", Qubits: 1, Fallback: true},
	{Name: "Hadamard", Symbol: "H", Description: "Creates an equal superposition", Qubits: 1, Fallback: true},
	{Name: "CNOT", Symbol: "CX", Description: "Controlled NOT gate", Qubits: 2},
	{Name: "Rotation-X", Symbol: "RX", Description: "Rotation about the X axis", Qubits: 1},
	{Name: "Rotation-Y", Symbol: "RY", Description: "Rotation about the Y axis", Qubits: 1},
	{Name: "Rotation-Z", Symbol: "RZ", Description: "Rotation about the Z axis", Qubits: 1},
}

// QubitInfoHandler handles GET /qubit-info
func QubitInfoHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"info": QubitInfo{
			Name:        "Quantum Bit (Qubit)",
			Description: "The basic unit of quantum information; it can hold a superposition of 0 and 1.",
			Properties: map[string]string{
				"superposition": "probabilistic combination of the 0 and 1 states",
				"entanglement":  "can be correlated with other qubits",
				"measurement":   "collapses to 0 or 1 when measured",
			},
			Gates: gateCatalogue,
		},
		"additional_resources": map[string]string{
			"simulator":   "/api/v1/simulate",
			"statevector": "/api/v1/statevector",
		},
	})
}

// CircuitHandler handles GET /circuit
func CircuitHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"info": "A circuit is a sequence of gates placed on qubits in time order.",
		"composer": map[string]string{
			"slot":        "time step a gate occupies; lower slots run first",
			"placedGates": "gates as {gate, qubit, slot}, converted by POST /api/v1/convert-qasm",
		},
	})
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondWithError sends an error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
