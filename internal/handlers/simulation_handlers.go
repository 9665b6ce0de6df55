package handlers

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/jaskrrish/Go-QSim/internal/middleware"
	"github.com/jaskrrish/Go-QSim/internal/models/simulation"
	"github.com/jaskrrish/Go-QSim/internal/quantum"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// Pinger is implemented by backends whose reachability can be checked
type Pinger interface {
	Ping(ctx context.Context) error
}

// SimulationHandler serves the circuit simulation endpoints
type SimulationHandler struct {
	backend quantum.SimulationBackend
	ready   Pinger
	shots   int
	logger  *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulationHandler creates a handler running circuits on backend. ready may be nil
// when there is no external dependency to check.
func NewSimulationHandler(backend quantum.SimulationBackend, ready Pinger, shots int, logger *zap.Logger) *SimulationHandler {
	if shots <= 0 {
		shots = quantum.DefaultShots
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulationHandler{
		backend: backend,
		ready:   ready,
		shots:   shots,
		logger:  logger,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SimulateHandler handles POST /api/v1/simulate
// Runs the circuit and samples measurement counts from its probabilities
func (h *SimulationHandler) SimulateHandler(w http.ResponseWriter, r *http.Request) {
	var req simulation.SimulateRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, simulation.ErrInvalidBody.Error())
		return
	}

	if req.Shots == 0 {
		req.Shots = h.shots
	}
	if err := req.Validate(); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.backend.Simulate(r.Context(), req.QASM)
	if err != nil {
		h.respondWithSimulationError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, simulation.SimulateResponse{
		NumQubits:     result.NumQubits,
		Probabilities: result.Probabilities,
		Amplitudes:    result.Amplitudes,
		Counts:        h.sample(result.Probabilities, req.Shots),
		Shots:         req.Shots,
		Backend:       result.Backend,
		Fallback:      result.Fallback,
	})
}

// StatevectorHandler handles POST /api/v1/statevector
func (h *SimulationHandler) StatevectorHandler(w http.ResponseWriter, r *http.Request) {
	var req simulation.StatevectorRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, simulation.ErrInvalidBody.Error())
		return
	}

	if err := req.Validate(); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.backend.Simulate(r.Context(), req.QASM)
	if err != nil {
		h.respondWithSimulationError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, simulation.StatevectorResponse{
		NumQubits:   result.NumQubits,
		Statevector: result.Amplitudes,
		Backend:     result.Backend,
		Fallback:    result.Fallback,
	})
}

// ConvertQASMHandler handles POST /api/v1/convert-qasm
// Turns gates placed on the composer grid into an OpenQASM 2.0 program
func (h *SimulationHandler) ConvertQASMHandler(w http.ResponseWriter, r *http.Request) {
	var req simulation.ConvertRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, simulation.ErrInvalidBody.Error())
		return
	}

	if err := req.Validate(); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	qasm, err := quantum.BuildFromPlacedGates(req.Qubits, req.PlacedGates)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, simulation.ConvertResponse{QASM: qasm})
}

// ReadyHandler handles GET /readyz
func (h *SimulationHandler) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"ok":           true,
		"backend":      h.backend.Name(),
		"is_simulator": h.backend.IsSimulator(),
	}

	if h.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ready.Ping(ctx); err != nil {
			// degraded: the fallback still serves requests
			status["remote"] = "unreachable"
			status["error"] = err.Error()
		} else {
			status["remote"] = "ok"
		}
	}

	if state, ok := breakerState(h.backend); ok {
		status["breaker"] = state.String()
	}

	respondWithJSON(w, http.StatusOK, status)
}

func (h *SimulationHandler) sample(probs map[string]float64, shots int) map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return quantum.SampleCounts(probs, shots, h.rng)
}

func (h *SimulationHandler) respondWithSimulationError(w http.ResponseWriter, r *http.Request, err error) {
	if quantum.IsClientError(err) {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Error("simulation failed",
		zap.String("backend", h.backend.Name()),
		zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
		zap.Error(err),
	)
	if errors.Is(err, quantum.ErrBackendUnavailable) {
		respondWithError(w, http.StatusInternalServerError, quantum.ErrBackendUnavailable.Error())
		return
	}
	respondWithError(w, http.StatusInternalServerError, "simulation failed")
}

// breakerState finds a FallbackBackend behind any wrapping backends
func breakerState(b quantum.SimulationBackend) (quantum.BreakerState, bool) {
	for b != nil {
		if fb, ok := b.(*quantum.FallbackBackend); ok {
			return fb.State(), true
		}
		u, ok := b.(interface{ Unwrap() quantum.SimulationBackend })
		if !ok {
			break
		}
		b = u.Unwrap()
	}
	return quantum.BreakerClosed, false
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}
