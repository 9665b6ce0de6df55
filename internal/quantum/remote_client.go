package quantum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// RemoteConfig holds the configuration of an external Aer/Qiskit simulation service
type RemoteConfig struct {
	// Base URL of the service, e.g. "http://127.0.0.1:5000"
	BaseURL string

	// Optional bearer token sent with every request
	APIKey string

	// HTTP client with timeout
	HTTPClient *http.Client
}

// Remote service endpoints
const (
	StatevectorEndpoint = "/statevector"
	HealthEndpoint      = "/"
)

// DefaultRemoteTimeout bounds a single remote call when no client is supplied
const DefaultRemoteTimeout = 10 * time.Second

// remoteRequest is the body accepted by the remote service
type remoteRequest struct {
	QASM string `json:"qasm"`
}

// remoteStatevector is the body returned by the remote service's statevector endpoint
type remoteStatevector struct {
	Statevector []Amplitude `json:"statevector"`
	Error       string      `json:"error,omitempty"`
}

// RemoteBackend runs circuits on an external simulation service over HTTP
type RemoteBackend struct {
	config *RemoteConfig
}

// NewRemoteBackend creates a remote backend client
func NewRemoteBackend(config *RemoteConfig) (*RemoteBackend, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("remote simulation service URL is required")
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{
			Timeout: DefaultRemoteTimeout,
		}
	}

	return &RemoteBackend{config: config}, nil
}

// Name returns the name of the remote backend
func (r *RemoteBackend) Name() string {
	return "remote-aer"
}

// IsSimulator returns false since the engine lives outside this process
func (r *RemoteBackend) IsSimulator() bool {
	return false
}

// Simulate submits the circuit to the remote statevector endpoint
func (r *RemoteBackend) Simulate(ctx context.Context, qasm string) (*Result, error) {
	payload, err := json.Marshal(remoteRequest{QASM: qasm})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.BaseURL+StatevectorEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build remote request")
	}
	req.Header.Set("Content-Type", "application/json")
	r.authorize(req)

	resp, err := r.config.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "remote statevector request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(body))
		if circuitRejected(resp.StatusCode) {
			return nil, errors.Wrapf(ErrCircuitRejected, "%s (status: %d)", msg, resp.StatusCode)
		}
		return nil, fmt.Errorf("remote statevector failed: %s (status: %d)", msg, resp.StatusCode)
	}

	var out remoteStatevector
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "decode remote statevector")
	}
	if out.Error != "" {
		return nil, fmt.Errorf("remote statevector failed: %s", out.Error)
	}

	state, err := StateVectorFromPairs(out.Statevector)
	if err != nil {
		return nil, errors.Wrap(err, "remote statevector")
	}

	return &Result{
		NumQubits:     state.NumQubits,
		Probabilities: state.Probabilities(),
		Amplitudes:    out.Statevector,
		Backend:       r.Name(),
	}, nil
}

// Ping checks that the remote service answers on its health endpoint
func (r *RemoteBackend) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.config.BaseURL+HealthEndpoint, nil)
	if err != nil {
		return err
	}
	r.authorize(req)

	resp, err := r.config.HTTPClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "remote health check")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote health check failed (status: %d)", resp.StatusCode)
	}
	return nil
}

// circuitRejected reports whether status means the engine refused the submitted circuit.
// Auth, routing and throttling errors are engine problems and count against it.
func circuitRejected(status int) bool {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		return true
	default:
		return false
	}
}

func (r *RemoteBackend) authorize(req *http.Request) {
	if r.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.config.APIKey)
	}
}
