package router

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jaskrrish/Go-QSim/internal/handlers"
	"github.com/jaskrrish/Go-QSim/internal/middleware"
)

// Options configures the HTTP router
type Options struct {
	Simulation     *handlers.SimulationHandler
	Logger         *zap.Logger
	AllowedOrigins []string

	// RequestsPerSecond of 0 disables rate limiting
	RequestsPerSecond float64
	Burst             int
	MaxClients        int
	TrustForwarded    bool
}

type endpoint struct {
	path    string
	handler http.HandlerFunc
	methods []string
	// limited endpoints run simulations and are rate limited
	limited bool
}

// New builds the router with the full middleware chain
func New(opts Options) (http.Handler, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *middleware.RateLimiter
	if opts.RequestsPerSecond > 0 {
		var err error
		limiter, err = middleware.NewRateLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst, opts.MaxClients)
		if err != nil {
			return nil, err
		}
		limiter.TrustForwarded = opts.TrustForwarded
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	for _, e := range endpoints(opts.Simulation) {
		var h http.Handler = e.handler
		if e.limited && limiter != nil {
			h = limiter.Middleware(h)
		}
		r.Handle(e.path, h).Methods(e.methods...)
	}

	return middleware.Chain(r,
		middleware.Recovery(logger),
		middleware.RequestID,
		middleware.Logging(logger),
		middleware.CORS(opts.AllowedOrigins),
	), nil
}

func endpoints(sim *handlers.SimulationHandler) []endpoint {
	get := []string{http.MethodGet}
	post := []string{http.MethodPost}

	return []endpoint{
		{path: "/", handler: handlers.HomeHandler, methods: get},
		{path: "/health", handler: handlers.HealthHandler, methods: get},
		{path: "/healthz", handler: handlers.HealthHandler, methods: get},
		{path: "/readyz", handler: sim.ReadyHandler, methods: get},
		{path: "/version", handler: handlers.VersionHandler, methods: get},
		{path: "/qubit-info", handler: handlers.QubitInfoHandler, methods: get},
		{path: "/circuit", handler: handlers.CircuitHandler, methods: get},

		{path: "/api/v1/simulate", handler: sim.SimulateHandler, methods: post, limited: true},
		{path: "/api/v1/statevector", handler: sim.StatevectorHandler, methods: post, limited: true},
		{path: "/api/v1/convert-qasm", handler: sim.ConvertQASMHandler, methods: post},

		// unversioned paths used by the composer front end
		{path: "/simulate", handler: sim.SimulateHandler, methods: post, limited: true},
		{path: "/statevector", handler: sim.StatevectorHandler, methods: post, limited: true},
		{path: "/convert-qasm", handler: sim.ConvertQASMHandler, methods: post},
	}
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"not found"}` + "\n"))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	w.Write([]byte(`{"error":"method not allowed"}` + "\n"))
}
