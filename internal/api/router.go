package api

import (
	"context"
	"net/http"

	"vrp-solver-service/internal/api/handlers"
	"vrp-solver-service/internal/ports"
)

// Deps are the collaborators of the HTTP surface. A nil Solver serves only the
// health check, as worker-only processes do.
type Deps struct {
	Checks   map[string]func(ctx context.Context) error
	Problems ports.ProblemPort
	Solver   handlers.SolverService
	Panels   ports.PanelStore
	Hub      handlers.SessionHub
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(deps Deps) http.Handler {
	mux := http.NewServeMux()

	healthHandler := &handlers.HealthHandler{Checks: deps.Checks}
	mux.HandleFunc("/health", healthHandler.Health)

	if deps.Problems != nil {
		problemHandler := &handlers.ProblemHandler{Problems: deps.Problems}
		mux.HandleFunc("GET /api/problems/{problemID}", problemHandler.Get)
	}

	if deps.Solver != nil {
		solverHandler := &handlers.SolverHandler{Service: deps.Solver, Panels: deps.Panels}

		mux.HandleFunc("GET /api/solver/solver-names", solverHandler.SolverNames)
		mux.HandleFunc("GET /api/solver/{problemID}/status", solverHandler.Status)
		mux.HandleFunc("GET /api/solver/{problemID}/solution", solverHandler.Solution)
		mux.HandleFunc("GET /api/solver/{problemID}/solution-panel", solverHandler.SolutionPanel)
		mux.HandleFunc("POST /api/solver/{problemID}/solve/{solverName}", solverHandler.Solve)
		mux.HandleFunc("POST /api/solver/{target}/terminate", solverHandler.Terminate)
		mux.HandleFunc("POST /api/solver/{target}/clear", solverHandler.Clear)
		mux.HandleFunc("POST /api/solver/{problemID}/detailed-path", solverHandler.DetailedPath)

		if deps.Panels != nil {
			panelHandler := &handlers.PanelHandler{Panels: deps.Panels}
			mux.HandleFunc("GET /api/panel/{viewerID}", panelHandler.Get)
			mux.HandleFunc("PUT /api/panel/{viewerID}", panelHandler.Put)
		}

		if deps.Hub != nil {
			wsHandler := &handlers.SolutionStateHandler{Service: deps.Solver, Hub: deps.Hub}
			mux.HandleFunc("GET /ws/solution-state/{problemID}", wsHandler.Serve)
		}
	}

	return loggingMiddleware(mux)
}
