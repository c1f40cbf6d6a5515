package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/chittyos/chittyrouter/agent"
	"github.com/chittyos/chittyrouter/entity"
	"github.com/chittyos/chittyrouter/errors"
)

type (
	completeRequest struct {
		Prompt            string         `json:"prompt"`
		TaskType          string         `json:"taskType"`
		SessionID         string         `json:"sessionId,omitempty"`
		Complexity        string         `json:"complexity,omitempty"`
		PreferredProvider string         `json:"preferredProvider,omitempty"`
		MaxTokens         int            `json:"maxTokens,omitempty"`
		Context           map[string]any `json:"context,omitempty"`
	}

	statsEnvelope struct {
		TotalInteractions int64            `json:"totalInteractions"`
		TotalCost         float64          `json:"totalCost"`
		ProviderUsage     map[string]int64 `json:"providerUsage"`
		TaskTypeUsage     map[string]int64 `json:"taskTypeUsage"`
	}

	statsResponse struct {
		AgentID     string             `json:"agentId"`
		Stats       statsEnvelope      `json:"stats"`
		ModelScores map[string]float64 `json:"modelScores"`
	}

	healthResponse struct {
		Status  string `json:"status"`
		AgentID string `json:"agentId"`
	}

	errorResponse struct {
		Error string `json:"error"`
	}
)

// NewHandler mounts the per-agent endpoints behind CORS, panic recovery and
// request logging.
func NewHandler(logger *slog.Logger, agents agent.Manager) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/agents/{agentId}/complete", func(w http.ResponseWriter, r *http.Request) {
		actor := agents.Resolve(mux.Vars(r)["agentId"])

		var req completeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		result, err := actor.Process(r.Context(), &agent.Request{
			Prompt:            req.Prompt,
			TaskType:          req.TaskType,
			ScopeID:           req.SessionID,
			Complexity:        entity.Complexity(req.Complexity),
			PreferredProvider: req.PreferredProvider,
			MaxTokens:         req.MaxTokens,
			Context:           req.Context,
		})
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}).Methods("POST")

	router.HandleFunc("/agents/{agentId}/stats", func(w http.ResponseWriter, r *http.Request) {
		actor := agents.Resolve(mux.Vars(r)["agentId"])

		stats, err := actor.Stats(r.Context())
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}

		writeJSON(w, http.StatusOK, statsResponse{
			AgentID: actor.ID(),
			Stats: statsEnvelope{
				TotalInteractions: stats.TotalInteractions,
				TotalCost:         stats.TotalCost,
				ProviderUsage:     stats.ProviderUsage,
				TaskTypeUsage:     stats.TaskTypeUsage,
			},
			ModelScores: stats.ModelScores,
		})
	}).Methods("GET")

	router.HandleFunc("/agents/{agentId}/health", func(w http.ResponseWriter, r *http.Request) {
		actor := agents.Resolve(mux.Vars(r)["agentId"])

		writeJSON(w, http.StatusOK, healthResponse{
			Status:  actor.Health(r.Context()),
			AgentID: actor.ID(),
		})
	}).Methods("GET")

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.PrintRecoveryStack(true),
		handlers.RecoveryLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError)),
	)

	return cors(recovery(logRequests(logger, router)))
}

func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("[HTTP] request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration", time.Since(startTime)),
		)
	})
}

// statusFor maps the error taxonomy onto HTTP: bad input is the caller's
// fault, a capability gap is a setup problem, an exhausted chain is a bad
// gateway the caller may retry later.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errors.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrConfiguration):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errors.ErrFatalRouting):
		return http.StatusBadGateway
	case errors.Is(err, errors.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
