package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/foundermate/foundermate/internal/agent"
	"github.com/foundermate/foundermate/internal/auth"
	"github.com/foundermate/foundermate/internal/model"
	"github.com/foundermate/foundermate/internal/proactive"
	"github.com/foundermate/foundermate/internal/storage"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	db                  *storage.DB
	jwtMgr              *auth.JWTManager
	engine              *agent.Engine
	registry            *agent.Registry
	pipeline            *proactive.Pipeline
	logger              *slog.Logger
	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64
}

// HandlersDeps holds all dependencies for constructing Handlers.
type HandlersDeps struct {
	DB                  *storage.DB
	JWTMgr              *auth.JWTManager
	Engine              *agent.Engine
	Registry            *agent.Registry
	Pipeline            *proactive.Pipeline
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		db:                  d.DB,
		jwtMgr:              d.JWTMgr,
		engine:              d.Engine,
		registry:            d.Registry,
		pipeline:            d.Pipeline,
		logger:              d.Logger,
		startedAt:           time.Now(),
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
	}
}

// HandleAuthToken handles POST /auth/token.
// Exchanges an email and API key for a JWT.
func (h *Handlers) HandleAuthToken(w http.ResponseWriter, r *http.Request) {
	var req model.AuthTokenRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if req.Email == "" || req.APIKey == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "email and api_key are required")
		return
	}

	user, keyHash, err := h.db.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		// Burn a hash so response timing does not reveal whether the
		// email exists.
		auth.DummyVerify()
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid credentials")
			return
		}
		h.writeInternalError(w, r, "failed to look up user", err)
		return
	}

	valid, err := auth.VerifyAPIKey(req.APIKey, keyHash)
	if err != nil || !valid {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := h.jwtMgr.IssueToken(user)
	if err != nil {
		h.writeInternalError(w, r, "failed to issue token", err)
		return
	}

	writeJSON(w, r, http.StatusOK, model.AuthTokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// HandleExecute handles POST /v1/agents/execute.
// The engine returns a uniform response shape whether the run succeeded or
// failed, so the HTTP status is 200 for any well-formed request.
func (h *Handlers) HandleExecute(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "no claims in context")
		return
	}

	var req model.ExecuteRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if err := model.ValidateAgentID(req.AgentID); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	resp := h.engine.Execute(r.Context(), req.AgentID, req.Input, claims.UserID)
	writeJSON(w, r, http.StatusOK, resp)
}

// HandleListAgents handles GET /v1/agents.
// An optional category query parameter filters the listing.
func (h *Handlers) HandleListAgents(w http.ResponseWriter, r *http.Request) {
	var defs []agent.Definition
	if category := r.URL.Query().Get("category"); category != "" {
		defs = h.registry.AllByCategory(category)
	} else {
		defs = h.registry.All()
	}

	infos := make([]model.AgentInfo, 0, len(defs))
	for _, d := range defs {
		infos = append(infos, d.Info())
	}

	writeJSON(w, r, http.StatusOK, model.ListAgentsResponse{
		Agents: infos,
		Count:  len(infos),
	})
}

// HandleHistory handles GET /v1/agents/history.
// Supports limit and agent_id query parameters.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "no claims in context")
		return
	}

	f := storage.RunFilter{}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "limit must be an integer")
			return
		}
		f.Limit = n
	}
	if v := r.URL.Query().Get("agent_id"); v != "" {
		if err := model.ValidateAgentID(v); err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
			return
		}
		f.AgentID = v
	}

	runs, err := h.db.ListRuns(r.Context(), claims.UserID, f)
	if err != nil {
		h.writeInternalError(w, r, "failed to list runs", err)
		return
	}

	writeJSON(w, r, http.StatusOK, model.HistoryResponse{
		Tasks: runs,
		Count: len(runs),
	})
}

// HandleProactive handles GET /v1/proactive.
// Runs the detection pipeline for the authenticated user and returns any
// messages that survived dedup.
func (h *Handlers) HandleProactive(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "no claims in context")
		return
	}

	messages, err := h.pipeline.Process(r.Context(), claims.UserID)
	if err != nil {
		h.writeInternalError(w, r, "proactive pipeline failed", err)
		return
	}

	writeJSON(w, r, http.StatusOK, model.ProactiveResponse{
		Messages: messages,
		Count:    len(messages),
	})
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	pgStatus := "connected"
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.db.Ping(r.Context()); err != nil {
		pgStatus = "disconnected"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, r, httpStatus, model.HealthResponse{
		Status:   status,
		Version:  h.version,
		Postgres: pgStatus,
		Agents:   h.registry.Len(),
		Uptime:   int64(time.Since(h.startedAt).Seconds()),
	})
}

// writeInternalError logs the underlying error and returns a generic 500.
func (h *Handlers) writeInternalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg, "error", err, "request_id", RequestIDFromContext(r.Context()))
	writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, msg)
}
