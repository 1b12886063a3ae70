package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/samijaber1/aegis-guard/internal/guard"
	"github.com/samijaber1/aegis-guard/internal/scheduler"
	"github.com/samijaber1/aegis-guard/internal/service"
	"github.com/samijaber1/aegis-guard/internal/storage"
)

// Server is the HTTP API server
type Server struct {
	loop    *scheduler.Loop
	manager *guard.Manager
	defs    []service.DefinitionWithFile
	server  *http.Server
}

// NewServer creates a new API server
func NewServer(loop *scheduler.Loop, manager *guard.Manager, defs []service.DefinitionWithFile, addr string) *Server {
	s := &Server{
		loop:    loop,
		manager: manager,
		defs:    defs,
	}

	mux := http.NewServeMux()

	// Health endpoints
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	// Service definition endpoints
	mux.HandleFunc("/v1/services", s.handleServiceList)
	mux.HandleFunc("/v1/services/", s.handleServiceGet)

	// State endpoint
	mux.HandleFunc("/v1/state/", s.handleState)

	// Forced evaluation endpoint
	mux.HandleFunc("/v1/evaluate", s.handleEvaluate)

	// Audit endpoint
	mux.HandleFunc("/v1/audit", s.handleAudit)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      loggingMiddleware(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting API server on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down API server...")
	return s.server.Shutdown(ctx)
}

// handleHealth handles GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	respondJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// handleReady handles GET /readyz
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cacheSize := s.loop.Cache().Size()

	ready := len(s.defs) > 0
	reasons := []string{}

	if len(s.defs) == 0 {
		reasons = append(reasons, "no services loaded")
	}

	if cacheSize == 0 {
		reasons = append(reasons, "no evaluations cached yet")
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, ReadyResponse{
		Ready:          ready,
		ServicesLoaded: len(s.defs),
		Reasons:        reasons,
	})
}

// handleServiceList handles GET /v1/services
func (s *Server) handleServiceList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	summaries := make([]ServiceSummary, 0, len(s.defs))
	for _, defWithFile := range s.defs {
		def := defWithFile.Definition
		summaries = append(summaries, ServiceSummary{
			ID:              def.Metadata.ID,
			Name:            def.Metadata.Name,
			UptimeTargetPct: def.Spec.SLO.UptimeTargetPct,
			Windows:         len(def.Spec.Windows),
			ActionPlan:      len(def.Spec.ActionPlan),
		})
	}

	respondJSON(w, http.StatusOK, ServiceListResponse{Services: summaries})
}

// handleServiceGet handles GET /v1/services/{id}
func (s *Server) handleServiceGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/services/")
	if id == "" {
		respondError(w, http.StatusBadRequest, "service ID required")
		return
	}

	for _, defWithFile := range s.defs {
		if defWithFile.Definition.Metadata.ID == id {
			respondJSON(w, http.StatusOK, defWithFile.Definition)
			return
		}
	}

	respondError(w, http.StatusNotFound, fmt.Sprintf("service not found: %s", id))
}

// handleState handles GET /v1/state/{id}
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/state/")
	if id == "" {
		respondError(w, http.StatusBadRequest, "service ID required")
		return
	}

	state, ok := s.loop.Cache().Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("no evaluation found for service: %s", id))
		return
	}

	respondJSON(w, http.StatusOK, stateResponse(id, state))
}

// handleEvaluate handles POST /v1/evaluate
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	if req.ServiceID == "" {
		respondError(w, http.StatusBadRequest, "serviceId required")
		return
	}

	if err := s.loop.EvaluateNow(req.ServiceID); err != nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("evaluation failed: %v", err))
		return
	}

	state, ok := s.loop.Cache().Get(req.ServiceID)
	if !ok {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("no evaluation cached for service: %s", req.ServiceID))
		return
	}

	respondJSON(w, http.StatusOK, stateResponse(req.ServiceID, state))
}

// handleAudit handles GET /v1/audit
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	auditStorage := s.loop.AuditStorage()
	if auditStorage == nil {
		respondError(w, http.StatusServiceUnavailable, "audit storage not configured")
		return
	}

	query := r.URL.Query()
	filter := storage.AuditFilter{
		ServiceID:     query.Get("serviceId"),
		State:         query.Get("state"),
		TriggeredOnly: query.Get("triggered") == "true",
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	if startTimeStr := query.Get("startTime"); startTimeStr != "" {
		if startTime, err := time.Parse(time.RFC3339, startTimeStr); err == nil {
			filter.StartTime = &startTime
		}
	}

	if endTimeStr := query.Get("endTime"); endTimeStr != "" {
		if endTime, err := time.Parse(time.RFC3339, endTimeStr); err == nil {
			filter.EndTime = &endTime
		}
	}

	records, err := auditStorage.QueryAudit(filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to query audit: %v", err))
		return
	}

	responseRecords := make([]AuditRecordResponse, len(records))
	for i, record := range records {
		responseRecords[i] = AuditRecordResponse{
			ID:            record.ID,
			ServiceID:     record.ServiceID,
			State:         record.State,
			ShouldTrigger: record.ShouldTrigger,
			Warn:          record.Warn,
			Severity:      record.Severity,
			Windows:       record.Windows,
			ActiveActions: record.ActiveActions,
			Timestamp:     record.Timestamp,
			CreatedAt:     record.CreatedAt,
		}
	}

	respondJSON(w, http.StatusOK, AuditResponse{
		Records: responseRecords,
		Total:   len(responseRecords),
	})
}

// stateResponse builds the wire view of one cached evaluation state
func stateResponse(id string, state *scheduler.EvaluationState) StateResponse {
	return StateResponse{
		ServiceID: id,
		State:     string(state.Runtime.State),
		Windows:   state.Result.Windows,
		Trigger:   state.Result.ShouldTrigger,
		Warn:      state.Result.Warn,
		Severity:  state.Result.Severity,
		Runtime:   state.Runtime,
		UpdatedAt: state.UpdatedAt,
		TTL:       int(state.TTL.Seconds()),
		IsStale:   state.IsStale(time.Now()),
	}
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
