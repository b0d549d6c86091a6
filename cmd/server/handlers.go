package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/liamcoop/pdc/calculator"
	"github.com/liamcoop/pdc/flowchart"
	"github.com/liamcoop/pdc/internal/logger"
	"github.com/liamcoop/pdc/jurisdiction"
	"github.com/liamcoop/pdc/metadata"
	"github.com/liamcoop/pdc/pdc"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	maxBodyBytes    = 1 << 20
)

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":              "healthy",
		"jurisdictionsLoaded": len(s.charts.List()),
	})
}

// Metrics handler
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"counters":      logger.Snapshot(),
		"jurisdictions": len(s.charts.List()),
	})
}

// Calculation handler
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if req.Jurisdiction == "" {
		respondError(w, http.StatusBadRequest, "jurisdiction is required", nil)
		return
	}
	if req.ItemID == "" && req.Item == nil {
		respondError(w, http.StatusBadRequest, "itemId or item is required", nil)
		return
	}

	chart, err := s.charts.Get(req.Jurisdiction)
	if err != nil {
		respondFailure(w, "jurisdiction not found", err)
		return
	}

	item := req.Item
	if item == nil {
		item, err = s.items.Get(r.Context(), req.ItemID)
		if err != nil {
			respondFailure(w, "item not found", err)
			return
		}
	} else if item.ID == "" {
		item.ID = uuid.NewString()
	}

	startTime := time.Now()
	result, err := s.calculator.Run(r.Context(), chart, item, calculator.StaticAnswers(req.Answers))
	if err != nil {
		respondFailure(w, "calculation failed", err)
		return
	}

	response := newCalculateResponse(req.Jurisdiction, result)
	response.EvaluationTime = time.Since(startTime).String()
	respondJSON(w, http.StatusOK, response)
}

// Batch calculation handler
func (s *Server) handleCalculateBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchCalculateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if req.Jurisdiction == "" {
		respondError(w, http.StatusBadRequest, "jurisdiction is required", nil)
		return
	}
	if len(req.ItemIDs) == 0 && len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "itemIds or items are required", nil)
		return
	}

	chart, err := s.charts.Get(req.Jurisdiction)
	if err != nil {
		respondFailure(w, "jurisdiction not found", err)
		return
	}

	items := make([]pdc.Metadata, 0, len(req.ItemIDs)+len(req.Items))
	for _, id := range req.ItemIDs {
		item, err := s.items.Get(r.Context(), id)
		if err != nil {
			respondFailure(w, "item not found", err)
			return
		}
		items = append(items, item)
	}
	for _, item := range req.Items {
		if item == nil {
			respondError(w, http.StatusBadRequest, "items cannot contain null", nil)
			return
		}
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		items = append(items, item)
	}

	startTime := time.Now()
	results, err := s.calculator.RunBatch(r.Context(), chart, items, calculator.StaticAnswers(req.Answers))
	if err != nil {
		respondFailure(w, "calculation failed", err)
		return
	}

	response := BatchCalculateResponse{
		Results:        make([]CalculateResponse, len(results)),
		EvaluationTime: time.Since(startTime).String(),
	}
	for i, result := range results {
		response.Results[i] = newCalculateResponse(req.Jurisdiction, result)
	}
	respondJSON(w, http.StatusOK, response)
}

func newCalculateResponse(jurisdiction string, result *pdc.Result) CalculateResponse {
	return CalculateResponse{
		ID:           uuid.NewString(),
		Jurisdiction: jurisdiction,
		PublicDomain: result.Verdict,
		Trace:        result.Trace,
		Metadata:     result.Metadata,
	}
}

// List jurisdictions handler
func (s *Server) handleListJurisdictions(w http.ResponseWriter, r *http.Request) {
	response := JurisdictionsListResponse{Jurisdictions: []JurisdictionResponse{}}

	for _, j := range s.charts.List() {
		def, err := s.charts.Definition(j)
		if err != nil {
			// Removed since List was called
			continue
		}
		chart, err := s.charts.Get(j)
		if err != nil {
			continue
		}
		response.Jurisdictions = append(response.Jurisdictions, JurisdictionResponse{
			Jurisdiction: j,
			ChartID:      def.ID,
			Name:         def.Name,
			Version:      def.Version,
			Questions:    len(chart.Questions()),
		})
	}

	respondJSON(w, http.StatusOK, response)
}

// Get flow chart handler
func (s *Server) handleGetFlowchart(w http.ResponseWriter, r *http.Request) {
	def, err := s.charts.Definition(chi.URLParam(r, "jurisdiction"))
	if err != nil {
		respondFailure(w, "flow chart not found", err)
		return
	}
	respondJSON(w, http.StatusOK, def)
}

// Update flow chart handler. The new version is live as soon as the response is sent.
func (s *Server) handlePutFlowchart(w http.ResponseWriter, r *http.Request) {
	j := chi.URLParam(r, "jurisdiction")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	def, err := flowchart.ParseJSON(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid flow chart", err)
		return
	}

	if def.Jurisdiction == "" {
		def.Jurisdiction = j
	}
	if def.Jurisdiction != j {
		respondError(w, http.StatusBadRequest, "jurisdiction in body does not match URL", nil)
		return
	}

	version, err := s.charts.Update(r.Context(), def)
	if err != nil {
		respondFailure(w, "failed to update flow chart", err)
		return
	}

	respondJSON(w, http.StatusOK, UpdateFlowchartResponse{
		Jurisdiction: j,
		Version:      version,
		Status:       "active",
	})
}

// Delete flow chart handler
func (s *Server) handleDeleteFlowchart(w http.ResponseWriter, r *http.Request) {
	if err := s.charts.Remove(r.Context(), chi.URLParam(r, "jurisdiction")); err != nil {
		respondFailure(w, "failed to remove flow chart", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Create item handler
func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var item metadata.Item
	if err := decodeJSON(r, &item); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	if err := s.items.Add(r.Context(), &item); err != nil {
		respondFailure(w, "failed to add item", err)
		return
	}

	respondJSON(w, http.StatusCreated, &item)
}

// List items handler
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	start, err := queryInt(r, "start", 0)
	if err != nil || start < 0 {
		respondError(w, http.StatusBadRequest, "start must be a non-negative integer", err)
		return
	}
	max, err := queryInt(r, "max", defaultPageSize)
	if err != nil || max <= 0 || max > maxPageSize {
		respondError(w, http.StatusBadRequest, "max must be between 1 and 500", err)
		return
	}

	items, err := s.items.List(r.Context(), start, max)
	if err != nil {
		respondFailure(w, "failed to list items", err)
		return
	}
	if items == nil {
		items = []*metadata.Item{}
	}

	respondJSON(w, http.StatusOK, ItemsListResponse{Items: items, Start: start, Max: max})
}

// Get item handler
func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.items.Get(r.Context(), chi.URLParam(r, "itemId"))
	if err != nil {
		respondFailure(w, "item not found", err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// Delete item handler
func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.items.Delete(r.Context(), chi.URLParam(r, "itemId")); err != nil {
		respondFailure(w, "failed to delete item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Helper functions

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	var verr *flowchart.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, metadata.ErrNotFound),
		errors.Is(err, flowchart.ErrNotFound),
		errors.Is(err, jurisdiction.ErrUnknownJurisdiction):
		return http.StatusNotFound
	case errors.Is(err, metadata.ErrExists),
		errors.Is(err, pdc.ErrIllegalState):
		return http.StatusConflict
	case errors.Is(err, calculator.ErrStepLimit):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// respondFailure responds with the status that matches err
func respondFailure(w http.ResponseWriter, message string, err error) {
	respondError(w, statusFor(err), message, err)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}

	var verr *flowchart.ValidationError
	if errors.As(err, &verr) {
		response.Problems = verr.Problems
	}

	switch {
	case status >= 500:
		logger.ErrorHttp5xx()
		logger.Logger.Error(message, "status", status, "error", err)
	case status >= 400:
		logger.WarnHttp4xx(status)
	}

	respondJSON(w, status, response)
}
