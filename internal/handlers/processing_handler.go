package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fueltrack/internal/interfaces"
)

// ProcessingHandler exposes the pipeline coordinator over HTTP: manual
// triggering, run history, the new-data report, and content comparison.
type ProcessingHandler struct {
	processingService interfaces.ProcessingService
	logger            arbor.ILogger
}

func NewProcessingHandler(processingService interfaces.ProcessingService, logger arbor.ILogger) *ProcessingHandler {
	return &ProcessingHandler{
		processingService: processingService,
		logger:            logger,
	}
}

// TriggerHandler starts a pipeline run in the background. Responds 409 when
// a run is already in progress; the caller is told, not queued.
func (h *ProcessingHandler) TriggerHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	result := h.processingService.TriggerDataProcessing(r.Context())
	if result.AlreadyRunning {
		WriteJSON(w, http.StatusConflict, map[string]interface{}{
			"status":  "skipped",
			"message": result.Message,
		})
		return
	}

	WriteStarted(w, result.Message)
}

// HistoryHandler returns recent run ledger entries, newest first.
func (h *ProcessingHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit := QueryInt(r, "limit", 20)
	entries, err := h.processingService.GetHistory(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load run history")
		WriteError(w, http.StatusInternalServerError, "Failed to load run history")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// NewDataHandler serves the per-category new-rows report.
func (h *ProcessingHandler) NewDataHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		WriteJSON(w, http.StatusOK, h.processingService.GetNewDataReport())
	case "PATCH":
		h.updateNewData(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// updateNewData patches one row of the in-memory new-data report. The edit
// is a working-copy correction; spreadsheets and database are untouched.
func (h *ProcessingHandler) updateNewData(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string            `json:"category"`
		RowIndex int               `json:"row_index"`
		Patch    map[string]string `json:"patch"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Category == "" || len(req.Patch) == 0 {
		WriteError(w, http.StatusBadRequest, "category and patch are required")
		return
	}

	if err := h.processingService.UpdateNewData(req.Category, req.RowIndex, req.Patch); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteSuccess(w, "Row updated")
}

// CompareHandler runs the content-aware comparison against the stored data.
func (h *ProcessingHandler) CompareHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	report, err := h.processingService.CompareData(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Data comparison failed")
		WriteError(w, http.StatusInternalServerError, "Data comparison failed")
		return
	}

	WriteJSON(w, http.StatusOK, report)
}
