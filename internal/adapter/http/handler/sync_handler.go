package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/iho/dealsync/internal/adapter/http/dto"
	"github.com/iho/dealsync/internal/domain"
	"github.com/iho/dealsync/internal/infrastructure/logger"
	"github.com/iho/dealsync/internal/usecase"
)

// SyncService is the part of usecase.SyncUseCase served over HTTP.
type SyncService interface {
	Run(ctx context.Context, input usecase.SyncInput) (*domain.SyncReport, error)
	ListRuns(ctx context.Context, companyID int64, limit, offset int) ([]*domain.SyncRun, error)
	InvalidateReferences()
}

// SyncHandler handles sync-related HTTP requests.
type SyncHandler struct {
	syncUC SyncService
	logger zerolog.Logger
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(syncUC SyncService, logger zerolog.Logger) *SyncHandler {
	return &SyncHandler{syncUC: syncUC, logger: logger}
}

// Sync runs a reconciliation for the company in the path and returns its report.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company ID", err.Error())
		return
	}

	var req dto.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput(companyID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date range", err.Error())
		return
	}

	report, err := h.syncUC.Run(r.Context(), input)
	if err != nil {
		status := mapDomainError(err)
		if status == http.StatusInternalServerError {
			log := logger.FromContext(r.Context(), h.logger)
			log.Error().
				Err(err).
				Int64("company_id", companyID).
				Msg("sync run failed")
		}
		writeError(w, status, "sync failed", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.SyncReportFromDomain(report))
}

// ListRuns lists the company's sync runs, newest first.
func (h *SyncHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	companyID, err := companyIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid company ID", err.Error())
		return
	}

	limit := parseIntQuery(r, "limit", domain.DefaultPageSize)
	offset := parseIntQuery(r, "offset", 0)

	runs, err := h.syncUC.ListRuns(r.Context(), companyID, limit, offset)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list sync runs", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.SyncRunsFromDomain(runs))
}

// InvalidateReferences drops every cached reference name.
func (h *SyncHandler) InvalidateReferences(w http.ResponseWriter, r *http.Request) {
	h.syncUC.InvalidateReferences()
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}
