package handler

import (
	"net/http"

	"github.com/stockledger/stockledger-backend/internal/ledger/domain"
	"github.com/stockledger/stockledger-backend/internal/ledger/service"
	"github.com/stockledger/stockledger-backend/pkg/actor"
	"github.com/stockledger/stockledger-backend/pkg/httputil"
	"github.com/stockledger/stockledger-backend/pkg/logger"
)

// SyncHandler handles client ingest and label parsing
type SyncHandler struct {
	ingest *service.IngestService
	logger *logger.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(ingest *service.IngestService, log *logger.Logger) *SyncHandler {
	return &SyncHandler{
		ingest: ingest,
		logger: log,
	}
}

// Sync applies a batch of client-recorded movements
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req service.SyncRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.ingest.Sync(r.Context(), actor.FromContext(r.Context()), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

type parseLabelRequest struct {
	Text string `json:"text" validate:"required,max=10000"`
}

// ParseLabel extracts batch and date fields from recognised label text
func (h *SyncHandler) ParseLabel(w http.ResponseWriter, r *http.Request) {
	var req parseLabelRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, domain.ParseLabelText(req.Text))
}
