package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stockledger/stockledger-backend/internal/ledger/domain"
	"github.com/stockledger/stockledger-backend/internal/ledger/service"
	"github.com/stockledger/stockledger-backend/pkg/actor"
	"github.com/stockledger/stockledger-backend/pkg/errors"
	"github.com/stockledger/stockledger-backend/pkg/httputil"
	"github.com/stockledger/stockledger-backend/pkg/logger"
)

// TransferHandler handles transfer request endpoints
type TransferHandler struct {
	transfers *service.TransferService
	logger    *logger.Logger
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(transfers *service.TransferService, log *logger.Logger) *TransferHandler {
	return &TransferHandler{
		transfers: transfers,
		logger:    log,
	}
}

func (h *TransferHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *domain.TransferStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := domain.ParseTransferStatus(raw)
		if err != nil {
			httputil.Error(w, errors.Validation(map[string]string{
				"status": "must be one of: submitted completed rejected cancelled",
			}))
			return
		}
		status = &st
	}

	list, err := h.transfers.List(r.Context(), actor.FromContext(r.Context()), status)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSONWithMeta(w, http.StatusOK, list, &httputil.Meta{Total: int64(len(list))})
}

func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateTransferInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&in); err != nil {
		httputil.Error(w, err)
		return
	}

	t, err := h.transfers.Create(r.Context(), actor.FromContext(r.Context()), &in)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, t)
}

// UpdateStatus applies an administrative status override
func (h *TransferHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathInt64(chi.URLParam(r, "id"), "transfer id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var in service.UpdateTransferStatusInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&in); err != nil {
		httputil.Error(w, err)
		return
	}

	t, err := h.transfers.UpdateStatus(r.Context(), actor.FromContext(r.Context()), id, domain.TransferStatus(in.Status))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, t)
}
