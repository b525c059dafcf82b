package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stockledger/stockledger-backend/internal/ledger/service"
	"github.com/stockledger/stockledger-backend/pkg/actor"
	"github.com/stockledger/stockledger-backend/pkg/httputil"
	"github.com/stockledger/stockledger-backend/pkg/logger"
)

// BranchHandler handles branch endpoints
type BranchHandler struct {
	branches *service.BranchService
	logger   *logger.Logger
}

// NewBranchHandler creates a new branch handler
func NewBranchHandler(branches *service.BranchService, log *logger.Logger) *BranchHandler {
	return &BranchHandler{
		branches: branches,
		logger:   log,
	}
}

func (h *BranchHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.branches.List(r.Context(), actor.FromContext(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, list)
}

func (h *BranchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathInt64(chi.URLParam(r, "id"), "branch id")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	b, err := h.branches.Get(r.Context(), actor.FromContext(r.Context()), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, b)
}

func (h *BranchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.CreateBranchInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&in); err != nil {
		httputil.Error(w, err)
		return
	}

	b, err := h.branches.Create(r.Context(), actor.FromContext(r.Context()), &in)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, b)
}
