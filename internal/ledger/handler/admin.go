package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stockledger/stockledger-backend/internal/ledger/service"
	"github.com/stockledger/stockledger-backend/pkg/actor"
	"github.com/stockledger/stockledger-backend/pkg/errors"
	"github.com/stockledger/stockledger-backend/pkg/httputil"
	"github.com/stockledger/stockledger-backend/pkg/logger"
)

// AdminHandler handles bulk loads and manual ledger corrections
type AdminHandler struct {
	ingest *service.IngestService
	admin  *service.LedgerAdminService
	logger *logger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(ingest *service.IngestService, admin *service.LedgerAdminService, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		ingest: ingest,
		admin:  admin,
		logger: log,
	}
}

// Replace swaps the ledger contents in one transaction
func (h *AdminHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var req service.ReplaceRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.ingest.Replace(r.Context(), actor.FromContext(r.Context()), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

func (h *AdminHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req service.ImportRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.ingest.Import(r.Context(), actor.FromContext(r.Context()), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, result)
}

// ListEvents returns raw ledger rows; since and until are RFC 3339 times
func (h *AdminHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	branchID, err := httputil.QueryInt64(r, "branch_id")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	since, err := queryTime(r, "since")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	until, err := queryTime(r, "until")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	q := r.URL.Query()
	events, err := h.admin.ListEvents(r.Context(), actor.FromContext(r.Context()), service.EventFilter{
		BranchID: branchID,
		Flavour:  q.Get("flavour"),
		RackNo:   q.Get("rack_no"),
		Since:    since,
		Until:    until,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSONWithMeta(w, http.StatusOK, events, &httputil.Meta{Total: int64(len(events))})
}

func (h *AdminHandler) AddEvent(w http.ResponseWriter, r *http.Request) {
	var in service.AddEventInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&in); err != nil {
		httputil.Error(w, err)
		return
	}

	e, err := h.admin.AddEvent(r.Context(), actor.FromContext(r.Context()), &in)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, e)
}

func (h *AdminHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathInt64(chi.URLParam(r, "id"), "event id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var in service.UpdateEventInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&in); err != nil {
		httputil.Error(w, err)
		return
	}

	e, err := h.admin.UpdateEvent(r.Context(), actor.FromContext(r.Context()), id, &in)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, e)
}

func (h *AdminHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathInt64(chi.URLParam(r, "id"), "event id")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if err := h.admin.DeleteEvent(r.Context(), actor.FromContext(r.Context()), id); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errors.Validation(map[string]string{name: "must be an RFC 3339 timestamp"})
	}
	return &t, nil
}
