package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/stockledger/stockledger-backend/pkg/httputil"
	"github.com/stockledger/stockledger-backend/pkg/permissions"
)

// Handlers groups the ledger HTTP handlers
type Handlers struct {
	Sync      *SyncHandler
	Stock     *StockHandler
	Transfers *TransferHandler
	Branches  *BranchHandler
	Admin     *AdminHandler
}

// Mount registers the ledger API under r. The caller installs authentication.
func (h *Handlers) Mount(r chi.Router) {
	perm := httputil.RequirePermission

	r.With(perm(permissions.LedgerSync)).Post("/sync", h.Sync.Sync)
	r.With(perm(permissions.LedgerSync)).Post("/labels/parse", h.Sync.ParseLabel)

	r.Route("/stock", func(r chi.Router) {
		r.Use(perm(permissions.LedgerRead))
		r.Get("/dashboard", h.Stock.Dashboard)
		r.Get("/analytics", h.Stock.Analytics)
	})

	r.Route("/forecast", func(r chi.Router) {
		r.Use(perm(permissions.LedgerRead))
		r.Get("/", h.Stock.Forecast)
		r.Get("/weeks/{week}/items", h.Stock.WeekItems)
	})

	r.Route("/transfers", func(r chi.Router) {
		r.With(perm(permissions.TransfersRead)).Get("/", h.Transfers.List)
		r.With(perm(permissions.TransfersCreate)).Post("/", h.Transfers.Create)
		r.With(perm(permissions.TransfersManage)).Put("/{id}/status", h.Transfers.UpdateStatus)
	})

	r.Route("/branches", func(r chi.Router) {
		r.With(perm(permissions.BranchesRead)).Get("/", h.Branches.List)
		r.With(perm(permissions.BranchesRead)).Get("/{id}", h.Branches.Get)
		r.With(perm(permissions.BranchesManage)).Post("/", h.Branches.Create)
	})

	r.Route("/admin", func(r chi.Router) {
		r.With(perm(permissions.LedgerReplace)).Post("/sync/replace", h.Admin.Replace)
		r.With(perm(permissions.LedgerImport)).Post("/import", h.Admin.Import)
		r.Route("/events", func(r chi.Router) {
			r.Use(perm(permissions.LedgerEventsEdit))
			r.Get("/", h.Admin.ListEvents)
			r.Post("/", h.Admin.AddEvent)
			r.Put("/{id}", h.Admin.UpdateEvent)
			r.Delete("/{id}", h.Admin.DeleteEvent)
		})
	})
}
