package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/stockledger/stockledger-backend/internal/ledger/service"
	"github.com/stockledger/stockledger-backend/pkg/actor"
	"github.com/stockledger/stockledger-backend/pkg/errors"
	"github.com/stockledger/stockledger-backend/pkg/httputil"
	"github.com/stockledger/stockledger-backend/pkg/logger"
)

// StockHandler serves the derived stock and forecast views
type StockHandler struct {
	stock    *service.StockAggregator
	forecast *service.ExpiryForecaster
	logger   *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(stock *service.StockAggregator, forecast *service.ExpiryForecaster, log *logger.Logger) *StockHandler {
	return &StockHandler{
		stock:    stock,
		forecast: forecast,
		logger:   log,
	}
}

// Dashboard returns stats, rack summary, rack grid and recent activity
func (h *StockHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	branchID, err := httputil.QueryInt64(r, "branch_id")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	order, err := service.ParseSortOrder(r.URL.Query().Get("sort"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	dashboard, err := h.stock.Dashboard(r.Context(), actor.FromContext(r.Context()), service.DashboardQuery{
		BranchID: branchID,
		Sort:     order,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, dashboard)
}

func (h *StockHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	branchID, err := httputil.QueryInt64(r, "branch_id")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	analytics, err := h.stock.Analytics(r.Context(), actor.FromContext(r.Context()), branchID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, analytics)
}

func (h *StockHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	branchID, err := httputil.QueryInt64(r, "branch_id")
	if err != nil {
		httputil.Error(w, err)
		return
	}
	forecast, err := h.forecast.Forecast(r.Context(), actor.FromContext(r.Context()), branchID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, forecast)
}

// WeekItems lists the locations whose stock expires in one forecast week
func (h *StockHandler) WeekItems(w http.ResponseWriter, r *http.Request) {
	week, err := strconv.Atoi(chi.URLParam(r, "week"))
	if err != nil {
		httputil.Error(w, errors.Validation(map[string]string{"week": "must be an integer"}))
		return
	}
	branchID, err := httputil.QueryInt64(r, "branch_id")
	if err != nil {
		httputil.Error(w, err)
		return
	}

	items, err := h.forecast.WeekItems(r.Context(), actor.FromContext(r.Context()), service.WeekItemsQuery{
		BranchID: branchID,
		Week:     week,
		Flavour:  r.URL.Query().Get("flavour"),
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSONWithMeta(w, http.StatusOK, items, &httputil.Meta{Total: int64(len(items))})
}
