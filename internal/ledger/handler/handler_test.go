package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stockledger/stockledger-backend/internal/ledger/domain"
	"github.com/stockledger/stockledger-backend/internal/ledger/handler"
	"github.com/stockledger/stockledger-backend/internal/ledger/repository"
	"github.com/stockledger/stockledger-backend/internal/ledger/service"
	"github.com/stockledger/stockledger-backend/pkg/actor"
	"github.com/stockledger/stockledger-backend/pkg/config"
	"github.com/stockledger/stockledger-backend/pkg/database"
	"github.com/stockledger/stockledger-backend/pkg/logger"
	"github.com/stockledger/stockledger-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ledgerConfig() config.LedgerConfig {
	return config.LedgerConfig{
		RackNames:               config.DefaultRackNames(),
		ShelfNames:              config.DefaultShelfNames(),
		ActivityLimit:           15,
		ForecastWeeks:           20,
		DedupeIncludesTimestamp: true,
	}
}

// newRouter wires the real services and repositories over db
func newRouter(db *database.DB) http.Handler {
	log := logger.Nop()
	cfg := ledgerConfig()

	movements := repository.NewMovementRepository(db)
	transfers := repository.NewTransferRepository(db)
	branches := repository.NewBranchRepository(db)
	users := repository.NewUserCacheRepository(db)

	ingest := service.NewIngestService(db, movements, transfers, branches, nil, cfg, log)
	h := &handler.Handlers{
		Sync: handler.NewSyncHandler(ingest, log),
		Stock: handler.NewStockHandler(
			service.NewStockAggregator(movements, users, cfg, log),
			service.NewExpiryForecaster(movements, cfg, log),
			log,
		),
		Transfers: handler.NewTransferHandler(service.NewTransferService(db, transfers, branches, users, nil, log), log),
		Branches:  handler.NewBranchHandler(service.NewBranchService(branches, log), log),
		Admin:     handler.NewAdminHandler(ingest, service.NewLedgerAdminService(movements, branches, log), log),
	}

	r := chi.NewRouter()
	r.Route("/api/v1", h.Mount)
	return r
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestParseLabel(t *testing.T) {
	mock := testutil.NewMockDB(t)
	r := newRouter(mock.DB)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/labels/parse", map[string]string{
		"text": "B.NO: 25-8902-0014\nMFD 01/05/25 EXP 01/05/26",
	}, testutil.User("u-1", 1))
	rr := serve(r, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var fields domain.LabelFields
	env := testutil.DecodeEnvelope(t, rr, &fields)
	assert.True(t, env.Success)
	assert.Equal(t, "25-8902-0014", fields.BatchNo)
	assert.Equal(t, "01/05/25", fields.MfgDate)
	assert.Equal(t, "01/05/26", fields.ExpiryDate)
	mock.ExpectationsWereMet(t)
}

func TestSync_RejectsInvalidBody(t *testing.T) {
	mock := testutil.NewMockDB(t)
	r := newRouter(mock.DB)
	u := testutil.User("u-1", 1)

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync", nil)
		req = req.WithContext(actor.WithActor(req.Context(), u))
		rr := serve(r, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "BAD_REQUEST", testutil.DecodeEnvelope(t, rr, nil).Error.Code)
	})

	t.Run("no events", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/sync", service.SyncRequest{}, u)
		rr := serve(r, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		env := testutil.DecodeEnvelope(t, rr, nil)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
		assert.Contains(t, env.Error.Details, "events")
	})

	t.Run("candidate without batch", func(t *testing.T) {
		body := service.SyncRequest{Events: []service.Candidate{{Flavour: "Cola"}}}
		rr := serve(r, testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/sync", body, u))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, testutil.DecodeEnvelope(t, rr, nil).Error.Details, "events[0].batch_no")
	})

	mock.ExpectationsWereMet(t)
}

func TestPermissions(t *testing.T) {
	mock := testutil.NewMockDB(t)
	r := newRouter(mock.DB)

	tests := []struct {
		name   string
		method string
		path   string
		actor  *actor.Actor
	}{
		{"anonymous sync", http.MethodPost, "/api/v1/sync", nil},
		{"user creates branch", http.MethodPost, "/api/v1/branches", testutil.User("u-1", 1)},
		{"admin creates branch", http.MethodPost, "/api/v1/branches", testutil.Admin("a-1", 1)},
		{"user replaces ledger", http.MethodPost, "/api/v1/admin/sync/replace", testutil.User("u-1", 1)},
		{"user imports", http.MethodPost, "/api/v1/admin/import", testutil.User("u-1", 1)},
		{"user edits events", http.MethodDelete, "/api/v1/admin/events/1", testutil.User("u-1", 1)},
		{"user overrides transfer", http.MethodPut, "/api/v1/transfers/1/status", testutil.User("u-1", 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(r, testutil.NewJSONRequest(t, tt.method, tt.path, map[string]string{}, tt.actor))
			assert.Equal(t, http.StatusForbidden, rr.Code)
			assert.Equal(t, "FORBIDDEN", testutil.DecodeEnvelope(t, rr, nil).Error.Code)
		})
	}

	mock.ExpectationsWereMet(t)
}

func TestQueryValidation(t *testing.T) {
	mock := testutil.NewMockDB(t)
	r := newRouter(mock.DB)
	u := testutil.User("u-1", 1)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
		field  string
	}{
		{"unknown sort", http.MethodGet, "/api/v1/stock/dashboard?sort=random", http.StatusBadRequest, "sort"},
		{"non-numeric branch", http.MethodGet, "/api/v1/stock/analytics?branch_id=main", http.StatusBadRequest, "branch_id"},
		{"non-numeric week", http.MethodGet, "/api/v1/forecast/weeks/one/items", http.StatusBadRequest, "week"},
		{"unknown transfer status", http.MethodGet, "/api/v1/transfers?status=lost", http.StatusBadRequest, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(r, testutil.NewJSONRequest(t, tt.method, tt.path, nil, u))
			assert.Equal(t, tt.want, rr.Code)
			assert.Contains(t, testutil.DecodeEnvelope(t, rr, nil).Error.Details, tt.field)
		})
	}

	t.Run("bad event id", func(t *testing.T) {
		rr := serve(r, testutil.NewJSONRequest(t, http.MethodDelete, "/api/v1/admin/events/abc", nil, testutil.Admin("a-1", 1)))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("since must be RFC 3339", func(t *testing.T) {
		rr := serve(r, testutil.NewJSONRequest(t, http.MethodGet, "/api/v1/admin/events?since=yesterday", nil, testutil.Admin("a-1", 1)))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, testutil.DecodeEnvelope(t, rr, nil).Error.Details, "since")
	})

	mock.ExpectationsWereMet(t)
}

func TestBranches(t *testing.T) {
	mock := testutil.NewMockDB(t)
	r := newRouter(mock.DB)
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, name, code, created_at FROM branches ORDER BY id`).
		WillReturnRows(testutil.MockRows("id", "name", "code", "created_at").
			AddRow(1, "Main Branch", "MAIN", created).
			AddRow(2, "North", "NTH", created))

	rr := serve(r, testutil.NewJSONRequest(t, http.MethodGet, "/api/v1/branches", nil, testutil.User("u-1", 1)))
	require.Equal(t, http.StatusOK, rr.Code)
	var list []domain.Branch
	testutil.DecodeEnvelope(t, rr, &list)
	require.Len(t, list, 2)
	assert.Equal(t, "NTH", list[1].Code)

	mock.ExpectQuery(`SELECT id, name, code, created_at FROM branches WHERE id = $1`).
		WithArgs(int64(7)).
		WillReturnRows(testutil.MockRows("id", "name", "code", "created_at"))

	rr = serve(r, testutil.NewJSONRequest(t, http.MethodGet, "/api/v1/branches/7", nil, testutil.User("u-1", 1)))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	mock.ExpectationsWereMet(t)
}
