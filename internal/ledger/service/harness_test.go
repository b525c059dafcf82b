package service

import (
	"testing"
	"time"

	"github.com/stockledger/stockledger-backend/pkg/config"
	"github.com/stockledger/stockledger-backend/pkg/errors"
	"github.com/stockledger/stockledger-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testNow is a Sunday morning; date strings in the tests are relative to it
var testNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type harness struct {
	store     *memStore
	notes     *recordingNotifier
	cfg       config.LedgerConfig
	ingest    *IngestService
	stock     *StockAggregator
	forecast  *ExpiryForecaster
	transfers *TransferService
	branches  *BranchService
	admin     *LedgerAdminService
}

func testLedgerConfig() config.LedgerConfig {
	return config.LedgerConfig{
		RackNames:               config.DefaultRackNames(),
		ShelfNames:              config.DefaultShelfNames(),
		ActivityLimit:           15,
		ForecastWeeks:           20,
		DedupeIncludesTimestamp: true,
	}
}

func newHarness(t *testing.T, opts ...func(*config.LedgerConfig)) *harness {
	t.Helper()
	cfg := testLedgerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	store := newMemStore()
	notes := &recordingNotifier{}
	log := logger.Nop()
	clock := func() time.Time { return testNow }

	return &harness{
		store:     store,
		notes:     notes,
		cfg:       cfg,
		ingest:    NewIngestService(store, store, transferView{store}, branchView{store}, notes, cfg, log).WithClock(clock),
		stock:     NewStockAggregator(store, userView{store}, cfg, log).WithClock(clock),
		forecast:  NewExpiryForecaster(store, cfg, log).WithClock(clock),
		transfers: NewTransferService(store, transferView{store}, branchView{store}, userView{store}, notes, log),
		branches:  NewBranchService(branchView{store}, log),
		admin:     NewLedgerAdminService(store, branchView{store}, log).WithClock(clock),
	}
}

// addBranch registers a second branch directly in the store
func (h *harness) addBranch(id int64, code string) {
	h.store.branches = append(h.store.branches, domainBranch(id, code))
}

func cola(movement, timestamp string) Candidate {
	return Candidate{
		Timestamp:  timestamp,
		BatchNo:    "25-8902-0014",
		MfgDate:    "01/05/25",
		ExpiryDate: "01/05/26",
		Flavour:    "Cola",
		RackNo:     "Rack 1",
		ShelfNo:    "Shelf A",
		Movement:   movement,
	}
}

func requireCode(t *testing.T, err error, code string) *errors.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}
