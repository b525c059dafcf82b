package service

import (
	"context"
	"sort"
	"time"

	"github.com/stockledger/stockledger-backend/internal/ledger/domain"
	"github.com/stockledger/stockledger-backend/internal/ledger/repository"
	"github.com/stockledger/stockledger-backend/pkg/actor"
	"github.com/stockledger/stockledger-backend/pkg/config"
	"github.com/stockledger/stockledger-backend/pkg/errors"
	"github.com/stockledger/stockledger-backend/pkg/logger"
)

// ForecastSeries is one flavour's quantity per week; Quantities[0] is week 1
type ForecastSeries struct {
	Flavour    string  `json:"flavour"`
	Quantities []int64 `json:"quantities"`
}

// ForecastRollup sums the near-term weeks
type ForecastRollup struct {
	Week1     int64 `json:"week_1"`
	Weeks1To2 int64 `json:"weeks_1_2"`
	Weeks1To4 int64 `json:"weeks_1_4"`
}

// Forecast is the expiry outlook by week
type Forecast struct {
	BranchID    *int64           `json:"branch_id,omitempty"`
	GeneratedOn string           `json:"generated_on"`
	Weeks       []int            `json:"weeks"`
	Series      []ForecastSeries `json:"series"`
	Totals      []int64          `json:"totals"`
	Rollup      ForecastRollup   `json:"rollup"`
	// UnparsedQuantity is stock whose expiry could not be read as a date
	UnparsedQuantity int64 `json:"unparsed_quantity"`
	ExpiredQuantity  int64 `json:"expired_quantity"`
}

// WeekItemsQuery selects the items expiring in one forecast week
type WeekItemsQuery struct {
	BranchID *int64
	Week     int
	Flavour  string
}

// ForecastItem is a location holding stock that expires in the requested week
type ForecastItem struct {
	domain.LocationKey
	BranchID        int64 `json:"branch_id"`
	Quantity        int64 `json:"quantity"`
	DaysUntilExpiry int   `json:"days_until_expiry"`
	Week            int   `json:"week"`
}

// ExpiryForecaster buckets upcoming expiries into weekly cohorts
type ExpiryForecaster struct {
	movements MovementStore
	cfg       config.LedgerConfig
	now       Clock
	logger    *logger.Logger
}

// NewExpiryForecaster creates a new expiry forecaster
func NewExpiryForecaster(movements MovementStore, cfg config.LedgerConfig, log *logger.Logger) *ExpiryForecaster {
	return &ExpiryForecaster{
		movements: movements,
		cfg:       cfg,
		now:       time.Now,
		logger:    log.WithComponent("forecast"),
	}
}

// WithClock replaces the clock that defines today
func (f *ExpiryForecaster) WithClock(c Clock) *ExpiryForecaster {
	f.now = c
	return f
}

// Forecast groups net stock by flavour and expiry and spreads it over the
// forecast weeks. Expired stock and unreadable dates are reported apart.
func (f *ExpiryForecaster) Forecast(ctx context.Context, a *actor.Actor, branchID *int64) (*Forecast, error) {
	scope, err := readScope(a, branchID)
	if err != nil {
		return nil, err
	}

	events, err := f.movements.List(ctx, repository.MovementFilter{BranchID: scope})
	if err != nil {
		return nil, err
	}

	horizon := f.cfg.ForecastWeeks
	today := f.now()
	out := &Forecast{
		BranchID:    scope,
		GeneratedOn: today.Format("2006-01-02"),
		Weeks:       make([]int, horizon),
		Series:      []ForecastSeries{},
		Totals:      make([]int64, horizon),
	}
	for i := range out.Weeks {
		out.Weeks[i] = i + 1
	}

	series := make(map[string][]int64)
	for key, b := range domain.BalanceBy(events, domain.FlavourExpiryKey) {
		net := b.Net()
		if net <= 0 || key.ExpiryDate == "" {
			continue
		}

		days, known := domain.ParseDate(key.ExpiryDate).DaysFrom(today)
		if !known {
			out.UnparsedQuantity += net
			continue
		}
		if days < 0 {
			out.ExpiredQuantity += net
			continue
		}
		week, ok := domain.ForecastWeek(days, horizon)
		if !ok {
			continue
		}

		q, exists := series[key.Flavour]
		if !exists {
			q = make([]int64, horizon)
			series[key.Flavour] = q
		}
		q[week-1] += net
		out.Totals[week-1] += net
	}

	flavours := make([]string, 0, len(series))
	for flavour := range series {
		flavours = append(flavours, flavour)
	}
	sort.Strings(flavours)
	for _, flavour := range flavours {
		out.Series = append(out.Series, ForecastSeries{Flavour: flavour, Quantities: series[flavour]})
	}

	out.Rollup = ForecastRollup{
		Week1:     sumWeeks(out.Totals, 1),
		Weeks1To2: sumWeeks(out.Totals, 2),
		Weeks1To4: sumWeeks(out.Totals, 4),
	}
	return out, nil
}

// WeekItems lists each location with stock whose expiry falls in the
// requested week, soonest first
func (f *ExpiryForecaster) WeekItems(ctx context.Context, a *actor.Actor, q WeekItemsQuery) ([]ForecastItem, error) {
	if q.Week < 1 || q.Week > f.cfg.ForecastWeeks {
		return nil, errors.Validation(map[string]string{"week": "must be between 1 and the forecast horizon"})
	}
	scope, err := readScope(a, q.BranchID)
	if err != nil {
		return nil, err
	}

	events, err := f.movements.List(ctx, repository.MovementFilter{BranchID: scope, Flavour: q.Flavour})
	if err != nil {
		return nil, err
	}

	type branchLocation struct {
		branchID int64
		key      domain.LocationKey
	}
	balances := domain.BalanceBy(events, func(e *domain.MovementEvent) branchLocation {
		return branchLocation{branchID: e.BranchID, key: e.LocationKey()}
	})

	today := f.now()
	items := []ForecastItem{}
	for loc, b := range balances {
		net := b.Net()
		if net <= 0 || loc.key.ExpiryDate == "" {
			continue
		}
		days, known := domain.ParseDate(loc.key.ExpiryDate).DaysFrom(today)
		if !known {
			continue
		}
		week, ok := domain.ForecastWeek(days, f.cfg.ForecastWeeks)
		if !ok || week != q.Week {
			continue
		}
		items = append(items, ForecastItem{
			LocationKey:     loc.key,
			BranchID:        loc.branchID,
			Quantity:        net,
			DaysUntilExpiry: days,
			Week:            week,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.DaysUntilExpiry != b.DaysUntilExpiry {
			return a.DaysUntilExpiry < b.DaysUntilExpiry
		}
		if a.BranchID != b.BranchID {
			return a.BranchID < b.BranchID
		}
		return a.LocationKey.String() < b.LocationKey.String()
	})
	return items, nil
}

func sumWeeks(totals []int64, n int) int64 {
	var sum int64
	for i := 0; i < n && i < len(totals); i++ {
		sum += totals[i]
	}
	return sum
}
