package service

import (
	"cmp"
	"context"
	"slices"
	"sort"
	"time"

	"github.com/stockledger/stockledger-backend/internal/ledger/domain"
	"github.com/stockledger/stockledger-backend/internal/ledger/repository"
	"github.com/stockledger/stockledger-backend/pkg/actor"
	"github.com/stockledger/stockledger-backend/pkg/config"
	"github.com/stockledger/stockledger-backend/pkg/errors"
	"github.com/stockledger/stockledger-backend/pkg/logger"
)

// SortOrder selects the order of the activity view
type SortOrder string

const (
	SortNewest     SortOrder = "newest"
	SortOldest     SortOrder = "oldest"
	SortExpiryAsc  SortOrder = "expiry_asc"
	SortExpiryDesc SortOrder = "expiry_desc"
)

// ParseSortOrder validates a sort directive; empty means newest
func ParseSortOrder(s string) (SortOrder, error) {
	switch so := SortOrder(s); so {
	case "":
		return SortNewest, nil
	case SortNewest, SortOldest, SortExpiryAsc, SortExpiryDesc:
		return so, nil
	default:
		return "", errors.Validation(map[string]string{
			"sort": "must be one of: newest oldest expiry_asc expiry_desc",
		})
	}
}

// DashboardQuery selects the dashboard view
type DashboardQuery struct {
	BranchID *int64
	Sort     SortOrder
}

// StockStats are ledger-wide counts. Current never goes below zero.
type StockStats struct {
	Total       int64 `json:"total"`
	In          int64 `json:"in"`
	Out         int64 `json:"out"`
	Current     int64 `json:"current"`
	ActiveRacks *int  `json:"active_racks,omitempty"`
}

// RackSummary is the net stock of one rack
type RackSummary struct {
	Name     string `json:"name"`
	InCount  int64  `json:"in_count"`
	OutCount int64  `json:"out_count"`
	Count    int64  `json:"count"`
}

// RackItem is a raw ledger row shown in the rack grid
type RackItem struct {
	ID         int64           `json:"id"`
	BatchNo    string          `json:"batch_no"`
	MfgDate    string          `json:"mfg_date"`
	ExpiryDate string          `json:"expiry_date"`
	Flavour    string          `json:"flavour"`
	Movement   domain.Movement `json:"movement"`
	Timestamp  string          `json:"timestamp"`
}

// ShelfItems lists the rows on one shelf
type ShelfItems struct {
	Shelf string     `json:"shelf"`
	Items []RackItem `json:"items"`
}

// RackItems is one rack of the grid
type RackItems struct {
	Rack    string       `json:"rack"`
	Shelves []ShelfItems `json:"shelves"`
}

// ActivityItem is one row of the recent activity view
type ActivityItem struct {
	ID             int64           `json:"id"`
	Timestamp      string          `json:"timestamp"`
	BatchNo        string          `json:"batch_no"`
	Flavour        string          `json:"flavour"`
	ExpiryDate     string          `json:"expiry_date"`
	RackNo         string          `json:"rack_no"`
	ShelfNo        string          `json:"shelf_no"`
	Movement       domain.Movement `json:"movement"`
	RecordedBy     string          `json:"recorded_by"`
	RecordedByName string          `json:"recorded_by_name,omitempty"`
}

// Dashboard is the stock overview
type Dashboard struct {
	BranchID  *int64         `json:"branch_id,omitempty"`
	Sort      SortOrder      `json:"sort"`
	Stats     StockStats     `json:"stats"`
	Racks     []RackSummary  `json:"racks"`
	RackItems []RackItems    `json:"rack_items"`
	Activity  []ActivityItem `json:"activity"`
}

// DailyActivity counts movements ingested on one day
type DailyActivity struct {
	Date     string `json:"date"`
	InCount  int64  `json:"in_count"`
	OutCount int64  `json:"out_count"`
}

// RackCount is the net stock of a rack in the analytics view
type RackCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Analytics is the chart data view
type Analytics struct {
	BranchID *int64          `json:"branch_id,omitempty"`
	Stats    StockStats      `json:"stats"`
	Racks    []RackCount     `json:"racks"`
	Daily    []DailyActivity `json:"daily"`
}

// analyticsDays is the window of the daily activity chart
const analyticsDays = 7

// StockAggregator derives stock views from the ledger on every call
type StockAggregator struct {
	movements MovementStore
	users     UserDirectory
	cfg       config.LedgerConfig
	now       Clock
	logger    *logger.Logger
}

// NewStockAggregator creates a new stock aggregator
func NewStockAggregator(movements MovementStore, users UserDirectory, cfg config.LedgerConfig, log *logger.Logger) *StockAggregator {
	return &StockAggregator{
		movements: movements,
		users:     users,
		cfg:       cfg,
		now:       time.Now,
		logger:    log.WithComponent("stock"),
	}
}

// WithClock replaces the clock used for the analytics window
func (s *StockAggregator) WithClock(c Clock) *StockAggregator {
	s.now = c
	return s
}

// Dashboard builds totals, the rack summary, the rack and shelf grid and the
// activity view for the actor's readable scope
func (s *StockAggregator) Dashboard(ctx context.Context, a *actor.Actor, q DashboardQuery) (*Dashboard, error) {
	scope, err := readScope(a, q.BranchID)
	if err != nil {
		return nil, err
	}
	if q.Sort == "" {
		q.Sort = SortNewest
	}

	events, err := s.movements.List(ctx, repository.MovementFilter{BranchID: scope})
	if err != nil {
		return nil, err
	}

	activity, err := s.activity(ctx, events, q.Sort)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		BranchID:  scope,
		Sort:      q.Sort,
		Stats:     statsOf(events),
		Racks:     s.rackSummary(events),
		RackItems: s.rackGrid(events),
		Activity:  activity,
	}, nil
}

// Analytics builds the chart view: totals with active racks, net stock per
// rack and daily IN and OUT for the last week by ingest date
func (s *StockAggregator) Analytics(ctx context.Context, a *actor.Actor, branchID *int64) (*Analytics, error) {
	scope, err := readScope(a, branchID)
	if err != nil {
		return nil, err
	}

	events, err := s.movements.List(ctx, repository.MovementFilter{BranchID: scope})
	if err != nil {
		return nil, err
	}

	stats := statsOf(events)
	balances := domain.BalanceBy(events, domain.RackKey)
	racks := make([]RackCount, 0, len(balances))
	active := 0
	for name, b := range balances {
		racks = append(racks, RackCount{Name: name, Count: b.Available()})
		if b.Available() > 0 {
			active++
		}
	}
	sort.Slice(racks, func(i, j int) bool { return racks[i].Name < racks[j].Name })
	stats.ActiveRacks = &active

	return &Analytics{
		BranchID: scope,
		Stats:    stats,
		Racks:    racks,
		Daily:    s.daily(events, stats),
	}, nil
}

func statsOf(events []domain.MovementEvent) StockStats {
	b := domain.Tally(events)
	return StockStats{
		Total:   int64(len(events)),
		In:      b.In,
		Out:     b.Out,
		Current: b.Available(),
	}
}

// rackOrder lists the configured racks, then Unassigned, then any other rack seen
func (s *StockAggregator) rackOrder(seen map[string]bool) []string {
	order := make([]string, 0, len(s.cfg.RackNames)+1+len(seen))
	fixed := make(map[string]bool, len(s.cfg.RackNames)+1)
	for _, name := range append(append([]string{}, s.cfg.RackNames...), domain.UnassignedRack) {
		if !fixed[name] {
			fixed[name] = true
			order = append(order, name)
		}
	}
	var extra []string
	for name := range seen {
		if !fixed[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(order, extra...)
}

func (s *StockAggregator) rackSummary(events []domain.MovementEvent) []RackSummary {
	balances := domain.BalanceBy(events, domain.RackKey)
	seen := make(map[string]bool, len(balances))
	for name := range balances {
		seen[name] = true
	}

	order := s.rackOrder(seen)
	racks := make([]RackSummary, 0, len(order))
	for _, name := range order {
		b := balances[name]
		racks = append(racks, RackSummary{
			Name:     name,
			InCount:  b.In,
			OutCount: b.Out,
			Count:    b.Available(),
		})
	}
	return racks
}

func (s *StockAggregator) rackGrid(events []domain.MovementEvent) []RackItems {
	byRack := domain.GroupBy(events, domain.RackKey)
	seen := make(map[string]bool, len(byRack))
	for name := range byRack {
		seen[name] = true
	}

	order := s.rackOrder(seen)
	grid := make([]RackItems, 0, len(order))
	for _, rack := range order {
		byShelf := domain.GroupBy(byRack[rack], domain.ShelfKey)

		shelves := make([]ShelfItems, 0, len(s.cfg.ShelfNames)+len(byShelf))
		fixed := make(map[string]bool, len(s.cfg.ShelfNames))
		for _, shelf := range s.cfg.ShelfNames {
			if fixed[shelf] {
				continue
			}
			fixed[shelf] = true
			shelves = append(shelves, ShelfItems{Shelf: shelf, Items: rackItems(byShelf[shelf])})
		}
		var extra []string
		for shelf := range byShelf {
			if !fixed[shelf] {
				extra = append(extra, shelf)
			}
		}
		sort.Strings(extra)
		for _, shelf := range extra {
			shelves = append(shelves, ShelfItems{Shelf: shelf, Items: rackItems(byShelf[shelf])})
		}

		grid = append(grid, RackItems{Rack: rack, Shelves: shelves})
	}
	return grid
}

// rackItems renders a shelf newest first
func rackItems(events []domain.MovementEvent) []RackItem {
	items := make([]RackItem, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		e := &events[i]
		items = append(items, RackItem{
			ID:         e.ID,
			BatchNo:    e.BatchNo,
			MfgDate:    e.MfgDate,
			ExpiryDate: e.ExpiryDate,
			Flavour:    e.Flavour,
			Movement:   e.Movement,
			Timestamp:  e.Timestamp,
		})
	}
	return items
}

func (s *StockAggregator) activity(ctx context.Context, events []domain.MovementEvent, order SortOrder) ([]ActivityItem, error) {
	sorted := SortEvents(events, order)
	if len(sorted) > s.cfg.ActivityLimit {
		sorted = sorted[:s.cfg.ActivityLimit]
	}

	ids := make([]string, 0, len(sorted))
	for i := range sorted {
		if !slices.Contains(ids, sorted[i].RecordedBy) && sorted[i].RecordedBy != "" {
			ids = append(ids, sorted[i].RecordedBy)
		}
	}
	names, err := s.users.Names(ctx, ids)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to resolve recorder names")
		names = map[string]string{}
	}

	items := make([]ActivityItem, 0, len(sorted))
	for i := range sorted {
		e := &sorted[i]
		items = append(items, ActivityItem{
			ID:             e.ID,
			Timestamp:      e.Timestamp,
			BatchNo:        e.BatchNo,
			Flavour:        e.Flavour,
			ExpiryDate:     e.ExpiryDate,
			RackNo:         e.RackNo,
			ShelfNo:        e.ShelfNo,
			Movement:       e.Movement,
			RecordedBy:     e.RecordedBy,
			RecordedByName: names[e.RecordedBy],
		})
	}
	return items, nil
}

// SortEvents returns a sorted copy. Expiry orders compare parsed dates, put
// unparseable dates last in both directions and break ties newest first.
func SortEvents(events []domain.MovementEvent, order SortOrder) []domain.MovementEvent {
	type keyed struct {
		event  domain.MovementEvent
		expiry domain.DateValue
	}
	rows := make([]keyed, len(events))
	for i := range events {
		rows[i] = keyed{event: events[i], expiry: events[i].Expiry()}
	}

	byIDDesc := func(a, b keyed) int { return cmp.Compare(b.event.ID, a.event.ID) }
	switch order {
	case SortOldest:
		slices.SortFunc(rows, func(a, b keyed) int { return cmp.Compare(a.event.ID, b.event.ID) })
	case SortExpiryAsc, SortExpiryDesc:
		desc := order == SortExpiryDesc
		slices.SortFunc(rows, func(a, b keyed) int {
			if a.expiry.Known() && b.expiry.Known() {
				c := domain.CompareExpiry(a.expiry, b.expiry)
				if desc {
					c = -c
				}
				if c != 0 {
					return c
				}
				return byIDDesc(a, b)
			}
			if c := domain.CompareExpiry(a.expiry, b.expiry); c != 0 {
				return c
			}
			return byIDDesc(a, b)
		})
	default:
		slices.SortFunc(rows, byIDDesc)
	}

	out := make([]domain.MovementEvent, len(rows))
	for i := range rows {
		out[i] = rows[i].event
	}
	return out
}

func (s *StockAggregator) daily(events []domain.MovementEvent, stats StockStats) []DailyActivity {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	since := today.AddDate(0, 0, -analyticsDays)

	counts := make(map[string]*DailyActivity)
	for i := range events {
		at := events[i].SyncedAt.In(now.Location())
		if at.Before(since) {
			continue
		}
		day := at.Format("2006-01-02")
		d, ok := counts[day]
		if !ok {
			d = &DailyActivity{Date: day}
			counts[day] = d
		}
		switch events[i].Movement {
		case domain.MovementIn:
			d.InCount++
		case domain.MovementOut:
			d.OutCount++
		}
	}

	if len(counts) == 0 {
		return []DailyActivity{{Date: "Today", InCount: stats.In, OutCount: stats.Out}}
	}

	daily := make([]DailyActivity, 0, len(counts))
	for _, d := range counts {
		daily = append(daily, *d)
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date < daily[j].Date })
	return daily
}
