package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stockledger/stockledger-backend/internal/ledger/domain"
	"github.com/stockledger/stockledger-backend/internal/ledger/repository"
	"github.com/stockledger/stockledger-backend/pkg/actor"
	"github.com/stockledger/stockledger-backend/pkg/errors"
	"github.com/stockledger/stockledger-backend/pkg/messaging"
)

// memStore is an in-memory ledger implementing every store port. WithinTx
// snapshots the state and restores it when fn fails.
type memStore struct {
	mu        sync.Mutex
	events    []domain.MovementEvent
	transfers []domain.TransferRequest
	branches  []domain.Branch
	users     map[string]*actor.UserCache
	nextID    int64
	locked    [][]string
}

func newMemStore() *memStore {
	return &memStore{
		branches: []domain.Branch{{ID: 1, Name: repository.DefaultBranchName, Code: repository.DefaultBranchCode}},
		users:    make(map[string]*actor.UserCache),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	events := append([]domain.MovementEvent(nil), m.events...)
	transfers := append([]domain.TransferRequest(nil), m.transfers...)
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.events, m.transfers = events, transfers
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) LockKeys(_ context.Context, keys []string) error {
	m.locked = append(m.locked, keys)
	return nil
}

// MovementStore

func (m *memStore) Append(_ context.Context, e *domain.MovementEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.id()
	m.events = append(m.events, *e)
	return nil
}

func (m *memStore) AppendMany(_ context.Context, events []domain.MovementEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range events {
		e.ID = m.id()
		m.events = append(m.events, e)
	}
	return nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*domain.MovementEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.events {
		if m.events[i].ID == id {
			e := m.events[i]
			return &e, nil
		}
	}
	return nil, errors.NotFound("movement event")
}

func (m *memStore) List(_ context.Context, f repository.MovementFilter) ([]domain.MovementEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.MovementEvent{}
	for _, e := range m.events {
		if f.BranchID != nil && e.BranchID != *f.BranchID {
			continue
		}
		if f.Flavour != "" && e.Flavour != f.Flavour {
			continue
		}
		if f.RackNo != "" && e.RackNo != f.RackNo {
			continue
		}
		if f.Since != nil && e.SyncedAt.Before(*f.Since) {
			continue
		}
		if f.Until != nil && !e.SyncedAt.Before(*f.Until) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memStore) ExistsDuplicate(_ context.Context, branchID int64, k domain.DedupeKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.events {
		e := &m.events[i]
		if e.BranchID != branchID {
			continue
		}
		other := domain.DedupeKeyOf(e, k.ClientTimestamp != nil)
		if other.BatchNo == k.BatchNo && other.MfgDate == k.MfgDate && other.ExpiryDate == k.ExpiryDate &&
			other.RackNo == k.RackNo && other.ShelfNo == k.ShelfNo && other.Movement == k.Movement &&
			(k.ClientTimestamp == nil || *other.ClientTimestamp == *k.ClientTimestamp) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CountBalance(_ context.Context, branchID int64, k domain.LocationKey) (domain.Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var b domain.Balance
	for i := range m.events {
		if m.events[i].BranchID == branchID && m.events[i].LocationKey() == k {
			b.Add(m.events[i].Movement)
		}
	}
	return b, nil
}

func (m *memStore) Update(_ context.Context, id int64, scope *int64, p repository.MovementPatch) (*domain.MovementEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.events {
		e := &m.events[i]
		if e.ID != id || (scope != nil && e.BranchID != *scope) {
			continue
		}
		if p.BatchNo != nil {
			e.BatchNo = *p.BatchNo
		}
		if p.RackNo != nil {
			e.RackNo = *p.RackNo
		}
		if p.ShelfNo != nil {
			e.ShelfNo = *p.ShelfNo
		}
		if p.Movement != nil {
			e.Movement = *p.Movement
		}
		cp := *e
		return &cp, nil
	}
	return nil, errors.NotFound("movement event")
}

func (m *memStore) Delete(_ context.Context, id int64, scope *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.events {
		if m.events[i].ID == id && (scope == nil || m.events[i].BranchID == *scope) {
			m.events = append(m.events[:i], m.events[i+1:]...)
			return nil
		}
	}
	return errors.NotFound("movement event")
}

func (m *memStore) DeleteAll(_ context.Context, scope *int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0:0]
	for _, e := range m.events {
		if scope != nil && e.BranchID != *scope {
			kept = append(kept, e)
		}
	}
	deleted := int64(len(m.events) - len(kept))
	m.events = kept
	return deleted, nil
}

// TransferStore, reached through transferView to avoid method name clashes

type transferView struct{ m *memStore }

func (v transferView) Create(_ context.Context, t *domain.TransferRequest) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	t.ID = int64(len(v.m.transfers) + 1)
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	v.m.transfers = append(v.m.transfers, *t)
	return nil
}

func (v transferView) GetForUpdate(_ context.Context, id int64) (*domain.TransferRequest, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	for i := range v.m.transfers {
		if v.m.transfers[i].ID == id {
			t := v.m.transfers[i]
			return &t, nil
		}
	}
	return nil, errors.NotFound("transfer request")
}

func (v transferView) SetStatus(_ context.Context, id int64, status domain.TransferStatus) (*domain.TransferRequest, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	for i := range v.m.transfers {
		if v.m.transfers[i].ID == id {
			v.m.transfers[i].Status = status
			t := v.m.transfers[i]
			return &t, nil
		}
	}
	return nil, errors.NotFound("transfer request")
}

func (v transferView) List(_ context.Context, status *domain.TransferStatus) ([]domain.TransferRequest, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	out := []domain.TransferRequest{}
	for _, t := range v.m.transfers {
		if status != nil && t.Status != *status {
			continue
		}
		if u, ok := v.m.users[t.RequestedBy]; ok && u.Name != "" {
			t.RequestedByName = u.Name
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (v transferView) CompleteMatching(_ context.Context, e *domain.MovementEvent) (*domain.TransferRequest, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	for i := range v.m.transfers {
		if v.m.transfers[i].Matches(e) {
			v.m.transfers[i].Status = domain.TransferCompleted
			t := v.m.transfers[i]
			return &t, nil
		}
	}
	return nil, nil
}

// BranchStore

type branchView struct{ m *memStore }

func (v branchView) Create(_ context.Context, b *domain.Branch) error {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	for _, existing := range v.m.branches {
		if existing.Code == b.Code || existing.Name == b.Name {
			return errors.Conflict("a branch with this code already exists")
		}
	}
	b.ID = int64(len(v.m.branches) + 1)
	v.m.branches = append(v.m.branches, *b)
	return nil
}

func (v branchView) GetByID(_ context.Context, id int64) (*domain.Branch, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	for _, b := range v.m.branches {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, errors.NotFound("branch")
}

func (v branchView) List(_ context.Context) ([]domain.Branch, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	return append([]domain.Branch{}, v.m.branches...), nil
}

func (v branchView) First(_ context.Context) (*domain.Branch, error) {
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	if len(v.m.branches) == 0 {
		return nil, errors.NotFound("branch")
	}
	b := v.m.branches[0]
	return &b, nil
}

// UserDirectory

type userView struct{ m *memStore }

func (v userView) Get(_ context.Context, id string) (*actor.UserCache, error) {
	if u, ok := v.m.users[id]; ok {
		return u, nil
	}
	return nil, errors.NotFound("user")
}

func (v userView) Names(_ context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string)
	for _, id := range ids {
		if u, ok := v.m.users[id]; ok {
			names[id] = u.Name
		}
	}
	return names, nil
}

// recordingNotifier captures published events

type recordingNotifier struct {
	synced    []*messaging.MovementsSyncedEvent
	replaced  []*messaging.LedgerReplacedEvent
	transfers []*messaging.TransferStatusChangedEvent
}

func (r *recordingNotifier) PublishMovementsSynced(_ context.Context, d *messaging.MovementsSyncedEvent) {
	r.synced = append(r.synced, d)
}

func (r *recordingNotifier) PublishLedgerReplaced(_ context.Context, d *messaging.LedgerReplacedEvent) {
	r.replaced = append(r.replaced, d)
}

func (r *recordingNotifier) PublishTransferStatusChanged(_ context.Context, d *messaging.TransferStatusChangedEvent) {
	r.transfers = append(r.transfers, d)
}

func domainBranch(id int64, code string) domain.Branch {
	return domain.Branch{ID: id, Name: "Branch " + code, Code: code}
}
