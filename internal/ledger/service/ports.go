package service

import (
	"context"
	"time"

	"github.com/stockledger/stockledger-backend/internal/ledger/domain"
	"github.com/stockledger/stockledger-backend/internal/ledger/repository"
	"github.com/stockledger/stockledger-backend/pkg/actor"
	"github.com/stockledger/stockledger-backend/pkg/messaging"
)

// TxRunner runs work in one transaction and takes location locks inside it.
// *database.DB implements it.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockKeys(ctx context.Context, keys []string) error
}

// MovementStore is the ledger store
type MovementStore interface {
	Append(ctx context.Context, e *domain.MovementEvent) error
	AppendMany(ctx context.Context, events []domain.MovementEvent) error
	GetByID(ctx context.Context, id int64) (*domain.MovementEvent, error)
	List(ctx context.Context, f repository.MovementFilter) ([]domain.MovementEvent, error)
	ExistsDuplicate(ctx context.Context, branchID int64, k domain.DedupeKey) (bool, error)
	CountBalance(ctx context.Context, branchID int64, k domain.LocationKey) (domain.Balance, error)
	Update(ctx context.Context, id int64, branchScope *int64, p repository.MovementPatch) (*domain.MovementEvent, error)
	Delete(ctx context.Context, id int64, branchScope *int64) error
	DeleteAll(ctx context.Context, branchScope *int64) (int64, error)
}

// TransferStore persists transfer requests
type TransferStore interface {
	Create(ctx context.Context, t *domain.TransferRequest) error
	GetForUpdate(ctx context.Context, id int64) (*domain.TransferRequest, error)
	SetStatus(ctx context.Context, id int64, status domain.TransferStatus) (*domain.TransferRequest, error)
	List(ctx context.Context, status *domain.TransferStatus) ([]domain.TransferRequest, error)
	CompleteMatching(ctx context.Context, e *domain.MovementEvent) (*domain.TransferRequest, error)
}

// BranchStore persists branches
type BranchStore interface {
	Create(ctx context.Context, b *domain.Branch) error
	GetByID(ctx context.Context, id int64) (*domain.Branch, error)
	List(ctx context.Context) ([]domain.Branch, error)
	First(ctx context.Context) (*domain.Branch, error)
}

// UserDirectory reads the local user cache
type UserDirectory interface {
	Get(ctx context.Context, userID string) (*actor.UserCache, error)
	Names(ctx context.Context, userIDs []string) (map[string]string, error)
}

// Notifier publishes ledger events after commit. *events.LedgerEventPublisher
// implements it and is safe to pass as nil.
type Notifier interface {
	PublishMovementsSynced(ctx context.Context, data *messaging.MovementsSyncedEvent)
	PublishLedgerReplaced(ctx context.Context, data *messaging.LedgerReplacedEvent)
	PublishTransferStatusChanged(ctx context.Context, data *messaging.TransferStatusChangedEvent)
}

// Clock returns the current time
type Clock func() time.Time

type noopNotifier struct{}

func (noopNotifier) PublishMovementsSynced(context.Context, *messaging.MovementsSyncedEvent)             {}
func (noopNotifier) PublishLedgerReplaced(context.Context, *messaging.LedgerReplacedEvent)               {}
func (noopNotifier) PublishTransferStatusChanged(context.Context, *messaging.TransferStatusChangedEvent) {}

func notifierOrNoop(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
