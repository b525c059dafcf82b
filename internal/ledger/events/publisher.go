package events

import (
	"context"

	"github.com/stockledger/stockledger-backend/pkg/logger"
	"github.com/stockledger/stockledger-backend/pkg/messaging"
)

// sender is satisfied by *messaging.Publisher
type sender interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// LedgerEventPublisher publishes ledger events. A nil publisher drops every
// event, which is how the service runs without a broker.
type LedgerEventPublisher struct {
	publisher sender
	logger    *logger.Logger
}

// NewLedgerEventPublisher creates a new ledger event publisher
func NewLedgerEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*LedgerEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeLedgerEvents, "ledger-service", log)
	if err != nil {
		return nil, err
	}
	return NewWithSender(publisher, log), nil
}

// NewWithSender builds a publisher over any sender, used by tests
func NewWithSender(s sender, log *logger.Logger) *LedgerEventPublisher {
	return &LedgerEventPublisher{publisher: s, logger: log}
}

// PublishMovementsSynced publishes the outcome of a committed ingest
func (p *LedgerEventPublisher) PublishMovementsSynced(ctx context.Context, data *messaging.MovementsSyncedEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventMovementsSynced, data); err != nil {
		p.logger.Error().Err(err).Int64("branch_id", data.BranchID).Msg("failed to publish movements synced event")
	}
}

// PublishLedgerReplaced publishes an administrative replace
func (p *LedgerEventPublisher) PublishLedgerReplaced(ctx context.Context, data *messaging.LedgerReplacedEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventLedgerReplaced, data); err != nil {
		p.logger.Error().Err(err).Msg("failed to publish ledger replaced event")
	}
}

// PublishTransferStatusChanged publishes a transfer transition. Completions
// go out as transfer.completed so consumers can subscribe to them alone.
func (p *LedgerEventPublisher) PublishTransferStatusChanged(ctx context.Context, data *messaging.TransferStatusChangedEvent) {
	if p == nil {
		return
	}
	eventType := messaging.EventTransferStatusChanged
	if data.NewStatus == "completed" {
		eventType = messaging.EventTransferCompleted
	}
	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Int64("transfer_id", data.TransferID).Msg("failed to publish transfer event")
	}
}
