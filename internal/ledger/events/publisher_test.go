package events_test

import (
	"context"
	"testing"

	"github.com/stockledger/stockledger-backend/internal/ledger/events"
	"github.com/stockledger/stockledger-backend/pkg/logger"
	"github.com/stockledger/stockledger-backend/pkg/messaging"
	"github.com/stockledger/stockledger-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerEventPublisher_NilIsNoop(t *testing.T) {
	var p *events.LedgerEventPublisher
	assert.NotPanics(t, func() {
		p.PublishMovementsSynced(context.Background(), &messaging.MovementsSyncedEvent{})
		p.PublishLedgerReplaced(context.Background(), &messaging.LedgerReplacedEvent{})
		p.PublishTransferStatusChanged(context.Background(), &messaging.TransferStatusChangedEvent{})
	})
}

func TestLedgerEventPublisher_TransferEventTypes(t *testing.T) {
	mock := testutil.NewMockPublisher()
	p := events.NewWithSender(mock, logger.Nop())

	p.PublishTransferStatusChanged(context.Background(), &messaging.TransferStatusChangedEvent{
		TransferID: 1, OldStatus: "submitted", NewStatus: "completed",
	})
	p.PublishTransferStatusChanged(context.Background(), &messaging.TransferStatusChangedEvent{
		TransferID: 2, OldStatus: "submitted", NewStatus: "rejected",
	})

	require.Len(t, mock.Events(messaging.EventTransferCompleted), 1)
	require.Len(t, mock.Events(messaging.EventTransferStatusChanged), 1)
	rejected := mock.Events(messaging.EventTransferStatusChanged)[0].(*messaging.TransferStatusChangedEvent)
	assert.Equal(t, int64(2), rejected.TransferID)
}

func TestLedgerEventPublisher_MovementsSynced(t *testing.T) {
	mock := testutil.NewMockPublisher()
	p := events.NewWithSender(mock, logger.Nop())

	p.PublishMovementsSynced(context.Background(), &messaging.MovementsSyncedEvent{BranchID: 1, Synced: 2})
	mock.AssertEventPublished(t, messaging.EventMovementsSynced)
}
