package consumers

import (
	"context"

	"github.com/stockledger/stockledger-backend/pkg/actor"
	"github.com/stockledger/stockledger-backend/pkg/logger"
	"github.com/stockledger/stockledger-backend/pkg/messaging"
)

// UserCacheStore is the part of the user cache repository the consumer writes
type UserCacheStore interface {
	Set(ctx context.Context, u *actor.UserCache) error
	SetRole(ctx context.Context, userID, role string, branchID *int64) error
	Delete(ctx context.Context, userID string) error
}

// UserEventConsumer keeps the local user cache in step with the identity provider
type UserEventConsumer struct {
	consumer  *messaging.Consumer
	userCache UserCacheStore
	logger    *logger.Logger
}

// NewUserEventConsumer creates a new user event consumer
func NewUserEventConsumer(rmq *messaging.RabbitMQ, userCache UserCacheStore, log *logger.Logger) (*UserEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "ledger-service.user-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeUserEvents, "user.#"); err != nil {
		return nil, err
	}

	c := NewHandlers(userCache, log)
	c.consumer = consumer
	c.Register(consumer)
	return c, nil
}

// NewHandlers builds the consumer without a broker, for driving the handlers directly
func NewHandlers(userCache UserCacheStore, log *logger.Logger) *UserEventConsumer {
	return &UserEventConsumer{userCache: userCache, logger: log.WithComponent("user-consumer")}
}

// Register attaches the handlers to a messaging consumer
func (c *UserEventConsumer) Register(consumer *messaging.Consumer) {
	consumer.RegisterHandler(messaging.EventUserCreated, c.handleUserUpserted)
	consumer.RegisterHandler(messaging.EventUserUpdated, c.handleUserUpserted)
	consumer.RegisterHandler(messaging.EventUserRoleChanged, c.handleUserRoleChanged)
	consumer.RegisterHandler(messaging.EventUserDeleted, c.handleUserDeleted)
}

// Start starts consuming messages
func (c *UserEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *UserEventConsumer) handleUserUpserted(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserUpsertedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("user_id", data.UserID).
		Str("event_type", event.Type).
		Msg("received user event")

	return c.userCache.Set(ctx, &actor.UserCache{
		UserID:   data.UserID,
		Name:     data.Name,
		Role:     data.Role,
		BranchID: data.BranchID,
	})
}

func (c *UserEventConsumer) handleUserRoleChanged(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserRoleChangedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("user_id", data.UserID).
		Str("new_role", data.NewRole).
		Msg("received user role changed event")

	return c.userCache.SetRole(ctx, data.UserID, data.NewRole, data.BranchID)
}

func (c *UserEventConsumer) handleUserDeleted(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserDeletedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("user_id", data.UserID).
		Msg("received user deleted event")

	return c.userCache.Delete(ctx, data.UserID)
}
