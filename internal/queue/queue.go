package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avast/retry-go/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/kepfinance/kep-vault/internal/config"
	"github.com/kepfinance/kep-vault/internal/observability/metrics"
	"github.com/kepfinance/kep-vault/internal/types"
)

// QueueManager publishes operation events to RabbitMQ for downstream
// consumers. Publishing is best-effort with bounded retries; a failed
// publish is counted and logged, never fatal to the operation that already
// committed.
type QueueManager struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
	cfg       *config.QueueConfig
}

func NewQueueManager(cfg *config.QueueConfig) (*QueueManager, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s", cfg.QueueUser, cfg.QueuePassword, cfg.Url)
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to queue: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open queue channel: %w", err)
	}

	args := amqp.Table{}
	if cfg.QueueType != "" {
		args["x-queue-type"] = cfg.QueueType
	}
	if _, err := channel.QueueDeclare(cfg.QueueName, true, false, false, false, args); err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", cfg.QueueName, err)
	}

	return &QueueManager{
		conn:      conn,
		channel:   channel,
		queueName: cfg.QueueName,
		cfg:       cfg,
	}, nil
}

// PushOperationEvent publishes one event with persistent delivery.
func (qm *QueueManager) PushOperationEvent(ctx context.Context, ev *types.OperationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal operation event: %w", err)
	}

	err = retry.Do(
		func() error {
			publishCtx, cancel := context.WithTimeout(ctx, qm.cfg.PublishTimeout)
			defer cancel()
			return qm.channel.PublishWithContext(publishCtx, "", qm.queueName, false, false,
				amqp.Publishing{
					ContentType:  "application/json",
					DeliveryMode: amqp.Persistent,
					MessageId:    ev.EventID,
					Type:         ev.EventType.String(),
					Body:         body,
				})
		},
		retry.Context(ctx),
		retry.Attempts(qm.cfg.MsgMaxRetryAttempts),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		metrics.RecordQueueSendError()
		return fmt.Errorf("failed to publish event %s: %w", ev.EventID, err)
	}
	return nil
}

// Shutdown gracefully stops the interaction with the queue, ensuring all
// resources are properly released.
func (qm *QueueManager) Shutdown() {
	log.Info().Msg("Shutting down queue manager")
	if err := qm.channel.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close queue channel")
	}
	if err := qm.conn.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close queue connection")
	}
}
