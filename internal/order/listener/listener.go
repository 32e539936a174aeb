package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/internal/order"
	"github.com/fekuna/buffet-service/pkg/broker"
	"github.com/fekuna/buffet-service/pkg/logger"
	"go.uber.org/zap"
)

const notifyTimeout = 30 * time.Second

type OrderLoader interface {
	FindByID(ctx context.Context, id int64) (*model.Order, error)
}

type ReadyNotifier interface {
	OrderReady(ctx context.Context, o *model.Order) error
}

// NotificationListener reacts to order events. It reads them from Kafka
// when a consumer is set, and can also be handed events directly through
// Publish when the service runs without a broker.
type NotificationListener struct {
	consumer *broker.KafkaConsumer
	orders   OrderLoader
	notifier ReadyNotifier
	logger   logger.ZapLogger
}

func NewNotificationListener(consumer *broker.KafkaConsumer, orders OrderLoader, notifier ReadyNotifier, logger logger.ZapLogger) *NotificationListener {
	return &NotificationListener{
		consumer: consumer,
		orders:   orders,
		notifier: notifier,
		logger:   logger,
	}
}

func (l *NotificationListener) Start(ctx context.Context) {
	if l.consumer == nil {
		return
	}
	l.logger.Info("Starting order notification listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping order notification listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

// Publish satisfies order.Publisher for in-process delivery. Handling runs
// in the background so the caller's request is not held by mail delivery.
func (l *NotificationListener) Publish(_ context.Context, _, value []byte) error {
	go l.processMessage(context.Background(), value)
	return nil
}

func (l *NotificationListener) processMessage(ctx context.Context, value []byte) {
	var event order.Event
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != order.EventStatusChanged || event.Payload.To != model.StatusReady {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	l.logger.Info("Processing order ready event",
		zap.String("event_id", event.EventID),
		zap.Int64("order_id", event.Payload.OrderID),
	)

	o, err := l.orders.FindByID(ctx, event.Payload.OrderID)
	if err != nil {
		l.logger.Error("Failed to load order for notification", zap.Int64("order_id", event.Payload.OrderID), zap.Error(err))
		return
	}
	if o == nil {
		l.logger.Warn("Order vanished before notification", zap.Int64("order_id", event.Payload.OrderID))
		return
	}
	if o.User == nil {
		l.logger.Warn("Order has no owner to notify", zap.Int64("order_id", o.ID))
		return
	}

	if err := l.notifier.OrderReady(ctx, o); err != nil {
		l.logger.Error("Failed to send ready notification",
			zap.Int64("order_id", o.ID),
			zap.Error(err),
		)
	}
}
