package order

import (
	"context"
	"time"

	"github.com/fekuna/buffet-service/internal/model"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated  = "order.created"
	EventStatusChanged = "order.status_changed"
)

type Event struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   EventPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type EventPayload struct {
	OrderID     int64             `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	UserID      int64             `json:"user_id"`
	From        model.OrderStatus `json:"from,omitempty"`
	To          model.OrderStatus `json:"to"`
	ActorID     int64             `json:"actor_id,omitempty"`
	Total       decimal.Decimal   `json:"total"`
}

func NewEvent(eventType string, o *model.Order, from model.OrderStatus, actorID int64, now time.Time) Event {
	return Event{
		EventID:   ulid.Make().String(),
		EventType: eventType,
		Payload: EventPayload{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			UserID:      o.UserID,
			From:        from,
			To:          o.Status,
			ActorID:     actorID,
			Total:       o.Total,
		},
		Timestamp: now,
	}
}

// Publisher ships serialized events; *broker.KafkaProducer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}
