package order

import (
	"time"

	"github.com/fekuna/buffet-service/internal/apperror"
	"github.com/fekuna/buffet-service/internal/model"
)

var (
	ErrInvalidStatus       = apperror.Validation("invalid_status", "status must be one of pending, confirmed, preparing, ready, delivered, cancelled").WithField("status")
	ErrOrderTerminal       = apperror.Policy("order_terminal", "order is delivered or cancelled and can no longer change")
	ErrSameStatus          = apperror.Policy("same_status", "order already has that status")
	ErrIllegalTransition   = apperror.Policy("invalid_transition", "orders can only move forward")
	ErrNotCancellable      = apperror.Policy("order_not_cancellable", "only pending or confirmed orders can be cancelled")
	ErrCancelWindowExpired = apperror.Policy("cancel_window_expired", "the time to cancel this order has expired")
	ErrNotCancelled        = apperror.Policy("order_not_cancelled", "only cancelled orders can be deleted")
)

// Transition is a state change that was committed.
type Transition struct {
	Order *model.Order      `json:"order"`
	From  model.OrderStatus `json:"from"`
	To    model.OrderStatus `json:"to"`
}

// CheckStatusChange validates an administrative move from current to target.
// Moves go forward along pending, confirmed, preparing, ready, delivered
// (skipping is allowed) or to cancelled; nothing leaves a terminal state.
func CheckStatusChange(current, target model.OrderStatus) error {
	if !target.Valid() {
		return ErrInvalidStatus
	}
	if current.Terminal() {
		return ErrOrderTerminal.WithParam("Status", string(current))
	}
	if target == current {
		return ErrSameStatus.WithParam("Status", string(current))
	}
	if target == model.StatusCancelled {
		return nil
	}
	if target.Rank() <= current.Rank() {
		return ErrIllegalTransition.WithParam("From", string(current)).WithParam("To", string(target))
	}
	return nil
}

// CheckCancel validates a cancellation request. Admins skip only the time window.
func CheckCancel(o *model.Order, admin bool, now time.Time, window time.Duration) error {
	if o.Status.Terminal() {
		return ErrOrderTerminal.WithParam("Status", string(o.Status))
	}
	if o.Status != model.StatusPending && o.Status != model.StatusConfirmed {
		return ErrNotCancellable.WithParam("Status", string(o.Status))
	}
	if !admin && o.Age(now) > window {
		return ErrCancelWindowExpired.WithParam("Minutes", int(window.Minutes()))
	}
	return nil
}

func CheckDelete(o *model.Order) error {
	if o.Status != model.StatusCancelled {
		return ErrNotCancelled
	}
	return nil
}
