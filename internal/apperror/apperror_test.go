package apperror

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesKindAndCode(t *testing.T) {
	windowExpired := Policy("cancel_window_expired", "too late")
	wrapped := fmt.Errorf("cancel: %w", windowExpired.WithParam("Minutes", 30))

	assert.True(t, errors.Is(wrapped, windowExpired))
	assert.True(t, errors.Is(wrapped, &Error{Kind: KindPolicy}))
	assert.False(t, errors.Is(wrapped, Policy("order_terminal", "")))
	assert.True(t, IsKind(wrapped, KindPolicy))
}

func TestAsWrapsUnknownErrors(t *testing.T) {
	err := As(errors.New("boom"))
	require.NotNil(t, err)
	assert.Equal(t, KindInternal, err.Kind)
	assert.Nil(t, As(nil))
}

func TestFromDB(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		kind  Kind
		field string
	}{
		{"unique email", &pq.Error{Code: "23505", Constraint: "users_email_key"}, KindConflict, "email"},
		{"unique order number", &pq.Error{Code: "23505", Constraint: "orders_order_number_key"}, KindConflict, "order_number"},
		{"foreign key", &pq.Error{Code: "23503"}, KindPolicy, ""},
		{"connection", &pq.Error{Code: "08006"}, KindTransient, ""},
		{"deadline", context.DeadlineExceeded, KindTransient, ""},
		{"other", errors.New("syntax"), KindInternal, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := As(FromDB(tt.err))
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.field, got.Field)
		})
	}
	assert.NoError(t, FromDB(nil))
}
