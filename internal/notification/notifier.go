package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fekuna/buffet-service/internal/model"
	"github.com/fekuna/buffet-service/pkg/logger"
	"go.uber.org/zap"
)

const readyGuardTTL = 7 * 24 * time.Hour

// OnceGuard claims a key at most once per TTL; *cache.RedisClient satisfies it.
type OnceGuard interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

type Notifier struct {
	qr     *QRGenerator
	mailer Mailer
	guard  OnceGuard
	logger logger.ZapLogger
}

// NewNotifier builds the ready-order notifier. A nil guard falls back to an in-process one.
func NewNotifier(qr *QRGenerator, mailer Mailer, guard OnceGuard, log logger.ZapLogger) *Notifier {
	if guard == nil {
		guard = newMemoryGuard()
	}
	return &Notifier{qr: qr, mailer: mailer, guard: guard, logger: log}
}

// OrderReady emails the owner with the pickup code. Repeated calls for the
// same order send nothing.
func (n *Notifier) OrderReady(ctx context.Context, order *model.Order) error {
	key := fmt.Sprintf("notify:ready:%d", order.ID)
	first, err := n.guard.AcquireLock(ctx, key, readyGuardTTL)
	if err != nil {
		n.logger.Warn("notification guard unavailable, sending anyway", zap.Error(err))
		first = true
	}
	if !first {
		n.logger.Debug("ready notification already sent", zap.Int64("order_id", order.ID))
		return nil
	}

	png, err := n.qr.PNG(order.ID)
	if err != nil {
		_ = n.guard.ReleaseLock(ctx, key)
		return fmt.Errorf("generate qr: %w", err)
	}
	if err := n.mailer.SendOrderReady(ctx, order, png); err != nil {
		_ = n.guard.ReleaseLock(ctx, key)
		return fmt.Errorf("send ready mail: %w", err)
	}

	n.logger.Info("order ready notification sent", zap.Int64("order_id", order.ID))
	return nil
}

type memoryGuard struct {
	mu   sync.Mutex
	keys map[string]time.Time
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{keys: map[string]time.Time{}}
}

func (g *memoryGuard) AcquireLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	if exp, ok := g.keys[key]; ok && now.Before(exp) {
		return false, nil
	}
	g.keys[key] = now.Add(ttl)
	return true, nil
}

func (g *memoryGuard) ReleaseLock(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, key)
	return nil
}
