package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	order "github.com/angzarr-io/pos/order/logic"
	"github.com/angzarr-io/pos/pos"
	"go.uber.org/zap"
)

// OrdersEndpoint and OrdersMethod route order pushes.
const (
	OrdersEndpoint = "/orders"
	OrdersMethod   = "POST"
)

// DefaultMaxRetries bounds how often a queued push is retried before it is
// dead-lettered.
const DefaultMaxRetries = 10

// Stats summarizes one queue drain.
type Stats struct {
	Synced       int `json:"synced"`
	Failed       int `json:"failed"`
	DeadLettered int `json:"deadLettered"`
	Remaining    int `json:"remaining"`
}

// Engine writes orders locally, pushes them to the hub and queues what
// could not be delivered.
type Engine struct {
	local      OrderSaver
	queue      Queue
	remote     Remote
	online     atomic.Bool
	syncing    atomic.Bool
	maxRetries int
	clock      pos.Clock
	logger     *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxRetries sets the retry bound. Non-positive values keep the default.
func WithMaxRetries(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxRetries = n
		}
	}
}

// WithClock overrides the wall clock.
func WithClock(clock pos.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates an Engine. A nil remote keeps the engine offline and
// every push queued.
func NewEngine(local OrderSaver, queue Queue, remote Remote, opts ...Option) *Engine {
	e := &Engine{
		local:      local,
		queue:      queue,
		remote:     remote,
		maxRetries: DefaultMaxRetries,
		clock:      pos.SystemClock{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.online.Store(remote != nil)
	return e
}

// Online reports the current connectivity flag.
func (e *Engine) Online() bool {
	return e.online.Load()
}

// SetOnline flips connectivity. Coming back online drains the queue.
func (e *Engine) SetOnline(ctx context.Context, online bool) (Stats, error) {
	if online && e.remote == nil {
		online = false
	}
	was := e.online.Swap(online)
	if !online {
		if was {
			e.logger.Info("sync offline")
		}
		return Stats{}, nil
	}
	if !was {
		e.logger.Info("sync online, draining queue")
	}
	return e.ProcessQueue(ctx)
}

// SaveOrder writes the order locally, then pushes it or queues it. An order
// is pushed directly only when nothing is waiting ahead of it; otherwise it
// joins the queue so the hub sees changes in the order they were made. Only
// a local write failure is returned.
func (e *Engine) SaveOrder(ctx context.Context, o order.SavedOrder) error {
	if err := e.local.SaveOrder(ctx, o); err != nil {
		return fmt.Errorf("save order %s locally: %w", o.ID, err)
	}
	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode order %s: %w", o.ID, err)
	}
	req := Request{
		ID:        pos.NewID(),
		Endpoint:  OrdersEndpoint,
		Method:    OrdersMethod,
		Payload:   payload,
		Timestamp: e.clock.Now(),
	}

	backlog := false
	if e.Online() {
		pending, err := e.queue.Pending(ctx)
		if err != nil {
			e.logger.Warn("sync queue unreadable, queuing", zap.String("order_id", o.ID), zap.Error(err))
			backlog = true
		} else {
			backlog = len(pending) > 0
		}
		if !backlog {
			err := e.remote.Push(ctx, req)
			if err == nil {
				return nil
			}
			e.logger.Warn("sync failed, queuing", zap.String("order_id", o.ID), zap.Error(err))
			req.LastError = err.Error()
		}
	}

	if err := e.queue.Enqueue(ctx, req); err != nil {
		return fmt.Errorf("queue order %s: %w", o.ID, err)
	}
	if backlog {
		if _, err := e.ProcessQueue(ctx); err != nil {
			e.logger.Error("sync queue drain failed", zap.Error(err))
		}
	}
	return nil
}

// ProcessQueue drains pending pushes oldest first. It stops at the first
// push that will be retried or when the engine goes offline, and is a no-op
// while another drain is running.
func (e *Engine) ProcessQueue(ctx context.Context) (Stats, error) {
	var stats Stats
	if !e.syncing.CompareAndSwap(false, true) {
		return stats, nil
	}
	defer e.syncing.Store(false)

	pending, err := e.queue.Pending(ctx)
	if err != nil {
		return stats, err
	}
	for i, req := range pending {
		if !e.Online() || ctx.Err() != nil {
			stats.Remaining = len(pending) - i
			break
		}
		pushErr := e.remote.Push(ctx, req)
		if pushErr == nil {
			if err := e.queue.Delete(ctx, req.ID); err != nil {
				return stats, err
			}
			stats.Synced++
			e.logger.Debug("synced queued item", zap.String("id", req.ID))
			continue
		}

		req.RetryCount++
		req.LastError = pushErr.Error()
		kind := FailureHub
		syncErr := AsSyncError(pushErr)
		if syncErr != nil {
			kind = syncErr.Kind
		}
		if req.RetryCount >= e.maxRetries || (syncErr != nil && syncErr.IsRejected()) {
			req.DeadLettered = true
			stats.DeadLettered++
			e.logger.Warn("sync item dead-lettered",
				zap.String("id", req.ID),
				zap.Stringer("kind", kind),
				zap.Int("retry_count", req.RetryCount),
				zap.Error(pushErr))
		} else {
			stats.Failed++
			e.logger.Error("failed to sync item",
				zap.String("id", req.ID),
				zap.Stringer("kind", kind),
				zap.Int("retry_count", req.RetryCount),
				zap.Error(pushErr))
		}
		if err := e.queue.Update(ctx, req); err != nil {
			return stats, err
		}
		if !req.DeadLettered {
			// Later pushes wait so the hub never sees them first.
			stats.Remaining = len(pending) - i - 1
			break
		}
	}
	return stats, nil
}

// Pending lists queued pushes.
func (e *Engine) Pending(ctx context.Context) ([]Request, error) {
	return e.queue.Pending(ctx)
}

// DeadLetters lists pushes that will not be retried.
func (e *Engine) DeadLetters(ctx context.Context) ([]Request, error) {
	return e.queue.DeadLetters(ctx)
}

// Run drains the queue on every tick until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !e.Online() {
				continue
			}
			stats, err := e.ProcessQueue(ctx)
			if err != nil {
				e.logger.Error("sync queue drain failed", zap.Error(err))
				continue
			}
			if stats.Synced+stats.Failed+stats.DeadLettered > 0 {
				e.logger.Info("sync queue drained",
					zap.Int("synced", stats.Synced),
					zap.Int("failed", stats.Failed),
					zap.Int("dead_lettered", stats.DeadLettered))
			}
		}
	}
}
