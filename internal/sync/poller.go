// Package sync polls the notification API on a fixed interval and fans
// fetched batches out to subscribers.
package sync

import (
	"context"
	"log/slog"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dkrenn/clubwatch/internal/model"
)

// API is the subset of the notification client the poller drives.
type API interface {
	ListNotifications(ctx context.Context) ([]model.Notification, error)
	MarkAsRead(ctx context.Context, id int64) error
	MarkAllAsRead(ctx context.Context) error
}

// DefaultInterval is the polling cadence used when the caller does not pick
// one. The dashboard configures a faster 10s cadence at initialization.
const DefaultInterval = 30 * time.Second

// fetchTimeout is the maximum time allowed for a single fetch operation.
const fetchTimeout = 30 * time.Second

// Poller owns the recurring fetch timer and the subscriber list. It never
// retries a failed fetch and applies no backoff: the fixed interval re-poll
// self-heals after transient failures.
type Poller struct {
	api    API
	logger *slog.Logger

	mu          gosync.Mutex
	subscribers map[string]func([]model.Notification)
	stopCh      chan struct{}
	triggerCh   chan struct{}
	running     bool

	inFlight atomic.Bool
}

// Option configures a Poller.
type Option func(*Poller)

// WithLogger sets the logger for the Poller.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) {
		p.logger = logger
	}
}

// New creates a Poller over the given API client.
func New(api API, opts ...Option) *Poller {
	p := &Poller{
		api:         api,
		logger:      slog.Default(),
		subscribers: make(map[string]func([]model.Notification)),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Subscribe registers a callback invoked with every fetched batch. The
// returned function removes the registration. A callback that panics does
// not prevent delivery to the remaining subscribers.
func (p *Poller) Subscribe(fn func([]model.Notification)) func() {
	id := uuid.New().String()

	p.mu.Lock()
	p.subscribers[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subscribers, id)
		p.mu.Unlock()
	}
}

// Start begins polling at the given interval, fetching once immediately
// rather than waiting for the first tick. Starting while already running
// replaces the existing timer; there is never more than one loop.
func (p *Poller) Start(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	p.mu.Lock()
	if p.running {
		close(p.stopCh)
	}
	stopCh := make(chan struct{})
	triggerCh := make(chan struct{}, 1)
	p.stopCh = stopCh
	p.triggerCh = triggerCh
	p.running = true
	p.mu.Unlock()

	go p.loop(interval, stopCh, triggerCh)
}

// Stop halts the polling loop. Outstanding fetches complete but their
// results are no longer delivered once subscribers are removed.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopCh)
	p.running = false
}

// Close stops polling and drops all subscribers.
func (p *Poller) Close() {
	p.Stop()

	p.mu.Lock()
	p.subscribers = make(map[string]func([]model.Notification))
	p.mu.Unlock()
}

// Refresh requests an immediate fetch. If a fetch is already in flight, or
// one is already queued, the request is dropped rather than stacked on top
// of the timer.
func (p *Poller) Refresh() {
	if p.inFlight.Load() {
		return
	}

	p.mu.Lock()
	triggerCh := p.triggerCh
	p.mu.Unlock()

	if triggerCh == nil {
		return
	}

	select {
	case triggerCh <- struct{}{}:
	default:
	}
}

// FetchNotifications performs one fetch, resolving to an empty batch on any
// failure. Callers cannot distinguish "no notifications" from "fetch
// failed"; both look like a quiet cycle and the next poll recovers.
func (p *Poller) FetchNotifications(ctx context.Context) []model.Notification {
	batch, err := p.api.ListNotifications(ctx)
	if err != nil {
		p.logger.LogAttrs(ctx, slog.LevelWarn, "notification fetch failed",
			slog.Any("error", err),
		)
		return nil
	}
	return batch
}

// MarkAsRead acknowledges one notification server-side. It reports whether
// the server confirmed; callers are expected to update their local view
// optimistically either way.
func (p *Poller) MarkAsRead(ctx context.Context, id int64) bool {
	if err := p.api.MarkAsRead(ctx, id); err != nil {
		p.logger.LogAttrs(ctx, slog.LevelWarn, "mark as read failed",
			slog.Int64("notification_id", id),
			slog.Any("error", err),
		)
		return false
	}
	return true
}

// MarkAllAsRead acknowledges every notification server-side. Same contract
// as MarkAsRead.
func (p *Poller) MarkAllAsRead(ctx context.Context) bool {
	if err := p.api.MarkAllAsRead(ctx); err != nil {
		p.logger.LogAttrs(ctx, slog.LevelWarn, "mark all as read failed",
			slog.Any("error", err),
		)
		return false
	}
	return true
}

// loop runs the fetch cycle until stopCh closes.
func (p *Poller) loop(
	interval time.Duration,
	stopCh <-chan struct{},
	triggerCh <-chan struct{},
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.fetchAndBroadcast()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			p.fetchAndBroadcast()
		case <-triggerCh:
			p.fetchAndBroadcast()
		}
	}
}

// fetchAndBroadcast runs one fetch pipeline. The inFlight flag lets
// Refresh drop re-entrant requests; ticks that fire mid-fetch coalesce in
// the ticker and never stack.
func (p *Poller) fetchAndBroadcast() {
	p.inFlight.Store(true)
	defer p.inFlight.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	batch := p.FetchNotifications(ctx)
	p.broadcast(batch)
}

// broadcast delivers a batch to every registered subscriber.
func (p *Poller) broadcast(batch []model.Notification) {
	p.mu.Lock()
	fns := make([]func([]model.Notification), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		p.deliver(fn, batch)
	}
}

// deliver invokes a single subscriber, containing panics so one bad
// callback cannot starve the rest.
func (p *Poller) deliver(fn func([]model.Notification), batch []model.Notification) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.LogAttrs(context.Background(), slog.LevelError,
				"notification subscriber panicked",
				slog.Any("panic", r),
			)
		}
	}()

	fn(batch)
}
