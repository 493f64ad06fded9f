// Package feed maintains the client-side view of the association server's
// notification feed: role filtering, content deduplication, unread
// tracking, and alert side-effects for newly arrived items.
package feed

import (
	"context"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/dkrenn/clubwatch/internal/model"
	"github.com/dkrenn/clubwatch/internal/roles"
	"github.com/dkrenn/clubwatch/internal/store"
	appsync "github.com/dkrenn/clubwatch/internal/sync"
)

// State is the lifecycle state of a Store.
type State int

const (
	// StateUninitialized means no session is available or the viewer may
	// not read notifications. No polling occurs.
	StateUninitialized State = iota

	// StateInitializing covers the window between the first fetch being
	// scheduled and its batch being processed.
	StateInitializing

	// StateReady means the timer is running and every tick re-runs the
	// filter/dedup/diff pipeline. Poll failures leave the previous Ready
	// view untouched apart from clearing the loading flag.
	StateReady
)

// Transport is the polling layer the store drives. Satisfied by
// *sync.Poller.
type Transport interface {
	Start(interval time.Duration)
	Stop()
	Refresh()
	Subscribe(fn func([]model.Notification)) func()
	MarkAsRead(ctx context.Context, id int64) bool
	MarkAllAsRead(ctx context.Context) bool
}

// History keeps notifications across restarts. The cached feed seeds the
// view once at startup, before the first poll; after that only live batches
// drive the pipeline and cached rows never re-enter it.
type History interface {
	UpsertNotifications(ctx context.Context, batch []model.Notification) error
	GetNotifications(ctx context.Context, filter store.NotificationFilter) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id int64) error
	MarkAllNotificationsRead(ctx context.Context) error
}

// Session identifies the viewer. The store only reads it; login/logout is
// the server's concern.
type Session struct {
	UserID int64
	Role   roles.Role
}

// Store holds the authoritative client-side notification view. Construct
// one per session; all methods are safe for concurrent use.
type Store struct {
	transport Transport
	session   Session
	toaster   Toaster
	desktop   DesktopNotifier
	navigator Navigator
	history   History
	logger    *slog.Logger
	interval  time.Duration
	onChange  func()

	mu            gosync.Mutex
	state         State
	notifications []model.Notification
	unread        int
	loading       bool
	lastMaxID     int64
	hasMark       bool
	unsubscribe   func()
}

// Option configures a Store.
type Option func(*Store)

// WithToaster sets the transient alert presenter.
func WithToaster(t Toaster) Option {
	return func(s *Store) { s.toaster = t }
}

// WithDesktopNotifier sets the desktop notification facility.
func WithDesktopNotifier(d DesktopNotifier) Option {
	return func(s *Store) { s.desktop = d }
}

// WithNavigator sets the navigation collaborator used on click-through.
func WithNavigator(n Navigator) Option {
	return func(s *Store) { s.navigator = n }
}

// WithHistory sets the local history sink.
func WithHistory(h History) Option {
	return func(s *Store) { s.history = h }
}

// WithLogger sets the logger for the Store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithInterval sets the polling cadence started by Initialize.
func WithInterval(interval time.Duration) Option {
	return func(s *Store) { s.interval = interval }
}

// WithOnChange registers a callback invoked after every public state
// change. The UI uses it to trigger a redraw.
func WithOnChange(fn func()) Option {
	return func(s *Store) { s.onChange = fn }
}

// New creates a Store for the given viewer over the given transport.
func New(transport Transport, session Session, opts ...Option) *Store {
	s := &Store{
		transport: transport,
		session:   session,
		logger:    slog.Default(),
		interval:  appsync.DefaultInterval,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Initialize subscribes to the transport and starts polling. When the
// viewer's role may not read notifications the store stays Uninitialized
// and nothing is polled.
func (s *Store) Initialize() {
	s.mu.Lock()
	if !roles.CanViewNotifications(s.session.Role) {
		s.state = StateUninitialized
		s.mu.Unlock()
		return
	}
	s.state = StateInitializing
	s.loading = true
	s.mu.Unlock()

	s.seedFromHistory()

	unsubscribe := s.transport.Subscribe(s.handleBatch)
	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	s.transport.Start(s.interval)
	s.notifyChange()
}

// Close stops polling and detaches from the transport. An in-flight fetch
// is allowed to complete; its batch is simply not delivered.
func (s *Store) Close() {
	s.transport.Stop()

	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// seedHistoryLimit caps how much cached history fills the view before the
// first poll answers.
const seedHistoryLimit = 200

// seedFromHistory shows the cached feed while the first poll is pending, so
// a restart (or an offline start) is not a blank screen. The high-water
// mark stays untouched: cached rows are old news and must not arm alerts.
func (s *Store) seedFromHistory() {
	if s.history == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cached, err := s.history.GetNotifications(ctx, store.NotificationFilter{
		Limit: seedHistoryLimit,
	})
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "history read failed",
			slog.Any("error", err),
		)
		return
	}
	if len(cached) == 0 {
		return
	}

	unread := 0
	for _, n := range cached {
		if !n.Read {
			unread++
		}
	}

	s.mu.Lock()
	if s.state == StateInitializing && s.loading && len(s.notifications) == 0 {
		s.notifications = cached
		s.unread = unread
	}
	s.mu.Unlock()
}

// State returns the store's lifecycle state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Notifications returns a copy of the current filtered, deduplicated list.
func (s *Store) Notifications() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// UnreadCount returns the number of unread notifications in the current
// view.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// Loading reports whether a first batch is still pending.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Refresh requests an immediate poll. The transport drops the request if a
// fetch is already in flight, so rapid repeated calls cannot stack fetches
// on top of the timer.
func (s *Store) Refresh() {
	s.transport.Refresh()
}

// MarkAsRead acknowledges one notification. The local view is updated
// optimistically whether or not the server confirmed: the flip is never
// rolled back, only overwritten by a later poll's server truth.
func (s *Store) MarkAsRead(ctx context.Context, id int64) {
	if ok := s.transport.MarkAsRead(ctx, id); !ok {
		s.logger.LogAttrs(ctx, slog.LevelWarn,
			"server did not confirm mark as read; keeping optimistic state",
			slog.Int64("notification_id", id),
		)
	}

	s.mu.Lock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].Read = true
		}
	}
	if s.unread > 0 {
		s.unread--
	}
	s.mu.Unlock()

	if s.history != nil {
		if err := s.history.MarkNotificationRead(ctx, id); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "history mark read failed",
				slog.Int64("notification_id", id),
				slog.Any("error", err),
			)
		}
	}

	s.notifyChange()
}

// MarkAllAsRead acknowledges every notification, with the same
// optimistic-always-apply contract as MarkAsRead.
func (s *Store) MarkAllAsRead(ctx context.Context) {
	if ok := s.transport.MarkAllAsRead(ctx); !ok {
		s.logger.LogAttrs(ctx, slog.LevelWarn,
			"server did not confirm mark all as read; keeping optimistic state",
		)
	}

	s.mu.Lock()
	for i := range s.notifications {
		s.notifications[i].Read = true
	}
	s.unread = 0
	s.mu.Unlock()

	if s.history != nil {
		if err := s.history.MarkAllNotificationsRead(ctx); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "history mark all read failed",
				slog.Any("error", err),
			)
		}
	}

	s.notifyChange()
}

// HandleClick marks the notification read and navigates to its target.
func (s *Store) HandleClick(ctx context.Context, n model.Notification) {
	s.MarkAsRead(ctx, n.ID)

	if s.navigator != nil {
		s.navigator.Navigate(TargetFor(n))
	}
}

// handleBatch is the transport subscription callback.
func (s *Store) handleBatch(batch []model.Notification) {
	s.processBatch(batch)
}

// processBatch runs the filter/dedup/diff pipeline over one raw batch and
// replaces the public view with the result.
func (s *Store) processBatch(batch []model.Notification) {
	tags := roles.AllowedTags(s.session.Role)

	kept := make([]model.Notification, 0, len(batch))
	seen := make(map[model.Signature]bool, len(batch))
	for _, n := range batch {
		if !s.visibleToViewer(n, tags) {
			continue
		}
		sig := n.Signature()
		if seen[sig] {
			continue
		}
		seen[sig] = true
		kept = append(kept, n)
	}

	s.mu.Lock()

	// Alerting is about change, not initial state: without a prior mark
	// (first successful poll) nothing fires even if all items are unread.
	var fresh []model.Notification
	if s.hasMark {
		for _, n := range kept {
			if n.ID > s.lastMaxID && !n.Read {
				fresh = append(fresh, n)
			}
		}
	}

	// The mark never decreases; an empty surviving list leaves it alone.
	for _, n := range kept {
		if n.ID > s.lastMaxID {
			s.lastMaxID = n.ID
		}
	}
	if len(kept) > 0 {
		s.hasMark = true
	}

	unread := 0
	for _, n := range kept {
		if !n.Read {
			unread++
		}
	}

	s.notifications = kept
	s.unread = unread
	s.loading = false
	s.state = StateReady
	s.mu.Unlock()

	for _, n := range fresh {
		s.alert(n)
	}

	if s.history != nil && len(kept) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.history.UpsertNotifications(ctx, kept); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "history upsert failed",
				slog.Int("count", len(kept)),
				slog.Any("error", err),
			)
		}
		cancel()
	}

	s.notifyChange()
}

// visibleToViewer is the role-visibility predicate: meeting events are
// broadcast to everyone; otherwise the item must target the viewer's id,
// carry a role tag the viewer holds, or carry no targeting at all.
func (s *Store) visibleToViewer(n model.Notification, tags map[string]bool) bool {
	if n.Type.IsMeeting() {
		return true
	}
	if n.Recipient != nil && *n.Recipient == s.session.UserID {
		return true
	}
	if n.RecipientRole != nil && tags[*n.RecipientRole] {
		return true
	}
	return n.Recipient == nil && n.RecipientRole == nil
}

// alert raises the toast and desktop side-effects for one new item.
func (s *Store) alert(n model.Notification) {
	if s.toaster != nil {
		s.toaster.Show(Toast{
			Severity:     severityFor(n.Priority),
			Notification: n,
		})
	}

	if s.desktop == nil {
		return
	}
	switch s.desktop.Permission() {
	case PermissionGranted:
		s.showDesktop(n)
	case PermissionUndetermined:
		s.desktop.RequestPermission(func(p Permission) {
			if p == PermissionGranted {
				s.showDesktop(n)
			}
		})
	case PermissionDenied:
		// Skip silently.
	}
}

func (s *Store) showDesktop(n model.Notification) {
	if err := s.desktop.Show(n.Title, n.Message); err != nil {
		s.logger.LogAttrs(context.Background(), slog.LevelWarn,
			"desktop notification failed",
			slog.Int64("notification_id", n.ID),
			slog.Any("error", err),
		)
	}
}

func (s *Store) notifyChange() {
	if s.onChange != nil {
		s.onChange()
	}
}
