package feed

import (
	"context"
	"math/rand"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkrenn/clubwatch/internal/model"
	"github.com/dkrenn/clubwatch/internal/roles"
	"github.com/dkrenn/clubwatch/internal/store"
)

type fakeTransport struct {
	started    bool
	interval   time.Duration
	stopped    bool
	refreshes  int
	markOK     bool
	markAllOK  bool
	markedIDs  []int64
	subscriber func([]model.Notification)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{markOK: true, markAllOK: true}
}

func (f *fakeTransport) Start(interval time.Duration) {
	f.started = true
	f.interval = interval
}

func (f *fakeTransport) Stop() { f.stopped = true }

func (f *fakeTransport) Refresh() { f.refreshes++ }

func (f *fakeTransport) Subscribe(fn func([]model.Notification)) func() {
	f.subscriber = fn
	return func() { f.subscriber = nil }
}

func (f *fakeTransport) MarkAsRead(_ context.Context, id int64) bool {
	f.markedIDs = append(f.markedIDs, id)
	return f.markOK
}

func (f *fakeTransport) MarkAllAsRead(_ context.Context) bool {
	return f.markAllOK
}

type fakeToaster struct {
	toasts []Toast
}

func (f *fakeToaster) Show(t Toast) { f.toasts = append(f.toasts, t) }

type fakeDesktop struct {
	permission Permission
	grantOn    Permission // permission reported after a request
	requests   int
	shown      []string
}

func (f *fakeDesktop) Permission() Permission { return f.permission }

func (f *fakeDesktop) RequestPermission(fn func(Permission)) {
	f.requests++
	f.permission = f.grantOn
	fn(f.grantOn)
}

func (f *fakeDesktop) Show(title, _ string) error {
	f.shown = append(f.shown, title)
	return nil
}

type fakeNavigator struct {
	targets []Target
}

func (f *fakeNavigator) Navigate(t Target) { f.targets = append(f.targets, t) }

func notif(id int64, title string, nt model.NotificationType, read bool) model.Notification {
	return model.Notification{
		ID:        id,
		Title:     title,
		Message:   "M",
		Type:      nt,
		Priority:  model.PriorityLow,
		Read:      read,
		CreatedAt: time.Now(),
	}
}

func roleTargeted(n model.Notification, role string) model.Notification {
	n.RecipientRole = &role
	return n
}

func userTargeted(n model.Notification, userID int64) model.Notification {
	n.Recipient = &userID
	return n
}

func newStore(tr Transport, role roles.Role, opts ...Option) *Store {
	return New(tr, Session{UserID: 10, Role: role}, opts...)
}

func TestProcessBatchDuplicateSignatures(t *testing.T) {
	s := newStore(newFakeTransport(), roles.RoleMember)

	// Duplicate ids and signatures, the known upstream failure mode.
	s.processBatch([]model.Notification{
		notif(5, "A", model.TypeMeetingScheduled, false),
		notif(5, "A", model.TypeMeetingScheduled, false),
	})

	list := s.Notifications()
	require.Len(t, list, 1)
	assert.Equal(t, int64(5), list[0].ID)
	assert.Equal(t, 1, s.UnreadCount())
}

func TestProcessBatchNeverKeepsEqualSignatures(t *testing.T) {
	s := newStore(newFakeTransport(), roles.RoleMember)

	batches := [][]model.Notification{
		{
			notif(1, "A", model.TypeReportDue, false),
			notif(2, "A", model.TypeReportDue, true), // same signature, later id dropped
			notif(3, "A", model.TypeReportOverdue, false),
		},
		{
			notif(4, "B", model.TypeDonationReceived, false),
			notif(5, "B", model.TypeDonationReceived, false),
			notif(6, "B", model.TypeDonationReceived, false),
		},
	}

	for _, batch := range batches {
		s.processBatch(batch)
		seen := make(map[model.Signature]bool)
		for _, n := range s.Notifications() {
			sig := n.Signature()
			assert.False(t, seen[sig], "duplicate signature survived: %+v", sig)
			seen[sig] = true
		}
	}

	// First-wins: id 1 (read=false) outlives id 2 (read=true).
	s.processBatch(batches[0])
	for _, n := range s.Notifications() {
		assert.NotEqual(t, int64(2), n.ID)
	}
}

func TestRoleFilterTreasurer(t *testing.T) {
	s := newStore(newFakeTransport(), roles.RoleTreasurer)

	s.processBatch([]model.Notification{
		roleTargeted(notif(1, "for secretary", model.TypeReportDue, false), "secretary"),
		roleTargeted(notif(2, "for finance", model.TypeBudgetThreshold, false), "finance"),
	})

	list := s.Notifications()
	require.Len(t, list, 1)
	assert.Equal(t, int64(2), list[0].ID)
}

func TestRoleFilterProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tags := []string{
		"president", "admin", "treasurer", "finance",
		"secretary", "member", "all", "guest",
	}
	viewers := []roles.Role{
		roles.RolePresident, roles.RoleTreasurer,
		roles.RoleSecretary, roles.RoleMember,
	}

	for _, viewer := range viewers {
		s := newStore(newFakeTransport(), viewer)
		allowed := roles.AllowedTags(viewer)

		batch := make([]model.Notification, 0, 200)
		for i := range 200 {
			n := notif(int64(i+1), "n", model.TypeReportDue, false)
			n.Message = n.Title + string(rune('a'+i%26)) + string(rune('a'+i/26))
			switch rng.Intn(4) {
			case 0:
				// broadcast, both fields absent
			case 1:
				n = userTargeted(n, int64(rng.Intn(20)))
			case 2:
				n = roleTargeted(n, tags[rng.Intn(len(tags))])
			case 3:
				n = roleTargeted(userTargeted(n, int64(rng.Intn(20))), tags[rng.Intn(len(tags))])
			}
			batch = append(batch, n)
		}

		s.processBatch(batch)
		for _, n := range s.Notifications() {
			visible := n.Type.IsMeeting() ||
				(n.Recipient != nil && *n.Recipient == 10) ||
				(n.RecipientRole != nil && allowed[*n.RecipientRole]) ||
				(n.Recipient == nil && n.RecipientRole == nil)
			assert.True(t, visible,
				"role %v leaked notification %+v", viewer, n)
		}
	}
}

func TestMeetingNotificationsAreBroadcast(t *testing.T) {
	s := newStore(newFakeTransport(), roles.RoleMember)

	// Targeted at another role, but meeting events reach everyone.
	s.processBatch([]model.Notification{
		roleTargeted(notif(1, "board meeting", model.TypeMeetingScheduled, false), "president"),
	})

	assert.Len(t, s.Notifications(), 1)
}

func TestHighWaterMarkMonotonic(t *testing.T) {
	s := newStore(newFakeTransport(), roles.RoleMember)

	sequences := [][]model.Notification{
		{notif(3, "A", model.TypeReportDue, false)},
		{}, // empty poll leaves the mark alone
		{notif(2, "B", model.TypeReportDue, false)}, // lower ids cannot lower it
		{notif(9, "C", model.TypeReportDue, false)},
		nil,
	}

	var prev int64
	for _, batch := range sequences {
		s.processBatch(batch)
		assert.GreaterOrEqual(t, s.lastMaxID, prev)
		prev = s.lastMaxID
	}
	assert.Equal(t, int64(9), s.lastMaxID)
}

func TestFirstPollNeverAlerts(t *testing.T) {
	toaster := &fakeToaster{}
	s := newStore(newFakeTransport(), roles.RoleMember, WithToaster(toaster))

	first := notif(1, "A", model.TypeBudgetThreshold, false)
	first.Priority = model.PriorityHigh
	s.processBatch([]model.Notification{first})

	assert.Empty(t, toaster.toasts, "initial state is not change")

	second := notif(2, "B", model.TypeReportDue, false)
	s.processBatch([]model.Notification{first, second})

	require.Len(t, toaster.toasts, 1, "exactly one alert for the new item")
	assert.Equal(t, int64(2), toaster.toasts[0].Notification.ID)
	assert.Equal(t, SeverityInfo, toaster.toasts[0].Severity)
}

func TestAlertSeverityByPriority(t *testing.T) {
	toaster := &fakeToaster{}
	s := newStore(newFakeTransport(), roles.RoleMember, WithToaster(toaster))

	seed := notif(1, "seed", model.TypeReportDue, true)
	s.processBatch([]model.Notification{seed})

	high := notif(2, "high", model.TypeBudgetThreshold, false)
	high.Priority = model.PriorityHigh
	medium := notif(3, "medium", model.TypeReportDue, false)
	medium.Priority = model.PriorityMedium
	low := notif(4, "low", model.TypeMonthlySummary, false)

	s.processBatch([]model.Notification{seed, high, medium, low})

	require.Len(t, toaster.toasts, 3)
	severities := map[int64]Severity{}
	for _, toast := range toaster.toasts {
		severities[toast.Notification.ID] = toast.Severity
	}
	assert.Equal(t, SeverityError, severities[2])
	assert.Equal(t, SeverityWarning, severities[3])
	assert.Equal(t, SeverityInfo, severities[4])
}

func TestAlreadyReadNewItemsDoNotAlert(t *testing.T) {
	toaster := &fakeToaster{}
	s := newStore(newFakeTransport(), roles.RoleMember, WithToaster(toaster))

	s.processBatch([]model.Notification{notif(1, "A", model.TypeReportDue, false)})
	s.processBatch([]model.Notification{
		notif(1, "A", model.TypeReportDue, false),
		notif(2, "B", model.TypeReportDue, true),
	})

	assert.Empty(t, toaster.toasts)
}

func TestStaleBatchOverridesOptimisticRead(t *testing.T) {
	tr := newFakeTransport()
	s := newStore(tr, roles.RoleMember)

	s.processBatch([]model.Notification{notif(1, "A", model.TypeReportDue, false)})
	s.MarkAsRead(context.Background(), 1)

	require.True(t, s.Notifications()[0].Read)
	assert.Equal(t, 0, s.UnreadCount())

	// A poll still carrying read=false (server lag) restores server truth.
	s.processBatch([]model.Notification{notif(1, "A", model.TypeReportDue, false)})

	assert.False(t, s.Notifications()[0].Read)
	assert.Equal(t, 1, s.UnreadCount())
}

func TestMarkAsReadOptimisticOnServerFailure(t *testing.T) {
	tr := newFakeTransport()
	tr.markOK = false
	s := newStore(tr, roles.RoleMember)

	s.processBatch([]model.Notification{notif(1, "A", model.TypeReportDue, false)})
	s.MarkAsRead(context.Background(), 1)

	assert.True(t, s.Notifications()[0].Read)
	assert.Equal(t, 0, s.UnreadCount())
}

func TestMarkAsReadUnreadFloorsAtZero(t *testing.T) {
	s := newStore(newFakeTransport(), roles.RoleMember)

	s.processBatch([]model.Notification{notif(1, "A", model.TypeReportDue, true)})
	s.MarkAsRead(context.Background(), 1)
	s.MarkAsRead(context.Background(), 1)

	assert.Equal(t, 0, s.UnreadCount())
}

func TestMarkAllAsReadOptimisticOnServerFailure(t *testing.T) {
	tr := newFakeTransport()
	tr.markAllOK = false
	s := newStore(tr, roles.RoleMember)

	s.processBatch([]model.Notification{
		notif(1, "A", model.TypeReportDue, false),
		notif(2, "B", model.TypeDonationReceived, false),
	})
	s.MarkAllAsRead(context.Background())

	assert.Equal(t, 0, s.UnreadCount())
	for _, n := range s.Notifications() {
		assert.True(t, n.Read)
	}
}

func TestRefreshDelegatesToTransport(t *testing.T) {
	tr := newFakeTransport()
	s := newStore(tr, roles.RoleMember)

	s.Refresh()
	s.Refresh()

	assert.Equal(t, 2, tr.refreshes)
}

func TestInitializeStateMachine(t *testing.T) {
	tr := newFakeTransport()
	s := newStore(tr, roles.RoleTreasurer, WithInterval(10*time.Second))

	assert.Equal(t, StateUninitialized, s.State())

	s.Initialize()
	assert.Equal(t, StateInitializing, s.State())
	assert.True(t, s.Loading())
	assert.True(t, tr.started)
	assert.Equal(t, 10*time.Second, tr.interval)

	// The subscription delivers the first batch and the store is Ready.
	require.NotNil(t, tr.subscriber)
	tr.subscriber([]model.Notification{notif(1, "A", model.TypeReportDue, false)})

	assert.Equal(t, StateReady, s.State())
	assert.False(t, s.Loading())
}

func TestInitializeDeniedForUnknownRole(t *testing.T) {
	tr := newFakeTransport()
	s := newStore(tr, roles.RoleUnknown)

	s.Initialize()

	assert.Equal(t, StateUninitialized, s.State())
	assert.False(t, tr.started, "no polling without permission")
	assert.Nil(t, tr.subscriber)
}

func TestFailedPollClearsLoadingOnly(t *testing.T) {
	tr := newFakeTransport()
	s := newStore(tr, roles.RoleMember)
	s.Initialize()

	tr.subscriber([]model.Notification{notif(1, "A", model.TypeReportDue, false)})
	require.Len(t, s.Notifications(), 1)

	// A failed fetch surfaces as an empty batch; the view empties but the
	// store stays Ready and the high-water mark survives.
	tr.subscriber(nil)
	assert.Equal(t, StateReady, s.State())
	assert.False(t, s.Loading())
	assert.Equal(t, int64(1), s.lastMaxID)
}

func TestCloseStopsPollingAndDetaches(t *testing.T) {
	tr := newFakeTransport()
	s := newStore(tr, roles.RoleMember)
	s.Initialize()

	s.Close()

	assert.True(t, tr.stopped)
	assert.Nil(t, tr.subscriber)
}

func TestHandleClickMarksReadAndNavigates(t *testing.T) {
	tr := newFakeTransport()
	nav := &fakeNavigator{}
	s := newStore(tr, roles.RoleMember, WithNavigator(nav))

	n := notif(7, "tx", model.TypeTransactionCreated, false)
	s.processBatch([]model.Notification{n})
	s.HandleClick(context.Background(), n)

	assert.Equal(t, []int64{7}, tr.markedIDs)
	require.Len(t, nav.targets, 1)
	assert.Equal(t, ViewFinance, nav.targets[0].View)
}

func TestDesktopAlertPermissionFlow(t *testing.T) {
	tests := []struct {
		name         string
		permission   Permission
		grantOn      Permission
		wantRequests int
		wantShown    int
	}{
		{
			name:       "granted shows immediately",
			permission: PermissionGranted,
			wantShown:  1,
		},
		{
			name:         "undetermined requests then shows when granted",
			permission:   PermissionUndetermined,
			grantOn:      PermissionGranted,
			wantRequests: 1,
			wantShown:    1,
		},
		{
			name:         "undetermined request denied skips",
			permission:   PermissionUndetermined,
			grantOn:      PermissionDenied,
			wantRequests: 1,
			wantShown:    0,
		},
		{
			name:       "denied skips silently",
			permission: PermissionDenied,
			wantShown:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desktop := &fakeDesktop{permission: tt.permission, grantOn: tt.grantOn}
			s := newStore(newFakeTransport(), roles.RoleMember,
				WithDesktopNotifier(desktop))

			s.processBatch([]model.Notification{notif(1, "seed", model.TypeReportDue, true)})
			s.processBatch([]model.Notification{
				notif(1, "seed", model.TypeReportDue, true),
				notif(2, "fresh", model.TypeReportDue, false),
			})

			assert.Equal(t, tt.wantRequests, desktop.requests)
			assert.Len(t, desktop.shown, tt.wantShown)
		})
	}
}

// lockedTransport is a minimal Transport safe for concurrent use.
type lockedTransport struct {
	mu         gosync.Mutex
	subscriber func([]model.Notification)
	stopped    bool
}

func (f *lockedTransport) Start(time.Duration) {}

func (f *lockedTransport) Stop() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *lockedTransport) Refresh() {}

func (f *lockedTransport) Subscribe(fn func([]model.Notification)) func() {
	f.mu.Lock()
	f.subscriber = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.subscriber = nil
		f.mu.Unlock()
	}
}

func (f *lockedTransport) MarkAsRead(context.Context, int64) bool { return true }

func (f *lockedTransport) MarkAllAsRead(context.Context) bool { return true }

type fakeHistory struct {
	cached  []model.Notification
	getErr  error
	filters []store.NotificationFilter
	upserts [][]model.Notification
}

func (f *fakeHistory) UpsertNotifications(_ context.Context, batch []model.Notification) error {
	f.upserts = append(f.upserts, batch)
	return nil
}

func (f *fakeHistory) GetNotifications(_ context.Context, filter store.NotificationFilter) ([]model.Notification, error) {
	f.filters = append(f.filters, filter)
	return f.cached, f.getErr
}

func (f *fakeHistory) MarkNotificationRead(context.Context, int64) error { return nil }

func (f *fakeHistory) MarkAllNotificationsRead(context.Context) error { return nil }

func TestInitializeAndCloseConcurrently(t *testing.T) {
	// Initialize runs on a command goroutine while Close runs in the UI
	// loop; both touch the subscription handle.
	for range 50 {
		s := newStore(&lockedTransport{}, roles.RoleMember)

		var wg gosync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Initialize()
		}()
		go func() {
			defer wg.Done()
			s.Close()
		}()
		wg.Wait()

		s.Close()
	}
}

func TestInitializeSeedsFromHistory(t *testing.T) {
	tr := newFakeTransport()
	toaster := &fakeToaster{}
	history := &fakeHistory{cached: []model.Notification{
		notif(4, "cached unread", model.TypeReportDue, false),
		notif(3, "cached read", model.TypeDonationReceived, true),
	}}
	s := newStore(tr, roles.RoleMember,
		WithHistory(history), WithToaster(toaster))

	s.Initialize()

	// The cached feed is visible while the first poll is pending.
	list := s.Notifications()
	require.Len(t, list, 2)
	assert.Equal(t, int64(4), list[0].ID)
	assert.Equal(t, 1, s.UnreadCount())
	assert.True(t, s.Loading())
	assert.Equal(t, StateInitializing, s.State())
	require.Len(t, history.filters, 1)
	assert.Equal(t, seedHistoryLimit, history.filters[0].Limit)

	// The first live batch replaces the seed and, as a first poll, must
	// not alert even though its ids are above anything cached.
	tr.subscriber([]model.Notification{
		notif(99, "live", model.TypeBudgetThreshold, false),
	})

	list = s.Notifications()
	require.Len(t, list, 1)
	assert.Equal(t, int64(99), list[0].ID)
	assert.False(t, s.Loading())
	assert.Empty(t, toaster.toasts)
	require.Len(t, history.upserts, 1, "live batches are mirrored back")
}

func TestSeedFromHistoryErrorLeavesViewEmpty(t *testing.T) {
	tr := newFakeTransport()
	history := &fakeHistory{getErr: context.DeadlineExceeded}
	s := newStore(tr, roles.RoleMember, WithHistory(history))

	s.Initialize()

	assert.Empty(t, s.Notifications())
	assert.True(t, s.Loading())
	assert.True(t, tr.started, "a failed seed must not stop polling")
}
