package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dkrenn/clubwatch/internal/feed"
	"github.com/dkrenn/clubwatch/internal/keys"
	"github.com/dkrenn/clubwatch/internal/letter"
	"github.com/dkrenn/clubwatch/internal/model"
	"github.com/dkrenn/clubwatch/internal/roles"
	"github.com/dkrenn/clubwatch/internal/theme"
	"github.com/dkrenn/clubwatch/internal/ui"
	"github.com/dkrenn/clubwatch/internal/ui/dashboard"
	helpview "github.com/dkrenn/clubwatch/internal/ui/help"
	settingsview "github.com/dkrenn/clubwatch/internal/ui/settings"
)

const (
	toastDuration  = 5 * time.Second
	statusDuration = 5 * time.Second
	draftTimeout   = 15 * time.Second
	countTimeout   = 10 * time.Second
)

// toastMsg carries a feed alert into the UI loop.
type toastMsg struct {
	toast feed.Toast
}

// toastExpiredMsg dismisses a toast. The sequence number guards against
// dismissing a newer toast that replaced the expired one.
type toastExpiredMsg struct {
	seq int
}

// feedChangedMsg signals that the notification feed was updated.
type feedChangedMsg struct{}

// statusExpiredMsg clears a transient status bar message.
type statusExpiredMsg struct {
	seq int
}

// draftResultMsg reports the outcome of saving an official letter draft.
type draftResultMsg struct {
	subject string
	err     error
}

// unreadCountMsg carries the server-side unread counter. It fills the
// header before the first feed batch lands.
type unreadCountMsg struct {
	count int
}

// Counter reports the server-side unread total.
type Counter interface {
	UnreadCount(ctx context.Context) (int, error)
}

// Notifier bridges feed callbacks into the Bubble Tea message loop. The
// feed store invokes Show and FeedChanged from its own goroutine; both are
// non-blocking so a stalled UI never stalls the poll loop.
type Notifier struct {
	toasts  chan feed.Toast
	changes chan struct{}
}

// NewNotifier creates a Notifier with buffered channels.
func NewNotifier() *Notifier {
	return &Notifier{
		toasts:  make(chan feed.Toast, 16),
		changes: make(chan struct{}, 1),
	}
}

// Show queues a toast for display, dropping it if the buffer is full.
func (n *Notifier) Show(t feed.Toast) {
	select {
	case n.toasts <- t:
	default:
	}
}

// FeedChanged signals that the feed contents changed.
func (n *Notifier) FeedChanged() {
	select {
	case n.changes <- struct{}{}:
	default:
	}
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewDashboard ViewState = iota
	ViewHelp
	ViewSettings
)

// Model is the root Bubble Tea model that manages view routing, layout,
// toast display, and access to the notification feed.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	cfg          *model.AppConfig
	configPath   string
	store        *feed.Store
	notifier     *Notifier
	mailbox      *letter.Mailbox
	counter      Counter

	dashboard    dashboard.Model
	helpView     helpview.Model
	settingsView settingsview.Model

	activeToast *feed.Toast
	toastSeq    int

	statusMessage string
	statusSeq     int

	serverUnread     int
	haveServerUnread bool

	ready bool
}

// New creates the root application model. The mailbox may be nil when
// official letter drafts are disabled; counter may be nil to skip the
// server-side unread lookup.
func New(cfg *model.AppConfig, configPath string, store *feed.Store, notifier *Notifier, mailbox *letter.Mailbox, counter Counter) Model {
	k := keys.DefaultKeyMap()

	return Model{
		currentView: ViewDashboard,
		keys:        k,
		cfg:         cfg,
		configPath:  configPath,
		store:       store,
		notifier:    notifier,
		mailbox:     mailbox,
		counter:     counter,
		dashboard:   dashboard.New(store, k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
	}
}

// Init starts the feed and begins waiting for alerts and feed changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.dashboard.Init(),
		m.initializeFeed(),
		m.fetchUnreadCount(),
		m.waitForToast(),
		m.waitForChange(),
	)
}

// fetchUnreadCount asks the server for its unread total once, so the
// header has a number while the feed is still loading.
func (m Model) fetchUnreadCount() tea.Cmd {
	counter := m.counter
	if counter == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), countTimeout)
		defer cancel()

		count, err := counter.UnreadCount(ctx)
		if err != nil {
			return nil
		}
		return unreadCountMsg{count: count}
	}
}

// initializeFeed starts the feed store, which in turn starts polling.
func (m Model) initializeFeed() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		store.Initialize()
		return feedChangedMsg{}
	}
}

// waitForToast blocks until the feed emits an alert.
func (m Model) waitForToast() tea.Cmd {
	ch := m.notifier.toasts
	return func() tea.Msg {
		return toastMsg{toast: <-ch}
	}
}

// waitForChange blocks until the feed contents change.
func (m Model) waitForChange() tea.Cmd {
	ch := m.notifier.changes
	return func() tea.Msg {
		<-ch
		return feedChangedMsg{}
	}
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.dashboard.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.settingsView.SetSize(contentWidth, contentHeight)
		// Forward to the active view so huh forms can recalculate.
		return m.updateActiveView(msg)

	case feedChangedMsg:
		m.dashboard.Reload()
		return m, m.waitForChange()

	case unreadCountMsg:
		m.serverUnread = msg.count
		m.haveServerUnread = true
		return m, nil

	case toastMsg:
		m.toastSeq++
		toast := msg.toast
		m.activeToast = &toast
		seq := m.toastSeq
		expire := tea.Tick(toastDuration, func(time.Time) tea.Msg {
			return toastExpiredMsg{seq: seq}
		})
		return m, tea.Batch(expire, m.waitForToast())

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.activeToast = nil
		}
		return m, nil

	case statusExpiredMsg:
		if msg.seq == m.statusSeq {
			m.statusMessage = ""
		}
		return m, nil

	case dashboard.DraftRequestedMsg:
		return m, m.saveDraft(msg.Notification)

	case draftResultMsg:
		if msg.err != nil {
			return m.setStatus(fmt.Sprintf("Draft failed: %v", msg.err))
		}
		return m.setStatus(fmt.Sprintf("Draft saved: %s", msg.subject))

	case settingsview.SavedMsg:
		m.cfg = msg.Config
		m.currentView = ViewDashboard
		return m.setStatus("Settings saved. Restart to apply connection changes.")

	case settingsview.CancelledMsg:
		m.currentView = ViewDashboard
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.store.Close()
			return m, tea.Quit
		}

		// Remaining global keys stay out of the settings form so text
		// input is never intercepted.
		if m.currentView != ViewSettings {
			switch {
			case key.Matches(msg, m.keys.Quit):
				m.store.Close()
				return m, tea.Quit

			case key.Matches(msg, m.keys.Help):
				if m.currentView == ViewHelp {
					m.currentView = m.previousView
					return m, nil
				}
				m.previousView = m.currentView
				m.currentView = ViewHelp
				return m, nil

			case key.Matches(msg, m.keys.Settings):
				m.previousView = m.currentView
				m.currentView = ViewSettings
				m.settingsView = settingsview.New(m.cfg, m.configPath, m.layout.ContentWidth(), m.layout.ContentHeight())
				return m, m.settingsView.Init()

			case key.Matches(msg, m.keys.Back):
				if m.currentView == ViewHelp {
					m.currentView = m.previousView
					return m, nil
				}
			}
		}
	}

	return m.updateActiveView(msg)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewDashboard:
		m.dashboard, cmd = m.dashboard.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewSettings:
		m.settingsView, cmd = m.settingsView.Update(msg)
	}

	return m, cmd
}

// saveDraft prepares an official letter draft for the notification and
// uploads it to the configured IMAP drafts mailbox.
func (m Model) saveDraft(n model.Notification) tea.Cmd {
	cfg := m.cfg
	mailbox := m.mailbox
	return func() tea.Msg {
		if mailbox == nil {
			return draftResultMsg{err: fmt.Errorf("official letter drafts are not configured")}
		}

		d, err := letter.DraftFor(n, cfg.Letter.From)
		if err != nil {
			return draftResultMsg{err: err}
		}

		ctx, cancel := context.WithTimeout(context.Background(), draftTimeout)
		defer cancel()

		if err := mailbox.SaveDraft(ctx, d); err != nil {
			return draftResultMsg{err: err}
		}
		return draftResultMsg{subject: d.Subject}
	}
}

// setStatus shows a transient message in the status bar.
func (m Model) setStatus(msg string) (tea.Model, tea.Cmd) {
	m.statusSeq++
	m.statusMessage = msg
	seq := m.statusSeq
	return m, tea.Tick(statusDuration, func(time.Time) tea.Msg {
		return statusExpiredMsg{seq: seq}
	})
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerTitle(), m.feedStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.statusLine())

	frame := m.layout.RenderWithFrame(header, content, statusBar)

	if m.activeToast != nil {
		rendered := theme.ToastStyle(string(m.activeToast.Severity)).
			Render(m.activeToast.Notification.Title)
		frame = m.layout.OverlayToast(frame, rendered)
	}

	return frame
}

// headerTitle prefers the feed's own unread count; until the first batch
// lands it falls back to the server-reported total.
func (m Model) headerTitle() string {
	unread := m.store.UnreadCount()
	if unread == 0 && m.store.Loading() && m.haveServerUnread {
		unread = m.serverUnread
	}
	if unread > 0 {
		return fmt.Sprintf("Club Notifications [%d unread]", unread)
	}
	return "Club Notifications"
}

// feedStatus returns the header status segment describing the feed state.
func (m Model) feedStatus() string {
	role := roles.Role(m.cfg.User.Role).Name()
	if role == "" {
		role = "unknown role"
	}

	switch m.store.State() {
	case feed.StateUninitialized:
		return fmt.Sprintf("%s · inactive", role)
	case feed.StateInitializing:
		return fmt.Sprintf("%s · connecting", role)
	default:
		if m.store.Loading() {
			return fmt.Sprintf("%s · refreshing", role)
		}
		return role
	}
}

func (m Model) statusLine() string {
	if m.statusMessage != "" {
		return m.statusMessage
	}

	switch m.currentView {
	case ViewHelp:
		return "esc back · q quit"
	case ViewSettings:
		return "enter next · esc cancel"
	default:
		return "enter open · m read · M all read · u unread · r refresh · d draft · s settings · ? help · q quit"
	}
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewHelp:
		return m.helpView.View()
	case ViewSettings:
		return m.settingsView.View()
	default:
		return m.dashboard.View()
	}
}
