package dashboard

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dkrenn/clubwatch/internal/feed"
	"github.com/dkrenn/clubwatch/internal/keys"
	"github.com/dkrenn/clubwatch/internal/model"
	"github.com/dkrenn/clubwatch/internal/theme"
)

// DraftRequestedMsg is sent when the user asks for an official letter
// draft for the selected notification.
type DraftRequestedMsg struct {
	Notification model.Notification
}

// Model is the notification dashboard view.
type Model struct {
	list       list.Model
	store      *feed.Store
	keys       *keys.KeyMap
	unreadOnly bool
	width      int
	height     int
}

// New creates a new dashboard model over the feed store.
func New(store *feed.Store, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, Delegate{}, width, height)
	l.Title = "Notifications"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		store:  store,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Reload re-reads the feed store into the list, preserving the cursor
// where possible.
func (m *Model) Reload() {
	notifications := m.store.Notifications()

	items := make([]list.Item, 0, len(notifications))
	for _, n := range notifications {
		if m.unreadOnly && n.Read {
			continue
		}
		items = append(items, Item{Notification: n})
	}
	m.list.SetItems(items)
}

// Selected returns the notification under the cursor, if any.
func (m Model) Selected() (model.Notification, bool) {
	item, ok := m.list.SelectedItem().(Item)
	if !ok {
		return model.Notification{}, false
	}
	return item.Notification, true
}

// Update handles messages for the dashboard view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(keyMsg, m.keys.Open):
		if n, ok := m.Selected(); ok {
			store := m.store
			return m, func() tea.Msg {
				store.HandleClick(context.Background(), n)
				return nil
			}
		}
		return m, nil

	case key.Matches(keyMsg, m.keys.MarkRead):
		if n, ok := m.Selected(); ok {
			store := m.store
			id := n.ID
			return m, func() tea.Msg {
				store.MarkAsRead(context.Background(), id)
				return nil
			}
		}
		return m, nil

	case key.Matches(keyMsg, m.keys.MarkAll):
		store := m.store
		return m, func() tea.Msg {
			store.MarkAllAsRead(context.Background())
			return nil
		}

	case key.Matches(keyMsg, m.keys.Refresh):
		m.store.Refresh()
		return m, nil

	case key.Matches(keyMsg, m.keys.ToggleUnread):
		m.unreadOnly = !m.unreadOnly
		m.Reload()
		return m, nil

	case key.Matches(keyMsg, m.keys.Draft):
		if n, ok := m.Selected(); ok && n.RequiresOfficialLetter {
			return m, func() tea.Msg {
				return DraftRequestedMsg{Notification: n}
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the dashboard.
func (m Model) View() string {
	return m.list.View()
}

// SetSize updates the dashboard dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}
