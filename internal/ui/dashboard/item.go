package dashboard

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dkrenn/clubwatch/internal/model"
	"github.com/dkrenn/clubwatch/internal/theme"
)

// Item wraps a model.Notification so it can be used in a bubbles/list.
type Item struct {
	Notification model.Notification
}

// FilterValue returns the string used for fuzzy filtering.
func (i Item) FilterValue() string {
	return i.Notification.Title + " " + i.Notification.Message
}

// Delegate renders notification rows: an unread marker, the
// priority-coloured title, and a summary line with the type label and age.
type Delegate struct{}

// Height returns the number of lines a row occupies.
func (d Delegate) Height() int { return 2 }

// Spacing returns the number of blank lines between rows.
func (d Delegate) Spacing() int { return 1 }

// Update is a no-op; row state lives in the parent model.
func (d Delegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

// Render draws a single notification row.
func (d Delegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(Item)
	if !ok {
		return
	}
	n := item.Notification

	marker := "  "
	if !n.Read {
		marker = theme.UnreadMarkerStyle.Render("● ")
	}

	title := theme.PriorityStyle(string(n.Priority)).Render(n.Title)

	var flags []string
	if n.RequiresAction && !n.ActionCompleted {
		flags = append(flags, "action required")
	}
	if n.RequiresOfficialLetter && !n.OfficialLetterSent {
		flags = append(flags, "letter pending")
	}

	descParts := []string{
		strings.TrimSpace(theme.TypeLabelStyle(string(n.Type)).Render(typeLabel(n.Type))),
		relativeTime(n.CreatedAt),
	}
	descParts = append(descParts, flags...)
	desc := theme.HelpStyle.Render(strings.Join(descParts, " | "))

	line := marker + title
	descLine := "  " + desc

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
		descLine = theme.SelectedItemStyle.Render(descLine)
	} else {
		line = theme.ListItemStyle.Render(line)
		descLine = theme.ListItemStyle.Render(descLine)
	}

	fmt.Fprintf(w, "%s\n%s", line, descLine)
}

// typeLabel humanizes a notification type tag for display.
func typeLabel(t model.NotificationType) string {
	return strings.ReplaceAll(string(t), "_", " ")
}

// relativeTime formats a timestamp as a short age like "5m" or "3d".
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
