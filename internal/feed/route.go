package feed

import (
	"strings"

	"github.com/dkrenn/clubwatch/internal/model"
)

// View is a destination page within the association admin application.
type View string

const (
	ViewMeetings      View = "meetings"
	ViewFinance       View = "finance"
	ViewMembers       View = "members"
	ViewNotifications View = "notifications"
)

// Target is a resolved navigation destination. A non-empty URL is an
// explicit deep link and takes precedence over the derived view.
type Target struct {
	View View
	URL  string
}

// Navigator performs the actual navigation. Implemented by the UI layer.
type Navigator interface {
	Navigate(t Target)
}

// TargetFor resolves where clicking a notification should lead: its
// explicit deep link when present, otherwise a view derived from the
// notification type.
func TargetFor(n model.Notification) Target {
	if n.URL != "" {
		return Target{URL: n.URL}
	}

	switch {
	case n.Type.IsMeeting():
		return Target{View: ViewMeetings}
	case strings.HasPrefix(string(n.Type), "transaction"),
		n.Type == model.TypeDonationReceived:
		return Target{View: ViewFinance}
	case n.Type == model.TypeUserJoined, n.Type == model.TypeUserLeft:
		return Target{View: ViewMembers}
	default:
		return Target{View: ViewNotifications}
	}
}
