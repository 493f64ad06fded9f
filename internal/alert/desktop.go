// Package alert provides desktop notification delivery for the feed.
package alert

import (
	"os/exec"
	gosync "sync"

	"github.com/dkrenn/clubwatch/internal/feed"
)

// NotifySend shows desktop notifications through the freedesktop
// notify-send tool. Permission maps onto tool availability: present means
// granted, absent means denied. There is no interactive prompt to run, so a
// permission request resolves immediately.
type NotifySend struct {
	once    gosync.Once
	path    string
	lookErr error
}

// NewNotifySend creates a desktop notifier.
func NewNotifySend() *NotifySend {
	return &NotifySend{}
}

func (n *NotifySend) resolve() {
	n.once.Do(func() {
		n.path, n.lookErr = exec.LookPath("notify-send")
	})
}

// Permission reports whether desktop notifications can be shown.
func (n *NotifySend) Permission() feed.Permission {
	n.resolve()
	if n.lookErr != nil {
		return feed.PermissionDenied
	}
	return feed.PermissionGranted
}

// RequestPermission resolves the tool lookup and reports the outcome.
func (n *NotifySend) RequestPermission(fn func(feed.Permission)) {
	fn(n.Permission())
}

// Show displays a desktop notification.
func (n *NotifySend) Show(title, body string) error {
	n.resolve()
	if n.lookErr != nil {
		return n.lookErr
	}
	return exec.Command(n.path, "--app-name=clubwatch", title, body).Run()
}
