package feed

import "github.com/dkrenn/clubwatch/internal/model"

// Severity selects the visual styling of a toast.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// severityFor maps notification priority to toast styling: high reads as an
// error, medium as a warning, everything else as informational.
func severityFor(p model.Priority) Severity {
	switch p {
	case model.PriorityHigh:
		return SeverityError
	case model.PriorityMedium:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Toast is a transient alert raised for a newly arrived notification. It
// carries the notification so the presenter can offer a click-through
// action.
type Toast struct {
	Severity     Severity
	Notification model.Notification
}

// Toaster presents transient alerts. Implemented by the UI layer.
type Toaster interface {
	Show(t Toast)
}

// Permission is the desktop notification permission state.
type Permission int

const (
	PermissionUndetermined Permission = iota
	PermissionGranted
	PermissionDenied
)

// DesktopNotifier is a platform desktop-notification facility. When
// permission is undetermined the store requests it and defers showing until
// granted; denied permission skips silently.
type DesktopNotifier interface {
	Permission() Permission

	// RequestPermission asks the platform for permission and invokes the
	// callback with the outcome, possibly asynchronously.
	RequestPermission(func(Permission))

	Show(title, body string) error
}
