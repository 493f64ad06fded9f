package store

import (
	"context"

	"github.com/dkrenn/clubwatch/internal/model"
)

// NotificationFilter controls filtering and pagination for history queries.
type NotificationFilter struct {
	OnlyUnread bool
	Type       *string // notification_type value
	Query      *string // search title + message
	Limit      int
	Offset     int
}

// Store is the local notification history. It is a sink beside the
// in-memory feed view, kept so the dashboard can show the feed across
// restarts and offline.
type Store interface {
	UpsertNotifications(ctx context.Context, batch []model.Notification) error
	GetNotifications(ctx context.Context, filter NotificationFilter) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id int64) error
	MarkAllNotificationsRead(ctx context.Context) error
	CountUnread(ctx context.Context) (int, error)
}
