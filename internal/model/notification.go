package model

import (
	"strings"
	"time"
)

// NotificationType identifies the kind of event a notification reports.
type NotificationType string

const (
	TypeMeetingScheduled       NotificationType = "meeting_scheduled"
	TypeMeetingCancelled       NotificationType = "meeting_cancelled"
	TypeMeetingReminder        NotificationType = "meeting_reminder"
	TypeReportDue              NotificationType = "report_due"
	TypeReportOverdue          NotificationType = "report_overdue"
	TypeTransactionCreated     NotificationType = "transaction_created"
	TypeTransactionUpdated     NotificationType = "transaction_updated"
	TypeTransactionDeleted     NotificationType = "transaction_deleted"
	TypeDonationReceived       NotificationType = "donation_received"
	TypeUserJoined             NotificationType = "user_joined"
	TypeUserLeft               NotificationType = "user_left"
	TypeAdminActionRequired    NotificationType = "admin_action_required"
	TypeOfficialLetterRequired NotificationType = "official_letter_required"
	TypeBudgetThreshold        NotificationType = "budget_threshold"
	TypeMonthlySummary         NotificationType = "monthly_summary"
)

// meetingPrefix marks the meeting event family. Meeting notifications are
// treated as broadcasts regardless of recipient targeting.
const meetingPrefix = "meeting"

// IsMeeting reports whether the type belongs to the meeting event family.
func (t NotificationType) IsMeeting() bool {
	return strings.HasPrefix(string(t), meetingPrefix)
}

// Priority is the notification severity level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Notification is a single feed entry as served by the association server.
// Records are created server-side only; the client mutates nothing but the
// Read flag, and even that is overwritten by the next poll's server values.
type Notification struct {
	// ID is the server-assigned identifier. IDs are issued monotonically
	// and double as the high-water mark for new-item detection.
	ID int64 `json:"id" db:"id"`

	Title   string `json:"title" db:"title"`
	Message string `json:"message" db:"message"`

	Type NotificationType `json:"notification_type" db:"notification_type"`

	Priority Priority `json:"priority" db:"priority"`

	// Read reflects server truth but is flipped optimistically on the
	// client when the user marks an item.
	Read bool `json:"read" db:"read"`

	// RequiresAction / ActionCompleted describe an outstanding task tied
	// to the notification.
	RequiresAction  bool `json:"requires_action" db:"requires_action"`
	ActionCompleted bool `json:"action_completed" db:"action_completed"`

	// Official letter workflow fields. The recipient is free text as
	// entered by the board member who raised the requirement.
	RequiresOfficialLetter  bool   `json:"requires_official_letter" db:"requires_official_letter"`
	OfficialLetterSent      bool   `json:"official_letter_sent" db:"official_letter_sent"`
	OfficialLetterRecipient string `json:"official_letter_recipient" db:"official_letter_recipient"`

	// Recipient and RecipientRole determine visibility: both nil means
	// broadcast, otherwise the notification targets a single user or a
	// role tag (possibly the literal "all").
	Recipient     *int64  `json:"recipient" db:"recipient"`
	RecipientRole *string `json:"recipient_role" db:"recipient_role"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// URL is an optional deep link. When empty, a destination is derived
	// from the notification type instead.
	URL string `json:"url,omitempty" db:"url"`
}

// Signature is the content identity of a notification, independent of its
// server id. The upstream feed is known to emit duplicate rows for the same
// logical event, so the client deduplicates on this triple.
type Signature struct {
	Title   string
	Message string
	Type    NotificationType
}

// Signature returns the content-dedup key for the notification.
func (n Notification) Signature() Signature {
	return Signature{Title: n.Title, Message: n.Message, Type: n.Type}
}
