package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dkrenn/clubwatch/internal/model"
)

func TestTargetFor(t *testing.T) {
	tests := []struct {
		name string
		n    model.Notification
		want Target
	}{
		{
			name: "explicit url wins",
			n: model.Notification{
				Type: model.TypeMeetingScheduled,
				URL:  "https://verein.example.org/meetings/5",
			},
			want: Target{URL: "https://verein.example.org/meetings/5"},
		},
		{
			name: "meeting types go to meetings",
			n:    model.Notification{Type: model.TypeMeetingReminder},
			want: Target{View: ViewMeetings},
		},
		{
			name: "transactions go to finance",
			n:    model.Notification{Type: model.TypeTransactionDeleted},
			want: Target{View: ViewFinance},
		},
		{
			name: "donations go to finance",
			n:    model.Notification{Type: model.TypeDonationReceived},
			want: Target{View: ViewFinance},
		},
		{
			name: "member churn goes to members",
			n:    model.Notification{Type: model.TypeUserLeft},
			want: Target{View: ViewMembers},
		},
		{
			name: "everything else goes to notifications",
			n:    model.Notification{Type: model.TypeMonthlySummary},
			want: Target{View: ViewNotifications},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TargetFor(tt.n))
		})
	}
}
