package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dkrenn/clubwatch/internal/feed"
)

func TestNavigate(t *testing.T) {
	tests := []struct {
		name   string
		target feed.Target
		want   string
	}{
		{
			name:   "deep link used verbatim",
			target: feed.Target{URL: "https://verein.example.org/meetings/5"},
			want:   "https://verein.example.org/meetings/5",
		},
		{
			name:   "view resolved against web base",
			target: feed.Target{View: feed.ViewFinance},
			want:   "https://verein.example.org/finance",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opened string
			b := NewBrowser("https://verein.example.org/", nil)
			b.open = func(url string) error {
				opened = url
				return nil
			}

			b.Navigate(tt.target)
			assert.Equal(t, tt.want, opened)
		})
	}
}
