// Package nav opens notification targets in the system browser.
package nav

import (
	"context"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"

	"github.com/dkrenn/clubwatch/internal/feed"
)

// Browser navigates by opening the target in the system web browser. View
// targets resolve against the association server's web application.
type Browser struct {
	webBase string
	logger  *slog.Logger
	open    func(url string) error
}

// NewBrowser creates a Browser navigator. webBase is the root URL of the
// server's web application (e.g. https://verein.example.org).
func NewBrowser(webBase string, logger *slog.Logger) *Browser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Browser{
		webBase: strings.TrimRight(webBase, "/"),
		logger:  logger,
		open:    openURL,
	}
}

// Navigate opens the target's deep link, or the web page for its view.
func (b *Browser) Navigate(t feed.Target) {
	url := t.URL
	if url == "" {
		url = b.webBase + "/" + string(t.View)
	}

	if err := b.open(url); err != nil {
		b.logger.LogAttrs(context.Background(), slog.LevelWarn,
			"opening browser failed",
			slog.String("url", url),
			slog.Any("error", err),
		)
	}
}

// openURL launches the platform URL opener.
func openURL(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
