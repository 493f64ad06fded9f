package main

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dkrenn/clubwatch/internal/alert"
	"github.com/dkrenn/clubwatch/internal/api"
	"github.com/dkrenn/clubwatch/internal/app"
	"github.com/dkrenn/clubwatch/internal/credential"
	"github.com/dkrenn/clubwatch/internal/feed"
	"github.com/dkrenn/clubwatch/internal/letter"
	"github.com/dkrenn/clubwatch/internal/model"
	"github.com/dkrenn/clubwatch/internal/nav"
	"github.com/dkrenn/clubwatch/internal/roles"
	"github.com/dkrenn/clubwatch/internal/store"
	appsync "github.com/dkrenn/clubwatch/internal/sync"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "clubwatch: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := model.DefaultConfigPath()
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	appDir := filepath.Dir(configPath)
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	logger, logFile, err := openLogger(filepath.Join(appDir, "clubwatch.log"))
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	creds := credential.KeyringSource{}
	client := api.NewClient(cfg.Server.BaseURL, creds)
	poller := appsync.New(client, appsync.WithLogger(logger))

	history, err := store.NewSQLiteStore(filepath.Join(appDir, "clubwatch.db"))
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}
	defer history.Close()

	notifier := app.NewNotifier()

	session := feed.Session{
		UserID: cfg.User.ID,
		Role:   roles.Role(cfg.User.Role),
	}

	feedStore := feed.New(poller, session,
		feed.WithInterval(time.Duration(cfg.Server.PollIntervalSec)*time.Second),
		feed.WithToaster(notifier),
		feed.WithDesktopNotifier(alert.NewNotifySend()),
		feed.WithNavigator(nav.NewBrowser(webBase(cfg.Server.BaseURL), logger)),
		feed.WithHistory(history),
		feed.WithLogger(logger),
		feed.WithOnChange(notifier.FeedChanged),
	)

	mailbox := openMailbox(cfg, logger)

	root := app.New(cfg, configPath, feedStore, notifier, mailbox, client)
	program := tea.NewProgram(root, tea.WithAltScreen())

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// openLogger opens a file-backed structured logger. The TUI owns the
// terminal, so nothing may log to stdout or stderr while it runs.
func openLogger(path string) (*slog.Logger, *os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return slog.New(slog.NewTextHandler(f, nil)), f, nil
}

// openMailbox creates the drafts mailbox when official letters are
// configured. Returns nil when disabled or when no password is stored.
func openMailbox(cfg *model.AppConfig, logger *slog.Logger) *letter.Mailbox {
	if !cfg.Letter.Enabled {
		return nil
	}

	password, err := credential.Get(credential.IMAPPasswordKey)
	if err != nil || password == "" {
		logger.Warn("official letters enabled but no IMAP password stored")
		return nil
	}

	return letter.NewMailbox(cfg.Letter, password)
}

// webBase derives the browser-facing site root from the API base URL.
func webBase(apiBase string) string {
	u, err := url.Parse(apiBase)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return apiBase
	}
	return u.Scheme + "://" + u.Host
}
