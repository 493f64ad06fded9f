package settings

import (
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/dkrenn/clubwatch/internal/credential"
	"github.com/dkrenn/clubwatch/internal/model"
	"github.com/dkrenn/clubwatch/internal/theme"
)

// SavedMsg is sent when the settings form was completed and persisted.
type SavedMsg struct {
	Config *model.AppConfig
}

// CancelledMsg is sent when the settings form was aborted.
type CancelledMsg struct{}

// fields holds the form-bound values. The form keeps pointers into this
// struct, so it lives behind a pointer that survives Model copies.
type fields struct {
	baseURL      string
	interval     string
	userID       string
	role         int
	token        string
	letterOn     bool
	imapHost     string
	imapPort     string
	imapUser     string
	from         string
	imapPassword string
}

// Model is the settings form view.
type Model struct {
	form       *huh.Form
	cfg        *model.AppConfig
	configPath string
	vals       *fields
	width      int
	height     int
}

// New creates a settings form pre-filled from the current configuration.
func New(cfg *model.AppConfig, configPath string, width, height int) Model {
	vals := &fields{
		baseURL:  cfg.Server.BaseURL,
		interval: strconv.Itoa(cfg.Server.PollIntervalSec),
		userID:   strconv.FormatInt(cfg.User.ID, 10),
		role:     cfg.User.Role,
		letterOn: cfg.Letter.Enabled,
		imapHost: cfg.Letter.IMAPHost,
		imapPort: cfg.Letter.IMAPPort,
		imapUser: cfg.Letter.IMAPUsername,
		from:     cfg.Letter.From,
	}

	return Model{
		form:       buildForm(vals),
		cfg:        cfg,
		configPath: configPath,
		vals:       vals,
		width:      width,
		height:     height,
	}
}

func buildForm(vals *fields) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Notification API URL").
				Placeholder("https://verein.example.org/api/notifications").
				Value(&vals.baseURL),
			huh.NewInput().
				Title("Poll interval (seconds)").
				Value(&vals.interval).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("User id").
				Value(&vals.userID).
				Validate(validatePositiveInt),
			huh.NewSelect[int]().
				Title("Role").
				Options(
					huh.NewOption("President", 1),
					huh.NewOption("Treasurer", 2),
					huh.NewOption("Secretary", 3),
					huh.NewOption("Member", 4),
				).
				Value(&vals.role),
			huh.NewInput().
				Title("API token (leave blank to keep current)").
				EchoMode(huh.EchoModePassword).
				Value(&vals.token),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable official letter drafts?").
				Value(&vals.letterOn),
			huh.NewInput().
				Title("IMAP host").
				Value(&vals.imapHost),
			huh.NewInput().
				Title("IMAP port").
				Value(&vals.imapPort),
			huh.NewInput().
				Title("IMAP username").
				Value(&vals.imapUser),
			huh.NewInput().
				Title("From address").
				Value(&vals.from),
			huh.NewInput().
				Title("IMAP password (leave blank to keep current)").
				EchoMode(huh.EchoModePassword).
				Value(&vals.imapPassword),
		),
	)
}

func validatePositiveInt(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return fmt.Errorf("enter a positive number")
	}
	return nil
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages for the settings form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelledMsg{} }
	}

	if m.form.State == huh.StateCompleted {
		return m, m.save()
	}

	return m, cmd
}

// save applies the form values to the configuration and persists them.
func (m Model) save() tea.Cmd {
	vals := m.vals
	cfg := m.cfg
	configPath := m.configPath

	interval, _ := strconv.Atoi(vals.interval)
	userID, _ := strconv.ParseInt(vals.userID, 10, 64)

	cfg.Server.BaseURL = vals.baseURL
	cfg.Server.PollIntervalSec = interval
	cfg.User.ID = userID
	cfg.User.Role = vals.role
	cfg.Letter.Enabled = vals.letterOn
	cfg.Letter.IMAPHost = vals.imapHost
	cfg.Letter.IMAPPort = vals.imapPort
	cfg.Letter.IMAPUsername = vals.imapUser
	cfg.Letter.From = vals.from

	return func() tea.Msg {
		// Secrets go to the keyring, never the config file.
		if vals.token != "" {
			_ = credential.SetToken(vals.token)
		}
		if vals.imapPassword != "" {
			_ = credential.Set(credential.IMAPPasswordKey, vals.imapPassword)
		}
		_ = model.SaveConfig(configPath, cfg)
		return SavedMsg{Config: cfg}
	}
}

// View renders the settings form.
func (m Model) View() string {
	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(m.form.View())
}

// SetSize updates the settings view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
