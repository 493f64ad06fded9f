package letter

import (
	"context"
	"fmt"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/dkrenn/clubwatch/internal/model"
)

// Mailbox files drafts into an IMAP mailbox. A fresh connection is made per
// save; drafts are rare enough that connection reuse is not worth the
// session bookkeeping.
type Mailbox struct {
	host     string
	port     string
	username string
	password string
	tls      bool
	mailbox  string
}

// NewMailbox creates a Mailbox from the letter configuration and the IMAP
// password retrieved from the keyring.
func NewMailbox(cfg model.LetterConfig, password string) *Mailbox {
	mailbox := cfg.DraftsMailbox
	if mailbox == "" {
		mailbox = "Drafts"
	}

	return &Mailbox{
		host:     cfg.IMAPHost,
		port:     cfg.IMAPPort,
		username: cfg.IMAPUsername,
		password: password,
		tls:      cfg.TLS,
		mailbox:  mailbox,
	}
}

// connect establishes a connection to the IMAP server and authenticates.
// The caller is responsible for calling Logout on the returned client.
func (m *Mailbox) connect(_ context.Context) (*imapclient.Client, error) {
	addr := m.host + ":" + m.port

	var client *imapclient.Client
	var err error

	if m.tls {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(m.username, m.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authenticating %s: %w", m.username, err)
	}

	return client, nil
}

// SaveDraft renders the draft and appends it to the drafts mailbox with the
// \Draft flag set.
func (m *Mailbox) SaveDraft(ctx context.Context, d *Draft) error {
	msg, err := d.Bytes()
	if err != nil {
		return err
	}

	client, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	appendCmd := client.Append(m.mailbox, int64(len(msg)), &imap.AppendOptions{
		Flags: []imap.Flag{imap.FlagDraft},
	})
	if _, err := appendCmd.Write(msg); err != nil {
		return fmt.Errorf("writing draft to %s: %w", m.mailbox, err)
	}
	if err := appendCmd.Close(); err != nil {
		return fmt.Errorf("closing append to %s: %w", m.mailbox, err)
	}
	if _, err := appendCmd.Wait(); err != nil {
		return fmt.Errorf("appending draft to %s: %w", m.mailbox, err)
	}

	return nil
}
