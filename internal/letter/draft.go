// Package letter prepares official-letter email drafts for notifications
// that require one and files them into an IMAP Drafts mailbox.
package letter

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/dkrenn/clubwatch/internal/model"
)

// Draft is a plain text official letter ready to be filed as an email
// draft and finished by hand.
type Draft struct {
	From    string
	To      string // empty when the recipient is not an email address
	Subject string
	Body    string
}

// DraftFor builds a letter draft from a notification. The notification must
// carry the official-letter requirement; the recipient is free text and is
// used as the To address only when it looks like one.
func DraftFor(n model.Notification, from string) (*Draft, error) {
	if !n.RequiresOfficialLetter {
		return nil, fmt.Errorf("notification %d does not require an official letter", n.ID)
	}
	if n.OfficialLetterSent {
		return nil, fmt.Errorf("official letter for notification %d was already sent", n.ID)
	}

	recipient := strings.TrimSpace(n.OfficialLetterRecipient)

	var to string
	if strings.Contains(recipient, "@") {
		to = recipient
	}

	subject := "Official letter: " + n.Title

	var body strings.Builder
	if recipient != "" {
		fmt.Fprintf(&body, "Dear %s,\n\n", recipient)
	}
	body.WriteString(n.Message)
	body.WriteString("\n\n")
	fmt.Fprintf(&body, "(Prepared from notification #%d, %s.)\n",
		n.ID, n.CreatedAt.Format("2006-01-02"))

	return &Draft{
		From:    from,
		To:      to,
		Subject: subject,
		Body:    body.String(),
	}, nil
}

// Bytes renders the draft as an RFC 5322 message.
func (d *Draft) Bytes() ([]byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetSubject(d.Subject)
	if d.From != "" {
		h.SetAddressList("From", []*mail.Address{{Address: d.From}})
	}
	if d.To != "" {
		h.SetAddressList("To", []*mail.Address{{Address: d.To}})
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}
	if _, err := io.WriteString(w, d.Body); err != nil {
		w.Close()
		return nil, fmt.Errorf("writing message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing message: %w", err)
	}

	return buf.Bytes(), nil
}
