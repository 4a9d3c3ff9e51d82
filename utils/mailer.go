package utils

import (
	"fmt"
	"strconv"

	"salescadence/models"

	"github.com/google/uuid"
	gomail "gopkg.in/gomail.v2"
)

// SMTPSettings holds one SMTP endpoint's connection details.
type SMTPSettings struct {
	Host     string
	Port     string
	Username string
	Password string
}

// Mailer delivers draft emails over SMTP. The primary dialer is tried
// first; when a fallback host is configured it picks up deliveries the
// primary rejected.
type Mailer struct {
	primary   *gomail.Dialer
	fallback  *gomail.Dialer
	fromName  string
	fromEmail string
}

func NewMailer(primary, fallback SMTPSettings, fromName, fromEmail string) *Mailer {
	m := &Mailer{
		primary:   dialerFor(primary),
		fromName:  fromName,
		fromEmail: fromEmail,
	}
	if fallback.Host != "" {
		m.fallback = dialerFor(fallback)
	}
	return m
}

func dialerFor(s SMTPSettings) *gomail.Dialer {
	port, err := strconv.Atoi(s.Port)
	if err != nil || port == 0 {
		port = 587
	}
	return gomail.NewDialer(s.Host, port, s.Username, s.Password)
}

// SendDraft delivers a draft to the given recipient and returns the
// Message-ID it was sent with.
func (m *Mailer) SendDraft(draft *models.EmailDraft, toEmail string) (string, error) {
	messageID := fmt.Sprintf("<%s@salescadence>", uuid.NewString())

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.fromEmail, m.fromName)
	msg.SetHeader("To", toEmail)
	msg.SetHeader("Subject", draft.Subject)
	msg.SetHeader("Message-ID", messageID)
	msg.SetBody("text/html", draft.Body)

	if err := m.primary.DialAndSend(msg); err != nil {
		if m.fallback == nil {
			return "", fmt.Errorf("sending draft %d: %w", draft.ID, err)
		}
		if fbErr := m.fallback.DialAndSend(msg); fbErr != nil {
			return "", fmt.Errorf("sending draft %d (fallback after %v): %w", draft.ID, err, fbErr)
		}
	}

	return messageID, nil
}
