// Package notification reports automation failures to a developer by email.
package notification

import (
	"fmt"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"strings"
	"time"

	"desktop_automation/domain/entities"
	"desktop_automation/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultSMTPPort = 587

// SMTPConfig holds mail delivery settings
type SMTPConfig struct {
	From     string
	To       string
	Server   string
	Port     int
	Username string
	Password string
}

// SMTPConfigFromEnv reads FROM_EMAIL, TO_EMAIL, SMTP_SERVER, SMTP_PORT,
// SMTP_USERNAME and SMTP_PASSWORD.
func SMTPConfigFromEnv() SMTPConfig {
	port := defaultSMTPPort
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			port = p
		}
	}
	return SMTPConfig{
		From:     os.Getenv("FROM_EMAIL"),
		To:       os.Getenv("TO_EMAIL"),
		Server:   os.Getenv("SMTP_SERVER"),
		Port:     port,
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
	}
}

// Configured reports whether every required setting is present.
func (c SMTPConfig) Configured() bool {
	return c.From != "" && c.To != "" && c.Server != "" && c.Username != "" && c.Password != ""
}

// SendFunc delivers a raw message; smtp.SendMail satisfies it
type SendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

type Mailer struct {
	cfg    SMTPConfig
	send   SendFunc
	now    func() time.Time
	logger *logrus.Logger
}

var _ interfaces.Notifier = (*Mailer)(nil)

// NewMailer - creates new email notifier; unconfigured mailers only log
func NewMailer(cfg SMTPConfig, logger *logrus.Logger) *Mailer {
	return &Mailer{
		cfg:    cfg,
		send:   smtp.SendMail,
		now:    time.Now,
		logger: logger,
	}
}

// WithSender - replaces the delivery function
func (m *Mailer) WithSender(send SendFunc) *Mailer {
	m.send = send
	return m
}

// NotifyError - sends an error report about an objective
func (m *Mailer) NotifyError(message, subject string) {
	body := fmt.Sprintf("Automation Error Report\n\nObjective: %s\nError: %s\nTimestamp: %s\n",
		subject, message, m.now().Format(time.RFC3339))
	m.deliver("Automation Error: "+subject, body)
}

// NotifyUnsupported - sends one report listing objectives that will not run
func (m *Mailer) NotifyUnsupported(objectives []entities.UnsupportedObjective) {
	if len(objectives) == 0 {
		return
	}

	var b strings.Builder
	b.WriteString("The following objectives are not supported:\n\n")
	for _, o := range objectives {
		reason := o.Reason
		if reason == "" {
			reason = "Unknown"
		}
		fmt.Fprintf(&b, "- %s: %s\n", o.Name, reason)
	}
	m.deliver("Unsupported Automation Objectives", b.String())
}

func (m *Mailer) deliver(subject, body string) {
	if !m.cfg.Configured() {
		m.logger.WithFields(logrus.Fields{
			"to":      m.cfg.To,
			"subject": subject,
		}).Warnf("[EMAIL NOT CONFIGURED - Message would have been sent]\n%s", body)
		return
	}

	addr := net.JoinHostPort(m.cfg.Server, strconv.Itoa(m.cfg.Port))
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Server)
	msg := m.compose(subject, body)

	if err := m.send(addr, auth, m.cfg.From, []string{m.cfg.To}, msg); err != nil {
		m.logger.WithField("subject", subject).Errorf("Failed to send email: %v\n%s", err, body)
		return
	}
	m.logger.Infof("Email sent successfully to %s", m.cfg.To)
}

func (m *Mailer) compose(subject, body string) []byte {
	domain := "localhost"
	if at := strings.LastIndex(m.cfg.From, "@"); at >= 0 && at < len(m.cfg.From)-1 {
		domain = m.cfg.From[at+1:]
	}

	headers := []string{
		"From: " + m.cfg.From,
		"To: " + m.cfg.To,
		"Subject: " + subject,
		"Date: " + m.now().Format(time.RFC1123Z),
		fmt.Sprintf("Message-ID: <%s@%s>", uuid.NewString(), domain),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
	}
	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + strings.ReplaceAll(body, "\n", "\r\n"))
}
