package notification

import (
	"bytes"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"desktop_automation/domain/entities"

	"github.com/sirupsen/logrus"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func configured() SMTPConfig {
	return SMTPConfig{
		From:     "bot@example.com",
		To:       "dev@example.com",
		Server:   "smtp.example.com",
		Port:     2525,
		Username: "bot",
		Password: "secret",
	}
}

func newTestMailer(cfg SMTPConfig) (*Mailer, *[]sentMail, *bytes.Buffer) {
	var out bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&out)

	var sent []sentMail
	m := NewMailer(cfg, logger).WithSender(func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, sentMail{addr: addr, from: from, to: to, msg: string(msg)})
		return nil
	})
	m.now = func() time.Time { return time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC) }
	return m, &sent, &out
}

func TestNotifyError_Sends(t *testing.T) {
	m, sent, _ := newTestMailer(configured())
	m.NotifyError("click_text failed", "Play song")

	if len(*sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(*sent))
	}
	mail := (*sent)[0]
	if mail.addr != "smtp.example.com:2525" {
		t.Errorf("addr = %q", mail.addr)
	}
	if mail.from != "bot@example.com" || len(mail.to) != 1 || mail.to[0] != "dev@example.com" {
		t.Errorf("envelope = %q -> %v", mail.from, mail.to)
	}
	for _, want := range []string{
		"Subject: Automation Error: Play song\r\n",
		"Message-ID: <",
		"@example.com>",
		"Objective: Play song\r\n",
		"Error: click_text failed\r\n",
		"Timestamp: 2024-03-04T05:06:07Z",
	} {
		if !strings.Contains(mail.msg, want) {
			t.Errorf("message missing %q:\n%s", want, mail.msg)
		}
	}
}

func TestNotifyUnsupported_BatchesOneMail(t *testing.T) {
	m, sent, _ := newTestMailer(configured())
	m.NotifyUnsupported([]entities.UnsupportedObjective{
		{ID: "a", Name: "Shuffle", Reason: "No template"},
		{ID: "b", Name: "Lyrics"},
	})

	if len(*sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(*sent))
	}
	msg := (*sent)[0].msg
	if !strings.Contains(msg, "- Shuffle: No template\r\n") || !strings.Contains(msg, "- Lyrics: Unknown\r\n") {
		t.Fatalf("unexpected body:\n%s", msg)
	}
}

func TestNotifyUnsupported_EmptyListSendsNothing(t *testing.T) {
	m, sent, _ := newTestMailer(configured())
	m.NotifyUnsupported(nil)
	if len(*sent) != 0 {
		t.Fatalf("sent %d mails, want 0", len(*sent))
	}
}

func TestUnconfiguredMailerOnlyLogs(t *testing.T) {
	cfg := configured()
	cfg.Password = ""
	m, sent, out := newTestMailer(cfg)

	m.NotifyError("boom", "Pause")
	if len(*sent) != 0 {
		t.Fatalf("sent %d mails, want 0", len(*sent))
	}
	if !strings.Contains(out.String(), "EMAIL NOT CONFIGURED") {
		t.Fatalf("expected fallback log, got %q", out.String())
	}
}

func TestSendFailureIsLogged(t *testing.T) {
	m, _, out := newTestMailer(configured())
	m.WithSender(func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	})

	m.NotifyError("boom", "Pause")
	if !strings.Contains(out.String(), "connection refused") {
		t.Fatalf("expected send error in log, got %q", out.String())
	}
}

func TestSMTPConfigFromEnv(t *testing.T) {
	t.Setenv("FROM_EMAIL", "a@b.c")
	t.Setenv("TO_EMAIL", "d@e.f")
	t.Setenv("SMTP_SERVER", "mail")
	t.Setenv("SMTP_USERNAME", "u")
	t.Setenv("SMTP_PASSWORD", "p")
	t.Setenv("SMTP_PORT", "")

	cfg := SMTPConfigFromEnv()
	if !cfg.Configured() {
		t.Fatal("expected configured")
	}
	if cfg.Port != 587 {
		t.Fatalf("Port = %d, want 587", cfg.Port)
	}

	t.Setenv("SMTP_PORT", "465")
	if got := SMTPConfigFromEnv().Port; got != 465 {
		t.Fatalf("Port = %d, want 465", got)
	}
}
