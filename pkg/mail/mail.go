// Package mail delivers outreach messages over SMTP.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the OS keyring service holding SMTP passwords.
	KeyringService = "nullrecords-outreach"

	DefaultPort        = 587
	DefaultDialTimeout = 30 * time.Second
)

// Security selects how the connection is protected.
type Security string

const (
	StartTLS Security = "starttls"
	TLS      Security = "tls"
	// Plain is unencrypted and only meant for local relays.
	Plain Security = "none"
)

// Config describes an SMTP account.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string // looked up in the keyring when empty
	From        string
	FromName    string
	Bcc         string // blind copy of every message, optional
	Security    Security
	DialTimeout time.Duration
}

// Logger abstracts logging so callers can use logrus or anything else with
// the same methods.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// SMTP sends mail through one account. Every failure, including bad
// configuration, is reported as an unsuccessful send.
type SMTP struct {
	cfg Config
	log Logger
	now func() time.Time
}

// NewSMTP returns a mailer for cfg.
func NewSMTP(cfg Config, log Logger) *SMTP {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Security == "" {
		cfg.Security = StartTLS
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if log == nil {
		log = nopLogger{}
	}
	return &SMTP{cfg: cfg, log: log, now: time.Now}
}

// Send implements outreach.Mailer.
func (s *SMTP) Send(ctx context.Context, to, subject, body string) bool {
	if err := s.send(ctx, to, subject, body); err != nil {
		s.log.Errorf("Email sending to %s failed: %v", to, err)
		return false
	}
	s.log.Debugf("Sent email to %s", to)
	return true
}

func (s *SMTP) send(ctx context.Context, to, subject, body string) error {
	if s.cfg.Host == "" || s.cfg.From == "" {
		return errors.New("smtp host and from address must be configured")
	}
	msg, err := BuildMessage(s.cfg.FromName, s.cfg.From, to, subject, body, s.now())
	if err != nil {
		return err
	}

	var auth sasl.Client
	if s.cfg.Username != "" {
		pw, err := s.password()
		if err != nil {
			return err
		}
		auth = sasl.NewPlainClient("", s.cfg.Username, pw)
	}

	c, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	c.CommandTimeout = s.cfg.DialTimeout
	c.SubmissionTimeout = s.cfg.DialTimeout

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	rcpts := []string{to}
	if s.cfg.Bcc != "" {
		rcpts = append(rcpts, s.cfg.Bcc)
	}
	if err := c.SendMail(s.cfg.From, rcpts, bytes.NewReader(msg)); err != nil {
		return err
	}
	return c.Quit()
}

func (s *SMTP) dial(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	d := net.Dialer{Timeout: s.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	tlsConfig := &tls.Config{ServerName: s.cfg.Host}

	switch s.cfg.Security {
	case TLS:
		return smtp.NewClient(tls.Client(conn, tlsConfig)), nil
	case Plain:
		return smtp.NewClient(conn), nil
	default:
		c, err := smtp.NewClientStartTLS(conn, tlsConfig)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("starttls %s: %w", addr, err)
		}
		return c, nil
	}
}

func (s *SMTP) password() (string, error) {
	if s.cfg.Password != "" {
		return s.cfg.Password, nil
	}
	pw, err := keyring.Get(KeyringService, s.cfg.Username)
	if err != nil {
		return "", fmt.Errorf("no password configured and keyring lookup failed: %w", err)
	}
	return pw, nil
}

// StorePassword saves the password for user in the OS keyring.
func StorePassword(user, password string) error {
	return keyring.Set(KeyringService, user, password)
}

// BuildMessage renders a plain-text RFC 5322 message.
func BuildMessage(fromName, from, to, subject, body string, date time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{{Name: fromName, Address: from}})
	h.SetAddressList("To", []*mail.Address{{Address: to}})
	h.SetSubject(subject)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, body); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LogMailer only logs messages and reports success. It stands in when no
// SMTP account is configured.
type LogMailer struct {
	Log Logger
}

func (m LogMailer) Send(_ context.Context, to, subject, _ string) bool {
	if m.Log != nil {
		m.Log.Infof("[PLACEHOLDER] Would send email to %s", to)
		m.Log.Infof("Subject: %s", subject)
	}
	return true
}
