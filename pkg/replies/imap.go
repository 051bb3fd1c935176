package replies

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/zalando/go-keyring"

	"github.com/NullRecords/nullrecords-cms/pkg/mail"
)

const (
	DefaultMailbox = "INBOX"
	DefaultMax     = 200
	defaultPort    = "993"
)

// IMAP reads replies from a mailbox without marking them seen.
type IMAP struct {
	Addr     string // host or host:port, port 993 when omitted
	Username string
	Password string // looked up in the keyring when empty
	Mailbox  string
	Max      int
}

// KeyringAccount is the keyring account the IMAP password is stored under.
func KeyringAccount(username string) string {
	return "imap:" + username
}

func (m *IMAP) password() (string, error) {
	if m.Password != "" {
		return m.Password, nil
	}
	pw, err := keyring.Get(mail.KeyringService, KeyringAccount(m.Username))
	if err != nil || strings.TrimSpace(pw) == "" {
		return "", errors.New("imap password not found (set it in the keyring or config)")
	}
	return pw, nil
}

// Replies implements Source.
func (m *IMAP) Replies(ctx context.Context, since time.Time) ([]Reply, error) {
	if m.Addr == "" || m.Username == "" {
		return nil, errors.New("imap addr and username are required")
	}
	pw, err := m.password()
	if err != nil {
		return nil, err
	}
	addr := m.Addr
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, defaultPort)
	}
	host, _, _ := net.SplitHostPort(addr)

	c, err := imapclient.DialTLS(addr, &imapclient.Options{
		TLSConfig: &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host},
	})
	if err != nil {
		return nil, fmt.Errorf("imap dial tls: %w", err)
	}
	defer c.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-done:
		}
	}()

	if err := c.Login(m.Username, pw).Wait(); err != nil {
		return nil, fmt.Errorf("imap login: %w", err)
	}
	defer func() { _ = c.Logout().Wait() }()

	mailbox := m.Mailbox
	if mailbox == "" {
		mailbox = DefaultMailbox
	}
	if _, err := c.Select(mailbox, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		return nil, fmt.Errorf("imap select %q: %w", mailbox, err)
	}

	data, err := c.UIDSearch(&imap.SearchCriteria{Since: since}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap uid search: %w", err)
	}
	uids := data.AllUIDs()
	limit := m.Max
	if limit <= 0 {
		limit = DefaultMax
	}
	if len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}
	if len(uids) == 0 {
		return nil, nil
	}

	cmd := c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{UID: true, Envelope: true})
	defer func() { _ = cmd.Close() }()

	var out []Reply
	for {
		msg := cmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			return nil, fmt.Errorf("imap fetch collect: %w", err)
		}
		if buf.Envelope == nil {
			continue
		}
		for _, a := range buf.Envelope.From {
			out = append(out, Reply{From: a.Addr(), Subject: buf.Envelope.Subject, Date: buf.Envelope.Date})
		}
	}
	if err := cmd.Close(); err != nil {
		return nil, fmt.Errorf("imap fetch close: %w", err)
	}
	return out, nil
}
