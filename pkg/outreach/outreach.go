// Package outreach sends scheduled messages and records what happened on
// each contact.
package outreach

import (
	"context"
	"fmt"
	"time"

	"github.com/NullRecords/nullrecords-cms/internal/utils"
	"github.com/NullRecords/nullrecords-cms/pkg/contact"
)

const (
	DefaultMinDelay = 2 * time.Second
	DefaultMaxDelay = 5 * time.Second
)

// Mailer delivers one message. A false return is an ordinary failure.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) bool
}

// FormNotifier is told about contacts that need a manual form submission.
type FormNotifier interface {
	Notify(ctx context.Context, c contact.Contact)
}

// Persister writes a mutated contact back. *store.Store satisfies it.
type Persister interface {
	Update(ctx context.Context, c contact.Contact) error
}

// OptOuts answers whether an address asked not to be contacted.
type OptOuts interface {
	IsOptedOut(ctx context.Context, email string) (bool, error)
}

// StaticOptOuts is an in-memory opt-out list.
type StaticOptOuts map[string]bool

// NewStaticOptOuts normalizes emails into a StaticOptOuts.
func NewStaticOptOuts(emails ...string) StaticOptOuts {
	s := make(StaticOptOuts, len(emails))
	for _, e := range emails {
		if e = contact.NormalizeEmail(e); e != "" {
			s[e] = true
		}
	}
	return s
}

func (s StaticOptOuts) IsOptedOut(_ context.Context, email string) (bool, error) {
	return s[contact.NormalizeEmail(email)], nil
}

// OptOutList consults several registries in order.
type OptOutList []OptOuts

func (l OptOutList) IsOptedOut(ctx context.Context, email string) (bool, error) {
	for _, o := range l {
		if o == nil {
			continue
		}
		out, err := o.IsOptedOut(ctx, email)
		if err != nil || out {
			return out, err
		}
	}
	return false, nil
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

// LogNotifier reports manual submissions through a Logger.
type LogNotifier struct {
	Log Logger
}

func (n LogNotifier) Notify(_ context.Context, c contact.Contact) {
	if n.Log == nil {
		return
	}
	n.Log.Infof("Manual submission required for %s: %s", c.Name, c.ContactFormURL)
}

// Kind classifies what happened to one scheduled contact.
type Kind string

const (
	KindSent      Kind = "sent"
	KindFailed    Kind = "failed"
	KindManual    Kind = "manual"
	KindOptedOut  Kind = "opted_out"
	KindNoChannel Kind = "no_channel"
	KindPlanned   Kind = "planned"
)

// Outcome is the result for one contact.
type Outcome struct {
	Fingerprint string
	Name        string
	Kind        Kind
	Message     Message
}

// Summary collects the outcomes of one batch.
type Summary struct {
	Outcomes []Outcome
}

// Count returns how many outcomes are of kind k.
func (s *Summary) Count(k Kind) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Kind == k {
			n++
		}
	}
	return n
}

func (s *Summary) add(c contact.Contact, k Kind, m Message) {
	s.Outcomes = append(s.Outcomes, Outcome{Fingerprint: c.Fingerprint, Name: c.Name, Kind: k, Message: m})
}

// Config holds an Executor's collaborators. Mailer and Store are required
// unless DryRun is set.
type Config struct {
	Mailer   Mailer
	Notifier FormNotifier // defaults to LogNotifier
	Store    Persister
	OptOuts  OptOuts // optional
	Composer *Composer

	// Delay runs between two sends. Nil means a random 2-5s pause.
	Delay  utils.Delay
	Now    func() time.Time
	Log    Logger
	DryRun bool
}

// Executor works through a scheduled send list.
type Executor struct {
	cfg Config
}

// NewExecutor fills defaults and returns an Executor.
func NewExecutor(cfg Config) *Executor {
	if cfg.Log == nil {
		cfg.Log = nopLogger{}
	}
	if cfg.Notifier == nil {
		cfg.Notifier = LogNotifier{Log: cfg.Log}
	}
	if cfg.Composer == nil {
		cfg.Composer = NewComposer(DefaultPressKit())
	}
	if cfg.Delay == nil {
		cfg.Delay = utils.Jitter(DefaultMinDelay, DefaultMaxDelay)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Executor{cfg: cfg}
}

// Execute contacts every target in order. A failed send is recorded and the
// batch continues; a persistence error or cancellation stops it and is
// returned together with the outcomes so far.
func (e *Executor) Execute(ctx context.Context, targets []contact.Contact) (*Summary, error) {
	sum := &Summary{}
	acted := false

	for _, c := range targets {
		if !c.HasChannel() {
			e.cfg.Log.Warnf("No email or contact form for %s", c.Name)
			sum.add(c, KindNoChannel, Message{})
			continue
		}
		msg := e.cfg.Composer.Compose(c)

		if c.Email != "" && e.cfg.OptOuts != nil {
			out, err := e.cfg.OptOuts.IsOptedOut(ctx, c.Email)
			if err != nil {
				return sum, fmt.Errorf("check opt-out for %s: %w", c.Name, err)
			}
			if out {
				e.cfg.Log.Infof("Skipping %s: %s opted out", c.Name, c.Email)
				sum.add(c, KindOptedOut, msg)
				continue
			}
		}

		if e.cfg.DryRun {
			e.cfg.Log.Infof("[DRY RUN] Would contact %s (%s) - attempt #%d, confidence %.2f", c.Name, c.Type, c.OutreachCount+1, c.ConfidenceScore)
			e.cfg.Log.Infof("Subject: %s", msg.Subject)
			e.cfg.Log.Debugf("Body preview: %s...", utils.Truncate(msg.Body, 200))
			sum.add(c, KindPlanned, msg)
			continue
		}

		if acted {
			if err := e.cfg.Delay(ctx); err != nil {
				return sum, err
			}
		}
		acted = true

		kind, err := e.contact(ctx, c, msg)
		if err != nil {
			return sum, err
		}
		sum.add(c, kind, msg)
	}
	return sum, nil
}

func (e *Executor) contact(ctx context.Context, c contact.Contact, msg Message) (Kind, error) {
	if c.Email == "" {
		c.RecordManualSubmission(e.cfg.Now())
		if err := e.persist(ctx, c); err != nil {
			return "", err
		}
		e.cfg.Notifier.Notify(ctx, c)
		return KindManual, nil
	}

	if !e.cfg.Mailer.Send(ctx, c.Email, msg.Subject, msg.Body) {
		e.cfg.Log.Errorf("Failed to email %s", c.Name)
		return KindFailed, nil
	}
	c.RecordSend(e.cfg.Now())
	if err := e.persist(ctx, c); err != nil {
		return "", err
	}
	e.cfg.Log.Infof("Emailed %s (attempt #%d)", c.Name, c.OutreachCount)
	return KindSent, nil
}

func (e *Executor) persist(ctx context.Context, c contact.Contact) error {
	if err := e.cfg.Store.Update(ctx, c); err != nil {
		return fmt.Errorf("persist %s: %w", c.Name, err)
	}
	return nil
}
