// Package store keeps the contact collection and persists it through a
// pluggable backend.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/NullRecords/nullrecords-cms/pkg/contact"
	"github.com/NullRecords/nullrecords-cms/pkg/sources"
	"github.com/weppos/publicsuffix-go/publicsuffix"
)

var (
	// ErrNotFound is returned when a fingerprint is not in the store.
	ErrNotFound = errors.New("contact not found")
	// ErrCorrupt wraps records a backend could not decode.
	ErrCorrupt = errors.New("corrupt store data")
)

// Backend loads and saves contacts and source trackers.
type Backend interface {
	LoadContacts(ctx context.Context) ([]contact.Contact, error)
	SaveContact(ctx context.Context, c contact.Contact) error
	SaveContacts(ctx context.Context, cs []contact.Contact) error
	LoadSources(ctx context.Context) ([]sources.Tracker, error)
	SaveSource(ctx context.Context, t sources.Tracker) error
}

// Store is the in-memory contact collection. Every mutation is written
// through to the backend before it returns.
type Store struct {
	mu       sync.RWMutex
	backend  Backend
	contacts []contact.Contact
	index    map[string]int
}

// Open loads every contact from b. Stored fingerprints are kept as-is and
// only computed for records that lack one; later duplicates are dropped.
// A record that fails validation makes the whole load fail with ErrCorrupt.
func Open(ctx context.Context, b Backend) (*Store, error) {
	loaded, err := b.LoadContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}
	s := &Store{backend: b, index: make(map[string]int, len(loaded))}
	for _, c := range loaded {
		if c.Fingerprint == "" {
			c.Fingerprint = contact.Fingerprint(c.Name, c.Website, c.Email)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if _, dup := s.index[c.Fingerprint]; dup {
			continue
		}
		s.index[c.Fingerprint] = len(s.contacts)
		s.contacts = append(s.contacts, c)
	}
	return s, nil
}

// Backend returns the backend the store writes to.
func (s *Store) Backend() Backend { return s.backend }

// Len returns the number of contacts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contacts)
}

// All returns a copy of every contact in store order.
func (s *Store) All() []contact.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]contact.Contact, len(s.contacts))
	for i, c := range s.contacts {
		out[i] = c.Clone()
	}
	return out
}

// Get returns the contact with fingerprint fp.
func (s *Store) Get(fp string) (contact.Contact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[fp]
	if !ok {
		return contact.Contact{}, false
	}
	return s.contacts[i].Clone(), true
}

// Fingerprints returns the set of known fingerprints.
func (s *Store) Fingerprints() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.index))
	for fp := range s.index {
		out[fp] = true
	}
	return out
}

// Upsert inserts c unless its fingerprint is already known, in which case
// the stored record is left untouched and added is false. Use Update to
// change an existing record.
func (s *Store) Upsert(ctx context.Context, c contact.Contact) (added bool, err error) {
	if c.Fingerprint == "" {
		c.Fingerprint = contact.Fingerprint(c.Name, c.Website, c.Email)
	}
	if err := c.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[c.Fingerprint]; ok {
		return false, nil
	}
	if err := s.backend.SaveContact(ctx, c); err != nil {
		return false, fmt.Errorf("save contact %s: %w", c.Fingerprint, err)
	}
	s.index[c.Fingerprint] = len(s.contacts)
	s.contacts = append(s.contacts, c.Clone())
	return true, nil
}

// UpsertAll upserts every contact in cs and returns how many were new.
func (s *Store) UpsertAll(ctx context.Context, cs []contact.Contact) (int, error) {
	n := 0
	for _, c := range cs {
		added, err := s.Upsert(ctx, c)
		if err != nil {
			return n, err
		}
		if added {
			n++
		}
	}
	return n, nil
}

// Update replaces the stored contact with the same fingerprint.
func (s *Store) Update(ctx context.Context, c contact.Contact) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[c.Fingerprint]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, c.Fingerprint)
	}
	if err := s.backend.SaveContact(ctx, c); err != nil {
		return fmt.Errorf("save contact %s: %w", c.Fingerprint, err)
	}
	s.contacts[i] = c.Clone()
	return nil
}

// Modify applies fn to the stored contact with fingerprint fp and persists
// the result. The stored record is unchanged if fn fails.
func (s *Store) Modify(ctx context.Context, fp string, fn func(*contact.Contact) error) (contact.Contact, error) {
	c, ok := s.Get(fp)
	if !ok {
		return contact.Contact{}, fmt.Errorf("%w: %s", ErrNotFound, fp)
	}
	if err := fn(&c); err != nil {
		return contact.Contact{}, err
	}
	c.Fingerprint = fp
	if err := s.Update(ctx, c); err != nil {
		return contact.Contact{}, err
	}
	return c, nil
}

// Seed adds the built-in seed contacts that are not present yet.
func (s *Store) Seed(ctx context.Context, now time.Time) (int, error) {
	return s.UpsertAll(ctx, contact.Seeds(now))
}

// Find returns contacts matching q by fingerprint, name, email or the
// registrable domain of their website.
func (s *Store) Find(q string) []contact.Contact {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil
	}
	lq := strings.ToLower(q)
	qDomain := Domain(q)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.index[q]; ok {
		return []contact.Contact{s.contacts[i].Clone()}
	}
	var out []contact.Contact
	for _, c := range s.contacts {
		switch {
		case strings.ToLower(c.Name) == lq, strings.ToLower(c.Email) == lq:
		case qDomain != "" && Domain(c.Website) == qDomain:
		default:
			continue
		}
		out = append(out, c.Clone())
	}
	return out
}

// Sources loads the persisted source trackers.
func (s *Store) Sources(ctx context.Context) ([]sources.Tracker, error) {
	return s.backend.LoadSources(ctx)
}

// SaveSources persists trackers.
func (s *Store) SaveSources(ctx context.Context, ts []sources.Tracker) error {
	for _, t := range ts {
		if err := s.backend.SaveSource(ctx, t); err != nil {
			return fmt.Errorf("save source %s: %w", t.URL, err)
		}
	}
	return nil
}

// Domain returns the registrable domain of a URL or bare host, or "".
func Domain(raw string) string {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		if !strings.Contains(raw, ".") || strings.ContainsAny(raw, " @") {
			return ""
		}
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	d, err := publicsuffix.Domain(u.Hostname())
	if err != nil {
		return ""
	}
	return d
}
