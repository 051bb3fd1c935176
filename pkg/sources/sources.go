package sources

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// Status describes how useful a scraped source still is.
type Status string

const (
	StatusActive    Status = "active"
	StatusExhausted Status = "exhausted"
	StatusBlocked   Status = "blocked"
	StatusError     Status = "error"
)

// ExhaustAfter is the number of empty scrapes after which a source is
// considered exhausted.
const ExhaustAfter = 3

// ParseStatus accepts a status name case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusActive:
		return StatusActive, nil
	case StatusExhausted:
		return StatusExhausted, nil
	case StatusBlocked:
		return StatusBlocked, nil
	case StatusError:
		return StatusError, nil
	}
	return "", fmt.Errorf("unknown source status %q", s)
}

// Tracker records the scrape history of one URL.
type Tracker struct {
	URL           string    `json:"url"`
	LastScraped   time.Time `json:"last_scraped"`
	ContactsFound int       `json:"contacts_found"`
	ScrapeCount   int       `json:"scrape_count"`
	SuccessRate   float64   `json:"success_rate"`
	Status        Status    `json:"status"`
}

// Attempt is the result of a single scrape of a source.
type Attempt struct {
	Found      int
	Err        error
	StatusCode int
}

// Apply folds one scrape attempt into the tracker.
func (t *Tracker) Apply(a Attempt, now time.Time) {
	t.ScrapeCount++
	t.LastScraped = now.UTC()
	if a.Found > 0 {
		t.ContactsFound += a.Found
	}
	t.SuccessRate = float64(t.ContactsFound) / float64(t.ScrapeCount)

	switch {
	case a.StatusCode == 403 || a.StatusCode == 429:
		t.Status = StatusBlocked
	case a.Err != nil:
		t.Status = StatusError
	case t.ContactsFound == 0 && t.ScrapeCount >= ExhaustAfter:
		t.Status = StatusExhausted
	default:
		t.Status = StatusActive
	}
}

// Skippable reports whether the source should not be scraped again.
func (t *Tracker) Skippable() bool {
	return t.Status == StatusBlocked || t.Status == StatusExhausted
}

// Registry holds trackers keyed by URL. The zero value is not usable; use
// NewRegistry.
type Registry struct {
	mu       sync.Mutex
	trackers map[string]*Tracker
	dirty    map[string]bool
}

// NewRegistry builds a registry from previously stored trackers.
func NewRegistry(existing []Tracker) *Registry {
	r := &Registry{
		trackers: make(map[string]*Tracker, len(existing)),
		dirty:    make(map[string]bool),
	}
	for i := range existing {
		t := existing[i]
		t.URL = NormalizeURL(t.URL)
		r.trackers[t.URL] = &t
	}
	return r
}

// Record applies an attempt to the tracker for raw, creating it on first use,
// and returns a copy of the updated tracker.
func (r *Registry) Record(raw string, a Attempt, now time.Time) Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := NormalizeURL(raw)
	t, ok := r.trackers[key]
	if !ok {
		t = &Tracker{URL: key, Status: StatusActive}
		r.trackers[key] = t
	}
	t.Apply(a, now)
	r.dirty[key] = true
	return *t
}

// ShouldSkip reports whether raw is known to be blocked or exhausted.
func (r *Registry) ShouldSkip(raw string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[NormalizeURL(raw)]
	return ok && t.Skippable()
}

// Get returns the tracker for raw.
func (r *Registry) Get(raw string) (Tracker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[NormalizeURL(raw)]
	if !ok {
		return Tracker{}, false
	}
	return *t, true
}

// All returns every tracker sorted by URL.
func (r *Registry) All() []Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Tracker, 0, len(r.trackers))
	for _, t := range r.trackers {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

// Dirty returns the trackers changed since the last call and resets the set.
func (r *Registry) Dirty() []Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Tracker, 0, len(r.dirty))
	for key := range r.dirty {
		out = append(out, *r.trackers[key])
	}
	r.dirty = make(map[string]bool)
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

// Counts returns the number of trackers per status.
func (r *Registry) Counts() map[Status]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[Status]int)
	for _, t := range r.trackers {
		out[t.Status]++
	}
	return out
}

// NormalizeURL canonicalizes a source URL so that trivially different
// spellings share one tracker.
func NormalizeURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return s
	}
	u.Host = strings.ToLower(u.Host)
	if u.Scheme == "http" && u.Port() == "80" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" && u.Port() == "443" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	if strings.HasSuffix(u.Path, "/") && len(u.Path) > 1 {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	u.Fragment = ""
	return u.String()
}
