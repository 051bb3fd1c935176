// Package replies finds answers to outreach mail and marks the senders as
// responded.
package replies

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/NullRecords/nullrecords-cms/pkg/contact"
)

// Reply is one inbound message.
type Reply struct {
	From    string
	Subject string
	Date    time.Time
}

// Source lists replies received since a cutoff.
type Source interface {
	Replies(ctx context.Context, since time.Time) ([]Reply, error)
}

// Match pairs a contact with its earliest qualifying reply.
type Match struct {
	Fingerprint string
	Name        string
	Reply       Reply
}

// Modifier applies a change to a stored contact. *store.Store satisfies it.
type Modifier interface {
	Modify(ctx context.Context, fp string, fn func(*contact.Contact) error) (contact.Contact, error)
}

// awaiting reports whether c was reached and has not answered yet.
func awaiting(c contact.Contact) bool {
	switch c.Status {
	case contact.StatusContacted, contact.StatusManualSubmission:
		return c.Email != ""
	}
	return false
}

// MatchReplies pairs replies with the contacts they came from. Only contacts
// waiting for an answer are considered, and a reply older than the first
// contact date is ignored.
func MatchReplies(cs []contact.Contact, rs []Reply) []Match {
	byEmail := make(map[string]contact.Contact)
	for _, c := range cs {
		if awaiting(c) {
			byEmail[contact.NormalizeEmail(c.Email)] = c
		}
	}

	sorted := append([]Reply(nil), rs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	seen := make(map[string]bool)
	var out []Match
	for _, r := range sorted {
		c, ok := byEmail[contact.NormalizeEmail(r.From)]
		if !ok || seen[c.Fingerprint] {
			continue
		}
		if c.ContactedDate != nil && r.Date.Before(*c.ContactedDate) {
			continue
		}
		seen[c.Fingerprint] = true
		out = append(out, Match{Fingerprint: c.Fingerprint, Name: c.Name, Reply: r})
	}
	return out
}

// Record marks every matched contact as responded. The reply subject is
// kept as the response content.
func Record(ctx context.Context, st Modifier, ms []Match) (int, error) {
	n := 0
	for _, m := range ms {
		_, err := st.Modify(ctx, m.Fingerprint, func(c *contact.Contact) error {
			return c.RecordResponse(m.Reply.Date, strings.TrimSpace(m.Reply.Subject))
		})
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
