package eligibility

import (
	"fmt"
	"time"

	"github.com/NullRecords/nullrecords-cms/pkg/contact"
)

const (
	DefaultMaxOutreachPerContact = 4
	DefaultMinInterval           = 7 * 24 * time.Hour
)

// Filter decides which contacts may be contacted on a given day.
type Filter struct {
	MaxOutreachPerContact int
	MinInterval           time.Duration
}

// Default returns the filter with the standard limits.
func Default() Filter {
	return Filter{
		MaxOutreachPerContact: DefaultMaxOutreachPerContact,
		MinInterval:           DefaultMinInterval,
	}
}

// Eligible returns the contacts that pass every check, in input order.
// An empty types list means every type is allowed.
func (f Filter) Eligible(contacts []contact.Contact, now time.Time, types []contact.Type) []contact.Contact {
	out := make([]contact.Contact, 0, len(contacts))
	for _, c := range contacts {
		if f.Explain(c, now, types) == "" {
			out = append(out, c)
		}
	}
	return out
}

// Explain returns why c is not eligible, or "" when it is.
func (f Filter) Explain(c contact.Contact, now time.Time, types []contact.Type) string {
	if len(types) > 0 && !hasType(types, c.Type) {
		return fmt.Sprintf("type %s not targeted", c.Type)
	}
	if c.OutreachCount >= f.MaxOutreachPerContact {
		return fmt.Sprintf("outreach limit reached (%d/%d)", c.OutreachCount, f.MaxOutreachPerContact)
	}
	if c.LastOutreach != nil {
		if since := now.Sub(*c.LastOutreach); since < f.MinInterval {
			return fmt.Sprintf("contacted %s ago, interval is %s", since.Round(time.Hour), f.MinInterval)
		}
	}
	switch c.Status {
	case contact.StatusPending, contact.StatusContacted, contact.StatusManualSubmission:
	default:
		return fmt.Sprintf("status is %s", c.Status)
	}
	if !c.HasChannel() {
		return "no email or contact form"
	}
	return ""
}

func hasType(types []contact.Type, t contact.Type) bool {
	for _, want := range types {
		if want == t {
			return true
		}
	}
	return false
}
