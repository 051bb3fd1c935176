package contact

import (
	"fmt"
	"strings"
	"time"
)

// Type is the category of an outreach target.
type Type string

const (
	TypeSearchEngine Type = "search_engine"
	TypeAIService    Type = "ai_service"
	TypePlatform     Type = "platform"
	TypePublication  Type = "publication"
	TypeInfluencer   Type = "influencer"
	TypeCurator      Type = "curator"
	TypeLabel        Type = "label"
	TypeDatabase     Type = "database"
)

// AllTypes returns every contact type in canonical order.
func AllTypes() []Type {
	return []Type{
		TypeSearchEngine,
		TypeAIService,
		TypePlatform,
		TypePublication,
		TypeInfluencer,
		TypeCurator,
		TypeLabel,
		TypeDatabase,
	}
}

// ParseType accepts a type name case-insensitively.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range AllTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown contact type %q", s)
}

// Status is the outreach state of a contact.
type Status string

const (
	StatusPending          Status = "pending"
	StatusContacted        Status = "contacted"
	StatusResponded        Status = "responded"
	StatusManualSubmission Status = "manual_submission_required"
	StatusIndexed          Status = "indexed"
	StatusRejected         Status = "rejected"
)

// AllStatuses returns every status in lattice order.
func AllStatuses() []Status {
	return []Status{
		StatusPending,
		StatusContacted,
		StatusManualSubmission,
		StatusResponded,
		StatusIndexed,
		StatusRejected,
	}
}

// ParseStatus accepts a status name case-insensitively.
func ParseStatus(s string) (Status, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, st := range AllStatuses() {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown contact status %q", s)
}

// rank places a status in the transition lattice. Rejected is handled
// separately since it is reachable from anywhere.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusContacted, StatusManualSubmission:
		return 1
	case StatusResponded, StatusIndexed:
		return 2
	}
	return -1
}

// Contact is a single outreach target.
type Contact struct {
	Name           string   `json:"name"`
	Type           Type     `json:"type"`
	Email          string   `json:"email,omitempty"`
	ContactFormURL string   `json:"contact_form_url,omitempty"`
	Website        string   `json:"website,omitempty"`
	SubmissionURL  string   `json:"submission_url,omitempty"`
	Description    string   `json:"description,omitempty"`
	GenreFocus     []string `json:"genre_focus"`

	Status        Status     `json:"status"`
	OutreachCount int        `json:"outreach_count"`
	LastOutreach  *time.Time `json:"last_outreach,omitempty"`
	ContactedDate *time.Time `json:"contacted_date,omitempty"`

	ResponseReceived bool       `json:"response_received"`
	ResponseDate     *time.Time `json:"response_date,omitempty"`
	ResponseContent  string     `json:"response_content,omitempty"`

	DiscoveredDate  time.Time `json:"discovered_date"`
	SourceURL       string    `json:"source_url,omitempty"`
	ConfidenceScore float64   `json:"confidence_score"`
	Fingerprint     string    `json:"fingerprint"`
}

// HasChannel reports whether the contact can be reached at all.
func (c *Contact) HasChannel() bool {
	return strings.TrimSpace(c.Email) != "" || strings.TrimSpace(c.ContactFormURL) != ""
}

// Clone returns a deep copy.
func (c Contact) Clone() Contact {
	out := c
	if c.GenreFocus != nil {
		out.GenreFocus = append([]string(nil), c.GenreFocus...)
	}
	out.LastOutreach = cloneTime(c.LastOutreach)
	out.ContactedDate = cloneTime(c.ContactedDate)
	out.ResponseDate = cloneTime(c.ResponseDate)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}
