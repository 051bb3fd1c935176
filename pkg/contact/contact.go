package contact

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultConfidence is assigned when a contact is created without a score.
const DefaultConfidence = 0.5

// ErrInvalidTransition is returned when a status change would move a
// contact backwards in the lattice or out of rejected.
var ErrInvalidTransition = errors.New("invalid status transition")

var validate = validator.New()

// Params are the accepted inputs for building a Contact. Anything not listed
// here cannot be set at construction time.
type Params struct {
	Name           string   `validate:"required,max=200"`
	Type           Type     `validate:"required,oneof=search_engine ai_service platform publication influencer curator label database"`
	Email          string   `validate:"omitempty,email"`
	ContactFormURL string   `validate:"omitempty,url"`
	Website        string   `validate:"omitempty,url"`
	SubmissionURL  string   `validate:"omitempty,url"`
	Description    string   `validate:"max=1000"`
	GenreFocus     []string `validate:"max=10,dive,required"`
	SourceURL      string   `validate:"omitempty,url"`
	Confidence     *float64 `validate:"omitempty,min=0,max=1"`

	// DiscoveredDate defaults to the construction time.
	DiscoveredDate time.Time
}

// New validates p and returns a pending Contact with its fingerprint set.
func New(p Params, now time.Time) (Contact, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	p.ContactFormURL = strings.TrimSpace(p.ContactFormURL)
	p.Website = strings.TrimSpace(p.Website)

	if err := validate.Struct(p); err != nil {
		return Contact{}, validationError(err)
	}

	c := Contact{
		Name:            p.Name,
		Type:            p.Type,
		Email:           p.Email,
		ContactFormURL:  p.ContactFormURL,
		Website:         p.Website,
		SubmissionURL:   p.SubmissionURL,
		Description:     p.Description,
		GenreFocus:      append([]string{}, p.GenreFocus...),
		Status:          StatusPending,
		DiscoveredDate:  p.DiscoveredDate,
		SourceURL:       p.SourceURL,
		ConfidenceScore: DefaultConfidence,
	}
	if p.Confidence != nil {
		c.ConfidenceScore = *p.Confidence
	}
	if c.DiscoveredDate.IsZero() {
		c.DiscoveredDate = now.UTC()
	}
	c.Fingerprint = Fingerprint(c.Name, c.Website, c.Email)
	return c, nil
}

// MustNew is New for static data that is known to be valid.
func MustNew(p Params, now time.Time) Contact {
	c, err := New(p, now)
	if err != nil {
		panic(err)
	}
	return c
}

// Fingerprint is the identity key of a contact: the first 12 hex chars of the
// MD5 of lowercase(name + "_" + (website or email or "")).
func Fingerprint(name, website, email string) string {
	ref := website
	if ref == "" {
		ref = email
	}
	id := strings.ToLower(name + "_" + ref)
	sum := md5.Sum([]byte(id))
	return hex.EncodeToString(sum[:])[:12]
}

// NormalizeEmail canonicalizes an address for comparisons and opt-out
// lookups.
func NormalizeEmail(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	return strings.TrimPrefix(s, "mailto:")
}

// ValidEmail reports whether s would be accepted as a contact's email.
func ValidEmail(s string) bool {
	return validate.Var(strings.TrimSpace(s), "required,email") == nil
}

// Validate checks the invariants of a stored contact.
func (c *Contact) Validate() error {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	if _, err := ParseType(string(c.Type)); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := ParseStatus(string(c.Status)); err != nil {
		errs = append(errs, err.Error())
	}
	if c.OutreachCount < 0 {
		errs = append(errs, "outreach_count must be >= 0")
	}
	if c.ConfidenceScore < 0 || c.ConfidenceScore > 1 {
		errs = append(errs, "confidence_score must be within [0,1]")
	}
	if c.Fingerprint == "" {
		errs = append(errs, "fingerprint is required")
	}
	if len(errs) > 0 {
		return fmt.Errorf("contact %q: %s", c.Name, strings.Join(errs, "; "))
	}
	return nil
}

// Advance moves the contact to status to if the lattice allows it.
func (c *Contact) Advance(to Status) error {
	if c.Status == to {
		return nil
	}
	if c.Status == StatusRejected {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, StatusRejected)
	}
	if to == StatusRejected {
		c.Status = to
		return nil
	}
	if to.rank() < 0 || to.rank() <= c.Status.rank() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, to)
	}
	c.Status = to
	return nil
}

// RecordSend applies a successful email send at now.
func (c *Contact) RecordSend(now time.Time) {
	c.OutreachCount++
	c.LastOutreach = timePtr(now)
	if c.OutreachCount == 1 {
		_ = c.Advance(StatusContacted)
		if c.ContactedDate == nil {
			c.ContactedDate = timePtr(now)
		}
	}
}

// RecordManualSubmission flags a form-only contact for manual follow-up.
func (c *Contact) RecordManualSubmission(now time.Time) {
	c.OutreachCount++
	c.LastOutreach = timePtr(now)
	_ = c.Advance(StatusManualSubmission)
	if c.ContactedDate == nil {
		c.ContactedDate = timePtr(now)
	}
}

// RecordResponse marks a reply from the contact.
func (c *Contact) RecordResponse(now time.Time, content string) error {
	if err := c.Advance(StatusResponded); err != nil {
		return err
	}
	c.ResponseReceived = true
	c.ResponseDate = timePtr(now)
	if content != "" {
		c.ResponseContent = content
	}
	return nil
}

// Reject retires the contact permanently.
func (c *Contact) Reject() {
	_ = c.Advance(StatusRejected)
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", strings.ToLower(fe.Field()), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid contact: %s", strings.Join(msgs, ", "))
}
