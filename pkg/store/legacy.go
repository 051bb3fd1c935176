package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/NullRecords/nullrecords-cms/pkg/contact"
	"github.com/NullRecords/nullrecords-cms/pkg/sources"
	"github.com/tidwall/gjson"
)

// legacyTimeLayouts covers the ISO timestamps written by the older outreach
// tool, which carry no zone.
var legacyTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ImportLegacyContacts parses a contacts file written by the older outreach
// tool. Unknown fields are ignored; bad records are reported and skipped.
func ImportLegacyContacts(data []byte, now time.Time) ([]contact.Contact, []error) {
	if !gjson.ValidBytes(data) {
		return nil, []error{fmt.Errorf("%w: not valid JSON", ErrCorrupt)}
	}
	root := gjson.ParseBytes(data)
	// Exports wrap the list in {"contacts": [...]}.
	if root.IsObject() && root.Get("contacts").IsArray() {
		root = root.Get("contacts")
	}
	if !root.IsArray() {
		return nil, []error{fmt.Errorf("%w: expected a JSON array of contacts", ErrCorrupt)}
	}

	var (
		out  []contact.Contact
		errs []error
	)
	root.ForEach(func(key, v gjson.Result) bool {
		c, err := legacyContact(v, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", key.Int(), err))
			return true
		}
		out = append(out, c)
		return true
	})
	return out, errs
}

func legacyContact(v gjson.Result, now time.Time) (contact.Contact, error) {
	typ, err := contact.ParseType(v.Get("type").String())
	if err != nil {
		return contact.Contact{}, err
	}
	status := contact.StatusPending
	if s := v.Get("status").String(); s != "" {
		if status, err = contact.ParseStatus(s); err != nil {
			return contact.Contact{}, err
		}
	}

	c := contact.Contact{
		Name:             strings.TrimSpace(v.Get("name").String()),
		Type:             typ,
		Email:            v.Get("email").String(),
		ContactFormURL:   v.Get("contact_form_url").String(),
		Website:          v.Get("website").String(),
		SubmissionURL:    v.Get("submission_url").String(),
		Description:      v.Get("description").String(),
		GenreFocus:       []string{},
		Status:           status,
		OutreachCount:    int(v.Get("outreach_count").Int()),
		LastOutreach:     legacyTime(v.Get("last_outreach")),
		ContactedDate:    legacyTime(v.Get("contacted_date")),
		ResponseReceived: v.Get("response_received").Bool(),
		ResponseDate:     legacyTime(v.Get("response_date")),
		ResponseContent:  v.Get("response_content").String(),
		SourceURL:        v.Get("source_url").String(),
		ConfidenceScore:  contact.DefaultConfidence,
		Fingerprint:      v.Get("contact_hash").String(),
	}
	if fp := v.Get("fingerprint").String(); c.Fingerprint == "" && fp != "" {
		c.Fingerprint = fp
	}
	if c.Fingerprint == "" {
		c.Fingerprint = contact.Fingerprint(c.Name, c.Website, c.Email)
	}
	if cs := v.Get("confidence_score"); cs.Exists() {
		c.ConfidenceScore = cs.Float()
	}
	for _, g := range v.Get("genre_focus").Array() {
		c.GenreFocus = append(c.GenreFocus, g.String())
	}
	if d := legacyTime(v.Get("discovered_date")); d != nil {
		c.DiscoveredDate = *d
	} else {
		c.DiscoveredDate = now.UTC()
	}
	if err := c.Validate(); err != nil {
		return contact.Contact{}, err
	}
	return c, nil
}

// ImportLegacySources parses a sources file written by the older tool.
func ImportLegacySources(data []byte) ([]sources.Tracker, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrCorrupt)
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: expected a JSON array of sources", ErrCorrupt)
	}
	var out []sources.Tracker
	var err error
	root.ForEach(func(_, v gjson.Result) bool {
		t := sources.Tracker{
			URL:           v.Get("url").String(),
			ContactsFound: int(v.Get("contacts_found").Int()),
			ScrapeCount:   int(v.Get("scrape_count").Int()),
			SuccessRate:   v.Get("success_rate").Float(),
			Status:        sources.StatusActive,
		}
		if t.URL == "" {
			return true
		}
		if s := v.Get("status").String(); s != "" {
			if t.Status, err = sources.ParseStatus(s); err != nil {
				return false
			}
		}
		if ts := legacyTime(v.Get("last_scraped")); ts != nil {
			t.LastScraped = *ts
		}
		out = append(out, t)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func legacyTime(v gjson.Result) *time.Time {
	s := strings.TrimSpace(v.String())
	if s == "" {
		return nil
	}
	for _, layout := range legacyTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
