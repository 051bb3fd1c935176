package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/NullRecords/nullrecords-cms/pkg/contact"
)

var rowColumns = []string{
	"name", "type", "email", "contact_form_url", "website", "submission_url",
	"description", "genre_focus", "status", "outreach_count", "last_outreach",
	"contacted_date", "response_received", "response_date", "response_content",
	"discovered_date", "source_url", "confidence_score",
}

var (
	contactColumns     = "fingerprint, " + strings.Join(rowColumns, ", ")
	insertColumns      = "fingerprint, position, " + strings.Join(rowColumns, ", ")
	insertPlaceholders = strings.TrimSuffix(strings.Repeat("?,", len(rowColumns)+2), ",")
	updateAssignments  = strings.Join(rowColumns, " = ?, ") + " = ?"
)

// contactRow is a contact in column order, ready to bind.
type contactRow []interface{}

func (r contactRow) values() []interface{} { return []interface{}(r) }

func (r contactRow) equal(o contactRow) bool { return reflect.DeepEqual(r, o) }

func encodeContact(c contact.Contact) (contactRow, error) {
	genres := c.GenreFocus
	if genres == nil {
		genres = []string{}
	}
	g, err := json.Marshal(genres)
	if err != nil {
		return nil, err
	}
	return contactRow{
		c.Name,
		string(c.Type),
		nullIfEmpty(c.Email),
		nullIfEmpty(c.ContactFormURL),
		nullIfEmpty(c.Website),
		nullIfEmpty(c.SubmissionURL),
		nullIfEmpty(c.Description),
		string(g),
		string(c.Status),
		c.OutreachCount,
		formatTime(c.LastOutreach),
		formatTime(c.ContactedDate),
		boolToInt(c.ResponseReceived),
		formatTime(c.ResponseDate),
		nullIfEmpty(c.ResponseContent),
		formatTime(&c.DiscoveredDate),
		nullIfEmpty(c.SourceURL),
		c.ConfidenceScore,
	}, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanContact(s scanner) (contact.Contact, error) {
	var (
		c                                  contact.Contact
		typ, status, genres, discovered    string
		email, form, website, submission   sql.NullString
		desc, respContent, sourceURL       sql.NullString
		lastOutreach, contacted, responded sql.NullString
		responseReceived                   int
	)
	err := s.Scan(&c.Fingerprint, &c.Name, &typ, &email, &form, &website, &submission,
		&desc, &genres, &status, &c.OutreachCount, &lastOutreach,
		&contacted, &responseReceived, &responded, &respContent,
		&discovered, &sourceURL, &c.ConfidenceScore)
	if err != nil {
		return contact.Contact{}, err
	}

	if c.Type, err = contact.ParseType(typ); err != nil {
		return contact.Contact{}, fmt.Errorf("contact %s: %w", c.Fingerprint, err)
	}
	if c.Status, err = contact.ParseStatus(status); err != nil {
		return contact.Contact{}, fmt.Errorf("contact %s: %w", c.Fingerprint, err)
	}
	if err := json.Unmarshal([]byte(genres), &c.GenreFocus); err != nil {
		return contact.Contact{}, fmt.Errorf("contact %s: genre_focus: %w", c.Fingerprint, err)
	}
	c.Email = email.String
	c.ContactFormURL = form.String
	c.Website = website.String
	c.SubmissionURL = submission.String
	c.Description = desc.String
	c.ResponseContent = respContent.String
	c.SourceURL = sourceURL.String
	c.ResponseReceived = responseReceived == 1
	c.LastOutreach = parseTime(lastOutreach)
	c.ContactedDate = parseTime(contacted)
	c.ResponseDate = parseTime(responded)
	if t := parseTime(sql.NullString{String: discovered, Valid: true}); t != nil {
		c.DiscoveredDate = *t
	}
	return c, nil
}

func getContact(ctx context.Context, tx *sql.Tx, fingerprint string) (contact.Contact, bool, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE fingerprint = ?`, fingerprint)
	c, err := scanContact(row)
	if err == sql.ErrNoRows {
		return contact.Contact{}, false, nil
	}
	if err != nil {
		return contact.Contact{}, false, err
	}
	return c, true, nil
}
