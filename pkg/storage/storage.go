package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/NullRecords/nullrecords-cms/pkg/contact"
	"github.com/NullRecords/nullrecords-cms/pkg/sources"
	_ "modernc.org/sqlite"
)

type DB struct {
	sql   *sql.DB
	runID string
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS contacts (
  fingerprint       TEXT PRIMARY KEY,
  position          INTEGER NOT NULL,
  name              TEXT NOT NULL,
  type              TEXT NOT NULL,
  email             TEXT,
  contact_form_url  TEXT,
  website           TEXT,
  submission_url    TEXT,
  description       TEXT,
  genre_focus       TEXT NOT NULL DEFAULT '[]',
  status            TEXT NOT NULL,
  outreach_count    INTEGER NOT NULL DEFAULT 0 CHECK (outreach_count >= 0),
  last_outreach     TEXT,
  contacted_date    TEXT,
  response_received INTEGER NOT NULL DEFAULT 0 CHECK (response_received IN (0,1)),
  response_date     TEXT,
  response_content  TEXT,
  discovered_date   TEXT NOT NULL,
  source_url        TEXT,
  confidence_score  REAL NOT NULL CHECK (confidence_score BETWEEN 0 AND 1),
  updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_contacts_type ON contacts(type);
CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts(email);
CREATE TABLE IF NOT EXISTS contact_changes (
  id           INTEGER PRIMARY KEY,
  occurred_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  run_id       TEXT,
  fingerprint  TEXT NOT NULL,
  name         TEXT NOT NULL,
  type         TEXT NOT NULL,
  from_status  TEXT,
  to_status    TEXT NOT NULL,
  outreach_count INTEGER NOT NULL,
  change_type  TEXT NOT NULL CHECK (change_type IN ('added','updated','status'))
);
CREATE INDEX IF NOT EXISTS idx_changes_time ON contact_changes(occurred_at);
CREATE INDEX IF NOT EXISTS idx_changes_contact ON contact_changes(fingerprint, occurred_at);
CREATE TABLE IF NOT EXISTS sources (
  url            TEXT PRIMARY KEY,
  last_scraped   TEXT,
  contacts_found INTEGER NOT NULL DEFAULT 0,
  scrape_count   INTEGER NOT NULL DEFAULT 0,
  success_rate   REAL NOT NULL DEFAULT 0,
  status         TEXT NOT NULL CHECK (status IN ('active','exhausted','blocked','error'))
);
CREATE TABLE IF NOT EXISTS opt_outs (
  email      TEXT PRIMARY KEY,
  reason     TEXT,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS runs (
  id          TEXT PRIMARY KEY,
  started_at  TEXT NOT NULL,
  finished_at TEXT NOT NULL,
  dry_run     INTEGER NOT NULL CHECK (dry_run IN (0,1)),
  summary     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// SetRunID tags every change logged from now on with id.
func (d *DB) SetRunID(id string) { d.runID = id }

// LoadContacts returns every contact in insertion order.
func (d *DB) LoadContacts(ctx context.Context) ([]contact.Contact, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT `+contactColumns+` FROM contacts ORDER BY position, fingerprint`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []contact.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveContact inserts or updates one contact and logs the change.
func (d *DB) SaveContact(ctx context.Context, c contact.Contact) error {
	return d.SaveContacts(ctx, []contact.Contact{c})
}

// SaveContacts upserts cs in one transaction. Unchanged rows are left alone.
func (d *DB) SaveContacts(ctx context.Context, cs []contact.Contact) (err error) {
	if len(cs) == 0 {
		return nil
	}
	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var next int64
	if err = tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(position), -1) + 1 FROM contacts").Scan(&next); err != nil {
		return err
	}

	for _, c := range cs {
		if c.Fingerprint == "" {
			err = fmt.Errorf("contact %q has no fingerprint", c.Name)
			return err
		}
		row, gerr := encodeContact(c)
		if gerr != nil {
			err = gerr
			return err
		}

		old, found, gerr := getContact(ctx, tx, c.Fingerprint)
		if gerr != nil {
			err = gerr
			return err
		}
		if !found {
			args := append([]interface{}{c.Fingerprint, next}, row.values()...)
			if _, err = tx.ExecContext(ctx, `INSERT INTO contacts(`+insertColumns+`) VALUES(`+insertPlaceholders+`)`, args...); err != nil {
				return err
			}
			next++
			if err = d.logChange(ctx, tx, c, "", "added"); err != nil {
				return err
			}
			continue
		}

		oldRow, gerr := encodeContact(old)
		if gerr != nil {
			err = gerr
			return err
		}
		if oldRow.equal(row) {
			continue
		}
		args := append(row.values(), c.Fingerprint)
		if _, err = tx.ExecContext(ctx, `UPDATE contacts SET `+updateAssignments+`, updated_at = CURRENT_TIMESTAMP WHERE fingerprint = ?`, args...); err != nil {
			return err
		}
		kind := "updated"
		if old.Status != c.Status {
			kind = "status"
		}
		if err = d.logChange(ctx, tx, c, string(old.Status), kind); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) logChange(ctx context.Context, tx *sql.Tx, c contact.Contact, from, kind string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO contact_changes(occurred_at, run_id, fingerprint, name, type, from_status, to_status, outreach_count, change_type) VALUES(CURRENT_TIMESTAMP, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullIfEmpty(d.runID), c.Fingerprint, c.Name, string(c.Type), nullIfEmpty(from), string(c.Status), c.OutreachCount, kind)
	return err
}

// LoadSources returns every source tracker ordered by URL.
func (d *DB) LoadSources(ctx context.Context) ([]sources.Tracker, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT url, last_scraped, contacts_found, scrape_count, success_rate, status FROM sources ORDER BY url")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sources.Tracker
	for rows.Next() {
		var (
			t       sources.Tracker
			scraped sql.NullString
			status  string
		)
		if err := rows.Scan(&t.URL, &scraped, &t.ContactsFound, &t.ScrapeCount, &t.SuccessRate, &status); err != nil {
			return nil, err
		}
		if t.Status, err = sources.ParseStatus(status); err != nil {
			return nil, err
		}
		if ts := parseTime(scraped); ts != nil {
			t.LastScraped = *ts
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SaveSource inserts or replaces one tracker.
func (d *DB) SaveSource(ctx context.Context, t sources.Tracker) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO sources(url, last_scraped, contacts_found, scrape_count, success_rate, status) VALUES(?,?,?,?,?,?)
ON CONFLICT(url) DO UPDATE SET last_scraped = excluded.last_scraped, contacts_found = excluded.contacts_found,
  scrape_count = excluded.scrape_count, success_rate = excluded.success_rate, status = excluded.status`,
		t.URL, formatTime(timePtrOrNil(t.LastScraped)), t.ContactsFound, t.ScrapeCount, t.SuccessRate, string(t.Status))
	return err
}

// ListRecentChanges returns the most recent N contact changes.
func (d *DB) ListRecentChanges(ctx context.Context, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 50
	}
	q := "SELECT occurred_at, run_id, fingerprint, name, type, from_status, to_status, outreach_count, change_type FROM contact_changes ORDER BY occurred_at DESC, id DESC LIMIT ?"
	rows, err := d.sql.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := []Change{}
	for rows.Next() {
		var (
			c             Change
			occurredAtStr string
			runID, from   sql.NullString
		)
		if err := rows.Scan(&occurredAtStr, &runID, &c.Fingerprint, &c.Name, &c.Type, &from, &c.ToStatus, &c.OutreachCount, &c.ChangeType); err != nil {
			return nil, err
		}
		c.OccurredAt = parseTimestamp(occurredAtStr)
		c.RunID = runID.String
		c.FromStatus = from.String
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return changes, nil
}

// GetStats returns per-type contact counts.
func (d *DB) GetStats(ctx context.Context) ([]TypeStats, error) {
	query := `
		SELECT
			type,
			COUNT(*),
			SUM(CASE WHEN outreach_count > 0 THEN 1 ELSE 0 END),
			SUM(response_received),
			SUM(CASE WHEN status = 'rejected' THEN 1 ELSE 0 END)
		FROM
			contacts
		GROUP BY
			type
		ORDER BY
			type;
	`
	rows, err := d.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []TypeStats
	for rows.Next() {
		var s TypeStats
		if err := rows.Scan(&s.Type, &s.Contacts, &s.Reached, &s.Responded, &s.Rejected); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

func parseTimestamp(s string) time.Time {
	// SQLite CURRENT_TIMESTAMP format, then RFC3339
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
