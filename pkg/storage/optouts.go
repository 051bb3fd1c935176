package storage

import (
	"context"
	"fmt"

	"github.com/NullRecords/nullrecords-cms/pkg/contact"
)

// AddOptOut records that email must not be contacted again.
func (d *DB) AddOptOut(ctx context.Context, email, reason string) error {
	email = contact.NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("empty email")
	}
	_, err := d.sql.ExecContext(ctx, `INSERT INTO opt_outs(email, reason) VALUES(?, ?)
ON CONFLICT(email) DO UPDATE SET reason = excluded.reason`, email, nullIfEmpty(reason))
	return err
}

// RemoveOptOut deletes an opt-out.
func (d *DB) RemoveOptOut(ctx context.Context, email string) error {
	res, err := d.sql.ExecContext(ctx, "DELETE FROM opt_outs WHERE email = ?", contact.NormalizeEmail(email))
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("opt-out not found")
	}
	return nil
}

// IsOptedOut reports whether email has opted out.
func (d *DB) IsOptedOut(ctx context.Context, email string) (bool, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM opt_outs WHERE email = ?", contact.NormalizeEmail(email)).Scan(&n)
	return n > 0, err
}

// ListOptOuts returns every opt-out ordered by address.
func (d *DB) ListOptOuts(ctx context.Context) ([]OptOut, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT email, COALESCE(reason, ''), created_at FROM opt_outs ORDER BY email")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OptOut
	for rows.Next() {
		var (
			o       OptOut
			created string
		)
		if err := rows.Scan(&o.Email, &o.Reason, &created); err != nil {
			return nil, err
		}
		o.CreatedAt = parseTimestamp(created)
		out = append(out, o)
	}
	return out, rows.Err()
}
