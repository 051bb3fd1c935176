package storage

import "time"

// Change captures a single contact change for auditing or printing.
type Change struct {
	OccurredAt time.Time
	RunID      string

	Fingerprint   string
	Name          string
	Type          string
	FromStatus    string
	ToStatus      string
	OutreachCount int
	ChangeType    string // added | updated | status
}

// TypeStats summarizes the contacts of one type.
type TypeStats struct {
	Type      string
	Contacts  int
	Reached   int
	Responded int
	Rejected  int
}

// OptOut is an address that must never be emailed.
type OptOut struct {
	Email     string
	Reason    string
	CreatedAt time.Time
}

// Run is the stored record of one outreach run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	DryRun     bool
	Summary    string // JSON
}
