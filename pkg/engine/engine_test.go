package engine

import (
	"context"
	"testing"
	"time"

	"github.com/NullRecords/nullrecords-cms/internal/utils"
	"github.com/NullRecords/nullrecords-cms/pkg/contact"
	"github.com/NullRecords/nullrecords-cms/pkg/discover"
	"github.com/NullRecords/nullrecords-cms/pkg/outreach"
	"github.com/NullRecords/nullrecords-cms/pkg/schedule"
	"github.com/NullRecords/nullrecords-cms/pkg/sources"
	"github.com/NullRecords/nullrecords-cms/pkg/storage"
	"github.com/NullRecords/nullrecords-cms/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeDiscoverer struct {
	reg        *sources.Registry
	candidates []contact.Contact
	gotMax     int
}

func (f *fakeDiscoverer) Sources() *sources.Registry { return f.reg }

func (f *fakeDiscoverer) Discover(_ context.Context, maxNew int, existing map[string]bool) (*discover.Result, error) {
	f.gotMax = maxNew
	res := &discover.Result{}
	for _, c := range f.candidates {
		f.reg.Record(c.SourceURL, sources.Attempt{Found: 1}, t0)
		if existing[c.Fingerprint] {
			res.Outcomes = append(res.Outcomes, discover.Outcome{URL: c.SourceURL, Kind: discover.KindDuplicate})
			continue
		}
		cc := c
		res.Outcomes = append(res.Outcomes, discover.Outcome{URL: c.SourceURL, Kind: discover.KindCandidate, Contact: &cc})
		res.Candidates = append(res.Candidates, c)
	}
	return res, nil
}

type countingMailer struct{ to []string }

func (m *countingMailer) Send(_ context.Context, to, _, _ string) bool {
	m.to = append(m.to, to)
	return true
}

func candidate(name string, conf float64) contact.Contact {
	return contact.MustNew(contact.Params{
		Name:       name,
		Type:       contact.TypePublication,
		Email:      "hello@" + name + ".com",
		SourceURL:  "https://" + name + ".com",
		Confidence: &conf,
	}, t0)
}

func newEngine(t *testing.T, b store.Backend, d Discoverer, m outreach.Mailer) (*Engine, *store.Store) {
	t.Helper()
	st, err := store.Open(context.Background(), b)
	require.NoError(t, err)
	cfg := Config{
		Store:    st,
		Outreach: outreach.Config{Mailer: m, Delay: utils.NoDelay},
		Now:      func() time.Time { return t0 },
		NewRunID: func() string { return "run-1" },
	}
	if d != nil {
		cfg.Discoverer = d
	}
	return New(cfg), st
}

func TestDiscoverAppliesThresholds(t *testing.T) {
	d := &fakeDiscoverer{
		reg: sources.NewRegistry(nil),
		candidates: []contact.Contact{
			candidate("strong", 0.9),
			candidate("edge", 0.6),
			candidate("weak", 0.55),
			candidate("junk", 0.3),
		},
	}
	b := store.NewMemoryBackend()
	e, st := newEngine(t, b, d, &countingMailer{})

	res, err := e.Discover(context.Background(), DefaultDiscoverLimit, false)
	require.NoError(t, err)
	assert.Equal(t, DefaultDiscoverLimit, d.gotMax)
	assert.Equal(t, 4, res.Discovered)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 2, res.BelowThreshold)
	assert.Len(t, res.Listed, 3)
	assert.Equal(t, 2, st.Len())

	ts, err := st.Sources(context.Background())
	require.NoError(t, err)
	assert.Len(t, ts, 4)
}

func TestDiscoverDryRunAddsNothing(t *testing.T) {
	d := &fakeDiscoverer{reg: sources.NewRegistry(nil), candidates: []contact.Contact{candidate("strong", 0.9)}}
	e, st := newEngine(t, store.NewMemoryBackend(), d, &countingMailer{})

	res, err := e.Discover(context.Background(), 5, true)
	require.NoError(t, err)
	assert.Len(t, res.Listed, 1)
	assert.Zero(t, res.Added)
	assert.Zero(t, st.Len())
}

func TestRunDiscoversThenSends(t *testing.T) {
	existing := contact.MustNew(contact.Params{Name: "Old", Type: contact.TypeCurator, Email: "old@old.co"}, t0)
	d := &fakeDiscoverer{reg: sources.NewRegistry(nil), candidates: []contact.Contact{candidate("strong", 0.9)}}
	m := &countingMailer{}
	e, st := newEngine(t, store.NewMemoryBackend(existing), d, m)

	sum, err := e.Run(context.Background(), Options{Discover: true})
	require.NoError(t, err)
	assert.Equal(t, "run-1", sum.RunID)
	assert.Equal(t, DefaultRunDiscovery, d.gotMax)
	assert.Equal(t, 1, sum.Added)
	assert.Equal(t, 2, sum.Eligible)
	assert.Equal(t, 2, sum.Scheduled)
	assert.Equal(t, 2, sum.Sent)
	assert.ElementsMatch(t, []string{"old@old.co", "hello@strong.com"}, m.to)

	for _, c := range st.All() {
		assert.Equal(t, 1, c.OutreachCount)
		assert.Equal(t, contact.StatusContacted, c.Status)
	}

	// Nothing is eligible again within the interval.
	sum, err = e.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Zero(t, sum.Eligible)
	assert.Len(t, m.to, 2)
}

func TestRunDryRunSkipsDiscoveryAndSends(t *testing.T) {
	existing := contact.MustNew(contact.Params{Name: "Old", Type: contact.TypeCurator, Email: "old@old.co"}, t0)
	d := &fakeDiscoverer{reg: sources.NewRegistry(nil), candidates: []contact.Contact{candidate("strong", 0.9)}}
	m := &countingMailer{}
	e, st := newEngine(t, store.NewMemoryBackend(existing), d, m)

	sum, err := e.Run(context.Background(), Options{Discover: true, DryRun: true})
	require.NoError(t, err)
	assert.Zero(t, d.gotMax)
	assert.Equal(t, 1, sum.Planned)
	assert.Empty(t, m.to)
	c, _ := st.Get(existing.Fingerprint)
	assert.Zero(t, c.OutreachCount)
}

func TestRunUsesDistribution(t *testing.T) {
	var cs []contact.Contact
	for _, n := range []string{"p1", "p2", "p3"} {
		cs = append(cs, candidate(n, 0.7))
	}
	cs = append(cs, contact.MustNew(contact.Params{Name: "c1", Type: contact.TypeCurator, Email: "c1@c.co"}, t0))
	m := &countingMailer{}
	e, _ := newEngine(t, store.NewMemoryBackend(cs...), nil, m)

	dist := schedule.Distribution{{Type: contact.TypePublication, Fraction: 0.5}, {Type: contact.TypeCurator, Fraction: 0.5}}
	sum, err := e.Run(context.Background(), Options{DailyCap: 2, Distribution: dist})
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Eligible)
	assert.Equal(t, 2, sum.Scheduled)
	assert.Equal(t, []string{"hello@p1.com", "c1@c.co"}, m.to)
}

func TestRunSubmitsSearchEngines(t *testing.T) {
	e, st := newEngine(t, store.NewMemoryBackend(), nil, &countingMailer{})
	_, err := st.Seed(context.Background(), t0)
	require.NoError(t, err)

	sum, err := e.Run(context.Background(), Options{SubmitSearchEngines: true, Types: []contact.Type{contact.TypeSearchEngine}})
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Submitted)
	for _, c := range st.All() {
		if c.Type == contact.TypeSearchEngine {
			assert.Equal(t, contact.StatusManualSubmission, c.Status)
		}
	}
}

func TestRunRecordsHistoryInSQLite(t *testing.T) {
	db, err := storage.Open(t.TempDir() + "/outreach.sqlite")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.SaveContact(ctx, contact.MustNew(contact.Params{Name: "Old", Type: contact.TypeCurator, Email: "old@old.co"}, t0)))

	e, _ := newEngine(t, db, nil, &countingMailer{})
	_, err = e.Run(ctx, Options{})
	require.NoError(t, err)

	runs, err := db.ListRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Contains(t, runs[0].Summary, `"sent":1`)

	changes, err := db.ListRecentChanges(ctx, 1)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "run-1", changes[0].RunID)
	assert.Equal(t, "contacted", changes[0].ToStatus)
}
