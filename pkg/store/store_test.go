package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/NullRecords/nullrecords-cms/pkg/contact"
	"github.com/NullRecords/nullrecords-cms/pkg/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mk(name string, typ contact.Type, email string) contact.Contact {
	return contact.MustNew(contact.Params{Name: name, Type: typ, Email: email}, t0)
}

func TestUpsertLeavesExistingUntouched(t *testing.T) {
	ctx := context.Background()
	orig := mk("Pitchfork", contact.TypePublication, "tips@pitchfork.com")
	orig.RecordSend(t0)

	s, err := Open(ctx, NewMemoryBackend(orig))
	require.NoError(t, err)

	dup := mk("PITCHFORK", contact.TypeCurator, "tips@pitchfork.com")
	added, err := s.Upsert(ctx, dup)
	require.NoError(t, err)
	assert.False(t, added)

	got, ok := s.Get(orig.Fingerprint)
	require.True(t, ok)
	assert.Equal(t, contact.TypePublication, got.Type)
	assert.Equal(t, 1, got.OutreachCount)
	assert.Equal(t, 1, s.Len())
}

func TestUpsertAllCountsNew(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	s, err := Open(ctx, b)
	require.NoError(t, err)

	n, err := s.UpsertAll(ctx, []contact.Contact{
		mk("A", contact.TypeLabel, "a@a.co"),
		mk("B", contact.TypeLabel, "b@b.co"),
		mk("a", contact.TypeLabel, "A@a.co"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, b.Saves)
}

func TestUpsertRejectsInvalid(t *testing.T) {
	s, err := Open(context.Background(), NewMemoryBackend())
	require.NoError(t, err)
	_, err = s.Upsert(context.Background(), contact.Contact{Name: "x", Type: "nope"})
	assert.Error(t, err)
	assert.Zero(t, s.Len())
}

func TestOpenKeepsStoredFingerprint(t *testing.T) {
	c := mk("Earmilk", contact.TypeCurator, "submissions@earmilk.com")
	c.Fingerprint = "legacyhash01"
	bare := mk("Other", contact.TypeCurator, "o@o.co")
	bare.Fingerprint = ""

	s, err := Open(context.Background(), NewMemoryBackend(c, c, bare))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	_, ok := s.Get("legacyhash01")
	assert.True(t, ok)
	_, ok = s.Get(contact.Fingerprint("Other", "", "o@o.co"))
	assert.True(t, ok)
}

func TestUpdateAndModify(t *testing.T) {
	ctx := context.Background()
	c := mk("Earmilk", contact.TypeCurator, "submissions@earmilk.com")
	s, err := Open(ctx, NewMemoryBackend(c))
	require.NoError(t, err)

	err = s.Update(ctx, mk("Missing", contact.TypeCurator, "m@m.co"))
	assert.True(t, errors.Is(err, ErrNotFound))

	got, err := s.Modify(ctx, c.Fingerprint, func(c *contact.Contact) error {
		c.RecordSend(t0)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, contact.StatusContacted, got.Status)

	stored, _ := s.Get(c.Fingerprint)
	assert.Equal(t, 1, stored.OutreachCount)

	boom := errors.New("boom")
	_, err = s.Modify(ctx, c.Fingerprint, func(c *contact.Contact) error {
		c.OutreachCount = 99
		return boom
	})
	assert.ErrorIs(t, err, boom)
	stored, _ = s.Get(c.Fingerprint)
	assert.Equal(t, 1, stored.OutreachCount)

	_, err = s.Modify(ctx, "nope", func(*contact.Contact) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBackendErrorLeavesMemoryUnchanged(t *testing.T) {
	ctx := context.Background()
	c := mk("Earmilk", contact.TypeCurator, "submissions@earmilk.com")
	b := NewMemoryBackend(c)
	s, err := Open(ctx, b)
	require.NoError(t, err)

	b.SaveErr = errors.New("disk full")
	_, err = s.Upsert(ctx, mk("New", contact.TypeLabel, "n@n.co"))
	assert.Error(t, err)
	assert.Equal(t, 1, s.Len())

	_, err = s.Modify(ctx, c.Fingerprint, func(c *contact.Contact) error {
		c.Reject()
		return nil
	})
	assert.Error(t, err)
	stored, _ := s.Get(c.Fingerprint)
	assert.Equal(t, contact.StatusPending, stored.Status)
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, NewMemoryBackend())
	require.NoError(t, err)

	n, err := s.Seed(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, len(contact.Seeds(t0)), n)

	n, err = s.Seed(ctx, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFind(t *testing.T) {
	ctx := context.Background()
	web := contact.MustNew(contact.Params{Name: "Stereogum", Type: contact.TypePublication, Website: "https://www.stereogum.com/about"}, t0)
	s, err := Open(ctx, NewMemoryBackend(web, mk("Earmilk", contact.TypeCurator, "submissions@earmilk.com")))
	require.NoError(t, err)

	assert.Len(t, s.Find("earmilk"), 1)
	assert.Len(t, s.Find("SUBMISSIONS@earmilk.com"), 1)
	assert.Len(t, s.Find("stereogum.com"), 1)
	assert.Len(t, s.Find("https://news.stereogum.com"), 1)
	assert.Len(t, s.Find(web.Fingerprint), 1)
	assert.Empty(t, s.Find("pitchfork"))
	assert.Empty(t, s.Find(""))
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "bbc.co.uk", Domain("https://www.bbc.co.uk/music"))
	assert.Equal(t, "example.com", Domain("Example.com"))
	assert.Equal(t, "", Domain("not a domain"))
	assert.Equal(t, "", Domain("a@b.com"))
}

func TestFileBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "contacts.json")
	fb := NewFileBackend(path)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "contacts_sources.json"), fb.SourcesPath)

	s, err := Open(ctx, fb)
	require.NoError(t, err)
	assert.Zero(t, s.Len())

	a := mk("A", contact.TypeLabel, "a@a.co")
	b := mk("B", contact.TypeCurator, "b@b.co")
	_, err = s.UpsertAll(ctx, []contact.Contact{a, b})
	require.NoError(t, err)
	_, err = s.Modify(ctx, a.Fingerprint, func(c *contact.Contact) error {
		c.RecordSend(t0)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.SaveSources(ctx, []sources.Tracker{{URL: "https://x.co", ScrapeCount: 1, Status: sources.StatusActive}}))

	_, err = os.Stat(path + ".bak")
	assert.NoError(t, err)

	reopened, err := Open(ctx, NewFileBackend(path))
	require.NoError(t, err)
	all := reopened.All()
	require.Len(t, all, 2)
	assert.Equal(t, "A", all[0].Name)
	assert.Equal(t, 1, all[0].OutreachCount)
	require.NotNil(t, all[0].LastOutreach)
	assert.True(t, t0.Equal(*all[0].LastOutreach))

	ts, err := reopened.Sources(ctx)
	require.NoError(t, err)
	require.Len(t, ts, 1)
	assert.Equal(t, 1, ts[0].ScrapeCount)
}

func TestFileBackendRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"x","type":"label","contact_hash":"abc"}]`), 0o644))

	_, err := Open(context.Background(), NewFileBackend(path))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestFileBackendFillsMissingFingerprint(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "contacts.json")
	raw := `[{"name":"Earmilk","type":"curator","email":"submissions@earmilk.com","status":"pending",` +
		`"genre_focus":[],"discovered_date":"2026-03-01T12:00:00Z","confidence_score":0.5,` +
		`"outreach_count":0,"response_received":false}]`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))
	fp := contact.Fingerprint("Earmilk", "", "submissions@earmilk.com")

	s, err := Open(ctx, NewFileBackend(path))
	require.NoError(t, err)
	_, err = s.Modify(ctx, fp, func(c *contact.Contact) error {
		c.RecordSend(t0)
		return nil
	})
	require.NoError(t, err)

	reopened, err := Open(ctx, NewFileBackend(path))
	require.NoError(t, err)
	require.Equal(t, 1, reopened.Len())
	c, ok := reopened.Get(fp)
	require.True(t, ok)
	assert.Equal(t, 1, c.OutreachCount)
	assert.Equal(t, contact.StatusContacted, c.Status)

	var onDisk []contact.Contact
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &onDisk))
	require.Len(t, onDisk, 1)
	assert.Equal(t, fp, onDisk[0].Fingerprint)
	assert.Equal(t, 1, onDisk[0].OutreachCount)
}

func TestOpenRejectsInvalidRecords(t *testing.T) {
	badStatus := mk("A", contact.TypeLabel, "a@a.co")
	badStatus.Status = "bogus"
	badConfidence := mk("B", contact.TypeLabel, "b@b.co")
	badConfidence.ConfidenceScore = 2

	for name, c := range map[string]contact.Contact{"status": badStatus, "confidence": badConfidence} {
		t.Run(name, func(t *testing.T) {
			_, err := Open(context.Background(), NewMemoryBackend(c))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}

	path := filepath.Join(t.TempDir(), "contacts.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"x","type":"foo","status":"pending","genre_focus":[],`+
		`"discovered_date":"2026-03-01T12:00:00Z","confidence_score":0.5,"outreach_count":0,"response_received":false}]`), 0o644))
	_, err := Open(context.Background(), NewFileBackend(path))
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestImportLegacyContacts(t *testing.T) {
	data := []byte(`[
	  {"name": "Jazz Times", "type": "publication", "email": "editor@jazztimes.com",
	   "genre_focus": ["jazz", "fusion"], "status": "contacted", "outreach_count": 2,
	   "last_outreach": "2025-08-01T10:00:00.123456", "contacted_date": "2025-07-01T09:00:00",
	   "discovered_date": "2025-06-01T08:00:00", "response_received": false,
	   "confidence_score": 0.8, "contact_hash": "abc123def456", "notes": "ignored"},
	  {"name": "Bad", "type": "playlist"},
	  {"name": "Fresh", "type": "curator", "email": "f@f.co"}
	]`)

	cs, errs := ImportLegacyContacts(data, t0)
	require.Len(t, cs, 2)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "record 1")

	jt := cs[0]
	assert.Equal(t, "abc123def456", jt.Fingerprint)
	assert.Equal(t, contact.StatusContacted, jt.Status)
	assert.Equal(t, 2, jt.OutreachCount)
	assert.Equal(t, 0.8, jt.ConfidenceScore)
	assert.Equal(t, []string{"jazz", "fusion"}, jt.GenreFocus)
	require.NotNil(t, jt.LastOutreach)
	assert.Equal(t, time.Date(2025, 8, 1, 10, 0, 0, 123456000, time.UTC), *jt.LastOutreach)
	assert.Equal(t, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC), jt.DiscoveredDate)

	fresh := cs[1]
	assert.Equal(t, contact.Fingerprint("Fresh", "", "f@f.co"), fresh.Fingerprint)
	assert.Equal(t, contact.StatusPending, fresh.Status)
	assert.Equal(t, contact.DefaultConfidence, fresh.ConfidenceScore)
	assert.Equal(t, t0, fresh.DiscoveredDate)
}

func TestImportLegacyContactsRejectsGarbage(t *testing.T) {
	_, errs := ImportLegacyContacts([]byte(`{not json`), t0)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrCorrupt)

	cs, errs := ImportLegacyContacts([]byte(`{"contacts": [{"name": "A", "type": "label"}]}`), t0)
	assert.Empty(t, errs)
	assert.Len(t, cs, 1)
}

func TestImportLegacySources(t *testing.T) {
	ts, err := ImportLegacySources([]byte(`[
	  {"url": "https://a.co", "last_scraped": "2025-08-01T10:00:00", "contacts_found": 2,
	   "scrape_count": 4, "success_rate": 0.5, "status": "active"},
	  {"url": "", "status": "active"},
	  {"url": "https://b.co", "status": "blocked"}
	]`))
	require.NoError(t, err)
	require.Len(t, ts, 2)
	assert.Equal(t, 4, ts[0].ScrapeCount)
	assert.Equal(t, sources.StatusBlocked, ts[1].Status)

	_, err = ImportLegacySources([]byte(`[{"url": "https://c.co", "status": "gone"}]`))
	assert.Error(t, err)
}

func TestBuildReport(t *testing.T) {
	now := t0
	old := mk("Old", contact.TypePublication, "o@o.co")
	old.RecordSend(now.Add(-10 * 24 * time.Hour))

	recent := mk("Recent", contact.TypeCurator, "r@r.co")
	recent.RecordSend(now.Add(-2 * 24 * time.Hour))

	var replied []contact.Contact
	for i := 0; i < 6; i++ {
		c := mk(string(rune('A'+i)), contact.TypeLabel, "")
		c.Email = string(rune('a'+i)) + "@x.co"
		c.RecordSend(now.Add(-30 * 24 * time.Hour))
		require.NoError(t, c.RecordResponse(now.Add(-time.Duration(6-i)*time.Hour), "hi"))
		replied = append(replied, c)
	}

	all := append([]contact.Contact{old, recent, mk("Pending", contact.TypeLabel, "p@p.co")}, replied...)
	r := BuildReport(all, now)

	assert.Equal(t, 9, r.Total)
	assert.Equal(t, 1, r.ByStatus[contact.StatusPending])
	assert.Equal(t, 2, r.ByStatus[contact.StatusContacted])
	assert.Equal(t, 6, r.ByStatus[contact.StatusResponded])
	assert.Equal(t, 7, r.ByType[contact.TypeLabel])
	assert.Equal(t, 1, r.RecentlyReached)

	last := r.LastResponses(5)
	require.Len(t, last, 5)
	assert.Equal(t, "B", last[0].Name)
	assert.Equal(t, "F", last[4].Name)
}
