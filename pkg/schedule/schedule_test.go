package schedule

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/NullRecords/nullrecords-cms/pkg/contact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func mk(name string, typ contact.Type, count int, conf float64) contact.Contact {
	c := contact.MustNew(contact.Params{Name: name, Type: typ, Email: name + "@example.com", Confidence: &conf}, t0)
	c.OutreachCount = count
	return c
}

func names(cs []contact.Contact) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}

func TestScheduleHighConfidenceWinsOneSlot(t *testing.T) {
	a := mk("a", contact.TypePublication, 0, 0.5)
	b := mk("b", contact.TypePublication, 0, 0.9)

	got := Schedule([]contact.Contact{a, b}, 1, Distribution{{Type: contact.TypePublication, Fraction: 1.0}}, 0)
	assert.Equal(t, []string{"b"}, names(got))
}

func TestRankOrder(t *testing.T) {
	in := []contact.Contact{
		mk("old-high", contact.TypeCurator, 2, 0.9),
		mk("new-low", contact.TypeCurator, 0, 0.3),
		mk("new-high", contact.TypeCurator, 0, 0.8),
		mk("new-high-2", contact.TypeCurator, 0, 0.8),
	}
	assert.Equal(t, []string{"new-high", "new-high-2", "new-low", "old-high"}, names(Rank(in)))
	assert.Equal(t, "old-high", in[0].Name, "input is not reordered")
}

func TestScheduleModes(t *testing.T) {
	in := []contact.Contact{
		mk("p1", contact.TypePublication, 0, 0.9),
		mk("p2", contact.TypePublication, 0, 0.8),
		mk("p3", contact.TypePublication, 1, 0.9),
		mk("c1", contact.TypeCurator, 0, 0.7),
		mk("c2", contact.TypeCurator, 0, 0.6),
		mk("l1", contact.TypeLabel, 0, 1.0),
	}
	dist := Distribution{
		{Type: contact.TypeCurator, Fraction: 0.5},
		{Type: contact.TypePublication, Fraction: 0.5},
	}

	tests := []struct {
		name     string
		cap      int
		dist     Distribution
		perCall  int
		expected []string
	}{
		{"no distribution cuts at cap", 3, nil, 0, []string{"l1", "p1", "p2"}},
		{"per call limit ignores distribution", 10, dist, 2, []string{"l1", "p1"}},
		{"distribution order and quotas", 4, dist, 0, []string{"c1", "c2", "p1", "p2"}},
		{"quota floors", 3, dist, 0, []string{"c1", "p1"}},
		{"absent types never scheduled", 100, dist, 0, []string{"c1", "c2", "p1", "p2", "p3"}},
		{"zero cap", 0, nil, 0, []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, names(Schedule(in, tc.cap, tc.dist, tc.perCall)))
		})
	}
}

func TestScheduleIsDeterministic(t *testing.T) {
	var in []contact.Contact
	for i, typ := range contact.AllTypes() {
		in = append(in, mk(string(typ)+"-x", typ, i%2, 0.5), mk(string(typ)+"-y", typ, 0, 0.5))
	}
	dist, err := DefaultPlan().Distribution()
	require.NoError(t, err)

	first := names(Schedule(in, 20, dist, 0))
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, names(Schedule(in, 20, dist, 0)))
	}
}

func TestDistributionFromMap(t *testing.T) {
	d, err := DistributionFromMap(map[string]float64{"curator": 0.2, "publication": 0.4, "ai_service": 0.1})
	require.NoError(t, err)
	assert.Equal(t, Distribution{
		{Type: contact.TypeAIService, Fraction: 0.1},
		{Type: contact.TypePublication, Fraction: 0.4},
		{Type: contact.TypeCurator, Fraction: 0.2},
	}, d)

	_, err = DistributionFromMap(map[string]float64{"radio": 0.5})
	assert.Error(t, err)
	_, err = DistributionFromMap(map[string]float64{"label": 1.5})
	assert.Error(t, err)
}

func TestDefaultPlanQuotas(t *testing.T) {
	p := DefaultPlan()
	require.NoError(t, p.Validate())
	d, err := p.Distribution()
	require.NoError(t, err)

	got := map[contact.Type]int{}
	for _, s := range d {
		got[s.Type] = s.Quota(p.Daily.MaxContactsPerDay)
	}
	assert.Equal(t, map[contact.Type]int{
		contact.TypePublication: 8,
		contact.TypeInfluencer:  5,
		contact.TypeCurator:     3,
		contact.TypePlatform:    2,
		contact.TypeAIService:   2,
	}, got)
}

func TestPlanSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan", "outreach_schedule.yaml")

	p, err := LoadPlan(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, DefaultPlan(), p)

	p.Daily.MaxContactsPerDay = 12
	require.NoError(t, SavePlan(path, p))
	require.NoError(t, SavePlan(path, p))
	_, err = os.Stat(path + ".bak")
	require.NoError(t, err)

	loaded, err := LoadPlan(path)
	require.NoError(t, err)
	assert.Equal(t, p, loaded)

	bad := DefaultPlan()
	bad.Daily.TargetDistribution["publication"] = 0.9
	assert.Error(t, SavePlan(path, bad))
}
