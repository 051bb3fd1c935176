package contact

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFingerprintIsCaseInsensitive(t *testing.T) {
	a := Fingerprint("Pitchfork", "https://Pitchfork.com", "")
	b := Fingerprint("PITCHFORK", "https://pitchfork.com", "")
	assert.Equal(t, a, b)
	assert.Len(t, a, 12)
	assert.Equal(t, a, Fingerprint("pitchfork", "https://pitchfork.com", "ignored@x.com"))
}

func TestFingerprintFallsBackToEmail(t *testing.T) {
	withEmail := Fingerprint("Earmilk", "", "submissions@earmilk.com")
	bare := Fingerprint("Earmilk", "", "")
	assert.NotEqual(t, withEmail, bare)
	assert.Equal(t, withEmail, Fingerprint("earmilk", "", "SUBMISSIONS@earmilk.com"))
}

func TestNewDefaults(t *testing.T) {
	c, err := New(Params{Name: " Indie Shuffle ", Type: TypeCurator, Email: "submit@indieshuffle.com"}, t0)
	require.NoError(t, err)

	assert.Equal(t, "Indie Shuffle", c.Name)
	assert.Equal(t, StatusPending, c.Status)
	assert.Equal(t, DefaultConfidence, c.ConfidenceScore)
	assert.Equal(t, t0, c.DiscoveredDate)
	assert.Equal(t, Fingerprint("Indie Shuffle", "", "submit@indieshuffle.com"), c.Fingerprint)
	assert.NotNil(t, c.GenreFocus)
}

func TestNewRejectsInvalidInput(t *testing.T) {
	bad := 1.5
	tests := []struct {
		name string
		p    Params
	}{
		{"missing name", Params{Type: TypePublication}},
		{"unknown type", Params{Name: "x", Type: Type("playlist")}},
		{"bad email", Params{Name: "x", Type: TypePublication, Email: "not-an-email"}},
		{"bad url", Params{Name: "x", Type: TypePublication, Website: "nope"}},
		{"confidence out of range", Params{Name: "x", Type: TypePublication, Confidence: &bad}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.p, t0)
			assert.Error(t, err)
		})
	}
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("demo@label.com"))
	assert.True(t, ValidEmail(" demo@label.com "))
	assert.False(t, ValidEmail(""))
	assert.False(t, ValidEmail("demo..team@label.com"))
	assert.False(t, ValidEmail("not-an-email"))
}

func TestAdvanceLattice(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusContacted, true},
		{StatusPending, StatusManualSubmission, true},
		{StatusContacted, StatusResponded, true},
		{StatusManualSubmission, StatusResponded, true},
		{StatusContacted, StatusManualSubmission, false},
		{StatusResponded, StatusContacted, false},
		{StatusContacted, StatusPending, false},
		{StatusResponded, StatusRejected, true},
		{StatusRejected, StatusPending, false},
		{StatusRejected, StatusResponded, false},
		{StatusPending, StatusPending, true},
	}
	for _, tc := range tests {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			c := Contact{Status: tc.from}
			err := c.Advance(tc.to)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, tc.to, c.Status)
			} else {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidTransition))
				assert.Equal(t, tc.from, c.Status)
			}
		})
	}
}

func TestRecordSendFirstSuccess(t *testing.T) {
	c := MustNew(Params{Name: "Pitchfork", Type: TypePublication, Email: "tips@pitchfork.com"}, t0)

	c.RecordSend(t0)
	assert.Equal(t, 1, c.OutreachCount)
	assert.Equal(t, StatusContacted, c.Status)
	require.NotNil(t, c.ContactedDate)
	require.NotNil(t, c.LastOutreach)
	assert.Equal(t, t0, *c.ContactedDate)

	later := t0.Add(8 * 24 * time.Hour)
	c.RecordSend(later)
	assert.Equal(t, 2, c.OutreachCount)
	assert.Equal(t, later, *c.LastOutreach)
	assert.Equal(t, t0, *c.ContactedDate, "contacted date is set only once")
}

func TestRecordManualSubmission(t *testing.T) {
	c := MustNew(Params{Name: "Bandcamp", Type: TypePlatform, ContactFormURL: "https://bandcamp.com/contact"}, t0)
	c.RecordManualSubmission(t0)

	assert.Equal(t, StatusManualSubmission, c.Status)
	assert.Equal(t, 1, c.OutreachCount)
	require.NotNil(t, c.ContactedDate)
}

func TestRecordResponseAndReject(t *testing.T) {
	c := MustNew(Params{Name: "Earmilk", Type: TypeCurator, Email: "submissions@earmilk.com"}, t0)
	c.RecordSend(t0)
	require.NoError(t, c.RecordResponse(t0.Add(time.Hour), "sounds good"))
	assert.True(t, c.ResponseReceived)
	assert.Equal(t, StatusResponded, c.Status)
	assert.Equal(t, "sounds good", c.ResponseContent)

	c.Reject()
	assert.Equal(t, StatusRejected, c.Status)
	assert.Error(t, c.RecordResponse(t0, ""))
}

func TestSeedsAreValidAndUnique(t *testing.T) {
	seeds := Seeds(t0)
	require.NotEmpty(t, seeds)

	seen := map[string]bool{}
	for _, s := range seeds {
		require.NoError(t, s.Validate())
		assert.False(t, seen[s.Fingerprint], "duplicate fingerprint for %s", s.Name)
		seen[s.Fingerprint] = true
	}
}

func TestCloneIsDeep(t *testing.T) {
	c := MustNew(Params{Name: "x", Type: TypeLabel, Email: "a@b.co", GenreFocus: []string{"jazz"}}, t0)
	c.RecordSend(t0)
	cl := c.Clone()
	cl.GenreFocus[0] = "rock"
	*cl.LastOutreach = t0.Add(time.Hour)

	assert.Equal(t, "jazz", c.GenreFocus[0])
	assert.Equal(t, t0, *c.LastOutreach)
}
