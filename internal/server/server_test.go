package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NullRecords/nullrecords-cms/pkg/contact"
	"github.com/NullRecords/nullrecords-cms/pkg/storage"
	"github.com/NullRecords/nullrecords-cms/pkg/store"
)

var now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type fakeOptOuts struct {
	m map[string]string
}

func (f *fakeOptOuts) AddOptOut(_ context.Context, email, reason string) error {
	if email == "" {
		return fmt.Errorf("empty email")
	}
	f.m[contact.NormalizeEmail(email)] = reason
	return nil
}

func (f *fakeOptOuts) RemoveOptOut(_ context.Context, email string) error {
	if _, ok := f.m[email]; !ok {
		return fmt.Errorf("opt-out not found")
	}
	delete(f.m, email)
	return nil
}

func (f *fakeOptOuts) ListOptOuts(context.Context) ([]storage.OptOut, error) {
	var out []storage.OptOut
	for e, r := range f.m {
		out = append(out, storage.OptOut{Email: e, Reason: r})
	}
	return out, nil
}

func newTestServer(t *testing.T) (*Server, *store.MemoryBackend) {
	t.Helper()
	pending := contact.MustNew(contact.Params{Name: "Pitchfork", Type: contact.TypePublication, Email: "tips@pitchfork.com"}, now)
	reached := contact.MustNew(contact.Params{Name: "Earmilk", Type: contact.TypeCurator, Email: "submissions@earmilk.com"}, now)
	reached.RecordSend(now.Add(-time.Hour))

	b := store.NewMemoryBackend(pending, reached)
	s := New(b, filepath.Join(t.TempDir(), "outreach.sqlite"), "", "")
	s.Now = func() time.Time { return now }
	s.OptOuts = &fakeOptOuts{m: map[string]string{}}
	return s, b
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStats(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s.Handler(), http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 1, resp.ByStatus["pending"])
	assert.Equal(t, 1, resp.ByStatus["contacted"])
	assert.Equal(t, 1, resp.RecentlyReached)
	assert.Equal(t, 1, resp.Eligible, "the contact reached an hour ago is inside the interval")
}

func TestContactsFilters(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	tests := []struct {
		query string
		want  []string
		code  int
	}{
		{"", []string{"Pitchfork", "Earmilk"}, http.StatusOK},
		{"?type=curator", []string{"Earmilk"}, http.StatusOK},
		{"?status=pending", []string{"Pitchfork"}, http.StatusOK},
		{"?status=responded", nil, http.StatusOK},
		{"?type=playlist", nil, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/api/contacts"+tc.query, "")
			require.Equal(t, tc.code, rec.Code)
			if tc.code != http.StatusOK {
				return
			}
			var got []contact.Contact
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			var names []string
			for _, c := range got {
				names = append(names, c.Name)
			}
			assert.ElementsMatch(t, tc.want, names)
		})
	}
}

func TestRespond(t *testing.T) {
	s, b := newTestServer(t)
	h := s.Handler()
	fp := contact.Fingerprint("Earmilk", "", "submissions@earmilk.com")

	rec := do(t, h, http.MethodPost, "/api/contacts/respond", fmt.Sprintf(`{"fingerprint":%q,"note":" loved it "}`, fp))
	require.Equal(t, http.StatusOK, rec.Code)

	cs, err := b.LoadContacts(context.Background())
	require.NoError(t, err)
	var got contact.Contact
	for _, c := range cs {
		if c.Fingerprint == fp {
			got = c
		}
	}
	assert.Equal(t, contact.StatusResponded, got.Status)
	assert.Equal(t, "loved it", got.ResponseContent)
	require.NotNil(t, got.ResponseDate)
	assert.Equal(t, now, *got.ResponseDate)

	rec = do(t, h, http.MethodPost, "/api/contacts/respond", `{"fingerprint":"000000000000"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/contacts/respond", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOptOutEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/optouts", `{"email":"Tips@Pitchfork.com","reason":"asked"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/optouts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []storage.OptOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "tips@pitchfork.com", list[0].Email)

	rec = do(t, h, http.MethodDelete, "/api/optouts", `{"email":"tips@pitchfork.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodDelete, "/api/optouts", `{"email":"tips@pitchfork.com"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.OptOuts = nil
	rec = do(t, s.Handler(), http.MethodGet, "/api/optouts", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestBasicAuth(t *testing.T) {
	s, _ := newTestServer(t)
	s.Username, s.Password = "label", "secret"
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/stats", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.SetBasicAuth("label", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
