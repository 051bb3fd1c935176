package discover

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/NullRecords/nullrecords-cms/internal/utils"
	"github.com/NullRecords/nullrecords-cms/pkg/contact"
	"github.com/NullRecords/nullrecords-cms/pkg/fetch"
	"github.com/NullRecords/nullrecords-cms/pkg/search"
	"github.com/NullRecords/nullrecords-cms/pkg/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeEngine struct {
	hits    map[string][]string
	err     map[string]error
	queries []string
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Search(_ context.Context, q string, max int) ([]search.Result, error) {
	f.queries = append(f.queries, q)
	if err := f.err[q]; err != nil {
		return nil, err
	}
	var out []search.Result
	for _, u := range f.hits[q] {
		if len(out) == max {
			break
		}
		out = append(out, search.Result{URL: u})
	}
	return out, nil
}

type fakeFetcher struct {
	pages   map[string]string
	errs    map[string]error
	fetched []string
}

func (f *fakeFetcher) Fetch(_ context.Context, u string) (*fetch.Page, error) {
	f.fetched = append(f.fetched, u)
	if err := f.errs[u]; err != nil {
		return nil, err
	}
	body, ok := f.pages[u]
	if !ok {
		return nil, &fetch.Error{URL: u, StatusCode: 404}
	}
	return &fetch.Page{URL: u, StatusCode: 200, Body: body}, nil
}

func page(title, email string) string {
	return "<html><head><title>" + title + "</title></head><body><p>" +
		strings.Repeat("We review electronic and jazz records. ", 20) +
		"Send your demo to " + email + "</p></body></html>"
}

func newDiscoverer(e search.Engine, f PageFetcher, reg *sources.Registry) *Discoverer {
	return New(Config{
		Engine:  e,
		Fetcher: f,
		Sources: reg,
		Queries: []string{"q1", "q2", "q3"},
		Delay:   utils.NoDelay,
		Now:     func() time.Time { return t0 },
	})
}

func TestDiscoverOutcomes(t *testing.T) {
	known := contact.MustNew(contact.Params{Name: "Known Blog", Type: contact.TypePublication, Website: "https://known.com"}, t0)

	engine := &fakeEngine{hits: map[string][]string{
		"q1": {"https://a.com", "https://known.com", "https://empty.com", "https://down.com", "https://blocked.com"},
		"q2": {"https://b.com", "https://a.com"},
		"q3": {"https://never.com"},
	}}
	fetcher := &fakeFetcher{
		pages: map[string]string{
			"https://a.com":     page("Alpha Mag", "editor@a.com"),
			"https://known.com": page("Known Blog", "tips@known.com"),
			"https://empty.com": "<html><title>Empty</title><body>nothing to see</body></html>",
			"https://b.com":     page("Beta Blog", "demo@b.com"),
		},
		errs: map[string]error{
			"https://down.com": &fetch.Error{URL: "https://down.com", Transient: true, Cause: errors.New("timeout")},
		},
	}
	reg := sources.NewRegistry([]sources.Tracker{{URL: "https://blocked.com", Status: sources.StatusBlocked}})

	res, err := newDiscoverer(engine, fetcher, reg).Discover(context.Background(), 10, map[string]bool{known.Fingerprint: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"q1", "q2"}, engine.queries, "only MaxQueries searches run")
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "Alpha Mag", res.Candidates[0].Name)
	assert.Equal(t, "editor@a.com", res.Candidates[0].Email)
	assert.Equal(t, "https://a.com", res.Candidates[0].SourceURL)
	assert.Equal(t, 1.0, res.Candidates[0].ConfidenceScore)
	assert.Equal(t, "Beta Blog", res.Candidates[1].Name)

	assert.Equal(t, 2, res.Count(KindCandidate))
	assert.Equal(t, 2, res.Count(KindDuplicate), "known contact and repeated a.com")
	assert.Equal(t, 1, res.Count(KindNoContact))
	assert.Equal(t, 1, res.Count(KindFetchError))
	assert.Equal(t, 1, res.Count(KindSkippedSource))
	assert.NotContains(t, fetcher.fetched, "https://blocked.com")

	down, ok := reg.Get("https://down.com")
	require.True(t, ok)
	assert.Equal(t, sources.StatusError, down.Status)
	a, _ := reg.Get("https://a.com")
	assert.Equal(t, 2, a.ScrapeCount)
	assert.Equal(t, 2, a.ContactsFound)
	empty, _ := reg.Get("https://empty.com")
	assert.Equal(t, 0, empty.ContactsFound)
	assert.Equal(t, 1, empty.ScrapeCount)
}

func TestDiscoverStopsAtMaxNew(t *testing.T) {
	engine := &fakeEngine{hits: map[string][]string{
		"q1": {"https://a.com", "https://b.com", "https://c.com"},
	}}
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://a.com": page("A", "info@a.com"),
		"https://b.com": page("B", "info@b.com"),
		"https://c.com": page("C", "info@c.com"),
	}}

	res, err := newDiscoverer(engine, fetcher, nil).Discover(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 1)
	assert.Equal(t, []string{"https://a.com"}, fetcher.fetched)
}

func TestDiscoverDoesNotMutateExisting(t *testing.T) {
	engine := &fakeEngine{hits: map[string][]string{"q1": {"https://a.com"}}}
	fetcher := &fakeFetcher{pages: map[string]string{"https://a.com": page("A", "info@a.com")}}
	existing := map[string]bool{}

	_, err := newDiscoverer(engine, fetcher, nil).Discover(context.Background(), 5, existing)
	require.NoError(t, err)
	assert.Empty(t, existing)
}

func TestDiscoverSearchErrorIsNonFatal(t *testing.T) {
	engine := &fakeEngine{
		hits: map[string][]string{"q2": {"https://b.com"}},
		err:  map[string]error{"q1": errors.New("search down")},
	}
	fetcher := &fakeFetcher{pages: map[string]string{"https://b.com": page("B", "info@b.com")}}

	res, err := newDiscoverer(engine, fetcher, nil).Discover(context.Background(), 5, nil)
	require.NoError(t, err)
	assert.Len(t, res.SearchErrors, 1)
	assert.Len(t, res.Candidates, 1)
}

func TestDiscoverReturnsOnCancel(t *testing.T) {
	engine := &fakeEngine{hits: map[string][]string{"q1": {"https://a.com"}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newDiscoverer(engine, &fakeFetcher{}, nil).Discover(ctx, 5, nil)
	assert.True(t, IsCanceled(err))
}

func TestDiscoverZeroMax(t *testing.T) {
	engine := &fakeEngine{}
	res, err := newDiscoverer(engine, &fakeFetcher{}, nil).Discover(context.Background(), 0, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
	assert.Empty(t, engine.queries)
}

func TestDiscoverKeepsFormWhenEmailIsMalformed(t *testing.T) {
	engine := &fakeEngine{hits: map[string][]string{
		"q1": {"https://c.com", "https://d.com"},
	}}
	withForm := strings.Replace(page("Gamma Zine", "demo..team@c.com"),
		"</p>", `</p><a href="/contact">Contact us</a>`, 1)
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://c.com": withForm,
		"https://d.com": page("Delta", "demo..team@d.com"),
	}}

	res, err := newDiscoverer(engine, fetcher, nil).Discover(context.Background(), 5, nil)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "Gamma Zine", res.Candidates[0].Name)
	assert.Empty(t, res.Candidates[0].Email)
	assert.Equal(t, "https://c.com/contact", res.Candidates[0].ContactFormURL)
	assert.Equal(t, 0, res.Count(KindParseError))
	assert.Equal(t, 1, res.Count(KindNoContact))
}
