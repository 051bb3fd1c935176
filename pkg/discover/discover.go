// Package discover finds new outreach contacts by searching the web and
// scraping the result pages.
package discover

import (
	"context"
	"errors"
	"time"

	"github.com/NullRecords/nullrecords-cms/internal/utils"
	"github.com/NullRecords/nullrecords-cms/pkg/contact"
	"github.com/NullRecords/nullrecords-cms/pkg/extract"
	"github.com/NullRecords/nullrecords-cms/pkg/fetch"
	"github.com/NullRecords/nullrecords-cms/pkg/score"
	"github.com/NullRecords/nullrecords-cms/pkg/search"
	"github.com/NullRecords/nullrecords-cms/pkg/sources"
)

const (
	DefaultMaxQueries      = 2
	DefaultResultsPerQuery = 5
	DefaultMinDelay        = 1 * time.Second
	DefaultMaxDelay        = 4 * time.Second
)

// DefaultQueries are the searches run when none are configured.
var DefaultQueries = []string{
	"electronic music blogs",
	"independent music publications",
	"lofi chillhop blogs",
	"experimental music websites",
	"music submission blogs",
}

// Logger abstracts logging so callers can use logrus or anything else with
// the same methods.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// PageFetcher downloads one page. *fetch.Fetcher satisfies it.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Page, error)
}

// Config holds everything a Discoverer needs.
type Config struct {
	Engine  search.Engine
	Fetcher PageFetcher
	Sources *sources.Registry // optional; a fresh registry is used if nil

	Queries         []string // defaults to DefaultQueries
	MaxQueries      int      // defaults to DefaultMaxQueries
	ResultsPerQuery int      // defaults to DefaultResultsPerQuery

	// Delay runs before every network request after the first. Nil means a
	// random 1-4s pause.
	Delay utils.Delay
	Now   func() time.Time
	Log   Logger
}

// Discoverer runs discovery passes.
type Discoverer struct {
	cfg Config
}

// New fills defaults and returns a Discoverer.
func New(cfg Config) *Discoverer {
	if len(cfg.Queries) == 0 {
		cfg.Queries = DefaultQueries
	}
	if cfg.MaxQueries <= 0 {
		cfg.MaxQueries = DefaultMaxQueries
	}
	if cfg.ResultsPerQuery <= 0 {
		cfg.ResultsPerQuery = DefaultResultsPerQuery
	}
	if cfg.Sources == nil {
		cfg.Sources = sources.NewRegistry(nil)
	}
	if cfg.Delay == nil {
		cfg.Delay = utils.Jitter(DefaultMinDelay, DefaultMaxDelay)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Log == nil {
		cfg.Log = nopLogger{}
	}
	return &Discoverer{cfg: cfg}
}

// Sources returns the registry updated by discovery.
func (d *Discoverer) Sources() *sources.Registry { return d.cfg.Sources }

// Discover searches, scrapes and returns up to maxNew candidates whose
// fingerprints are neither in existing nor repeated within the pass. Per-URL
// failures are recorded as outcomes; only context cancellation is returned
// as an error. existing is not modified.
func (d *Discoverer) Discover(ctx context.Context, maxNew int, existing map[string]bool) (*Result, error) {
	res := &Result{}
	if maxNew <= 0 {
		return res, nil
	}

	seen := make(map[string]bool, len(existing))
	for fp := range existing {
		seen[fp] = true
	}

	log := d.cfg.Log
	requests := 0
	pause := func() error {
		requests++
		if requests == 1 {
			return ctx.Err()
		}
		return d.cfg.Delay(ctx)
	}

	queries := d.cfg.Queries
	if len(queries) > d.cfg.MaxQueries {
		queries = queries[:d.cfg.MaxQueries]
	}

	for _, q := range queries {
		if err := pause(); err != nil {
			return res, err
		}
		res.Queries++
		hits, err := d.cfg.Engine.Search(ctx, q, d.cfg.ResultsPerQuery)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			log.Warnf("Search %q on %s failed: %v", q, d.cfg.Engine.Name(), err)
			res.SearchErrors = append(res.SearchErrors, err)
			continue
		}
		log.Debugf("Search %q returned %d results", q, len(hits))

		for _, hit := range hits {
			if len(res.Candidates) >= maxNew {
				return res, nil
			}
			if d.cfg.Sources.ShouldSkip(hit.URL) {
				res.add(Outcome{URL: hit.URL, Kind: KindSkippedSource})
				continue
			}
			if err := pause(); err != nil {
				return res, err
			}
			out, err := d.visit(ctx, hit.URL, seen)
			if err != nil {
				return res, err
			}
			res.add(out)
		}
	}
	return res, nil
}

// visit scrapes one URL and updates its tracker.
func (d *Discoverer) visit(ctx context.Context, url string, seen map[string]bool) (Outcome, error) {
	log := d.cfg.Log
	now := d.cfg.Now()

	page, err := d.cfg.Fetcher.Fetch(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return Outcome{}, ctx.Err()
		}
		log.Warnf("Fetching %s failed: %v", url, err)
		d.cfg.Sources.Record(url, sources.Attempt{Err: err, StatusCode: fetch.StatusCode(err)}, now)
		return Outcome{URL: url, Kind: KindFetchError, Err: err}, nil
	}

	base := page.URL
	if base == "" {
		base = url
	}
	info, err := extract.Page(base, page.Body)
	if err != nil {
		log.Warnf("Parsing %s failed: %v", url, err)
		d.cfg.Sources.Record(url, sources.Attempt{Err: err}, now)
		return Outcome{URL: url, Kind: KindParseError, Err: err}, nil
	}
	if info.Email != "" && !contact.ValidEmail(info.Email) {
		log.Debugf("Ignoring malformed email %q on %s", info.Email, url)
		info.Email = ""
	}
	if !info.HasChannel() {
		log.Debugf("No contact details on %s", url)
		d.cfg.Sources.Record(url, sources.Attempt{}, now)
		return Outcome{URL: url, Kind: KindNoContact}, nil
	}

	confidence := score.Score(info.Text, url)
	c, err := contact.New(contact.Params{
		Name:           info.Name,
		Type:           info.Type,
		Email:          info.Email,
		ContactFormURL: info.ContactFormURL,
		Website:        url,
		Description:    info.Description,
		GenreFocus:     info.Genres,
		SourceURL:      url,
		Confidence:     &confidence,
	}, now)
	if err != nil {
		log.Warnf("Discarding contact from %s: %v", url, err)
		d.cfg.Sources.Record(url, sources.Attempt{Err: err}, now)
		return Outcome{URL: url, Kind: KindParseError, Err: err}, nil
	}

	d.cfg.Sources.Record(url, sources.Attempt{Found: 1}, now)
	if seen[c.Fingerprint] {
		return Outcome{URL: url, Kind: KindDuplicate, Contact: &c}, nil
	}
	seen[c.Fingerprint] = true
	log.Infof("Found contact: %s at %s (confidence %.2f)", c.Name, url, c.ConfidenceScore)
	return Outcome{URL: url, Kind: KindCandidate, Contact: &c}, nil
}

// IsCanceled reports whether err ended a pass early.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
