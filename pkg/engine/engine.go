// Package engine wires discovery, eligibility, scheduling and sending into
// one outreach run.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NullRecords/nullrecords-cms/pkg/contact"
	"github.com/NullRecords/nullrecords-cms/pkg/discover"
	"github.com/NullRecords/nullrecords-cms/pkg/eligibility"
	"github.com/NullRecords/nullrecords-cms/pkg/outreach"
	"github.com/NullRecords/nullrecords-cms/pkg/schedule"
	"github.com/NullRecords/nullrecords-cms/pkg/sources"
	"github.com/NullRecords/nullrecords-cms/pkg/storage"
	"github.com/NullRecords/nullrecords-cms/pkg/store"
)

const (
	// StoreThreshold is the minimum confidence for a discovered contact to
	// be added to the store.
	StoreThreshold = 0.6
	// ReportThreshold is the minimum confidence for a candidate to be listed
	// in reports.
	ReportThreshold = 0.5

	DefaultRunDiscovery  = 5
	DefaultDailyCap      = 20
	DefaultDiscoverLimit = 10
)

// Discoverer finds new contacts. *discover.Discoverer satisfies it.
type Discoverer interface {
	Discover(ctx context.Context, maxNew int, existing map[string]bool) (*discover.Result, error)
	Sources() *sources.Registry
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

// runLogger is implemented by backends that keep a run history.
type runLogger interface {
	SetRunID(id string)
	RecordRun(ctx context.Context, r storage.Run) error
}

// Config holds the engine's collaborators.
type Config struct {
	Store      *store.Store
	Discoverer Discoverer // optional; discovery is skipped when nil
	Filter     eligibility.Filter

	// Outreach is the template for every run's executor. Store and DryRun
	// are set per run.
	Outreach outreach.Config

	Now      func() time.Time
	NewRunID func() string
	Log      Logger
}

// Engine runs outreach passes.
type Engine struct {
	cfg Config
}

// New fills defaults and returns an Engine.
func New(cfg Config) *Engine {
	if cfg.Filter == (eligibility.Filter{}) {
		cfg.Filter = eligibility.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewRunID == nil {
		cfg.NewRunID = uuid.NewString
	}
	if cfg.Log == nil {
		cfg.Log = nopLogger{}
	}
	if cfg.Outreach.Log == nil {
		cfg.Outreach.Log = cfg.Log
	}
	if cfg.Outreach.Now == nil {
		cfg.Outreach.Now = cfg.Now
	}
	return &Engine{cfg: cfg}
}

// Options control one run.
type Options struct {
	Discover     bool
	MaxNew       int // new contacts to look for, DefaultRunDiscovery when 0
	Types        []contact.Type
	Limit        int // per-call limit, overrides the distribution
	DailyCap     int // DefaultDailyCap when 0
	Distribution schedule.Distribution
	DryRun       bool

	// SubmitSearchEngines flags search engine contacts for manual sitemap
	// submission before sending.
	SubmitSearchEngines bool
}

// Summary is what a run did.
type Summary struct {
	RunID    string    `json:"run_id"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	DryRun   bool      `json:"dry_run"`

	Discovery
	Submitted int `json:"search_engines_submitted"`

	Eligible  int `json:"eligible"`
	Scheduled int `json:"scheduled"`
	Sent      int `json:"sent"`
	Manual    int `json:"manual"`
	Failed    int `json:"failed"`
	OptedOut  int `json:"opted_out"`
	NoChannel int `json:"no_channel"`
	Planned   int `json:"planned"`

	Outcomes []outreach.Outcome `json:"-"`
}

// Discovery summarizes a discovery pass.
type Discovery struct {
	Discovered     int `json:"discovered"`
	Duplicates     int `json:"duplicates"`
	BelowThreshold int `json:"below_threshold"`
	Added          int `json:"added"`
	NoContact      int `json:"no_contact"`
	SkippedSources int `json:"skipped_sources"`
	FetchErrors    int `json:"fetch_errors"`
	ParseErrors    int `json:"parse_errors"`
	SearchErrors   int `json:"search_errors"`

	// Listed are candidates at or above ReportThreshold.
	Listed []contact.Contact `json:"-"`
}

// Discover runs one discovery pass. Candidates at or above StoreThreshold
// are added unless dryRun is set; source trackers are saved either way.
func (e *Engine) Discover(ctx context.Context, maxNew int, dryRun bool) (Discovery, error) {
	var d Discovery
	if e.cfg.Discoverer == nil {
		return d, nil
	}
	log := e.cfg.Log

	res, err := e.cfg.Discoverer.Discover(ctx, maxNew, e.cfg.Store.Fingerprints())
	if res != nil {
		d.Discovered = len(res.Candidates)
		d.Duplicates = res.Count(discover.KindDuplicate)
		d.NoContact = res.Count(discover.KindNoContact)
		d.SkippedSources = res.Count(discover.KindSkippedSource)
		d.FetchErrors = res.Count(discover.KindFetchError)
		d.ParseErrors = res.Count(discover.KindParseError)
		d.SearchErrors = len(res.SearchErrors)
	}
	if serr := e.cfg.Store.SaveSources(ctx, e.cfg.Discoverer.Sources().Dirty()); serr != nil {
		return d, fmt.Errorf("save sources: %w", serr)
	}
	if err != nil {
		return d, err
	}

	var keep []contact.Contact
	for _, c := range res.Candidates {
		if c.ConfidenceScore >= ReportThreshold {
			d.Listed = append(d.Listed, c)
		}
		if c.ConfidenceScore < StoreThreshold {
			d.BelowThreshold++
			continue
		}
		keep = append(keep, c)
	}
	if dryRun {
		return d, nil
	}

	for _, c := range keep {
		added, err := e.cfg.Store.Upsert(ctx, c)
		if err != nil {
			return d, fmt.Errorf("add contact %s: %w", c.Name, err)
		}
		if added {
			d.Added++
			log.Infof("Added new contact: %s (confidence: %.2f)", c.Name, c.ConfidenceScore)
		} else {
			d.Duplicates++
		}
	}
	return d, nil
}

// Targets returns the contacts a run with opts would contact, in order.
func (e *Engine) Targets(opts Options) (eligible, scheduled []contact.Contact) {
	dailyCap := opts.DailyCap
	if dailyCap <= 0 {
		dailyCap = DefaultDailyCap
	}
	eligible = e.cfg.Filter.Eligible(e.cfg.Store.All(), e.cfg.Now(), opts.Types)
	return eligible, schedule.Schedule(eligible, dailyCap, opts.Distribution, opts.Limit)
}

// Run performs one full outreach run. The summary is returned even when
// the run stops early.
func (e *Engine) Run(ctx context.Context, opts Options) (*Summary, error) {
	sum := &Summary{RunID: e.cfg.NewRunID(), Started: e.cfg.Now(), DryRun: opts.DryRun}
	log := e.cfg.Log
	rl, hasRuns := e.cfg.Store.Backend().(runLogger)
	if hasRuns {
		rl.SetRunID(sum.RunID)
		defer rl.SetRunID("")
	}

	err := e.run(ctx, opts, sum)
	sum.Finished = e.cfg.Now()

	if hasRuns && !opts.DryRun {
		b, jerr := json.Marshal(sum)
		if jerr == nil {
			jerr = rl.RecordRun(ctx, storage.Run{
				ID:         sum.RunID,
				StartedAt:  sum.Started,
				FinishedAt: sum.Finished,
				DryRun:     opts.DryRun,
				Summary:    string(b),
			})
		}
		if jerr != nil {
			log.Warnf("Could not record run %s: %v", sum.RunID, jerr)
		}
	}
	return sum, err
}

func (e *Engine) run(ctx context.Context, opts Options, sum *Summary) error {
	log := e.cfg.Log

	// Discovery touches the network and the store, so dry runs skip it.
	if opts.Discover && !opts.DryRun {
		maxNew := opts.MaxNew
		if maxNew <= 0 {
			maxNew = DefaultRunDiscovery
		}
		d, err := e.Discover(ctx, maxNew, false)
		sum.Discovery = d
		if err != nil {
			if discover.IsCanceled(err) {
				return err
			}
			return fmt.Errorf("discovery: %w", err)
		}
	}

	if opts.SubmitSearchEngines && (len(opts.Types) == 0 || hasType(opts.Types, contact.TypeSearchEngine)) {
		changed, err := outreach.SubmitSearchEngines(ctx, e.cfg.Store.All(), e.kit(), e.cfg.Store, e.cfg.Now(), opts.DryRun, log)
		sum.Submitted = len(changed)
		if err != nil {
			return fmt.Errorf("submit search engines: %w", err)
		}
	}

	eligible, targets := e.Targets(opts)
	sum.Eligible = len(eligible)
	sum.Scheduled = len(targets)
	log.Infof("Targeting %d of %d eligible contacts for outreach", len(targets), len(eligible))

	ocfg := e.cfg.Outreach
	ocfg.Store = e.cfg.Store
	ocfg.DryRun = opts.DryRun
	res, err := outreach.NewExecutor(ocfg).Execute(ctx, targets)
	if res != nil {
		sum.Outcomes = res.Outcomes
		sum.Sent = res.Count(outreach.KindSent)
		sum.Manual = res.Count(outreach.KindManual)
		sum.Failed = res.Count(outreach.KindFailed)
		sum.OptedOut = res.Count(outreach.KindOptedOut)
		sum.NoChannel = res.Count(outreach.KindNoChannel)
		sum.Planned = res.Count(outreach.KindPlanned)
	}
	if err != nil {
		return err
	}
	log.Infof("Completed outreach to %d contacts", sum.Sent)
	return nil
}

func (e *Engine) kit() outreach.PressKit {
	if e.cfg.Outreach.Composer != nil {
		return e.cfg.Outreach.Composer.Kit
	}
	return outreach.DefaultPressKit()
}

func hasType(types []contact.Type, t contact.Type) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}
