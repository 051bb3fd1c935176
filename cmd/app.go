package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/NullRecords/nullrecords-cms/internal/config"
	"github.com/NullRecords/nullrecords-cms/internal/utils"
	"github.com/NullRecords/nullrecords-cms/pkg/contact"
	"github.com/NullRecords/nullrecords-cms/pkg/discover"
	"github.com/NullRecords/nullrecords-cms/pkg/eligibility"
	"github.com/NullRecords/nullrecords-cms/pkg/engine"
	"github.com/NullRecords/nullrecords-cms/pkg/fetch"
	"github.com/NullRecords/nullrecords-cms/pkg/mail"
	"github.com/NullRecords/nullrecords-cms/pkg/outreach"
	"github.com/NullRecords/nullrecords-cms/pkg/schedule"
	"github.com/NullRecords/nullrecords-cms/pkg/search"
	"github.com/NullRecords/nullrecords-cms/pkg/sources"
	"github.com/NullRecords/nullrecords-cms/pkg/storage"
	"github.com/NullRecords/nullrecords-cms/pkg/store"
)

var errNeedsSQLite = errors.New("this command needs the sqlite backend")

// app is an opened contact store plus the loaded configuration.
type app struct {
	cfg   config.Config
	path  string
	store *store.Store
	db    *storage.DB // nil unless the sqlite backend is used
}

func loadConfig() (config.Config, error) {
	return config.Load(viper.GetViper())
}

// storePath resolves the configured store location for backend.
func storePath(cfg config.Config) (string, error) {
	if cfg.Store.Path != "" {
		return filepath.Abs(cfg.Store.Path)
	}
	def, err := utils.GetAbsDBPath("")
	if err != nil {
		return "", err
	}
	if cfg.Store.Backend == "json" {
		return filepath.Join(filepath.Dir(def), "outreach_contacts.json"), nil
	}
	return def, nil
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	path, err := storePath(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, path: path}

	var backend store.Backend
	switch cfg.Store.Backend {
	case "json":
		backend = store.NewFileBackend(path)
	default:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
		a.db, err = storage.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		backend = a.db
	}

	a.store, err = store.Open(ctx, backend)
	if err != nil {
		a.Close()
		return nil, err
	}
	utils.Log.Debugf("Loaded %d contacts from %s", a.store.Len(), path)
	return a, nil
}

func (a *app) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// withApp opens the store under the run lock and calls fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path, err := storePath(cfg)
	if err != nil {
		return err
	}
	return utils.WithLock(ctx, path, func() error {
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a)
	})
}

func (a *app) optOuts() outreach.OptOuts {
	list := outreach.OptOutList{outreach.NewStaticOptOuts(a.cfg.Outreach.OptOuts...)}
	if a.db != nil {
		list = append(list, a.db)
	}
	return list
}

func (a *app) filter() eligibility.Filter {
	return eligibility.Filter{
		MaxOutreachPerContact: a.cfg.Outreach.MaxPerContact,
		MinInterval:           a.cfg.Outreach.MinInterval(),
	}
}

func (a *app) mailer() outreach.Mailer {
	if !a.cfg.SMTP.Configured() {
		utils.Log.Warn("SMTP is not configured, emails will only be logged")
		return mail.LogMailer{Log: utils.Log}
	}
	return mail.NewSMTP(a.cfg.SMTP.Mail(), utils.Log)
}

func (a *app) discoverer(ctx context.Context) (*discover.Discoverer, error) {
	trackers, err := a.store.Sources(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}
	f := fetch.New(fetch.Options{
		Timeout:   a.cfg.Fetch.Timeout,
		RetryMax:  a.cfg.Fetch.RetryMax,
		UserAgent: a.cfg.Fetch.UserAgent,
		Limiter:   fetch.NewHostLimiter(a.cfg.Fetch.RequestsPerSecond, a.cfg.Fetch.Burst),
	})
	eng, err := search.New(a.cfg.Search.Engine, f, a.cfg.Search.BraveToken)
	if err != nil {
		return nil, err
	}
	return discover.New(discover.Config{
		Engine:          eng,
		Fetcher:         f,
		Sources:         sources.NewRegistry(trackers),
		Queries:         a.cfg.Search.Queries,
		MaxQueries:      a.cfg.Search.MaxQueries,
		ResultsPerQuery: a.cfg.Search.ResultsPerQuery,
		Log:             utils.Log,
	}), nil
}

// engine builds an Engine; discovery is wired only when withDiscovery is set
// so offline commands never build an HTTP client.
func (a *app) engine(ctx context.Context, withDiscovery bool) (*engine.Engine, error) {
	cfg := engine.Config{
		Store:  a.store,
		Filter: a.filter(),
		Outreach: outreach.Config{
			Mailer:   a.mailer(),
			OptOuts:  a.optOuts(),
			Composer: outreach.NewComposer(a.cfg.PressKit),
		},
		Log: utils.Log,
	}
	if withDiscovery {
		d, err := a.discoverer(ctx)
		if err != nil {
			return nil, err
		}
		cfg.Discoverer = d
	}
	return engine.New(cfg), nil
}

// parseTypes reads a comma-separated --target-type value.
func parseTypes(s string) ([]contact.Type, error) {
	var out []contact.Type
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		t, err := contact.ParseType(part)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// findOne resolves a fingerprint, name, email or domain to exactly one
// contact.
func findOne(s *store.Store, q string) (contact.Contact, error) {
	found := s.Find(q)
	switch len(found) {
	case 0:
		return contact.Contact{}, fmt.Errorf("%w: %q", store.ErrNotFound, q)
	case 1:
		return found[0], nil
	}
	names := make([]string, 0, len(found))
	for _, c := range found {
		names = append(names, fmt.Sprintf("%s (%s)", c.Name, c.Fingerprint))
	}
	return contact.Contact{}, fmt.Errorf("%q matches %d contacts: %s", q, len(found), strings.Join(names, ", "))
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// planPath is the configured plan file, or outreach_plan.yaml next to the
// store.
func (a *app) planPath() string {
	if a.cfg.Outreach.PlanPath != "" {
		return a.cfg.Outreach.PlanPath
	}
	return filepath.Join(filepath.Dir(a.path), "outreach_plan.yaml")
}

// loadPlan reads the plan, falling back to the default when none exists.
func (a *app) loadPlan() (schedule.Plan, error) {
	p, err := schedule.LoadPlan(a.planPath())
	if errors.Is(err, os.ErrNotExist) {
		utils.Log.Debugf("No plan at %s, using defaults", a.planPath())
		return p, nil
	}
	return p, err
}
