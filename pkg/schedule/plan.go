package schedule

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Plan is the daily outreach configuration.
type Plan struct {
	Daily    DailyPlan    `yaml:"daily_outreach"`
	FollowUp FollowUpPlan `yaml:"follow_up_schedule"`
}

type DailyPlan struct {
	Enabled             bool               `yaml:"enabled"`
	MaxContactsPerDay   int                `yaml:"max_contacts_per_day"`
	DiscoveryEnabled    bool               `yaml:"discovery_enabled"`
	MaxNewSourcesPerDay int                `yaml:"max_new_sources_per_day"`
	TargetDistribution  map[string]float64 `yaml:"target_distribution"`
}

// FollowUpPlan holds the follow-up offsets in days after the first contact.
type FollowUpPlan struct {
	FirstDays  int `yaml:"first_follow_up_days"`
	SecondDays int `yaml:"second_follow_up_days"`
	FinalDays  int `yaml:"final_follow_up_days"`
}

// DefaultPlan returns the plan used when no plan file exists.
func DefaultPlan() Plan {
	return Plan{
		Daily: DailyPlan{
			Enabled:             true,
			MaxContactsPerDay:   20,
			DiscoveryEnabled:    true,
			MaxNewSourcesPerDay: 5,
			TargetDistribution: map[string]float64{
				"publication": 0.4,
				"influencer":  0.25,
				"curator":     0.15,
				"platform":    0.1,
				"ai_service":  0.1,
			},
		},
		FollowUp: FollowUpPlan{FirstDays: 14, SecondDays: 30, FinalDays: 60},
	}
}

// Distribution returns the plan's target distribution in canonical order.
func (p Plan) Distribution() (Distribution, error) {
	return DistributionFromMap(p.Daily.TargetDistribution)
}

// Validate collects every problem with the plan.
func (p Plan) Validate() error {
	var errs []string
	if p.Daily.MaxContactsPerDay < 0 {
		errs = append(errs, "daily_outreach.max_contacts_per_day must be >= 0")
	}
	if p.Daily.MaxNewSourcesPerDay < 0 {
		errs = append(errs, "daily_outreach.max_new_sources_per_day must be >= 0")
	}
	if d, err := p.Distribution(); err != nil {
		errs = append(errs, "daily_outreach.target_distribution: "+err.Error())
	} else {
		total := 0.0
		for _, s := range d {
			total += s.Fraction
		}
		if total > 1.0+1e-9 {
			errs = append(errs, fmt.Sprintf("daily_outreach.target_distribution sums to %.2f, must be <= 1", total))
		}
	}
	f := p.FollowUp
	if f.FirstDays < 0 || f.SecondDays < f.FirstDays || f.FinalDays < f.SecondDays {
		errs = append(errs, "follow_up_schedule days must be non-negative and increasing")
	}
	if len(errs) > 0 {
		return errors.New("plan validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}

// LoadPlan reads a plan file. A missing file yields DefaultPlan and
// os.ErrNotExist so callers can decide whether to write it.
func LoadPlan(path string) (Plan, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultPlan(), err
		}
		return Plan{}, err
	}
	var p Plan
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Plan{}, fmt.Errorf("parse plan %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// SavePlan validates p and writes it atomically, keeping a .bak of the
// previous file.
func SavePlan(path string, p Plan) error {
	if err := p.Validate(); err != nil {
		return err
	}
	b, err := yaml.Marshal(&p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	bak := path + ".bak"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	_ = os.Remove(bak)
	_ = os.Rename(path, bak)
	return os.Rename(tmp, path)
}
