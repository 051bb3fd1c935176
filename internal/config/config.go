// Package config loads the outreach settings from file, environment and
// defaults through viper.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/NullRecords/nullrecords-cms/pkg/mail"
	"github.com/NullRecords/nullrecords-cms/pkg/outreach"
)

// EnvPrefix prefixes every environment override, e.g. OUTREACH_STORE_PATH.
const EnvPrefix = "OUTREACH"

// Config is the validated application configuration.
type Config struct {
	Store    Store             `mapstructure:"store"`
	Search   Search            `mapstructure:"search"`
	Fetch    Fetch             `mapstructure:"fetch"`
	SMTP     SMTP              `mapstructure:"smtp"`
	IMAP     IMAP              `mapstructure:"imap"`
	Outreach Outreach          `mapstructure:"outreach"`
	PressKit outreach.PressKit `mapstructure:"press_kit"`
}

type Store struct {
	Backend string `mapstructure:"backend" validate:"oneof=sqlite json"`
	Path    string `mapstructure:"path"` // empty means the default location
}

type Search struct {
	Engine          string   `mapstructure:"engine" validate:"oneof=duckduckgo brave"`
	BraveToken      string   `mapstructure:"brave_token" validate:"required_if=Engine brave"`
	Queries         []string `mapstructure:"queries" validate:"dive,required"`
	MaxQueries      int      `mapstructure:"max_queries" validate:"min=1"`
	ResultsPerQuery int      `mapstructure:"results_per_query" validate:"min=1,max=20"`
}

type Fetch struct {
	Timeout           time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RetryMax          int           `mapstructure:"retry_max" validate:"min=0,max=10"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int           `mapstructure:"burst" validate:"min=1"`
	UserAgent         string        `mapstructure:"user_agent"`
}

type SMTP struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port" validate:"min=1,max=65535"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	From        string        `mapstructure:"from" validate:"omitempty,email"`
	FromName    string        `mapstructure:"from_name"`
	Bcc         string        `mapstructure:"bcc" validate:"omitempty,email"`
	Security    string        `mapstructure:"security" validate:"oneof=starttls tls none"`
	DialTimeout time.Duration `mapstructure:"dial_timeout" validate:"gt=0"`
}

type IMAP struct {
	Addr         string `mapstructure:"addr"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Mailbox      string `mapstructure:"mailbox"`
	LookbackDays int    `mapstructure:"lookback_days" validate:"min=1"`
}

type Outreach struct {
	MaxPerContact   int      `mapstructure:"max_per_contact" validate:"min=1"`
	MinIntervalDays int      `mapstructure:"min_interval_days" validate:"min=0"`
	DailyCap        int      `mapstructure:"daily_cap" validate:"min=1"`
	PlanPath        string   `mapstructure:"plan_path"`
	OptOuts         []string `mapstructure:"opt_outs" validate:"dive,email"`
}

// Configured reports whether an SMTP relay is set up.
func (s SMTP) Configured() bool { return s.Host != "" && s.From != "" }

// Mail converts the settings for the mail package.
func (s SMTP) Mail() mail.Config {
	return mail.Config{
		Host:        s.Host,
		Port:        s.Port,
		Username:    s.Username,
		Password:    s.Password,
		From:        s.From,
		FromName:    s.FromName,
		Bcc:         s.Bcc,
		Security:    mail.Security(s.Security),
		DialTimeout: s.DialTimeout,
	}
}

// MinInterval is the configured gap between two messages to one contact.
func (o Outreach) MinInterval() time.Duration {
	return time.Duration(o.MinIntervalDays) * 24 * time.Hour
}

// placeholders are sample values from setup guides that must not reach a
// real send.
var placeholders = []string{
	"your_smtp_server",
	"your_smtp_username",
	"your_smtp_password",
	"your_sender_email",
	"your_team_email",
	"your_actual_value",
	"smtp.your-provider.com",
	"outreach@yourdomain.com",
}

var validate = validator.New()

// SetDefaults registers every key with its default value. Keys must be known
// to viper for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	kit := outreach.DefaultPressKit()

	v.SetDefault("store.backend", "sqlite")
	v.SetDefault("store.path", "")

	v.SetDefault("search.engine", "duckduckgo")
	v.SetDefault("search.brave_token", "")
	v.SetDefault("search.queries", []string{})
	v.SetDefault("search.max_queries", 2)
	v.SetDefault("search.results_per_query", 5)

	v.SetDefault("fetch.timeout", "12s")
	v.SetDefault("fetch.retry_max", 2)
	v.SetDefault("fetch.requests_per_second", 0.5)
	v.SetDefault("fetch.burst", 1)
	v.SetDefault("fetch.user_agent", "")

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", mail.DefaultPort)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.from_name", "NullRecords")
	v.SetDefault("smtp.bcc", "")
	v.SetDefault("smtp.security", string(mail.StartTLS))
	v.SetDefault("smtp.dial_timeout", "30s")

	v.SetDefault("imap.addr", "")
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.password", "")
	v.SetDefault("imap.mailbox", "INBOX")
	v.SetDefault("imap.lookback_days", 30)

	v.SetDefault("outreach.max_per_contact", 4)
	v.SetDefault("outreach.min_interval_days", 7)
	v.SetDefault("outreach.daily_cap", 20)
	v.SetDefault("outreach.plan_path", "")
	v.SetDefault("outreach.opt_outs", []string{})

	v.SetDefault("press_kit.site_url", kit.SiteURL)
	v.SetDefault("press_kit.contact_email", kit.ContactEmail)
	v.SetDefault("press_kit.genres", kit.Genres)
	v.SetDefault("press_kit.artists", kit.Artists)
}

// BindEnv enables OUTREACH_* overrides and the plain SMTP variables used by
// the deployment scripts.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("smtp.host", "OUTREACH_SMTP_HOST", "SMTP_SERVER")
	_ = v.BindEnv("smtp.port", "OUTREACH_SMTP_PORT", "SMTP_PORT")
	_ = v.BindEnv("smtp.username", "OUTREACH_SMTP_USERNAME", "SMTP_USER")
	_ = v.BindEnv("smtp.password", "OUTREACH_SMTP_PASSWORD", "SMTP_PASSWORD")
	_ = v.BindEnv("smtp.from", "OUTREACH_SMTP_FROM", "SENDER_EMAIL")
	_ = v.BindEnv("smtp.bcc", "OUTREACH_SMTP_BCC", "BCC_EMAIL")
	_ = v.BindEnv("press_kit.site_url", "OUTREACH_PRESS_KIT_SITE_URL", "WEBSITE_BASE_URL")
	_ = v.BindEnv("press_kit.contact_email", "OUTREACH_PRESS_KIT_CONTACT_EMAIL", "CONTACT_EMAIL")
	_ = v.BindEnv("search.brave_token", "OUTREACH_SEARCH_BRAVE_TOKEN", "BRAVE_API_KEY")
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks field constraints and rejects sample placeholder values.
func (c Config) Validate() error {
	var errs []string
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Namespace()), fe.Tag()))
		}
	}
	fields := []struct{ name, val string }{
		{"smtp.host", c.SMTP.Host},
		{"smtp.username", c.SMTP.Username},
		{"smtp.password", c.SMTP.Password},
		{"smtp.from", c.SMTP.From},
	}
	for _, f := range fields {
		for _, p := range placeholders {
			if strings.EqualFold(strings.TrimSpace(f.val), p) {
				errs = append(errs, fmt.Sprintf("%s still holds the placeholder %q", f.name, p))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DefaultPath is $HOME/.outreach.yaml.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".outreach.yaml"), nil
}
