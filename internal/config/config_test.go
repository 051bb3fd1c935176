package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NullRecords/nullrecords-cms/pkg/mail"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	if yaml != "" {
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	}
	return v
}

func TestDefaultsAreValid(t *testing.T) {
	c, err := Load(newViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", c.Store.Backend)
	assert.Equal(t, "duckduckgo", c.Search.Engine)
	assert.Equal(t, 12*time.Second, c.Fetch.Timeout)
	assert.Equal(t, 30*time.Second, c.SMTP.DialTimeout)
	assert.Equal(t, 7*24*time.Hour, c.Outreach.MinInterval())
	assert.Equal(t, 20, c.Outreach.DailyCap)
	assert.Equal(t, "team@nullrecords.com", c.PressKit.ContactEmail)
	assert.Len(t, c.PressKit.Artists, 2)
	assert.False(t, c.SMTP.Configured())
}

func TestFileValues(t *testing.T) {
	c, err := Load(newViper(t, `
store:
  backend: json
  path: /tmp/contacts.json
search:
  engine: brave
  brave_token: abc
  queries: ["ambient blogs"]
smtp:
  host: smtp.example.com
  from: team@nullrecords.com
  security: tls
  port: 465
outreach:
  opt_outs: ["no@example.com"]
`))
	require.NoError(t, err)
	assert.Equal(t, "json", c.Store.Backend)
	assert.Equal(t, []string{"ambient blogs"}, c.Search.Queries)
	assert.True(t, c.SMTP.Configured())

	m := c.SMTP.Mail()
	assert.Equal(t, mail.TLS, m.Security)
	assert.Equal(t, 465, m.Port)
	assert.Equal(t, []string{"no@example.com"}, c.Outreach.OptOuts)
}

func TestPlainSMTPEnvironment(t *testing.T) {
	t.Setenv("SMTP_SERVER", "smtp-relay.example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("SENDER_EMAIL", "team@nullrecords.com")
	t.Setenv("OUTREACH_OUTREACH_DAILY_CAP", "5")

	c, err := Load(newViper(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "smtp-relay.example.com", c.SMTP.Host)
	assert.Equal(t, 2525, c.SMTP.Port)
	assert.Equal(t, "team@nullrecords.com", c.SMTP.From)
	assert.Equal(t, 5, c.Outreach.DailyCap)
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown backend", "store:\n  backend: mongo\n", "backend"},
		{"brave without token", "search:\n  engine: brave\n", "bravetoken"},
		{"bad from", "smtp:\n  from: nope\n", "from"},
		{"placeholder", "smtp:\n  host: smtp.your-provider.com\n", "placeholder"},
		{"zero cap", "outreach:\n  daily_cap: 0\n", "dailycap"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(newViper(t, tc.yaml))
			require.Error(t, err)
			assert.Contains(t, strings.ToLower(err.Error()), tc.want)
		})
	}
}
