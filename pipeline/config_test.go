package pipeline

import (
	"testing"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkale/resttap/ratelimit"
)

func loadConfig(t *testing.T, doc string) (Config, error) {
	t.Helper()
	ko := koanf.New(".")
	require.NoError(t, ko.Load(rawbytes.Provider([]byte(doc)), yaml.Parser()))
	return ParseConfig(ko)
}

func TestParseConfig(t *testing.T) {
	cfg, err := loadConfig(t, `
subdomain: acme
email: ops@example.com
api_token: secret
start_date: "2024-05-01T00:00:00Z"
end_date: "2024-06-01T00:00:00Z"
request_timeout: 30s
rate:
  policy: header
  min_remain_rate_limit: 10
bookmarks:
  backend: bolt
  dir: /var/lib/resttap
streams:
  - tickets
  - users
sink:
  name: archive
  type: file
  config:
    dir: /tmp/out
`)
	require.NoError(t, err)

	assert.Equal(t, "acme", cfg.Subdomain)
	assert.Equal(t, "https://acme.zendesk.com", cfg.baseURL())
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "header", cfg.Rate.Policy)
	assert.Equal(t, 10, cfg.Rate.MinRemainRateLimit)
	assert.Equal(t, "bolt", cfg.Bookmarks.Backend)
	assert.Equal(t, []string{"tickets", "users"}, cfg.Streams)
	assert.Equal(t, "file", cfg.Sink.ConnectionType)
	assert.Equal(t, "/tmp/out", cfg.Sink.Config["dir"])

	w, err := cfg.Window()
	require.NoError(t, err)
	require.NotNil(t, w.Start)
	require.NotNil(t, w.End)
	assert.True(t, w.Start.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseConfigBaseURLOverride(t *testing.T) {
	cfg, err := loadConfig(t, `
base_url: http://127.0.0.1:9999
email: ops@example.com
api_token: secret
`)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9999", cfg.baseURL())
}

func TestParseConfigRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"no subdomain or base_url", `
email: ops@example.com
api_token: secret
`},
		{"missing credentials", `
subdomain: acme
`},
		{"unknown rate policy", `
subdomain: acme
email: ops@example.com
api_token: secret
rate:
  policy: token_bucket
`},
		{"unknown stream", `
subdomain: acme
email: ops@example.com
api_token: secret
streams:
  - invoices
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loadConfig(t, tc.doc)
			assert.Error(t, err)
		})
	}
}

func TestParseConfigBadDates(t *testing.T) {
	cfg, err := loadConfig(t, `
subdomain: acme
email: ops@example.com
api_token: secret
start_date: not-a-date
`)
	require.NoError(t, err)
	_, err = cfg.Window()
	assert.Error(t, err)
}

func TestGovernorSelection(t *testing.T) {
	cfg := Config{Rate: RateConfig{Policy: "interval", MinInterval: time.Second}}
	assert.IsType(t, &ratelimit.IntervalGovernor{}, cfg.Governor())

	cfg = Config{Rate: RateConfig{Policy: "header"}}
	assert.IsType(t, &ratelimit.HeaderGovernor{}, cfg.Governor())

	cfg = Config{}
	assert.IsType(t, ratelimit.NopGovernor{}, cfg.Governor())
}
