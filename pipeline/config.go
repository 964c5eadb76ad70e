package pipeline

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"

	"github.com/mkale/resttap/extract"
	"github.com/mkale/resttap/ratelimit"
	"github.com/mkale/resttap/sinks"
	"github.com/mkale/resttap/stream"
)

type RateConfig struct {
	// Policy picks exactly one governor: "interval" prevents, "header"
	// reacts. Empty disables governing.
	Policy             string        `koanf:"policy" json:"policy"`
	MinInterval        time.Duration `koanf:"min_interval" json:"min_interval"`
	MinRemainRateLimit int           `koanf:"min_remain_rate_limit" json:"min_remain_rate_limit"`
}

type BookmarkConfig struct {
	Backend string `koanf:"backend" json:"backend"`
	Dir     string `koanf:"dir" json:"dir"`
}

type Config struct {
	Subdomain string `koanf:"subdomain" json:"subdomain"`
	// BaseURL overrides the subdomain-derived URL, mainly for tests and
	// self-hosted installations.
	BaseURL        string           `koanf:"base_url" json:"base_url"`
	Email          string           `koanf:"email" json:"email"`
	APIToken       string           `koanf:"api_token" json:"api_token"`
	StartDate      string           `koanf:"start_date" json:"start_date"`
	EndDate        string           `koanf:"end_date" json:"end_date"`
	RequestTimeout time.Duration    `koanf:"request_timeout" json:"request_timeout"`
	Rate           RateConfig       `koanf:"rate" json:"rate"`
	Bookmarks      BookmarkConfig   `koanf:"bookmarks" json:"bookmarks"`
	Streams        []string         `koanf:"streams" json:"streams"`
	Sink           sinks.SinkConfig `koanf:"sink" json:"sink"`
}

// ParseConfig unmarshals the merged koanf tree into a runner config.
func ParseConfig(ko *koanf.Koanf) (Config, error) {
	var cfg Config
	if err := ko.Unmarshal("", &cfg); err != nil {
		log.Err(err).Msg("Error when un-marshaling config")
		return Config{}, err
	}
	if err := cfg.check(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) check() error {
	if c.Subdomain == "" && c.BaseURL == "" {
		return fmt.Errorf("either subdomain or base_url must be set")
	}
	if c.Email == "" || c.APIToken == "" {
		return fmt.Errorf("email and api_token must be set")
	}
	if c.Rate.Policy != "" && c.Rate.Policy != "interval" && c.Rate.Policy != "header" {
		return fmt.Errorf("unknown rate policy %q", c.Rate.Policy)
	}
	for _, name := range c.Streams {
		if _, ok := stream.Lookup(name); !ok {
			return fmt.Errorf("unknown stream %q", name)
		}
	}
	return nil
}

func (c Config) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return fmt.Sprintf("https://%s.zendesk.com", c.Subdomain)
}

// Window builds the extraction window shared by every stream in the run.
func (c Config) Window() (extract.Window, error) {
	var w extract.Window
	if c.StartDate != "" {
		t, err := stream.ParseTimestamp(c.StartDate)
		if err != nil {
			return w, fmt.Errorf("parsing start_date: %w", err)
		}
		w.Start = &t
	}
	if c.EndDate != "" {
		t, err := stream.ParseTimestamp(c.EndDate)
		if err != nil {
			return w, fmt.Errorf("parsing end_date: %w", err)
		}
		w.End = &t
	}
	return w, nil
}

// defaultMinInterval derives from a provider-wide 250 requests/minute
// ceiling.
const defaultMinInterval = 240 * time.Millisecond

// Governor builds the one process-wide rate governor for the run.
func (c Config) Governor() ratelimit.Governor {
	switch c.Rate.Policy {
	case "interval":
		interval := c.Rate.MinInterval
		if interval <= 0 {
			interval = defaultMinInterval
		}
		return ratelimit.NewIntervalGovernor(interval)
	case "header":
		return ratelimit.NewHeaderGovernor(c.Rate.MinRemainRateLimit)
	default:
		return ratelimit.NopGovernor{}
	}
}
