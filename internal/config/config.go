// internal/config/config.go
package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		DataDir string `yaml:"data_dir"`
		Verbose bool   `yaml:"verbose"`
	} `yaml:"app"`

	Site struct {
		// Search URL pattern; %s placeholders are region then category.
		SearchURL string `yaml:"search_url"`
		// Host pattern for the cross-region guard; %s is the region code.
		Host string `yaml:"host"`
	} `yaml:"site"`

	Crawl struct {
		Regions             []string `yaml:"regions"`
		Categories          []string `yaml:"categories"`
		MaxPagesPerCategory int      `yaml:"max_pages_per_category"`
		MaxLeadsPerPage     int      `yaml:"max_leads_per_page"` // 0 = unlimited
		InnerWorkers        int      `yaml:"inner_workers"`
		OuterMultiplier     int      `yaml:"outer_multiplier"` // regions in flight = cpus * this
		Resume              bool     `yaml:"resume"`
	} `yaml:"crawl"`

	Proxy struct {
		Endpoint string `yaml:"endpoint"`
		Username string `yaml:"username"`
		Password string `yaml:"password"` // usually left empty; env/keyring win
	} `yaml:"proxy"`

	Fetch struct {
		MaxRetries     int     `yaml:"max_retries"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		HostReqPerSec  float64 `yaml:"host_req_per_sec"`
		HostBurst      int     `yaml:"host_burst"`
	} `yaml:"fetch"`

	PreFilter struct {
		BlacklistTerms []string `yaml:"blacklist_terms"`
		MaxAgeDays     int      `yaml:"max_age_days"`
	} `yaml:"pre_filter"`

	Grading struct {
		Enabled         bool     `yaml:"enabled"`
		Model           string   `yaml:"model"`
		MaxTokens       int      `yaml:"max_tokens"`
		APIKeys         []string `yaml:"api_keys"` // usually left empty; env/keyring win
		CooldownMinutes int      `yaml:"cooldown_minutes"`
		MaxWaitSeconds  int      `yaml:"max_wait_seconds"`
	} `yaml:"grading"`

	Export struct {
		Path string `yaml:"path"`
	} `yaml:"export"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	ApplyDefaults(&cfg)
	return cfg, nil
}

// DataDir resolves the runtime data directory. The LEADGEN_DATA_DIR
// environment variable wins, then app.data_dir from the config, then the
// current directory.
func DataDir(cfg Config) string {
	if v := strings.TrimSpace(os.Getenv("LEADGEN_DATA_DIR")); v != "" {
		return v
	}
	if cfg.App.DataDir != "" {
		return cfg.App.DataDir
	}
	return "."
}

// ApplyDefaults fills zero values the rest of the engine assumes are set.
func ApplyDefaults(cfg *Config) {
	if cfg.Site.SearchURL == "" {
		cfg.Site.SearchURL = "https://%s.craigslist.org/search/%s"
	}
	if cfg.Site.Host == "" {
		cfg.Site.Host = "%s.craigslist.org"
	}
	if cfg.Crawl.MaxPagesPerCategory <= 0 {
		cfg.Crawl.MaxPagesPerCategory = 5
	}
	if cfg.Crawl.InnerWorkers <= 0 {
		cfg.Crawl.InnerWorkers = 8
	}
	if cfg.Crawl.OuterMultiplier <= 0 {
		cfg.Crawl.OuterMultiplier = 2
	}
	if cfg.Fetch.MaxRetries <= 0 {
		cfg.Fetch.MaxRetries = 3
	}
	if cfg.Fetch.TimeoutSeconds <= 0 {
		cfg.Fetch.TimeoutSeconds = 60
	}
	if cfg.Fetch.HostReqPerSec <= 0 {
		cfg.Fetch.HostReqPerSec = 0.5
	}
	if cfg.Fetch.HostBurst <= 0 {
		cfg.Fetch.HostBurst = 1
	}
	if cfg.PreFilter.MaxAgeDays <= 0 {
		cfg.PreFilter.MaxAgeDays = 7
	}
	if cfg.Grading.Model == "" {
		cfg.Grading.Model = "claude-3-5-haiku-latest"
	}
	if cfg.Grading.MaxTokens <= 0 {
		cfg.Grading.MaxTokens = 300
	}
	if cfg.Grading.CooldownMinutes <= 0 {
		cfg.Grading.CooldownMinutes = 20
	}
	if cfg.Grading.MaxWaitSeconds <= 0 {
		cfg.Grading.MaxWaitSeconds = 120
	}
}
