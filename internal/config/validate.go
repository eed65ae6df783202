package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the parts of the config the crawl cannot limp along
// without. Everything else gets a default instead of an error.
func Validate(cfg Config) error {
	var errs []string

	if len(cfg.Crawl.Regions) == 0 {
		errs = append(errs, "crawl.regions must list at least one region code")
	}
	if len(cfg.Crawl.Categories) == 0 {
		errs = append(errs, "crawl.categories must list at least one category code")
	}
	for i, r := range cfg.Crawl.Regions {
		if strings.TrimSpace(r) == "" {
			errs = append(errs, fmt.Sprintf("crawl.regions[%d] is empty", i))
		}
	}
	for i, c := range cfg.Crawl.Categories {
		if strings.TrimSpace(c) == "" {
			errs = append(errs, fmt.Sprintf("crawl.categories[%d] is empty", i))
		}
	}
	if !strings.Contains(cfg.Site.SearchURL, "%s") {
		errs = append(errs, "site.search_url must contain %s placeholders for region and category")
	}
	if cfg.Grading.Enabled && cfg.Grading.Model == "" {
		errs = append(errs, "grading.model is required when grading is enabled")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}

// NormalizeLists trims and dedupes the user-edited term lists in place.
func NormalizeLists(cfg *Config) {
	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	cfg.Crawl.Regions = trimList(cfg.Crawl.Regions)
	cfg.Crawl.Categories = trimList(cfg.Crawl.Categories)
	cfg.PreFilter.BlacklistTerms = trimList(cfg.PreFilter.BlacklistTerms)
}
