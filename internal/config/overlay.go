// internal/config/overlay.go
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type RegionsFile struct {
	Regions []string `yaml:"regions"`
}

// OverlayRegions replaces the configured region list with the contents of a
// standalone regions file, when one exists. The big region lists are data
// maintained outside the main config.
func OverlayRegions(cfg *Config, regionsPath string) error {
	b, err := os.ReadFile(regionsPath)
	if err != nil {
		// Missing regions file should not kill startup
		return nil
	}

	var rf RegionsFile
	if err := yaml.Unmarshal(b, &rf); err != nil {
		return err
	}

	if len(rf.Regions) > 0 {
		cfg.Crawl.Regions = rf.Regions
	}
	return nil
}
