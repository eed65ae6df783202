package crawl

import "log"

// WorkItem is one unit of page work. Ephemeral: produced while walking a
// region, never persisted.
type WorkItem struct {
	Region   string
	Category string
	Page     int
}

// Remaining returns the regions still to crawl, in input order, dropping
// everything up to and including the checkpointed region. A checkpoint that
// matches no known region fails open: log it and restart from the beginning,
// never abort the run.
func Remaining(regions []string, lastCompleted string) []string {
	if lastCompleted == "" {
		return regions
	}
	for i, r := range regions {
		if r == lastCompleted {
			return regions[i+1:]
		}
	}
	log.Printf("[resume] checkpoint %q not in region list, restarting from the top", lastCompleted)
	return regions
}
