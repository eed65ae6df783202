// Package prefilter applies the cheap disqualification checks that run
// before any paid grading call.
package prefilter

import (
	"strings"
	"time"

	"leadgen-engine/internal/domain"
)

type Filter struct {
	terms      []string // lowercased blacklist
	maxAgeDays int
	now        func() time.Time
}

func New(blacklistTerms []string, maxAgeDays int) *Filter {
	terms := make([]string, 0, len(blacklistTerms))
	for _, t := range blacklistTerms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			terms = append(terms, t)
		}
	}
	return &Filter{terms: terms, maxAgeDays: maxAgeDays, now: time.Now}
}

// Passes runs both checks. The reason names the check that rejected,
// for skip logging.
func (f *Filter) Passes(lead domain.Lead) (keep bool, reason string) {
	if term := f.matchBlacklist(lead.Title, lead.Description); term != "" {
		return false, "blacklist:" + term
	}
	if !f.passesAge(lead.PostedAt) {
		return false, "too_old"
	}
	return true, ""
}

// PassesTitle is the results-page variant: only the title is known yet.
func (f *Filter) PassesTitle(title string) (keep bool, reason string) {
	if term := f.matchBlacklist(title, ""); term != "" {
		return false, "blacklist:" + term
	}
	return true, ""
}

func (f *Filter) matchBlacklist(title, description string) string {
	text := strings.ToLower(title + " " + description)
	for _, term := range f.terms {
		if strings.Contains(text, term) {
			return term
		}
	}
	return ""
}

// passesAge rejects postings strictly older than the threshold. A posting
// dated exactly at the threshold passes. A missing date passes: parsing gaps
// must not silently drop otherwise-valid leads.
func (f *Filter) passesAge(postedAt *time.Time) bool {
	if postedAt == nil || f.maxAgeDays <= 0 {
		return true
	}
	cutoff := f.now().UTC().AddDate(0, 0, -f.maxAgeDays)
	return !postedAt.Before(cutoff)
}
