package domain

import "time"

// Lead is one discovered classified-ad posting. URL is the identity:
// the store keeps exactly one row per distinct URL.
type Lead struct {
	URL            string
	Title          string
	Description    string
	Region         string
	Category       string
	PostedAt       *time.Time // nil when the detail page had no posting-time element
	ScrapedAt      time.Time
	EstimatedValue string
	ContactMethod  string
	ContactEmail   string
	ContactPhone   string

	Contacted  bool
	FollowUpAt *time.Time

	Grade Grade
}

// Grade is the AI enrichment result. All-nil fields mean "not graded",
// which is distinct from a graded-as-junk lead.
type Grade struct {
	IsJunk    *bool
	Score     *int // 1..10
	Reasoning *string
}

// Graded reports whether the lead carries any enrichment at all.
func (g Grade) Graded() bool {
	return g.IsJunk != nil || g.Score != nil || g.Reasoning != nil
}
