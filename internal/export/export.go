// Package export publishes the graded lead list as the document an external
// display layer reads. The core's only contract here is a complete,
// correctly-typed lead list; the document shape belongs to the reader.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"leadgen-engine/internal/domain"
)

type leadDoc struct {
	URL            string  `json:"url"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Region         string  `json:"region"`
	Category       string  `json:"category"`
	PostedAt       *string `json:"date_posted_iso"`
	ScrapedAt      string  `json:"scraped_timestamp"`
	EstimatedValue string  `json:"estimated_value,omitempty"`
	ContactMethod  string  `json:"contact_method,omitempty"`
	ContactEmail   string  `json:"contact_email,omitempty"`
	ContactPhone   string  `json:"contact_phone,omitempty"`
	Contacted      bool    `json:"has_been_contacted"`
	FollowUpAt     *string `json:"follow_up_date"`
	AIIsJunk       *bool   `json:"ai_is_junk"`
	AIScore        *int    `json:"ai_profitability_score"`
	AIReasoning    *string `json:"ai_reasoning"`
}

// WriteLeadsJSON serializes leads to path. The write goes through a temp
// file plus rename under an advisory lock, so a concurrent writer or the
// display layer's reader never observes a torn document.
func WriteLeadsJSON(path string, leads []domain.Lead) error {
	docs := make([]leadDoc, 0, len(leads))
	for _, l := range leads {
		docs = append(docs, toDoc(l))
	}

	b, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal leads: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	lockWait, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLockContext(lockWait, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("lock export file: %w", err)
	}
	if !ok {
		return fmt.Errorf("lock export file: another writer holds it")
	}
	defer func() { _ = lock.Unlock() }()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publish export: %w", err)
	}
	return nil
}

func toDoc(l domain.Lead) leadDoc {
	return leadDoc{
		URL:            l.URL,
		Title:          l.Title,
		Description:    l.Description,
		Region:         l.Region,
		Category:       l.Category,
		PostedAt:       timePtr(l.PostedAt),
		ScrapedAt:      l.ScrapedAt.UTC().Format(time.RFC3339),
		EstimatedValue: l.EstimatedValue,
		ContactMethod:  l.ContactMethod,
		ContactEmail:   l.ContactEmail,
		ContactPhone:   l.ContactPhone,
		Contacted:      l.Contacted,
		FollowUpAt:     timePtr(l.FollowUpAt),
		AIIsJunk:       l.Grade.IsJunk,
		AIScore:        l.Grade.Score,
		AIReasoning:    l.Grade.Reasoning,
	}
}

func timePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
