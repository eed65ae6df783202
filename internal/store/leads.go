package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"leadgen-engine/internal/domain"
)

// InsertLeadIgnore adds a lead unless its URL is already known. This is the
// system's only dedup gate: a duplicate is a no-op, never an overwrite, so
// manual workflow edits survive re-crawls.
func (d *DB) InsertLeadIgnore(ctx context.Context, lead domain.Lead) (added bool, err error) {
	if lead.URL == "" {
		return false, errors.New("missing url")
	}
	if lead.ScrapedAt.IsZero() {
		lead.ScrapedAt = time.Now().UTC()
	}

	res, err := d.execRetry(ctx, `
INSERT OR IGNORE INTO leads
  (url, title, description, region, category, posted_at, scraped_at,
   estimated_value, contact_method, contact_email, contact_phone,
   contacted, follow_up_at, ai_is_junk, ai_score, ai_reasoning)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?);`,
		lead.URL,
		nullStr(lead.Title),
		nullStr(lead.Description),
		nullStr(lead.Region),
		nullStr(lead.Category),
		nullTime(lead.PostedAt),
		lead.ScrapedAt.UTC().Format(time.RFC3339),
		nullStr(lead.EstimatedValue),
		nullStr(lead.ContactMethod),
		nullStr(lead.ContactEmail),
		nullStr(lead.ContactPhone),
		boolToInt(lead.Contacted),
		nullTime(lead.FollowUpAt),
		nullBool(lead.Grade.IsJunk),
		nullInt(lead.Grade.Score),
		nullStrPtr(lead.Grade.Reasoning),
	)
	if err != nil {
		return false, fmt.Errorf("insert lead: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// HasLead is the cheap dedup probe used before the grading call. The
// authoritative gate stays InsertLeadIgnore.
func (d *DB) HasLead(ctx context.Context, url string) (bool, error) {
	var one int
	err := d.Pool.QueryRowContext(ctx, `SELECT 1 FROM leads WHERE url = ? LIMIT 1;`, url).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListLeads returns every stored lead, newest scrape first.
func (d *DB) ListLeads(ctx context.Context) ([]domain.Lead, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT url, title, description, region, category, posted_at, scraped_at,
       estimated_value, contact_method, contact_email, contact_phone,
       contacted, follow_up_at, ai_is_junk, ai_score, ai_reasoning
FROM leads
ORDER BY scraped_at DESC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lead)
	}
	return out, rows.Err()
}

func (d *DB) CountLeads(ctx context.Context) (int, error) {
	var n int
	err := d.Pool.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads;`).Scan(&n)
	return n, err
}

// MarkContacted flips the workflow flag on an existing row. Unknown URLs are
// a no-op, not an error.
func (d *DB) MarkContacted(ctx context.Context, url string, contacted bool) error {
	_, err := d.execRetry(ctx, `UPDATE leads SET contacted = ? WHERE url = ?;`,
		boolToInt(contacted), url)
	return err
}

// SetFollowUp sets or clears the follow-up date on an existing row.
func (d *DB) SetFollowUp(ctx context.Context, url string, at *time.Time) error {
	_, err := d.execRetry(ctx, `UPDATE leads SET follow_up_at = ? WHERE url = ?;`,
		nullTime(at), url)
	return err
}

func scanLead(rows *sql.Rows) (domain.Lead, error) {
	var lead domain.Lead
	var (
		title, desc, region, category  sql.NullString
		postedAt, scrapedAt            sql.NullString
		estValue, method, email, phone sql.NullString
		contacted                      int
		followUp, reasoning            sql.NullString
		isJunk                         sql.NullBool
		score                          sql.NullInt64
	)
	if err := rows.Scan(
		&lead.URL, &title, &desc, &region, &category, &postedAt, &scrapedAt,
		&estValue, &method, &email, &phone,
		&contacted, &followUp, &isJunk, &score, &reasoning,
	); err != nil {
		return lead, err
	}

	lead.Title = title.String
	lead.Description = desc.String
	lead.Region = region.String
	lead.Category = category.String
	lead.EstimatedValue = estValue.String
	lead.ContactMethod = method.String
	lead.ContactEmail = email.String
	lead.ContactPhone = phone.String
	lead.Contacted = contacted != 0
	lead.PostedAt = parseTimePtr(postedAt)
	lead.FollowUpAt = parseTimePtr(followUp)
	if scrapedAt.Valid {
		lead.ScrapedAt, _ = time.Parse(time.RFC3339, scrapedAt.String)
	}
	if isJunk.Valid {
		v := isJunk.Bool
		lead.Grade.IsJunk = &v
	}
	if score.Valid {
		v := int(score.Int64)
		lead.Grade.Score = &v
	}
	if reasoning.Valid {
		v := reasoning.String
		lead.Grade.Reasoning = &v
	}
	return lead, nil
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullStrPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func nullBool(b *bool) any {
	if b == nil {
		return nil
	}
	if *b {
		return 1
	}
	return 0
}

func nullInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
