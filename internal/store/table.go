package store

import (
	"database/sql"
	"fmt"
)

// Migrate brings the single-file schema up to date. Additive only: re-running
// against an older file adds what is missing, never drops or renames.
func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// ---- Base tables ----

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS leads (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  url TEXT UNIQUE NOT NULL,
  title TEXT,
  description TEXT,
  region TEXT,
  category TEXT,
  posted_at TEXT,
  scraped_at TEXT NOT NULL,
  estimated_value TEXT,
  contact_method TEXT,
  contacted INTEGER NOT NULL DEFAULT 0,
  follow_up_at TEXT,
  ai_is_junk INTEGER,
  ai_score INTEGER,
  ai_reasoning TEXT
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS progress (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_leads_scraped_at
ON leads(scraped_at DESC);
`); err != nil {
		return err
	}

	// ---- Columns added after the first schema shipped ----
	// Probe-and-add so an old leads.db keeps working.

	if !columnExists(tx, "leads", "contact_email") {
		if _, err := tx.Exec(`ALTER TABLE leads ADD COLUMN contact_email TEXT;`); err != nil {
			return err
		}
	}
	if !columnExists(tx, "leads", "contact_phone") {
		if _, err := tx.Exec(`ALTER TABLE leads ADD COLUMN contact_phone TEXT;`); err != nil {
			return err
		}
	}

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v < 1 {
		if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func columnExists(q interface {
	QueryRow(query string, args ...any) *sql.Row
}, table, col string) bool {
	query := fmt.Sprintf(`
SELECT 1
FROM pragma_table_info('%s')
WHERE name = ?
LIMIT 1;
`, table)

	var one int
	err := q.QueryRow(query, col).Scan(&one)
	return err == nil
}
