package store

import (
	"context"
	"database/sql"
	"errors"
)

const keyLastCompletedRegion = "last_completed_region"

// LastCompletedRegion returns the checkpoint, or "" for a fresh run.
func (d *DB) LastCompletedRegion(ctx context.Context) (string, error) {
	return d.progressValue(ctx, keyLastCompletedRegion)
}

// SetLastCompletedRegion commits the checkpoint. Called only after a region
// fully drains: all categories, all pages, all detail work joined.
func (d *DB) SetLastCompletedRegion(ctx context.Context, region string) error {
	return d.setProgressValue(ctx, keyLastCompletedRegion, region)
}

func (d *DB) progressValue(ctx context.Context, key string) (string, error) {
	var v string
	err := d.Pool.QueryRowContext(ctx,
		`SELECT value FROM progress WHERE key = ?;`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (d *DB) setProgressValue(ctx context.Context, key, value string) error {
	if value == "" {
		return d.deleteProgressKey(ctx, key)
	}
	_, err := d.execRetry(ctx,
		`INSERT OR REPLACE INTO progress (key, value) VALUES (?, ?);`, key, value)
	return err
}

func (d *DB) deleteProgressKey(ctx context.Context, key string) error {
	_, err := d.execRetry(ctx, `DELETE FROM progress WHERE key = ?;`, key)
	return err
}
