package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SourceRepo struct {
	db *DB
}

var _ SourceRepository = (*SourceRepo)(nil)

func NewSourceRepository(db *DB) *SourceRepo {
	return &SourceRepo{db: db}
}

// UpsertSource registers a source by name, updating its locator, policy and
// active flag when it already exists. Returns the source ID and whether the
// locator changed.
func (r *SourceRepo) UpsertSource(name, kind, locator, policy string, active bool) (string, bool, error) {
	var id, existingLocator string
	err := r.db.QueryRow("SELECT id, locator FROM sources WHERE name = ?", name).Scan(&id, &existingLocator)
	if err == sql.ErrNoRows {
		id = uuid.NewString()
		_, err = r.db.Exec(`
			INSERT INTO sources (id, name, kind, locator, policy, active)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, name, kind, locator, policy, active)
		if err != nil {
			return "", false, fmt.Errorf("failed to insert source: %w", err)
		}
		return id, false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up source: %w", err)
	}

	_, err = r.db.Exec(`
		UPDATE sources SET kind = ?, locator = ?, policy = ?, active = ?
		WHERE id = ?
	`, kind, locator, policy, active, id)
	if err != nil {
		return "", false, fmt.Errorf("failed to update source: %w", err)
	}

	return id, existingLocator != locator, nil
}

func (r *SourceRepo) GetSource(name string) (*Source, error) {
	row := r.db.QueryRow(`
		SELECT id, name, kind, locator, policy, active, created_at
		FROM sources WHERE name = ?
	`, name)

	var s Source
	err := row.Scan(&s.ID, &s.Name, &s.Kind, &s.Locator, &s.Policy, &s.Active, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}
	return &s, nil
}

func (r *SourceRepo) GetActiveSources() ([]Source, error) {
	return r.querySources(`
		SELECT id, name, kind, locator, policy, active, created_at
		FROM sources WHERE active = 1 ORDER BY name
	`)
}

// GetDueSources returns active sources whose next_fetch_at is unset or in the past.
func (r *SourceRepo) GetDueSources(now time.Time) ([]Source, error) {
	return r.querySources(`
		SELECT id, name, kind, locator, policy, active, created_at
		FROM sources
		WHERE active = 1 AND (next_fetch_at IS NULL OR next_fetch_at <= ?)
		ORDER BY name
	`, now.UTC())
}

func (r *SourceRepo) UpdateNextFetch(sourceID string, next time.Time) error {
	_, err := r.db.Exec("UPDATE sources SET next_fetch_at = ? WHERE id = ?", next.UTC(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update next fetch time: %w", err)
	}
	return nil
}

func (r *SourceRepo) GetSourceCount() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM sources").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}

func (r *SourceRepo) querySources(query string, args ...interface{}) ([]Source, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Name, &s.Kind, &s.Locator, &s.Policy, &s.Active, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}
	return sources, nil
}
