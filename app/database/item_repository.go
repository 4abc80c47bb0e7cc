package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type ItemRepo struct {
	db *DB
}

var _ ItemRepository = (*ItemRepo)(nil)

func NewItemRepository(db *DB) *ItemRepo {
	return &ItemRepo{db: db}
}

func (r *ItemRepo) HasFingerprint(fingerprint string) (bool, error) {
	var id string
	err := r.db.QueryRow("SELECT id FROM items WHERE fingerprint = ? LIMIT 1", fingerprint).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check fingerprint: %w", err)
	}
	return true, nil
}

// CreateItem inserts a catalog item. A fingerprint collision returns
// ErrDuplicateItem so callers can treat the race between a HasFingerprint
// check and the insert as a no-op skip.
func (r *ItemRepo) CreateItem(item Item) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.StorageProvider == "" {
		item.StorageProvider = "none"
	}

	topics, err := json.Marshal(item.Topics)
	if err != nil {
		return fmt.Errorf("failed to encode topics: %w", err)
	}
	if item.Topics == nil {
		topics = []byte("[]")
	}

	_, err = r.db.Exec(`
		INSERT INTO items (
			id, source_id, fingerprint, title, description, url,
			media_url, storage_url, storage_provider, file_size_bytes,
			duration_seconds, topics, published_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.SourceID, item.Fingerprint, item.Title, item.Description,
		item.URL, item.MediaURL, item.StorageURL, item.StorageProvider,
		item.FileSizeBytes, item.DurationSeconds, string(topics), item.PublishedAt.UTC())

	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateItem
		}
		return fmt.Errorf("failed to create item: %w", err)
	}

	return nil
}

func (r *ItemRepo) GetItem(id string) (*Item, error) {
	items, err := r.queryItems("WHERE id = ?", 0, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (r *ItemRepo) GetItems(filter ItemFilter) ([]Item, error) {
	var conditions []string
	var args []interface{}

	if filter.SourceID != "" {
		conditions = append(conditions, "source_id = ?")
		args = append(args, filter.SourceID)
	}
	if filter.CachedOnly {
		conditions = append(conditions, "storage_url != ''")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	return r.queryItems(where, filter.Limit, args...)
}

// AttachStorageURL records a late-arriving cached copy of an item's media.
// This is the only permitted mutation of a catalog item.
func (r *ItemRepo) AttachStorageURL(itemID, storageURL, provider string, sizeBytes int64) error {
	_, err := r.db.Exec(`
		UPDATE items SET storage_url = ?, storage_provider = ?, file_size_bytes = ?
		WHERE id = ?
	`, storageURL, provider, sizeBytes, itemID)
	if err != nil {
		return fmt.Errorf("failed to attach storage URL: %w", err)
	}
	return nil
}

func (r *ItemRepo) GetItemStats() (total int, cached int, err error) {
	// SUM over zero rows is NULL, so the cached count goes through nullInt.
	err = r.db.QueryRow(`
		SELECT COUNT(*),
		       SUM(CASE WHEN storage_url != '' THEN 1 ELSE 0 END)
		FROM items
	`).Scan(&total, &nullInt{&cached})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get item stats: %w", err)
	}
	return total, cached, nil
}

func (r *ItemRepo) queryItems(where string, limit int, args ...interface{}) ([]Item, error) {
	query := fmt.Sprintf(`
		SELECT id, source_id, fingerprint, title, description, url,
		       media_url, storage_url, storage_provider, file_size_bytes,
		       duration_seconds, topics, published_at, created_at
		FROM items %s
		ORDER BY published_at DESC
	`, where)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		var topics string
		err := rows.Scan(
			&item.ID, &item.SourceID, &item.Fingerprint, &item.Title,
			&item.Description, &item.URL, &item.MediaURL, &item.StorageURL,
			&item.StorageProvider, &item.FileSizeBytes, &item.DurationSeconds,
			&topics, &item.PublishedAt, &item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		if err := json.Unmarshal([]byte(topics), &item.Topics); err != nil {
			return nil, fmt.Errorf("failed to decode topics: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}
	return items, nil
}
