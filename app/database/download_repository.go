package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type DownloadRepo struct {
	db *DB
}

var _ DownloadRepository = (*DownloadRepo)(nil)

func NewDownloadRepository(db *DB) *DownloadRepo {
	return &DownloadRepo{db: db}
}

func (r *DownloadRepo) CreateRequest(req *DownloadRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = StatusQueued
	}

	_, err := r.db.Exec(`
		INSERT INTO download_requests (
			id, item_id, user_id, title, original_url, media_url, status
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, req.ID, req.ItemID, req.UserID, req.Title, req.OriginalURL, req.MediaURL, req.Status)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}
	return nil
}

func (r *DownloadRepo) GetRequest(id string) (*DownloadRequest, error) {
	return r.queryOne("WHERE id = ?", id)
}

func (r *DownloadRepo) GetRequestByUserAndItem(userID, itemID string) (*DownloadRequest, error) {
	return r.queryOne("WHERE user_id = ? AND item_id = ?", userID, itemID)
}

func (r *DownloadRepo) GetRequestsByStatus(status string, limit int) ([]DownloadRequest, error) {
	return r.queryMany("WHERE status = ? ORDER BY created_at LIMIT ?", status, limit)
}

func (r *DownloadRepo) GetUserRequests(userID string) ([]DownloadRequest, error) {
	return r.queryMany("WHERE user_id = ? ORDER BY created_at DESC", userID)
}

func (r *DownloadRepo) GetUserStats(userID string) (DownloadStats, error) {
	var stats DownloadStats
	err := r.db.QueryRow(`
		SELECT
			SUM(CASE WHEN status = 'queued' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'downloading' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'ready' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END)
		FROM download_requests WHERE user_id = ?
	`, userID).Scan(
		&nullInt{&stats.Queued}, &nullInt{&stats.Downloading},
		&nullInt{&stats.Ready}, &nullInt{&stats.Failed},
	)
	if err != nil {
		return DownloadStats{}, fmt.Errorf("failed to get download stats: %w", err)
	}
	return stats, nil
}

// GetStats counts all download requests per status.
func (r *DownloadRepo) GetStats() (DownloadStats, error) {
	var stats DownloadStats
	err := r.db.QueryRow(`
		SELECT
			SUM(CASE WHEN status = 'queued' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'downloading' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'ready' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END)
		FROM download_requests
	`).Scan(
		&nullInt{&stats.Queued}, &nullInt{&stats.Downloading},
		&nullInt{&stats.Ready}, &nullInt{&stats.Failed},
	)
	if err != nil {
		return DownloadStats{}, fmt.Errorf("failed to get download stats: %w", err)
	}
	return stats, nil
}

// MarkDownloading transitions queued -> downloading. Any other current
// status returns ErrInvalidTransition; terminal states are immutable.
func (r *DownloadRepo) MarkDownloading(id string) error {
	return r.transition(`
		UPDATE download_requests
		SET status = 'downloading', updated_at = ?
		WHERE id = ? AND status = 'queued'
	`, time.Now().UTC(), id)
}

func (r *DownloadRepo) MarkReady(id string, localPath string, sizeBytes int64) error {
	return r.transition(`
		UPDATE download_requests
		SET status = 'ready', local_path = ?, file_size_bytes = ?, error_message = '', updated_at = ?
		WHERE id = ? AND status = 'downloading'
	`, localPath, sizeBytes, time.Now().UTC(), id)
}

// MarkFailed is valid from both queued (validation failures before the
// transfer starts) and downloading.
func (r *DownloadRepo) MarkFailed(id string, message string) error {
	return r.transition(`
		UPDATE download_requests
		SET status = 'failed', error_message = ?, updated_at = ?
		WHERE id = ? AND status IN ('queued', 'downloading')
	`, message, time.Now().UTC(), id)
}

func (r *DownloadRepo) transition(query string, args ...interface{}) error {
	res, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update download status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (r *DownloadRepo) queryOne(where string, args ...interface{}) (*DownloadRequest, error) {
	reqs, err := r.queryMany(where+" LIMIT 1", args...)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, nil
	}
	return &reqs[0], nil
}

func (r *DownloadRepo) queryMany(where string, args ...interface{}) ([]DownloadRequest, error) {
	rows, err := r.db.Query(`
		SELECT id, item_id, user_id, title, original_url, media_url, status,
		       local_path, file_size_bytes, error_message, created_at, updated_at
		FROM download_requests `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query download requests: %w", err)
	}
	defer rows.Close()

	var reqs []DownloadRequest
	for rows.Next() {
		var req DownloadRequest
		err := rows.Scan(
			&req.ID, &req.ItemID, &req.UserID, &req.Title, &req.OriginalURL,
			&req.MediaURL, &req.Status, &req.LocalPath, &req.FileSizeBytes,
			&req.ErrorMessage, &req.CreatedAt, &req.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan download request row: %w", err)
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating download request rows: %w", err)
	}
	return reqs, nil
}

// nullInt scans a nullable SUM() result into an int, defaulting to zero.
type nullInt struct {
	v *int
}

func (n *nullInt) Scan(src interface{}) error {
	var ni sql.NullInt64
	if err := ni.Scan(src); err != nil {
		return err
	}
	if ni.Valid {
		*n.v = int(ni.Int64)
	} else {
		*n.v = 0
	}
	return nil
}
