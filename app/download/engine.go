package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"smartcache/app/database"
)

const copyChunkSize = 8 * 1024

// Engine executes queued download requests. Every execution drives the
// request to a terminal status (ready or failed); requests already past the
// queued status are left untouched, so re-executing an ID is harmless.
type Engine struct {
	requests   database.DownloadRepository
	httpClient *http.Client
	root       string
	maxBytes   int64
	userAgent  string
}

func NewEngine(requests database.DownloadRepository, httpClient *http.Client, root string, maxBytes int64, userAgent string) *Engine {
	return &Engine{
		requests:   requests,
		httpClient: httpClient,
		root:       root,
		maxBytes:   maxBytes,
		userAgent:  userAgent,
	}
}

// Execute runs the download for one request ID.
func (e *Engine) Execute(ctx context.Context, requestID string) error {
	req, err := e.requests.GetRequest(requestID)
	if err != nil {
		return fmt.Errorf("failed to load download request: %w", err)
	}
	if req == nil {
		return fmt.Errorf("download request not found: %s", requestID)
	}

	if req.Status != database.StatusQueued {
		slog.Info("Download request is not queued, skipping", "request_id", requestID, "status", req.Status)
		return nil
	}

	if req.MediaURL == "" {
		return e.fail(requestID, "", "no media URL available")
	}

	if err := e.requests.MarkDownloading(requestID); err != nil {
		if err == database.ErrInvalidTransition {
			// Another worker claimed it first.
			slog.Info("Download request already claimed", "request_id", requestID)
			return nil
		}
		return fmt.Errorf("failed to mark request downloading: %w", err)
	}

	destination := localPathFor(e.root, req.UserID, req.Title, req.MediaURL, time.Now())

	size, err := e.fetchToFile(ctx, req.MediaURL, destination)
	if err != nil {
		return e.fail(requestID, destination, err.Error())
	}

	if err := e.requests.MarkReady(requestID, destination, size); err != nil {
		return fmt.Errorf("failed to mark request ready: %w", err)
	}

	slog.Info("Download completed", "request_id", requestID, "path", destination, "bytes", size)
	return nil
}

func (e *Engine) fetchToFile(ctx context.Context, mediaURL, destination string) (int64, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", mediaURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	// Reject oversized files before writing a single byte when the server
	// announces the size.
	if resp.ContentLength > 0 && resp.ContentLength > e.maxBytes {
		return 0, fmt.Errorf("file too large: %d bytes exceeds limit of %d bytes", resp.ContentLength, e.maxBytes)
	}

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create download directory: %w", err)
	}

	out, err := os.Create(destination)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	size, err := e.copyCapped(out, resp.Body)
	closeErr := out.Close()
	if err != nil {
		os.Remove(destination)
		return 0, err
	}
	if closeErr != nil {
		os.Remove(destination)
		return 0, fmt.Errorf("failed to finalize file: %w", closeErr)
	}

	return size, nil
}

// copyCapped streams src to dst in fixed-size chunks, enforcing the size cap
// against the running total. Servers that omit or understate Content-Length
// are caught here.
func (e *Engine) copyCapped(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, copyChunkSize)
	var total int64

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			total += int64(n)
			if total > e.maxBytes {
				return total, fmt.Errorf("file too large: exceeded limit of %d bytes", e.maxBytes)
			}
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return total, fmt.Errorf("failed to write file: %w", writeErr)
			}
		}
		if readErr == io.EOF {
			return total, nil
		}
		if readErr != nil {
			return total, fmt.Errorf("failed to read media stream: %w", readErr)
		}
	}
}

// fail moves the request to the failed status and removes any partial file.
func (e *Engine) fail(requestID, partialPath, message string) error {
	if partialPath != "" {
		os.Remove(partialPath)
	}

	if err := e.requests.MarkFailed(requestID, message); err != nil {
		return fmt.Errorf("failed to mark request failed: %w", err)
	}

	slog.Warn("Download failed", "request_id", requestID, "error", message)
	return nil
}
