package api

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"smartcache/app/database"
	"smartcache/app/download"
	"smartcache/app/ingest"
	"smartcache/app/storage"
	"smartcache/app/tasks"
)

const defaultItemLimit = 50

func NewHandler(sourceRepo database.SourceRepository, itemRepo database.ItemRepository,
	downloadRepo database.DownloadRepository, coordinator *ingest.Coordinator,
	engine *download.Engine, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		sourceRepo:   sourceRepo,
		itemRepo:     itemRepo,
		downloadRepo: downloadRepo,
		coordinator:  coordinator,
		engine:       engine,
		scheduler:    scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if sourceCount, err := h.sourceRepo.GetSourceCount(); err == nil {
		health["sources"] = sourceCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if sourceCount, err := h.sourceRepo.GetSourceCount(); err == nil {
		stats["sources"] = sourceCount
	}

	if total, cached, err := h.itemRepo.GetItemStats(); err == nil {
		stats["items"] = map[string]interface{}{
			"total":  total,
			"cached": cached,
		}
	}

	if downloads, err := h.downloadRepo.GetStats(); err == nil {
		stats["downloads"] = map[string]interface{}{
			"total":       downloads.Total(),
			"queued":      downloads.Queued,
			"downloading": downloads.Downloading,
			"ready":       downloads.Ready,
			"failed":      downloads.Failed,
		}
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIIngestAll(c *gin.Context) {
	summary, err := h.coordinator.IngestAll(c.Request.Context())
	if err != nil {
		slog.Error("Ingestion run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ingestion run failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) APIIngestSource(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	source, err := h.sourceRepo.GetSource(name)
	if err != nil {
		slog.Error("Database error", "operation", "get_source", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if source == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}

	count, err := h.coordinator.IngestOne(c.Request.Context(), *source)
	if err != nil {
		slog.Error("Source ingestion failed", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Source ingestion failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"source":    name,
		"kind":      source.Kind,
		"new_items": count,
	})
}

func (h *Handler) APIListItems(c *gin.Context) {
	filter := database.ItemFilter{Limit: defaultItemLimit}

	if sourceName := c.Query("source"); sourceName != "" {
		source, err := h.sourceRepo.GetSource(sourceName)
		if err != nil {
			slog.Error("Database error", "operation", "get_source", "source", sourceName, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		if source == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
			return
		}
		filter.SourceID = source.ID
	}

	if cached := c.Query("cached"); cached != "" {
		filter.CachedOnly = cached == "true" || cached == "1"
	}

	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		filter.Limit = n
	}

	items, err := h.itemRepo.GetItems(filter)
	if err != nil {
		slog.Error("Database error", "operation", "get_items", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": itemsJSON(items),
		"total": len(items),
	})
}

// APIGetRecommendations returns cached items only. Recommending an item whose
// media lives upstream risks a dead or rate-limited link at playback time;
// a cached copy is always servable.
func (h *Handler) APIGetRecommendations(c *gin.Context) {
	limit := defaultItemLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = n
	}

	items, err := h.itemRepo.GetItems(database.ItemFilter{CachedOnly: true, Limit: limit})
	if err != nil {
		slog.Error("Database error", "operation", "get_recommendations", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": itemsJSON(items),
		"total": len(items),
	})
}

func (h *Handler) APICreateDownload(c *gin.Context) {
	var body downloadRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item_id and user_id are required"})
		return
	}

	item, err := h.itemRepo.GetItem(body.ItemID)
	if err != nil {
		slog.Error("Database error", "operation", "get_item", "item_id", body.ItemID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}

	// Requesting the same item twice returns the existing request instead of
	// downloading again.
	existing, err := h.downloadRepo.GetRequestByUserAndItem(body.UserID, body.ItemID)
	if err != nil {
		slog.Error("Database error", "operation", "get_request", "item_id", body.ItemID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusOK, requestJSON(existing))
		return
	}

	// Prefer the cached copy; the upstream URL is a degraded fallback that
	// may be dead or rate-limited by the time the download runs.
	mediaURL := item.StorageURL
	if mediaURL == "" {
		mediaURL = item.MediaURL
	}

	request := &database.DownloadRequest{
		ItemID:      item.ID,
		UserID:      body.UserID,
		Title:       item.Title,
		OriginalURL: item.URL,
		MediaURL:    mediaURL,
	}

	if err := h.downloadRepo.CreateRequest(request); err != nil {
		slog.Error("Failed to create download request", "item_id", body.ItemID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create download request"})
		return
	}

	// Schedule right away; the periodic queue drain is only a safety net.
	task := tasks.NewDownloadTask(request.ID, h.engine)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue download task, request stays queued", "request_id", request.ID, "error", err)
	}

	c.JSON(http.StatusAccepted, requestJSON(request))
}

func (h *Handler) APIGetDownload(c *gin.Context) {
	request, ok := h.loadRequest(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, requestJSON(request))
}

func (h *Handler) APIGetDownloadFile(c *gin.Context) {
	request, ok := h.loadRequest(c)
	if !ok {
		return
	}

	if request.Status != database.StatusReady {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "Download is not ready",
			"status": request.Status,
		})
		return
	}

	if _, err := os.Stat(request.LocalPath); err != nil {
		slog.Error("Downloaded file is missing", "request_id", request.ID, "path", request.LocalPath, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Downloaded file is no longer available"})
		return
	}

	c.Header("Content-Type", storage.ContentTypeForFile(request.LocalPath))
	c.Header("Content-Disposition", "attachment; filename=\""+filepath.Base(request.LocalPath)+"\"")
	c.File(request.LocalPath)
}

func (h *Handler) APIGetUserDownloads(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing user ID parameter"})
		return
	}

	requests, err := h.downloadRepo.GetUserRequests(userID)
	if err != nil {
		slog.Error("Database error", "operation", "get_user_requests", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	downloads := make([]gin.H, 0, len(requests))
	for i := range requests {
		downloads = append(downloads, requestJSON(&requests[i]))
	}

	stats, err := h.downloadRepo.GetUserStats(userID)
	if err != nil {
		slog.Error("Database error", "operation", "get_user_stats", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"downloads": downloads,
		"stats": gin.H{
			"total":       stats.Total(),
			"queued":      stats.Queued,
			"downloading": stats.Downloading,
			"ready":       stats.Ready,
			"failed":      stats.Failed,
		},
	})
}

func itemsJSON(items []database.Item) []gin.H {
	out := make([]gin.H, 0, len(items))
	for _, item := range items {
		entry := gin.H{
			"id":               item.ID,
			"source_id":        item.SourceID,
			"fingerprint":      item.Fingerprint,
			"title":            item.Title,
			"description":      item.Description,
			"url":              item.URL,
			"media_url":        item.MediaURL,
			"storage_url":      item.StorageURL,
			"storage_provider": item.StorageProvider,
			"topics":           item.Topics,
			"published_at":     item.PublishedAt.Format(time.RFC3339),
			"created_at":       item.CreatedAt.Format(time.RFC3339),
		}
		if item.FileSizeBytes != nil {
			entry["file_size_bytes"] = *item.FileSizeBytes
		}
		if item.DurationSeconds != nil {
			entry["duration_seconds"] = *item.DurationSeconds
		}
		out = append(out, entry)
	}
	return out
}

func requestJSON(req *database.DownloadRequest) gin.H {
	entry := gin.H{
		"id":           req.ID,
		"item_id":      req.ItemID,
		"user_id":      req.UserID,
		"title":        req.Title,
		"original_url": req.OriginalURL,
		"media_url":    req.MediaURL,
		"status":       req.Status,
		"created_at":   req.CreatedAt.Format(time.RFC3339),
		"updated_at":   req.UpdatedAt.Format(time.RFC3339),
	}
	if req.FileSizeBytes != nil {
		entry["file_size_bytes"] = *req.FileSizeBytes
	}
	if req.ErrorMessage != "" {
		entry["error"] = req.ErrorMessage
	}
	return entry
}

func (h *Handler) loadRequest(c *gin.Context) (*database.DownloadRequest, bool) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing download ID parameter"})
		return nil, false
	}

	request, err := h.downloadRepo.GetRequest(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_request", "request_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	if request == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Download request not found"})
		return nil, false
	}

	return request, true
}
