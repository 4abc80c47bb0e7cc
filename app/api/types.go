package api

import (
	"smartcache/app/database"
	"smartcache/app/download"
	"smartcache/app/ingest"
	"smartcache/app/tasks"
)

type Handler struct {
	sourceRepo   database.SourceRepository
	itemRepo     database.ItemRepository
	downloadRepo database.DownloadRepository
	coordinator  *ingest.Coordinator
	engine       *download.Engine
	scheduler    tasks.TaskSchedulerInterface
}

type downloadRequestBody struct {
	ItemID string `json:"item_id" binding:"required"`
	UserID string `json:"user_id" binding:"required"`
}
