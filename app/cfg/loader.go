package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./smartcache.db" description:"Path to the SQLite database file"`

	// Application configuration
	SourcesDir        string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing content source definition files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for ingestion and downloads"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"30" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Storage configuration
	StorageProvider string `long:"storage-provider" env:"STORAGE_PROVIDER" default:"none" choice:"none" choice:"s3" choice:"supabase" description:"Storage provider for cached media"`
	S3Bucket        string `long:"s3-bucket" env:"S3_BUCKET" default:"smartcache-media" description:"S3 bucket name"`
	S3Region        string `long:"s3-region" env:"S3_REGION" default:"us-east-1" description:"S3 region"`
	S3Endpoint      string `long:"s3-endpoint" env:"S3_ENDPOINT" default:"s3.amazonaws.com" description:"S3 endpoint host"`
	S3AccessKey     string `long:"s3-access-key" env:"S3_ACCESS_KEY" description:"S3 access key ID"`
	S3SecretKey     string `long:"s3-secret-key" env:"S3_SECRET_KEY" description:"S3 secret access key"`
	SupabaseURL     string `long:"supabase-url" env:"SUPABASE_URL" description:"Supabase project URL"`
	SupabaseKey     string `long:"supabase-key" env:"SUPABASE_KEY" description:"Supabase service key"`
	SupabaseBucket  string `long:"supabase-bucket" env:"SUPABASE_BUCKET" default:"media" description:"Supabase storage bucket name"`

	// External API credentials
	NewsAPIKey string `long:"newsapi-key" env:"NEWSAPI_KEY" description:"API key for the news search API"`

	// Download configuration
	DownloadDir   string `long:"download-dir" env:"DOWNLOAD_DIR" default:"./downloads" description:"Root directory for downloaded media files"`
	MaxDownloadMB int    `long:"max-download-mb" env:"MAX_DOWNLOAD_MB" default:"500" description:"Maximum size of a single download in megabytes"`
	HTTPTimeout   int    `long:"http-timeout" env:"HTTP_TIMEOUT" default:"30" description:"Timeout for outbound metadata HTTP calls in seconds"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"SmartCache/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		SourcesDir:        raw.SourcesDir,
		Port:              raw.Port,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		StorageProvider:   raw.StorageProvider,
		S3Bucket:          raw.S3Bucket,
		S3Region:          raw.S3Region,
		S3Endpoint:        raw.S3Endpoint,
		S3AccessKey:       raw.S3AccessKey,
		S3SecretKey:       raw.S3SecretKey,
		SupabaseURL:       raw.SupabaseURL,
		SupabaseKey:       raw.SupabaseKey,
		SupabaseBucket:    raw.SupabaseBucket,
		NewsAPIKey:        raw.NewsAPIKey,
		DownloadDir:       raw.DownloadDir,
		MaxDownloadMB:     raw.MaxDownloadMB,
		HTTPTimeout:       raw.HTTPTimeout,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
