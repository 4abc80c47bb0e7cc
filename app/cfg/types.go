package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	SourcesDir        string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Storage configuration
	StorageProvider string
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	SupabaseURL     string
	SupabaseKey     string
	SupabaseBucket  string

	// External API credentials
	NewsAPIKey string

	// Download configuration
	DownloadDir   string
	MaxDownloadMB int
	HTTPTimeout   int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

// MaxDownloadBytes returns the download size cap in bytes.
func (c *Cfg) MaxDownloadBytes() int64 {
	return int64(c.MaxDownloadMB) * 1024 * 1024
}
