package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wastewater-dashboards/surveillance-review/internal/blobstore"
	"github.com/wastewater-dashboards/surveillance-review/internal/datasets"
	"github.com/wastewater-dashboards/surveillance-review/internal/db"
)

// Backend selects where the review tables live.
type Backend string

const (
	BackendBlob      Backend = "blob"
	BackendWarehouse Backend = "warehouse"
)

const (
	defaultAdminGroup  = "Wastewater_StreamLit_AdminPage"
	defaultAuditLogKey = "wastewater/user_changes_log.csv"
	defaultLogsTable   = "user_changes_log"
)

// Config holds environment-driven settings for the review API.
type Config struct {
	Port           int
	BearerToken    string
	RequestTimeout time.Duration

	Backend        Backend
	Blob           blobstore.Config
	DatabaseDriver db.Driver
	DatabaseURL    string

	DatasetsFile string
	// Tables overrides warehouse table names by dataset.
	Tables      map[string]string
	LogsTable   string
	AuditLogKey string

	EditorGroup string
	AdminGroup  string
	Development bool

	JobURL     string
	JobID      string
	JobToken   string
	JobTimeout time.Duration

	SnapshotPath string
	SnapshotTTL  time.Duration
	SessionIdle  time.Duration

	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		Port:           8080,
		RequestTimeout: 15 * time.Second,
		Backend:        BackendBlob,
		Blob:           blobstore.Config{Driver: blobstore.DriverFilesystem, Root: "data"},
		DatabaseDriver: db.DriverPostgres,
		Tables:         map[string]string{},
		LogsTable:      defaultLogsTable,
		AuditLogKey:    defaultAuditLogKey,
		AdminGroup:     defaultAdminGroup,
		JobTimeout:     30 * time.Second,
		SnapshotPath:   "data/snapshot",
		SnapshotTTL:    24 * time.Hour,
		SessionIdle:    2 * time.Hour,
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	} else if portStr := os.Getenv("API_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid API_PORT: %s", portStr)
		}
	}
	cfg.BearerToken = os.Getenv("API_BEARER_TOKEN")

	var err error
	if cfg.RequestTimeout, err = envDuration("API_REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return cfg, err
	}

	if v := strings.TrimSpace(os.Getenv("STORAGE_BACKEND")); v != "" {
		switch Backend(strings.ToLower(v)) {
		case BackendBlob, BackendWarehouse:
			cfg.Backend = Backend(strings.ToLower(v))
		default:
			return cfg, fmt.Errorf("invalid STORAGE_BACKEND: %s", v)
		}
	}

	if v := strings.TrimSpace(os.Getenv("BLOB_DRIVER")); v != "" {
		cfg.Blob.Driver = blobstore.Driver(strings.ToLower(v))
	}
	if v := strings.TrimSpace(os.Getenv("BLOB_ROOT")); v != "" {
		cfg.Blob.Root = v
	}
	cfg.Blob.S3 = blobstore.S3Config{
		Bucket:          strings.TrimSpace(os.Getenv("S3_BUCKET")),
		Region:          strings.TrimSpace(os.Getenv("S3_REGION")),
		Endpoint:        strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		PathStyle:       envBool("S3_USE_PATH_STYLE"),
		AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
	}
	if cfg.Blob.Driver == blobstore.DriverS3 && cfg.Blob.S3.Bucket == "" {
		return cfg, fmt.Errorf("S3_BUCKET is required when BLOB_DRIVER=s3")
	}

	if v := strings.TrimSpace(os.Getenv("DATABASE_DRIVER")); v != "" {
		switch db.Driver(strings.ToLower(v)) {
		case db.DriverPostgres, db.DriverSQLite:
			cfg.DatabaseDriver = db.Driver(strings.ToLower(v))
		default:
			return cfg, fmt.Errorf("invalid DATABASE_DRIVER: %s", v)
		}
	}
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.Backend == BackendWarehouse && cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=warehouse")
	}

	cfg.DatasetsFile = strings.TrimSpace(os.Getenv("DATASETS_FILE"))
	for env, name := range map[string]string{
		"WW_TRENDS_TABLE":   datasets.WWTrends,
		"MPOX_TABLE":        datasets.Mpox,
		"LARGE_JUMPS_TABLE": datasets.LargeJumps,
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			cfg.Tables[name] = v
		}
	}
	if v := strings.TrimSpace(os.Getenv("LOGS_TABLE")); v != "" {
		cfg.LogsTable = v
	}
	if v := strings.TrimSpace(os.Getenv("AUDIT_LOG_KEY")); v != "" {
		cfg.AuditLogKey = v
	}

	cfg.EditorGroup = strings.TrimSpace(os.Getenv("EDITOR_GROUP"))
	if v := strings.TrimSpace(os.Getenv("ADMIN_GROUP")); v != "" {
		cfg.AdminGroup = v
	}
	if cfg.EditorGroup == "" {
		cfg.EditorGroup = cfg.AdminGroup
	}
	cfg.Development = strings.EqualFold(strings.TrimSpace(os.Getenv("DEVELOPMENT")), "TRUE")

	cfg.JobURL = strings.TrimSpace(os.Getenv("JOB_TRIGGER_URL"))
	cfg.JobID = strings.TrimSpace(os.Getenv("JOB_ID"))
	cfg.JobToken = os.Getenv("JOB_TOKEN")
	if cfg.JobURL != "" && cfg.JobID == "" {
		return cfg, fmt.Errorf("JOB_ID is required when JOB_TRIGGER_URL is set")
	}
	if cfg.JobTimeout, err = envDuration("JOB_TIMEOUT", cfg.JobTimeout); err != nil {
		return cfg, err
	}

	if v, ok := os.LookupEnv("SNAPSHOT_PATH"); ok {
		cfg.SnapshotPath = strings.TrimSpace(v)
	}
	if cfg.SnapshotTTL, err = envDuration("SNAPSHOT_TTL", cfg.SnapshotTTL); err != nil {
		return cfg, err
	}
	if cfg.SessionIdle, err = envDuration("SESSION_IDLE_TIMEOUT", cfg.SessionIdle); err != nil {
		return cfg, err
	}

	cfg.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	cfg.LogFile = strings.TrimSpace(os.Getenv("LOG_FILE"))

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def, fmt.Errorf("invalid %s: %s", key, v)
	}
	return d, nil
}

func envBool(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	return v == "1" || strings.EqualFold(v, "true")
}
