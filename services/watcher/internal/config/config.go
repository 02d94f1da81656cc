package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wastewater-dashboards/surveillance-review/internal/blobstore"
	"github.com/wastewater-dashboards/surveillance-review/internal/tabular"
)

const (
	defaultOutputKey      = "latest_obs.csv"
	defaultRequestTimeout = 2 * time.Minute
)

// Config holds runtime configuration for the latest-observation export job.
type Config struct {
	Blob           blobstore.Config
	DatasetsFile   string
	OutputKey      string
	OutputEncoding tabular.Encoding
	ByFraction     bool
	RequestTimeout time.Duration
	DryRun         bool
	LogLevel       string
	LogFile        string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		Blob:           blobstore.Config{Driver: blobstore.DriverFilesystem, Root: "data"},
		DatasetsFile:   strings.TrimSpace(os.Getenv("DATASETS_FILE")),
		OutputKey:      defaultOutputKey,
		OutputEncoding: tabular.UTF8,
		RequestTimeout: defaultRequestTimeout,
		LogLevel:       strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		LogFile:        strings.TrimSpace(os.Getenv("LOG_FILE")),
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
		PathStyle:       isTrue(os.Getenv("S3_USE_PATH_STYLE")),
		AccessKeyID:     strings.TrimSpace(os.Getenv("S3_ACCESS_KEY_ID")),
		SecretAccessKey: strings.TrimSpace(os.Getenv("S3_SECRET_ACCESS_KEY")),
	}
	if cfg.Blob.Driver == blobstore.DriverS3 && cfg.Blob.S3.Bucket == "" {
		return cfg, errors.New("S3_BUCKET is required when BLOB_DRIVER=s3")
	}

	if v := strings.TrimSpace(os.Getenv("OUTPUT_KEY")); v != "" {
		cfg.OutputKey = v
	}
	if v := strings.TrimSpace(os.Getenv("OUTPUT_ENCODING")); v != "" {
		enc, err := tabular.ParseEncoding(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid OUTPUT_ENCODING: %w", err)
		}
		cfg.OutputEncoding = enc
	}

	if v := strings.TrimSpace(os.Getenv("WATCHER_REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid WATCHER_REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}

	cfg.ByFraction = isTrue(os.Getenv("WATCHER_BY_FRACTION"))
	cfg.DryRun = isTrue(os.Getenv("DRY_RUN"))

	return cfg, nil
}

func isTrue(v string) bool {
	v = strings.TrimSpace(v)
	return v == "1" || strings.EqualFold(v, "true")
}
