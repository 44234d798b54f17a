package config

import (
	"context"
	"strings"
	"time"
)

// ListenerConfig holds the network settings for the HTTP listener.
type ListenerConfig struct {
	Port              int
	TLSCertFile       string
	TLSKeyFile        string
	ReadHeaderTimeout time.Duration
}

type contextKey struct{}

// WithContext returns a new context carrying the given Config.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext retrieves the Config from the context.
func FromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(contextKey{}).(*Config)
	return cfg
}

// Config holds all configuration for the records service.
type Config struct {
	// Database
	DBURL string

	// Datastore backend type: "mongo", "postgres", "sqlite", or "memory".
	DatastoreType string

	// Run datastore migrations on startup.
	DatastoreMigrateAtStart bool

	// DB pool
	DBMaxOpenConns int
	DBMaxIdleConns int

	// File store backend type: "fs" or "s3".
	AttachType string

	// UploadDir is the directory backing the "fs" file store; files in it
	// are served under /uploads.
	UploadDir string

	// UploadMaxSize caps a single attachment upload (bytes).
	UploadMaxSize int64

	// S3
	S3Bucket         string
	S3Prefix         string
	S3UsePathStyle   bool
	S3DirectDownload bool
	// S3DownloadURLExpiresIn bounds presigned download URL validity.
	S3DownloadURLExpiresIn time.Duration

	// Cache backend type: "redis" or "none".
	CacheType string

	// Redis
	RedisURL string

	// StatsCacheTTL bounds dashboard count staleness.
	StatsCacheTTL time.Duration

	// AdminAPIKeys is a comma-separated list of tokens granted the admin
	// role. Requests without a matching token are treated as citizens.
	AdminAPIKeys string

	// MetricsLabels is a comma-separated list of key=value pairs added as
	// constant labels to all Prometheus metrics. Values support ${VAR}
	// expansion. Defaults to "service=records-service".
	MetricsLabels string

	// Server
	Listener ListenerConfig

	// AccessLog enables HTTP access logging for management endpoints
	// (/health, /ready, /metrics). Disabled by default to suppress probe noise.
	ManagementAccessLog bool

	// Body size limit (bytes) across the whole multipart request.
	MaxBodySize int64

	// Graceful shutdown drain timeout (seconds).
	DrainTimeout int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DatastoreType:           "mongo",
		DatastoreMigrateAtStart: true,
		DBMaxOpenConns:          25,
		DBMaxIdleConns:          5,
		AttachType:              "fs",
		UploadDir:               "uploads",
		UploadMaxSize:           10 * 1024 * 1024, // 10 MB
		S3DirectDownload:        true,
		S3DownloadURLExpiresIn:  5 * time.Minute,
		CacheType:               "none",
		StatsCacheTTL:           time.Minute,
		Listener: ListenerConfig{
			Port:              8080,
			ReadHeaderTimeout: 5 * time.Second,
		},
		MaxBodySize:  50 * 1024 * 1024, // room for all slots of one submission
		DrainTimeout: 30,
	}
}

// AdminKeySet parses AdminAPIKeys into a lookup set.
func (c *Config) AdminKeySet() map[string]bool {
	keys := map[string]bool{}
	for _, k := range strings.Split(c.AdminAPIKeys, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys[k] = true
		}
	}
	return keys
}
