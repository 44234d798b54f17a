package serve

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"github.com/firedesk/records-service/internal/config"
	registryattach "github.com/firedesk/records-service/internal/registry/attach"
	registrycache "github.com/firedesk/records-service/internal/registry/cache"
	registrystore "github.com/firedesk/records-service/internal/registry/store"

	// Import all plugins to trigger init() registration
	_ "github.com/firedesk/records-service/internal/plugin/attach/fsstore"
	_ "github.com/firedesk/records-service/internal/plugin/attach/s3store"
	_ "github.com/firedesk/records-service/internal/plugin/cache/noop"
	_ "github.com/firedesk/records-service/internal/plugin/cache/redis"
	_ "github.com/firedesk/records-service/internal/plugin/route/system"
	_ "github.com/firedesk/records-service/internal/plugin/store/gormdb"
	_ "github.com/firedesk/records-service/internal/plugin/store/memory"
	_ "github.com/firedesk/records-service/internal/plugin/store/mongo"
)

// Command returns the serve sub-command.
func Command() *cli.Command {
	cfg := config.DefaultConfig()
	var readHeaderTimeoutSecs int = 5
	var statsCacheTTLSecs int = 60
	var downloadURLExpirySecs int = 300
	var uploadMaxSize int = int(cfg.UploadMaxSize)
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the records service HTTP server",
		Flags: flags(&cfg, &readHeaderTimeoutSecs, &statsCacheTTLSecs, &downloadURLExpirySecs, &uploadMaxSize),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg.Listener.ReadHeaderTimeout = time.Duration(readHeaderTimeoutSecs) * time.Second
			cfg.StatsCacheTTL = time.Duration(statsCacheTTLSecs) * time.Second
			cfg.S3DownloadURLExpiresIn = time.Duration(downloadURLExpirySecs) * time.Second
			cfg.UploadMaxSize = int64(uploadMaxSize)
			return run(ctx, cfg)
		},
	}
}

func flags(cfg *config.Config, readHeaderTimeoutSecs, statsCacheTTLSecs, downloadURLExpirySecs, uploadMaxSize *int) []cli.Flag {
	return []cli.Flag{

		// ── Server ────────────────────────────────────────────────
		&cli.IntFlag{
			Name:        "port",
			Category:    "Server:",
			Sources:     cli.EnvVars("RECORDS_SERVICE_PORT"),
			Destination: &cfg.Listener.Port,
			Value:       cfg.Listener.Port,
			Usage:       "HTTP server port",
		},
		&cli.StringFlag{
			Name:        "tls-cert-file",
			Category:    "Server:",
			Sources:     cli.EnvVars("RECORDS_SERVICE_TLS_CERT_FILE"),
			Destination: &cfg.Listener.TLSCertFile,
			Usage:       "TLS certificate file; TLS is enabled when both cert and key are set",
		},
		&cli.StringFlag{
			Name:        "tls-key-file",
			Category:    "Server:",
			Sources:     cli.EnvVars("RECORDS_SERVICE_TLS_KEY_FILE"),
			Destination: &cfg.Listener.TLSKeyFile,
			Usage:       "TLS private key file",
		},
		&cli.IntFlag{
			Name:        "read-header-timeout-seconds",
			Category:    "Server:",
			Sources:     cli.EnvVars("RECORDS_SERVICE_READ_HEADER_TIMEOUT_SECONDS"),
			Destination: readHeaderTimeoutSecs,
			Value:       *readHeaderTimeoutSecs,
			Usage:       "HTTP read header timeout in seconds",
		},
		&cli.IntFlag{
			Name:        "drain-timeout-seconds",
			Category:    "Server:",
			Sources:     cli.EnvVars("RECORDS_SERVICE_DRAIN_TIMEOUT_SECONDS"),
			Destination: &cfg.DrainTimeout,
			Value:       cfg.DrainTimeout,
			Usage:       "Graceful shutdown drain timeout in seconds",
		},
		&cli.BoolFlag{
			Name:        "management-access-log",
			Category:    "Server:",
			Sources:     cli.EnvVars("RECORDS_SERVICE_MANAGEMENT_ACCESS_LOG"),
			Destination: &cfg.ManagementAccessLog,
			Usage:       "Enable HTTP access logging for management endpoints (/health, /ready, /metrics)",
		},

		// ── Database ──────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "db-kind",
			Category:    "Database:",
			Sources:     cli.EnvVars("RECORDS_SERVICE_DB_KIND"),
			Destination: &cfg.DatastoreType,
			Value:       cfg.DatastoreType,
			Usage:       "Backend store (" + strings.Join(registrystore.Names(), "|") + ")",
		},
		&cli.StringFlag{
			Name:        "db-url",
			Category:    "Database:",
			Sources:     cli.EnvVars("RECORDS_SERVICE_DB_URL"),
			Destination: &cfg.DBURL,
			Usage:       "Database connection URL",
		},
		&cli.BoolFlag{
			Name:        "db-migrate-at-start",
			Category:    "Database:",
			Sources:     cli.EnvVars("RECORDS_SERVICE_DB_MIGRATE_AT_START"),
			Destination: &cfg.DatastoreMigrateAtStart,
			Value:       cfg.DatastoreMigrateAtStart,
			Usage:       "Run schema migrations on startup",
		},
		&cli.IntFlag{
			Name:        "db-max-open-conns",
			Category:    "Database:",
			Sources:     cli.EnvVars("RECORDS_SERVICE_DB_MAX_OPEN_CONNS"),
			Destination: &cfg.DBMaxOpenConns,
			Value:       cfg.DBMaxOpenConns,
			Usage:       "Maximum number of open database connections",
		},
		&cli.IntFlag{
			Name:        "db-max-idle-conns",
			Category:    "Database:",
			Sources:     cli.EnvVars("RECORDS_SERVICE_DB_MAX_IDLE_CONNS"),
			Destination: &cfg.DBMaxIdleConns,
			Value:       cfg.DBMaxIdleConns,
			Usage:       "Maximum number of idle database connections",
		},

		// ── Attachment Storage ────────────────────────────────────
		&cli.StringFlag{
			Name:        "attachments-kind",
			Category:    "Attachment Storage:",
			Sources:     cli.EnvVars("RECORDS_SERVICE_ATTACHMENTS_KIND"),
			Destination: &cfg.AttachType,
			Value:       cfg.AttachType,
			Usage:       "File store (" + strings.Join(registryattach.Names(), "|") + ")",
		},
		&cli.StringFlag{
			Name:        "attachments-dir",
			Category:    "Attachment Storage:",
			Sources:     cli.EnvVars("RECORDS_SERVICE_ATTACHMENTS_DIR"),
			Destination: &cfg.UploadDir,
			Value:       cfg.UploadDir,
			Usage:       "Directory backing the fs file store",
		},
		&cli.IntFlag{
			Name:        "attachments-max-size",
			Category:    "Attachment Storage:",
			Sources:     cli.EnvVars("RECORDS_SERVICE_ATTACHMENTS_MAX_SIZE"),
			Destination: uploadMaxSize,
			Value:       *uploadMaxSize,
			Usage:       "Maximum size of a single upload in bytes",
		},
		&cli.StringFlag{
			Name:        "attachments-s3-bucket",
			Category:    "Attachment Storage:",
			Sources:     cli.EnvVars("RECORDS_SERVICE_ATTACHMENTS_S3_BUCKET"),
			Destination: &cfg.S3Bucket,
			Usage:       "S3 bucket for attachments",
		},
		&cli.StringFlag{
			Name:        "attachments-s3-prefix",
			Category:    "Attachment Storage:",
			Sources:     cli.EnvVars("RECORDS_SERVICE_ATTACHMENTS_S3_PREFIX"),
			Destination: &cfg.S3Prefix,
			Usage:       "Key prefix for attachment objects",
		},
		&cli.BoolFlag{
			Name:        "attachments-s3-use-path-style",
			Category:    "Attachment Storage:",
			Sources:     cli.EnvVars("RECORDS_SERVICE_ATTACHMENTS_S3_USE_PATH_STYLE"),
			Destination: &cfg.S3UsePathStyle,
			Usage:       "Use path-style S3 addressing (required for LocalStack/MinIO)",
		},
		&cli.BoolFlag{
			Name:        "attachments-s3-direct-download",
			Category:    "Attachment Storage:",
			Sources:     cli.EnvVars("RECORDS_SERVICE_ATTACHMENTS_S3_DIRECT_DOWNLOAD"),
			Destination: &cfg.S3DirectDownload,
			Value:       cfg.S3DirectDownload,
			Usage:       "Redirect downloads to presigned S3 URLs instead of streaming",
		},
		&cli.IntFlag{
			Name:        "attachments-s3-download-url-expiry-seconds",
			Category:    "Attachment Storage:",
			Sources:     cli.EnvVars("RECORDS_SERVICE_ATTACHMENTS_S3_DOWNLOAD_URL_EXPIRY_SECONDS"),
			Destination: downloadURLExpirySecs,
			Value:       *downloadURLExpirySecs,
			Usage:       "Presigned download URL validity in seconds",
		},

		// ── Cache ─────────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "cache-kind",
			Category:    "Cache:",
			Sources:     cli.EnvVars("RECORDS_SERVICE_CACHE_KIND"),
			Destination: &cfg.CacheType,
			Value:       cfg.CacheType,
			Usage:       "Cache backend (" + strings.Join(registrycache.Names(), "|") + ")",
		},
		&cli.StringFlag{
			Name:        "redis-url",
			Category:    "Cache:",
			Sources:     cli.EnvVars("RECORDS_SERVICE_REDIS_URL"),
			Destination: &cfg.RedisURL,
			Usage:       "Redis connection URL",
		},
		&cli.IntFlag{
			Name:        "stats-cache-ttl-seconds",
			Category:    "Cache:",
			Sources:     cli.EnvVars("RECORDS_SERVICE_STATS_CACHE_TTL_SECONDS"),
			Destination: statsCacheTTLSecs,
			Value:       *statsCacheTTLSecs,
			Usage:       "Dashboard stats cache TTL in seconds",
		},

		// ── Authorization ─────────────────────────────────────────
		&cli.StringFlag{
			Name:        "admin-api-keys",
			Category:    "Authorization:",
			Sources:     cli.EnvVars("RECORDS_SERVICE_ADMIN_API_KEYS"),
			Destination: &cfg.AdminAPIKeys,
			Usage:       "Comma-separated tokens granted the admin role",
		},

		// ── Monitoring ────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "metrics-labels",
			Category:    "Monitoring:",
			Sources:     cli.EnvVars("RECORDS_SERVICE_METRICS_LABELS"),
			Destination: &cfg.MetricsLabels,
			Value:       "service=records-service",
			Usage:       "Comma-separated key=value pairs added as constant labels to all Prometheus metrics. Supports ${VAR} expansion.",
		},
	}
}

func run(ctx context.Context, cfg config.Config) error {
	srv, err := StartServer(ctx, &cfg)
	if err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("Shutting down...")

	drainCtx, drainCancel := context.WithTimeout(context.Background(), time.Duration(cfg.DrainTimeout)*time.Second)
	defer drainCancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		log.Error("Shutdown error", "err", err)
	}
	log.Info("Server stopped")
	return nil
}

func maxBodySizeMiddleware(maxBodySize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
		c.Next()
	}
}
