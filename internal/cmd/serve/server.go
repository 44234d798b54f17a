package serve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/firedesk/records-service/internal/config"
	"github.com/firedesk/records-service/internal/lifecycle"
	"github.com/firedesk/records-service/internal/plugin/route/dashboard"
	"github.com/firedesk/records-service/internal/plugin/route/files"
	"github.com/firedesk/records-service/internal/plugin/route/records"
	routesystem "github.com/firedesk/records-service/internal/plugin/route/system"
	storemetrics "github.com/firedesk/records-service/internal/plugin/store/metrics"
	registryattach "github.com/firedesk/records-service/internal/registry/attach"
	registrycache "github.com/firedesk/records-service/internal/registry/cache"
	registrymigrate "github.com/firedesk/records-service/internal/registry/migrate"
	registryroute "github.com/firedesk/records-service/internal/registry/route"
	registrystore "github.com/firedesk/records-service/internal/registry/store"
	"github.com/firedesk/records-service/internal/security"
)

// Server holds the running server and its subsystems.
type Server struct {
	Config *config.Config
	Store  registrystore.RecordStore
	Router *gin.Engine
	// Port is the bound listener port, useful when cfg asked for port 0.
	Port int

	httpServer *http.Server
}

// Shutdown gracefully drains and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	routesystem.MarkReady(false)
	return s.httpServer.Shutdown(ctx)
}

// StartServer initializes all subsystems and starts the HTTP listener.
func StartServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	log.Info("Starting records service",
		"port", cfg.Listener.Port,
		"db", cfg.DatastoreType,
		"files", cfg.AttachType,
		"cache", cfg.CacheType,
	)

	// Initialize Prometheus metrics with configured constant labels.
	metricsLabels, err := security.ParseMetricsLabels(cfg.MetricsLabels)
	if err != nil {
		return nil, fmt.Errorf("invalid --metrics-labels: %w", err)
	}
	security.InitMetrics(metricsLabels)

	ctx = config.WithContext(ctx, cfg)

	// Run migrations
	if err := registrymigrate.RunAll(ctx); err != nil {
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	// Initialize the stats cache. A broken cache degrades dashboards, it
	// never blocks startup.
	var statsCache registrycache.StatsCache
	if cacheLoader, err := registrycache.Select(cfg.CacheType); err != nil {
		log.Warn("Cache not available", "cache", cfg.CacheType, "err", err)
	} else if statsCache, err = cacheLoader(ctx); err != nil {
		log.Warn("Failed to initialize cache", "cache", cfg.CacheType, "err", err)
		statsCache = nil
	} else {
		ctx = registrycache.WithStatsCacheContext(ctx, statsCache)
	}

	// Initialize store
	storeLoader, err := registrystore.Select(cfg.DatastoreType)
	if err != nil {
		return nil, err
	}
	store, err := storeLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	store = storemetrics.Wrap(store)
	routesystem.SetPinger(store.Ping)

	// Initialize file store
	attachLoader, err := registryattach.Select(cfg.AttachType)
	if err != nil {
		return nil, err
	}
	fileStore, err := attachLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}

	svc := lifecycle.New(store, fileStore, lifecycle.Options{
		MaxUploadSize: cfg.UploadMaxSize,
		Cache:         statsCache,
		StatsCacheTTL: cfg.StatsCacheTTL,
	})

	// Set up gin
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.ManagementAccessLog {
		router.Use(security.AccessLogMiddleware())
	} else {
		router.Use(security.AccessLogMiddleware("/health", "/ready", "/metrics"))
	}
	router.Use(security.MetricsMiddleware())
	router.Use(maxBodySizeMiddleware(cfg.MaxBodySize))
	router.Use(security.AuthMiddleware(cfg.AdminKeySet()))

	// Mount self-contained route plugins (health, readiness, metrics).
	for _, loader := range registryroute.Loaders() {
		if err := loader(router); err != nil {
			return nil, fmt.Errorf("failed to load routes: %w", err)
		}
	}

	// Mount domain routes.
	records.MountRoutes(router, svc)
	dashboard.MountRoutes(router, svc)
	files.MountRoutes(router, fileStore, cfg)

	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: cfg.Listener.ReadHeaderTimeout,
	}

	listener, err := net.Listen("tcp", ":"+strconv.Itoa(cfg.Listener.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", cfg.Listener.Port, err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	useTLS := cfg.Listener.TLSCertFile != "" && cfg.Listener.TLSKeyFile != ""
	go func() {
		var err error
		if useTLS {
			err = httpServer.ServeTLS(listener, cfg.Listener.TLSCertFile, cfg.Listener.TLSKeyFile)
		} else {
			err = httpServer.Serve(listener)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "err", err)
		}
	}()

	log.Info("Server listening", "port", port, "tls", useTLS)

	routesystem.MarkReady(true)
	return &Server{
		Config:     cfg,
		Store:      store,
		Router:     router,
		Port:       port,
		httpServer: httpServer,
	}, nil
}
