package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/asakaida/contentkit/internal/handlers"
	infracache "github.com/asakaida/contentkit/internal/infrastructure/cache"
	"github.com/asakaida/contentkit/internal/infrastructure/config"
	"github.com/asakaida/contentkit/internal/infrastructure/database"
	"github.com/asakaida/contentkit/internal/infrastructure/metrics"
	"github.com/asakaida/contentkit/internal/repositories/postgres"
	"github.com/asakaida/contentkit/internal/services"
	"github.com/asakaida/contentkit/internal/widget"
	"github.com/asakaida/contentkit/pkg/cache"
	"github.com/asakaida/contentkit/pkg/cache/memorycache"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

const defaultEnv = "dev"

func main() {
	// Get environment from ENV variable or use default
	env := os.Getenv("ENV")
	if env == "" {
		env = defaultEnv
	}

	// Initialize configuration
	if err := config.InitConfig(env); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	pg, err := database.NewPostgres(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pg.Close()

	log.Printf("Connected to database: %s@%s:%d/%s",
		cfg.Database.User,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Database)

	root, err := config.ProjectRoot()
	if err != nil {
		log.Fatalf("Failed to find project root: %v", err)
	}
	if err := pg.RunMigrations(filepath.Join(root, database.DefaultMigrationsPath)); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	contentRepo := postgres.NewPostgresContentRepository(pg.DB)
	relationRepo := postgres.NewPostgresRelationRepository(pg.DB)
	contentTypeRepo := postgres.NewPostgresContentTypeRepository(pg.DB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize services
	contentTypeService := services.NewContentTypeService(contentTypeRepo, nil)
	if path := cfg.Content.ContentTypesPath; path != "" {
		if err := applyContentTypes(ctx, contentTypeService, path); err != nil {
			log.Fatalf("Failed to apply content types: %v", err)
		}
	}

	var entityCache cache.Cache
	if cfg.Cache.Enabled {
		memCache, err := memorycache.New(&memorycache.Config{
			MaxSizeBytes:  cfg.Cache.MaxMemoryBytes,
			DefaultTTL:    time.Duration(cfg.Cache.TTLMinutes) * time.Minute,
			EnableMetrics: cfg.Cache.Metrics,
		})
		if err != nil {
			log.Fatalf("Failed to create entity cache: %v", err)
		}
		entityCache = memCache
		log.Printf("Entity cache enabled: max %d bytes, ttl %d minutes", cfg.Cache.MaxMemoryBytes, cfg.Cache.TTLMinutes)
	}

	manager := services.NewEntityManager(contentRepo, relationRepo, contentTypeService, entityCache)
	manager.SetNotifyChannel(cfg.Content.NotifyChannel)
	manager.SetCacheTTL(time.Duration(cfg.Cache.TTLMinutes) * time.Minute)
	formService := services.NewFormService(manager, contentTypeService)

	// Initialize metrics
	collector := metrics.NewCollector()
	if entityCache != nil {
		collector.SetCache(entityCache)
	}
	exporter := metrics.NewPrometheusExporter(collector)

	// Keep caches of other instances consistent
	var listener *infracache.ChangeListener
	if entityCache != nil {
		listener = infracache.NewChangeListener(manager, cfg.Database.ConnectionString(), cfg.Content.NotifyChannel)
		listener.OnChange(collector.RecordChange)
		if err := listener.Start(ctx); err != nil {
			log.Fatalf("Failed to start change listener: %v", err)
		}
		log.Printf("Listening for record changes on %q", cfg.Content.NotifyChannel)
	}

	messages, err := loadMessages(cfg.Content.MessagesPath)
	if err != nil {
		log.Fatalf("Failed to load widget messages: %v", err)
	}

	// Initialize handlers
	contentHandler := handlers.NewContentHandler(manager, formService).WithWidgets(contentTypeService, messages)
	contentTypesHandler := handlers.NewContentTypesHandler(contentTypeService, manager)

	// Create gRPC server
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(metrics.UnaryServerInterceptor(collector, exporter)))
	handlers.RegisterContentServer(grpcServer, contentHandler)
	handlers.RegisterContentTypesServer(grpcServer, contentTypesHandler)

	// Register reflection service (for grpcurl, etc.)
	reflection.Register(grpcServer)

	// Start metrics server
	mux := http.NewServeMux()
	mux.Handle("/metrics", exporter.Handler())
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 2)
	go func() {
		log.Printf("Metrics server listening on :%d", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("metrics server error: %w", err)
		}
	}()

	// Start listening
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}

	log.Printf("gRPC server listening on %s", addr)

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			serverErrors <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrors:
		log.Fatalf("Server error: %v", err)
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
		log.Println("Initiating graceful shutdown...")

		// Create shutdown context with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Channel to notify when graceful stop completes
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()

		// Wait for graceful stop or timeout
		select {
		case <-stopped:
			log.Println("Server stopped gracefully")
		case <-shutdownCtx.Done():
			log.Println("Shutdown timeout exceeded, forcing stop")
			grpcServer.Stop()
		}

		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error stopping metrics server: %v", err)
		}

		if listener != nil {
			if err := listener.Stop(); err != nil {
				log.Printf("Error stopping change listener: %v", err)
			}
		}
		cancel()

		// Close database connection
		if err := pg.Close(); err != nil {
			log.Printf("Error closing database connection: %v", err)
		}

		log.Println("Shutdown complete")
	}
}

// applyContentTypes stores the definitions file as a new version unless it matches the latest one
func applyContentTypes(ctx context.Context, service *services.ContentTypeService, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	source := string(data)

	if latest, err := service.ReadContentTypes(ctx); err == nil && latest.Source == source {
		log.Printf("Content types from %s are current (version %s)", path, latest.Version)
		return nil
	}

	version, err := service.WriteContentTypes(ctx, source)
	if err != nil {
		return err
	}
	log.Printf("Applied content types from %s as version %s", path, version)
	return nil
}

// loadMessages returns the widget message catalog, merged over the defaults when a file is set
func loadMessages(path string) (widget.Catalog, error) {
	if path == "" {
		return widget.DefaultCatalog(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return widget.LoadCatalog(f)
}
