package e2e

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/asakaida/contentkit/internal/handlers"
	"github.com/asakaida/contentkit/internal/infrastructure/config"
	"github.com/asakaida/contentkit/internal/infrastructure/database"
	"github.com/asakaida/contentkit/internal/infrastructure/metrics"
	"github.com/asakaida/contentkit/internal/repositories/postgres"
	"github.com/asakaida/contentkit/internal/services"
	"github.com/asakaida/contentkit/pkg/cache/memorycache"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

const bufSize = 1024 * 1024

// E2ETestServer represents an E2E test server
type E2ETestServer struct {
	Server             *grpc.Server
	ContentClient      *handlers.Client
	ContentTypesClient *handlers.Client
	Manager            *services.EntityManager
	Collector          *metrics.Collector
	Conn               *grpc.ClientConn
	DB                 *sql.DB
	Listener           *bufconn.Listener
}

// SetupE2ETest sets up an E2E test environment.
// The test is skipped when the test database is unreachable.
func SetupE2ETest(t *testing.T) *E2ETestServer {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping E2E test in short mode")
	}

	// Initialize config for test environment
	if err := config.InitConfig("test"); err != nil {
		t.Skipf("failed to initialize config: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		t.Skipf("failed to load config: %v", err)
	}

	// Connect to test database
	pg, err := database.NewPostgres(&cfg.Database)
	if err != nil {
		t.Skipf("failed to connect to database: %v", err)
	}

	// Run migrations (use absolute path)
	projectRoot, err := config.ProjectRoot()
	if err != nil {
		t.Fatalf("failed to find project root: %v", err)
	}
	if err := pg.RunMigrations(filepath.Join(projectRoot, database.DefaultMigrationsPath)); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Clean up existing data
	cleanupDatabase(t, pg.DB)

	// Initialize repositories
	contentRepo := postgres.NewPostgresContentRepository(pg.DB)
	relationRepo := postgres.NewPostgresRelationRepository(pg.DB)
	contentTypeRepo := postgres.NewPostgresContentTypeRepository(pg.DB)

	// Initialize services
	entityCache, err := memorycache.New(&memorycache.Config{
		MaxSizeBytes:  8 * 1024 * 1024,
		DefaultTTL:    time.Minute,
		EnableMetrics: true,
	})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	contentTypeService := services.NewContentTypeService(contentTypeRepo, nil)
	manager := services.NewEntityManager(contentRepo, relationRepo, contentTypeService, entityCache)
	formService := services.NewFormService(manager, contentTypeService)

	collector := metrics.NewCollector()
	collector.SetCache(entityCache)

	// Create in-memory gRPC server with bufconn
	listener := bufconn.Listen(bufSize)
	server := grpc.NewServer(grpc.UnaryInterceptor(metrics.UnaryServerInterceptor(collector, nil)))
	handlers.RegisterContentServer(server, handlers.NewContentHandler(manager, formService).WithWidgets(contentTypeService, nil))
	handlers.RegisterContentTypesServer(server, handlers.NewContentTypesHandler(contentTypeService, manager))

	// Start server in background
	go func() {
		if err := server.Serve(listener); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	// Create client connection
	bufDialer := func(ctx context.Context, _ string) (net.Conn, error) {
		return listener.DialContext(ctx)
	}

	conn, err := grpc.NewClient(
		"passthrough://bufconn",
		grpc.WithContextDialer(bufDialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		server.Stop()
		t.Fatalf("failed to create client connection: %v", err)
	}

	return &E2ETestServer{
		Server:             server,
		ContentClient:      handlers.NewContentClient(conn),
		ContentTypesClient: handlers.NewContentTypesClient(conn),
		Manager:            manager,
		Collector:          collector,
		Conn:               conn,
		DB:                 pg.DB,
		Listener:           listener,
	}
}

// Teardown cleans up the E2E test environment
func (e *E2ETestServer) Teardown(t *testing.T) {
	t.Helper()

	if e.Conn != nil {
		e.Conn.Close()
	}
	if e.Server != nil {
		e.Server.Stop()
	}
	if e.Listener != nil {
		e.Listener.Close()
	}
	if e.DB != nil {
		cleanupDatabase(t, e.DB)
		e.DB.Close()
	}
}

// WriteContentTypes uploads definitions and fails the test on error
func (e *E2ETestServer) WriteContentTypes(ctx context.Context, t *testing.T, source string) string {
	t.Helper()

	resp, err := e.ContentTypesClient.Call(ctx, "Write", map[string]interface{}{"source": source})
	if err != nil {
		t.Fatalf("Write content types failed: %v", err)
	}
	return resp.AsMap()["version"].(string)
}

// Submit saves a record and returns it as presented
func (e *E2ETestServer) Submit(ctx context.Context, t *testing.T, contenttype, id string, values map[string]interface{}) map[string]interface{} {
	t.Helper()

	req := map[string]interface{}{
		"contenttype": contenttype,
		"values":      values,
	}
	if id != "" {
		req["id"] = id
	}
	resp, err := e.ContentClient.Call(ctx, "Submit", req)
	if err != nil {
		t.Fatalf("Submit %s failed: %v", contenttype, err)
	}
	return record(t, resp)
}

// Get loads a record as presented
func (e *E2ETestServer) Get(ctx context.Context, t *testing.T, contenttype, id string) map[string]interface{} {
	t.Helper()

	resp, err := e.ContentClient.Call(ctx, "Get", map[string]interface{}{
		"contenttype": contenttype,
		"id":          id,
	})
	if err != nil {
		t.Fatalf("Get %s:%s failed: %v", contenttype, id, err)
	}
	return record(t, resp)
}

func record(t *testing.T, resp *structpb.Struct) map[string]interface{} {
	t.Helper()

	rec, ok := resp.AsMap()["record"].(map[string]interface{})
	if !ok {
		t.Fatalf("response has no record: %v", resp.AsMap())
	}
	return rec
}

// targetIDs returns the ids of a presented relation field
func targetIDs(t *testing.T, rec map[string]interface{}, field string) []string {
	t.Helper()

	raw, ok := rec[field].([]interface{})
	if !ok {
		t.Fatalf("record field %s is not a list: %v", field, rec[field])
	}
	ids := make([]string, 0, len(raw))
	for _, item := range raw {
		ref := item.(map[string]interface{})
		ids = append(ids, fmt.Sprintf("%v", ref["id"]))
	}
	return ids
}

// cleanupDatabase removes all data from test database
func cleanupDatabase(t *testing.T, db *sql.DB) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Delete in correct order due to foreign key constraints
	tables := []string{"content_fields", "relations", "contents", "contenttype_versions"}
	for _, table := range tables {
		query := fmt.Sprintf("DELETE FROM %s", table)
		if _, err := db.ExecContext(ctx, query); err != nil {
			t.Logf("warning: failed to clean up table %s: %v", table, err)
		}
	}
}
