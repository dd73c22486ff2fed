// Command fundgraphd is the hosted Fundgraph service.
// It serves the read API over recorded runs, the replay endpoint, and a
// health check.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/fundgraph/fundgraph/internal/api"
	"github.com/fundgraph/fundgraph/internal/archive"
	"github.com/fundgraph/fundgraph/internal/ledger"
	"github.com/fundgraph/fundgraph/internal/platform"
)

type config struct {
	Port        string
	DatabaseURL string
	ResultsDir  string
	APIKey      string
	GCSBucket   string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
}

func loadConfig() config {
	return config{
		Port:        envOrDefault("PORT", "8080"),
		DatabaseURL: envOrDefault("DATABASE_URL", "postgres://localhost:5432/fundgraph?sslmode=disable"),
		ResultsDir:  envOrDefault("RESULTS_DIR", "results"),
		APIKey:      os.Getenv("API_KEY"),
		GCSBucket:   os.Getenv("GCS_BUCKET"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3Region:    os.Getenv("S3_REGION"),
		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
	}
}

func main() {
	cfg := loadConfig()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	if err := platform.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	storage, err := newStorage(context.Background(), cfg)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}

	ledgerSvc := ledger.NewService(db)
	handler := api.NewHandler(db, ledgerSvc, storage, cfg.ResultsDir)

	// Set up HTTP routes. The health check stays outside the API key guard.
	apiMux := http.NewServeMux()
	handler.RegisterRoutes(apiMux)

	mux := http.NewServeMux()
	mux.Handle("/api/", api.APIKeyAuth(cfg.APIKey)(apiMux))
	mux.HandleFunc("GET /healthz", healthHandler(db))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.CORS(mux),
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("starting fundgraphd on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")
	if err := srv.Shutdown(context.Background()); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// newStorage picks the archive backend: GCS when GCS_BUCKET is set, S3 when
// S3_BUCKET is set, local disk otherwise.
func newStorage(ctx context.Context, cfg config) (archive.StorageClient, error) {
	switch {
	case cfg.GCSBucket != "":
		return archive.NewGCSStorage(ctx, cfg.GCSBucket)
	case cfg.S3Bucket != "":
		return archive.NewS3Storage(ctx, archive.S3Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
	default:
		return archive.NewLocalStorage(envOrDefault("LOCAL_STORAGE_PATH", "/tmp/fundgraph-data")), nil
	}
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
