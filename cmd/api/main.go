package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"lexhub.io/internal/auth"
	"lexhub.io/internal/config"
	"lexhub.io/internal/httpapi"
	"lexhub.io/internal/obs"
	"lexhub.io/internal/tenant"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DSN == "" {
		log.Fatal("missing DSN: set LEXHUB_PG_DSN")
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	registry, err := tenant.NewPGStore(db, cfg.SystemSchema)
	if err != nil {
		log.Fatalf("tenant registry: %v", err)
	}
	router, err := tenant.NewRouter(db, registry, cfg.SystemSchema)
	if err != nil {
		log.Fatalf("schema router: %v", err)
	}
	provisioner := tenant.NewProvisioner(db, registry, router, cfg.TenantMigrationsDir)

	codec, err := auth.NewCodec([]byte(cfg.SigningKey))
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}
	ledger := auth.NewLedger(auth.NewPGRefreshTokenStore(router), cfg.RefreshTokenTTL)
	authSvc := auth.NewService(auth.NewPGCredentialStore(router), ledger, codec, cfg.AccessTokenTTL)

	checkDefaultTenant(db, registry, cfg.DefaultTenant)

	api := httpapi.New(httpapi.Deps{
		Auth:        authSvc,
		Tenants:     registry,
		Provisioner: provisioner,
		DB:          db,
		PublicPaths: cfg.PublicPaths,
	}, version)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting lexhub-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}

// checkDefaultTenant warns when the configured bootstrap tenant is missing
// or not yet ACTIVE. Startup proceeds either way; system operations that
// scope to the default tenant fail individually until it is activated.
func checkDefaultTenant(db *sql.DB, registry tenant.Store, defaultTenant string) {
	if defaultTenant == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	t, err := registry.Find(ctx, defaultTenant)
	if err != nil {
		obs.Warn("default tenant not found", map[string]any{"tenant": defaultTenant})
		return
	}
	if t.Status != tenant.StatusActive {
		obs.Warn("default tenant is not active", map[string]any{
			"tenant": defaultTenant,
			"status": string(t.Status),
		})
	}
}
