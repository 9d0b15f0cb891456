package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"lexhub.io/internal/migrate"
	"lexhub.io/internal/tenant"
)

func main() {
	log.SetFlags(0)
	var (
		dsn          = flag.String("dsn", os.Getenv("LEXHUB_PG_DSN"), "PostgreSQL DSN")
		systemSchema = flag.String("system-schema", envOr("LEXHUB_SYSTEM_SCHEMA", "public"), "System schema")
		systemPath   = flag.String("migrations", "db/migrations/system", "Path to system-schema SQL migrations")
		tenantPath   = flag.String("tenant-migrations", "db/migrations/tenant", "Path to tenant-schema SQL migrations")
		seedsPath    = flag.String("seeds", "db/seeds", "Path to SQL seeds")
	)
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or LEXHUB_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|seed|status|provision <tenant-id>|provision-all]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	mgr := migrate.NewManager(db, *systemPath, *seedsPath, migrate.WithSchema(*systemSchema))

	switch flag.Arg(0) {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "seed":
		err = mgr.Seed(ctx)
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	case "provision":
		if flag.Arg(1) == "" {
			log.Fatal("usage: migrate provision <tenant-id>")
		}
		err = provision(ctx, db, *systemSchema, *tenantPath, flag.Arg(1))
	case "provision-all":
		err = provisionAll(ctx, db, *systemSchema, *tenantPath)
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}

func provision(ctx context.Context, db *sql.DB, systemSchema, tenantPath, tenantID string) error {
	registry, err := tenant.NewPGStore(db, systemSchema)
	if err != nil {
		return err
	}
	router, err := tenant.NewRouter(db, registry, systemSchema)
	if err != nil {
		return err
	}
	prov := tenant.NewProvisioner(db, registry, router, tenantPath)
	t, err := prov.Activate(ctx, tenantID)
	if err != nil {
		return err
	}
	log.Printf("tenant %s active in schema %s", t.ID, t.Schema)
	return nil
}

// provisionAll re-runs the tenant migration set for every ACTIVE tenant.
// Idempotent: schemas already at the current version are untouched.
func provisionAll(ctx context.Context, db *sql.DB, systemSchema, tenantPath string) error {
	registry, err := tenant.NewPGStore(db, systemSchema)
	if err != nil {
		return err
	}
	router, err := tenant.NewRouter(db, registry, systemSchema)
	if err != nil {
		return err
	}
	prov := tenant.NewProvisioner(db, registry, router, tenantPath)

	all, err := registry.List(ctx)
	if err != nil {
		return err
	}
	for _, t := range all {
		if t.Status != tenant.StatusActive {
			continue
		}
		err := tenant.Scope(ctx, t.ID, func(ctx context.Context) error {
			if err := prov.EnsureSchema(ctx, t.Schema); err != nil {
				return err
			}
			return prov.Migrate(ctx, t.Schema)
		})
		if err != nil {
			return fmt.Errorf("tenant %s: %w", t.ID, err)
		}
		log.Printf("tenant %s migrated (schema %s)", t.ID, t.Schema)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
