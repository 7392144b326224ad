package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"route-planning-service/internal/adapters/repositories"
	"route-planning-service/internal/config"
	"route-planning-service/internal/platform/db"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"
)

// dbtool creates the schema and loads demo data into Postgres or a SQLite file.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	driver := flag.String("driver", config.Get("STORE_DRIVER", "sqlite"), "sqlite or postgres")
	seedPath := flag.String("seed", config.Get("SEED_PATH", "data/seeds/demo.json"), "demo data file; empty skips seeding")
	flag.Parse()

	var (
		conn    *sql.DB
		dialect db.Dialect
		err     error
	)
	switch *driver {
	case "postgres":
		databaseURL := config.Get("DATABASE_URL", "")
		if strings.TrimSpace(databaseURL) == "" {
			log.Fatal("DATABASE_URL is required")
		}
		conn, err = db.Open(databaseURL)
		dialect = db.DialectPostgres
	case "sqlite":
		conn, err = db.OpenSQLite(config.Get("DB_PATH", "data/app.db"))
		dialect = db.DialectSQLite
	default:
		log.Fatalf("unknown driver %q", *driver)
	}
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	if err := initAndSeed(context.Background(), conn, dialect, *seedPath); err != nil {
		log.Fatal(err)
	}
}

func initAndSeed(ctx context.Context, conn *sql.DB, dialect db.Dialect, seedPath string) error {
	log.Println("Initializing database schema...")
	if err := repositories.InitSchema(ctx, conn); err != nil {
		return err
	}
	log.Println("Schema ready.")

	if seedPath == "" {
		return nil
	}

	log.Println("Seeding database...")
	if err := repositories.SeedFromJSON(ctx, repositories.NewSQLStore(conn, dialect), seedPath); err != nil {
		return err
	}
	log.Println("Seeding complete.")

	return nil
}
