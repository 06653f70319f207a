package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"medishare/config"
	"medishare/internal/repository"
	"medishare/pkg/database"
)

const usage = `
MediShare - Database CLI Tool

Usage:
  migrate [command] [flags]

Commands:
  up          Create or update tables, indexes and constraints
  status      Show database connection status and table counts
  seed        Create the admin user if none exists

Flags:
  -admin-email string  Admin email for seeding (default $ADMIN_EMAIL)
  -admin-pass string   Admin password for seeding (default $ADMIN_PASSWORD)

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go seed -admin-email admin@medishare.local -admin-pass secret
`

func main() {
	cfg := config.LoadConfig()

	adminEmail := flag.String("admin-email", cfg.AdminEmail, "Admin email for seeding")
	adminPass := flag.String("admin-pass", cfg.AdminPassword, "Admin password for seeding")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	if _, err := database.Connect(cfg); err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer database.Close()

	switch command {
	case "up":
		runMigrationsUp()
	case "status":
		showStatus()
	case "seed":
		runSeed(*adminEmail, *adminPass)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp() {
	log.Println("🚀 Running migrations UP...")

	if err := repository.InitSchema(database.DB); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	log.Println("✅ Migrations completed successfully!")
}

func showStatus() {
	log.Println("🔍 Checking database status...")

	if err := database.Ping(); err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	log.Println("✅ Database connection: OK")

	tables := []string{"users", "donations"}
	for _, table := range tables {
		exists, err := database.TableExists(table)
		if err != nil {
			log.Printf("⚠️  Error checking table %s: %v", table, err)
			continue
		}
		if exists {
			count, _ := database.GetTableCount(table)
			log.Printf("✅ Table %-20s exists (%d rows)", table, count)
		} else {
			log.Printf("❌ Table %-20s does not exist", table)
		}
	}
}

func runSeed(adminEmail, adminPass string) {
	log.Println("🌱 Seeding database...")

	users := repository.NewUserRepository(database.DB)
	admin, created, err := database.SeedAdmin(context.Background(), users, adminEmail, adminPass)
	if errors.Is(err, database.ErrSeedSkipped) {
		log.Fatalf("❌ Seeding skipped: pass -admin-email and -admin-pass or set ADMIN_EMAIL/ADMIN_PASSWORD")
	}
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	if created {
		log.Printf("✅ Admin user created: %s (ID: %s)", admin.Email, admin.ID)
	} else {
		log.Printf("✅ Admin user already present: %s (ID: %s)", admin.Email, admin.ID)
	}
}
