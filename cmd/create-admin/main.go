// Command create-admin creates an admin account, or promotes an existing one.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"

	"github.com/jeremyviracochaf-eng/evaluacionf/internal/config"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/db"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/logger"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/repository"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/service"
)

func main() {
	name := flag.String("name", "Administrator", "display name for a new account")
	email := flag.String("email", os.Getenv("ADMIN_EMAIL"), "admin email")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "password for a new account (min 8 chars)")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: create-admin -email admin@example.com -password secret123")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		lg.Fatal("database", zap.Error(err))
	}
	defer conn.Close()
	if err := db.Migrate(conn, cfg.MigrationsDir, lg); err != nil {
		lg.Fatal("migrations", zap.Error(err))
	}

	// tokens are never issued here, so the store is not needed
	auth := service.NewAuthService(repository.NewUserRepository(conn), nil, lg)
	user, err := auth.CreateAdmin(context.Background(), service.RegisterInput{
		Name:                 *name,
		Email:                *email,
		Password:             *password,
		PasswordConfirmation: *password,
	})
	if err != nil {
		lg.Fatal("create admin", zap.Error(err))
	}
	fmt.Printf("admin #%d %s ready\n", user.ID, user.Email)
}
