// Seeds the initial admin account. Safe to run repeatedly; an existing
// admin email is left untouched.
package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"fitfoco/internal/auth"
	"fitfoco/internal/domain"
	"fitfoco/internal/repository/postgres"
	"fitfoco/pkg/config"
	ffoerrors "fitfoco/pkg/errors"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.ValidateCore(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD environment variables are required")
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	accountRepo := postgres.NewAccountRepository(db)
	authService := auth.NewService(accountRepo, cfg.JWT.Secret, cfg.JWT.Expiration)

	account, err := authService.CreateAccount(context.Background(), email, password, "Administrador", domain.RoleAdmin)
	if errors.Is(err, ffoerrors.ErrAccountAlreadyExists) {
		log.Printf("Admin account %s already exists, nothing to do", email)
		return
	}
	if err != nil {
		log.Fatalf("Failed to create admin account: %v", err)
	}

	log.Printf("Admin account created: %s (%s)", account.Email, account.ID)
}
