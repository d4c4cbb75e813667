package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/oksasatya/go-form-playground/config"
	"github.com/oksasatya/go-form-playground/internal/application"
	"github.com/oksasatya/go-form-playground/internal/domain/form"
	"github.com/oksasatya/go-form-playground/pkg/helpers"
)

// Addresses already registered, so the postgres checker reports them taken.
// The exempt address is never seeded.
var demoUsers = []struct{ Email, Name string }{
	{"admin@example.com", "Admin"},
	{"jane@example.com", "Jane Doe"},
	{"john@example.com", "John Doe"},
	{"taken@example.com", "Already Taken"},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	const password = "Password123!"
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	// Cached "available" answers for these addresses would hide the seed.
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()
	cache := application.NewCachedChecker(nil, rdb, cfg.AvailabilityCacheTTL, nil)
	ctx := context.Background()

	exempt := form.NormalizeEmail(cfg.ExemptEmail)
	for _, u := range demoUsers {
		email := form.NormalizeEmail(u.Email)
		if email == exempt {
			continue
		}
		var id string
		err = db.QueryRow(`
			INSERT INTO users (email, password_hash, name)
			VALUES ($1, $2, $3)
			ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, updated_at = now()
			RETURNING id
		`, email, hash, u.Name).Scan(&id)
		if err != nil {
			log.Fatalf("failed to seed %s: %v", email, err)
		}
		if err := cache.MarkTaken(ctx, email); err != nil {
			log.Printf("redis unavailable, cache not updated for %s: %v", email, err)
		}
		fmt.Printf("seeded user: id=%s email=%s name=%s\n", id, email, u.Name)
	}
	fmt.Printf("all demo users share password %q\n", password)
}
