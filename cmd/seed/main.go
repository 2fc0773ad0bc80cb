// seed creates a verified demo account for local development.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"cartshare/backend/internal/config"
	"cartshare/backend/internal/db"
	"cartshare/backend/internal/identity/repository"
	"cartshare/backend/internal/identity/service"
	"cartshare/backend/internal/security"
)

func main() {
	email := flag.String("email", "demo@cartshare.local", "demo account email")
	password := flag.String("password", "demopassword1", "demo account password")
	name := flag.String("name", "Demo Shopper", "demo account display name")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set")
		os.Exit(1)
	}

	ctx := context.Background()
	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open database:", err)
		os.Exit(1)
	}
	defer func() { _ = database.Close() }()

	repo := repository.NewPostgresRepository(database)

	accessSecret, err := security.LoadSecret(cfg.JWTAccessSecret)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load access token secret:", err)
		os.Exit(1)
	}
	refreshSecret, err := security.LoadSecret(cfg.JWTRefreshSecret)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load refresh token secret:", err)
		os.Exit(1)
	}
	codec, err := security.NewTokenCodec(accessSecret, refreshSecret,
		cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL())
	if err != nil {
		fmt.Fprintln(os.Stderr, "token codec:", err)
		os.Exit(1)
	}
	svc := service.NewAuthService(repo, codec, security.NewHasher(cfg.BcryptCost),
		cfg.MaxSessions, cfg.RequireVerifiedEmail)

	ident, err := svc.Register(ctx, *email, *password, *name)
	if err != nil {
		fmt.Fprintln(os.Stderr, "register:", err)
		os.Exit(1)
	}
	if err := repo.SetEmailVerified(ctx, ident.ID); err != nil {
		fmt.Fprintln(os.Stderr, "verify email:", err)
		os.Exit(1)
	}
	fmt.Printf("seeded %s (%s)\n", ident.Email, ident.ID)
}
