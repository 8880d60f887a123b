// Command mktoken registers a user and prints a bearer token for them.
//
//	go run ./cmd/mktoken -email buyer@example.com -role buyer
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-marketplace/internal/auth"
	"github.com/ariefcatur/go-marketplace/internal/config"
	"github.com/ariefcatur/go-marketplace/internal/postgres"
)

func main() {
	email := flag.String("email", "", "user email (required)")
	role := flag.String("role", "buyer", "buyer, seller or admin")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *email == "" || !auth.Role(*role).Valid() {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN, 1)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	id, err := postgres.UpsertUser(ctx, db, *email, *role)
	if err != nil {
		log.Fatalf("upsert user: %v", err)
	}
	tok, err := auth.NewSigner(cfg.JWTSecret, cfg.JWTIssuer).Sign(auth.Identity{UserID: id, Role: auth.Role(*role)}, *ttl)
	if err != nil {
		log.Fatalf("sign: %v", err)
	}
	fmt.Fprintf(os.Stderr, "user %d (%s)\n", id, *role)
	fmt.Println(tok)
}
