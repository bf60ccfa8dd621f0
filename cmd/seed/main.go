package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-ddd-private-messages/config"
	"github.com/oksasatya/go-ddd-private-messages/internal/domain/entity"
	pginfra "github.com/oksasatya/go-ddd-private-messages/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-private-messages/pkg/helpers"
	"github.com/oksasatya/go-ddd-private-messages/pkg/users"
)

// seed creates two demo users and a first message between them.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{AppName: cfg.AppName + "-seed", MaxConns: 2, MinConns: 1})
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "password123"
	}
	hash, err := helpers.HashPassword(password)
	if err != nil {
		logger.Fatalf("failed to hash password: %v", err)
	}

	model := users.NewResolver(cfg.UserSchemaVersion, cfg.UserModelTable, cfg.UserModelUsernameField).Model()
	userRepo := pginfra.NewUserRepository(pool, model)
	demo := []*entity.User{
		{Username: "alice", Email: "alice@example.com", Password: hash, Name: "Alice"},
		{Username: "bob", Email: "bob@example.com", Password: hash, Name: "Bob"},
	}
	for _, u := range demo {
		if err := userRepo.Create(ctx, u); err != nil {
			logger.Fatalf("failed to seed user %s: %v", u.Email, err)
		}
		logger.WithField("id", u.ID).WithField("email", u.Email).Info("seeded user")
	}

	if cfg.SiteDomain != "" {
		if _, err := pool.Exec(ctx, `UPDATE sites SET domain = $1, name = $1 WHERE id = $2`, cfg.SiteDomain, cfg.SiteID); err != nil {
			logger.Fatalf("failed to update site: %v", err)
		}
	}

	msg := &entity.Message{
		Subject:     "Welcome",
		Body:        "Hi Bob, this is your first private message.",
		SenderID:    demo[0].ID,
		RecipientID: demo[1].ID,
	}
	if err := pginfra.NewMessageRepository(pool, model).Create(ctx, msg); err != nil {
		logger.Fatalf("failed to seed message: %v", err)
	}
	logger.WithField("id", msg.ID).Infof("seeded message; log in with password %q", password)
}
