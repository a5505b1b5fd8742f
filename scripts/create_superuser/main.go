package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/intern-tracker-api/internal/models"
	"github.com/noah-isme/intern-tracker-api/internal/repository"
	"github.com/noah-isme/intern-tracker-api/pkg/config"
	"github.com/noah-isme/intern-tracker-api/pkg/database"
	"github.com/noah-isme/intern-tracker-api/pkg/logger"
)

type superuserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
}

type seedResult struct {
	User    *models.User
	Created bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var name, email, password string
	flag.StringVar(&name, "name", cfg.Superuser.Name, "Superuser display name")
	flag.StringVar(&email, "email", cfg.Superuser.Email, "Superuser email")
	flag.StringVar(&password, "password", cfg.Superuser.Password, "Superuser password (min 6 characters)")
	flag.Parse()

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx := context.Background()
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, logr); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	res, err := seedSuperuser(ctx, repository.NewUserRepository(db), name, email, password)
	if err != nil {
		logr.Fatal("failed to seed superuser", zap.Error(err))
	}
	logr.Info("superuser ready",
		zap.String("id", res.User.ID),
		zap.String("email", res.User.Email),
		zap.Bool("created", res.Created),
	)
}

// seedSuperuser creates the superuser account, or resets its password when it already exists.
func seedSuperuser(ctx context.Context, store superuserStore, name, email, password string) (*seedResult, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return nil, errors.New("name and email are required")
	}
	if len(password) < 6 {
		return nil, errors.New("password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	existing, err := store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != models.RoleSuperuser {
			return nil, fmt.Errorf("%s already belongs to a %s account", email, existing.Role)
		}
		if err := store.UpdatePassword(ctx, existing.ID, string(hash), time.Now().UTC()); err != nil {
			return nil, err
		}
		return &seedResult{User: existing}, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("find user: %w", err)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleSuperuser,
	}
	if err := store.Create(ctx, user); err != nil {
		return nil, err
	}
	return &seedResult{User: user, Created: true}, nil
}
