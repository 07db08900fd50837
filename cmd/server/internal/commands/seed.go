package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/stockroomhq/stockroom/internal/auth"
	"github.com/stockroomhq/stockroom/internal/logger"
	"github.com/stockroomhq/stockroom/internal/models"
	postgresstore "github.com/stockroomhq/stockroom/internal/store/postgres"
	"gopkg.in/yaml.v3"
)

// SeedCmd loads fixture data from a YAML file into the database. Useful
// for local development and demo environments.
type SeedCmd struct {
	File          string             `help:"path to the YAML fixture file" required:"" type:"existingfile"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

type fixtureFile struct {
	Users []struct {
		Email     string `yaml:"email"`
		FirstName string `yaml:"first_name"`
		LastName  string `yaml:"last_name"`
		Role      string `yaml:"role"`
		Password  string `yaml:"password"`
	} `yaml:"users"`
	Products []struct {
		Name        string  `yaml:"name"`
		Description string  `yaml:"description"`
		Price       float64 `yaml:"price"`
	} `yaml:"products"`
}

func (c *SeedCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx := context.Background()

	if err := c.PostgresStore.Validate(); err != nil {
		return fmt.Errorf("failed to validate postgres flags: %w", err)
	}

	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read fixture file: %w", err)
	}

	var fixtures fixtureFile
	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("failed to parse fixture file: %w", err)
	}

	pool, err := postgresstore.NewPool(ctx, &postgresstore.PoolConfig{
		ConnString:      c.PostgresStore.ConnString,
		MaxConns:        c.PostgresStore.MaxConns,
		MinConns:        c.PostgresStore.MinConns,
		MaxConnLifetime: c.PostgresStore.MaxConnLifetime,
		MaxConnIdleTime: c.PostgresStore.MaxConnIdleTime,
	})
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	if c.PostgresStore.AutoMigrate {
		if err := postgresstore.RunMigrations(ctx, pool); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	users := postgresstore.NewUserStore(pool)
	products := postgresstore.NewProductStore(pool)
	hasher := auth.NewHasher(0)

	for _, u := range fixtures.Users {
		hash, err := hasher.Hash(u.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password for %s: %w", u.Email, err)
		}

		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}

		role := models.UserRole(u.Role)
		if role == "" {
			role = models.UserRoleUser
		}

		err = users.Create(ctx, &models.User{
			ID:           id,
			Email:        u.Email,
			FirstName:    u.FirstName,
			LastName:     u.LastName,
			Role:         role,
			PasswordHash: hash,
		})
		if err != nil {
			return fmt.Errorf("failed to create user %s: %w", u.Email, err)
		}
	}

	for _, p := range fixtures.Products {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate product id: %w", err)
		}

		err = products.Create(ctx, &models.Product{
			ID:          id,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
		})
		if err != nil {
			return fmt.Errorf("failed to create product %s: %w", p.Name, err)
		}
	}

	log.Info().
		Int("users", len(fixtures.Users)).
		Int("products", len(fixtures.Products)).
		Msg("Fixtures loaded")

	return nil
}
