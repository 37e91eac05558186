package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wichananm65/ecommerce-backend/internal/cart"
	"github.com/wichananm65/ecommerce-backend/internal/config"
	"github.com/wichananm65/ecommerce-backend/internal/database"
	"github.com/wichananm65/ecommerce-backend/internal/product"
	"github.com/wichananm65/ecommerce-backend/internal/user"
)

// Stores bundles the repositories of one backend. Close releases the
// underlying connection, if any.
type Stores struct {
	Users    user.Repository
	Carts    cart.Repository
	Products product.Repository
	Close    func(ctx context.Context) error
}

// Open builds the repositories for the configured driver.
func Open(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Stores, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		return openMongo(ctx, cfg, logger)
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	case config.DriverMemory:
		logger.Warn().Msg("using in-memory store, data is lost on restart")
		return Memory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// Memory returns empty in-memory repositories.
func Memory() *Stores {
	return &Stores{
		Users:    user.NewInMemoryRepository(nil),
		Carts:    cart.NewInMemoryRepository(nil),
		Products: product.NewInMemoryRepository(nil),
		Close:    func(context.Context) error { return nil },
	}
}

func openMongo(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Stores, error) {
	client, db, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, err
	}

	users := user.NewMongoRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info().Str("driver", cfg.StoreDriver).Msg("store ready")
	return &Stores{
		Users:    users,
		Carts:    cart.NewMongoRepository(db),
		Products: product.NewMongoRepository(db),
		Close:    client.Disconnect,
	}, nil
}

func openPostgres(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Stores, error) {
	if err := database.MigratePostgres(cfg.PostgresURL); err != nil {
		return nil, err
	}
	db, err := database.OpenPostgres(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("driver", cfg.StoreDriver).Msg("store ready")
	return &Stores{
		Users:    user.NewPostgresRepository(db),
		Carts:    cart.NewPostgresRepository(db),
		Products: product.NewPostgresRepository(db),
		Close:    func(context.Context) error { return db.Close() },
	}, nil
}
