package cart

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	getCartQuery  = `SELECT id, products, updated_at FROM carts WHERE id = $1`
	saveCartQuery = `
		INSERT INTO carts (id, products, updated_at)
		VALUES ($1, $2::jsonb, $3)
		ON CONFLICT (id) DO UPDATE
		SET products = EXCLUDED.products,
			updated_at = EXCLUDED.updated_at
	`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, id primitive.ObjectID) (Cart, error) {
	var (
		rawID    string
		products []byte
		c        Cart
	)
	err := r.db.QueryRowContext(ctx, getCartQuery, id.Hex()).Scan(&rawID, &products, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Cart{}, ErrNotFound
		}
		return Cart{}, fmt.Errorf("get cart: %w", err)
	}

	c.ID = id
	c.Products = []Item{}
	if len(products) > 0 {
		if err := json.Unmarshal(products, &c.Products); err != nil {
			return Cart{}, fmt.Errorf("decode cart %s products: %w", rawID, err)
		}
	}
	return c, nil
}

func (r *PostgresRepository) Save(ctx context.Context, cart Cart) error {
	items := cart.Products
	if items == nil {
		items = []Item{}
	}
	products, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart products: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, saveCartQuery, cart.ID.Hex(), string(products), cart.UpdatedAt); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
