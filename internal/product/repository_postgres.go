package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	productColumns = `id, name, description, image, brand, price, category, count_in_stock, rating, num_reviews, is_featured, created_at`

	listProductsQuery   = `SELECT ` + productColumns + ` FROM products ORDER BY created_at, id`
	getProductByIDQuery = `SELECT ` + productColumns + ` FROM products WHERE id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, listProductsQuery)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id primitive.ObjectID) (Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, getProductByIDQuery, id.Hex()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func scanProduct(scanner rowScanner) (Product, error) {
	var (
		p  Product
		id string
	)
	if err := scanner.Scan(
		&id,
		&p.Name,
		&p.Description,
		&p.Image,
		&p.Brand,
		&p.Price,
		&p.Category,
		&p.CountInStock,
		&p.Rating,
		&p.NumReviews,
		&p.IsFeatured,
		&p.CreatedAt,
	); err != nil {
		return Product{}, err
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Product{}, fmt.Errorf("stored id %q: %w", id, err)
	}
	p.ID = oid
	return p, nil
}
