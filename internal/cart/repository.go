package cart

import (
	"context"
	"errors"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("cart not found")
	ErrInvalidID = errors.New("invalid cart id")
)

// Repository stores carts. Save inserts or replaces the cart with the same id.
type Repository interface {
	Get(ctx context.Context, id primitive.ObjectID) (Cart, error)
	Save(ctx context.Context, cart Cart) error
}

// InMemoryRepository is used for tests and local runs.
type InMemoryRepository struct {
	mu    sync.RWMutex
	carts map[primitive.ObjectID]Cart
}

func NewInMemoryRepository(seed []Cart) *InMemoryRepository {
	r := &InMemoryRepository{carts: make(map[primitive.ObjectID]Cart, len(seed))}
	for _, c := range seed {
		r.carts[c.ID] = clone(c)
	}
	return r
}

func (r *InMemoryRepository) Get(ctx context.Context, id primitive.ObjectID) (Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.carts[id]
	if !ok {
		return Cart{}, ErrNotFound
	}
	return clone(c), nil
}

func (r *InMemoryRepository) Save(ctx context.Context, cart Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.carts[cart.ID] = clone(cart)
	return nil
}

func clone(c Cart) Cart {
	c.Products = append([]Item{}, c.Products...)
	return c
}
