package cart

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Ensure makes sure a cart with the given id exists, creating an empty one
// when absent. The cart is saved again either way so its timestamp moves.
func (s *Service) Ensure(ctx context.Context, id primitive.ObjectID) error {
	c, err := s.repo.Get(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		c = Cart{ID: id, Products: []Item{}}
	case err != nil:
		return err
	}

	c.UpdatedAt = s.now()
	return s.repo.Save(ctx, c)
}

func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (Cart, error) {
	return s.repo.Get(ctx, id)
}
