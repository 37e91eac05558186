package user

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already exists")
	ErrUserExists         = errors.New("user id already exists")
	ErrMissingPassword    = errors.New("password is required")
	ErrPasswordTooLong    = errors.New("password is longer than 72 bytes")
	ErrForbidden          = errors.New("not allowed to act on this user")
	ErrInvalidID          = errors.New("invalid user id")
	ErrVersionConflict    = errors.New("user was modified concurrently")
)

// Repository persists users. Create enforces unique emails and ids.
// SetLikedProducts is a compare-and-swap on Version: it returns
// ErrVersionConflict when the stored version differs from the given one,
// including when the record no longer exists.
type Repository interface {
	List(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, user User) (User, error)
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string, at time.Time) (User, error)
	SetLikedProducts(ctx context.Context, id primitive.ObjectID, liked []primitive.ObjectID, version int64, at time.Time) (User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteAll(ctx context.Context) error
}

type InMemoryRepository struct {
	mu    sync.RWMutex
	users []User
}

func NewInMemoryRepository(seed []User) *InMemoryRepository {
	repo := &InMemoryRepository{users: make([]User, 0, len(seed))}
	for _, u := range seed {
		if u.Version == 0 {
			u.Version = 1
		}
		repo.users = append(repo.users, clone(u))
	}
	return repo
}

func (r *InMemoryRepository) List(ctx context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, clone(u))
	}
	return users, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id primitive.ObjectID) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexOf(id); i >= 0 {
		return clone(r.users[i]), nil
	}
	return User{}, ErrNotFound
}

func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return User{}, ErrNotFound
}

func (r *InMemoryRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.users)), nil
}

func (r *InMemoryRepository) Create(ctx context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	for _, u := range r.users {
		if u.ID == user.ID {
			return User{}, ErrUserExists
		}
		if u.Email == user.Email {
			return User{}, ErrEmailExists
		}
	}
	if user.Version == 0 {
		user.Version = 1
	}

	r.users = append(r.users, clone(user))
	return clone(user), nil
}

func (r *InMemoryRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string, at time.Time) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return User{}, ErrNotFound
	}
	r.users[i].PasswordHash = hash
	r.users[i].UpdatedAt = at
	r.users[i].Version++
	return clone(r.users[i]), nil
}

func (r *InMemoryRepository) SetLikedProducts(ctx context.Context, id primitive.ObjectID, liked []primitive.ObjectID, version int64, at time.Time) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 || r.users[i].Version != version {
		return User{}, ErrVersionConflict
	}
	r.users[i].LikedProducts = append([]primitive.ObjectID{}, liked...)
	r.users[i].UpdatedAt = at
	r.users[i].Version++
	return clone(r.users[i]), nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	r.users = append(r.users[:i], r.users[i+1:]...)
	return nil
}

func (r *InMemoryRepository) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users = r.users[:0]
	return nil
}

// callers must hold r.mu
func (r *InMemoryRepository) indexOf(id primitive.ObjectID) int {
	for i, u := range r.users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

func clone(u User) User {
	u.LikedProducts = append([]primitive.ObjectID{}, u.LikedProducts...)
	return u
}
