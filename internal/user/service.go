package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

const (
	hashCost = 10
	// toggleRetries bounds how often a favorite toggle re-reads the user
	// after losing a version race.
	toggleRetries = 3
)

// CartEnsurer guarantees a cart exists for a freshly registered user.
type CartEnsurer interface {
	Ensure(ctx context.Context, id primitive.ObjectID) error
}

type ProductLookup interface {
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
}

type TokenIssuer interface {
	Issue(userID string, isAdmin bool) (string, error)
}

type Registration struct {
	ID            primitive.ObjectID
	Name          string
	Gender        Gender
	Email         string
	Password      string
	Street        string
	Apartment     string
	City          string
	Zip           string
	Country       string
	Phone         string
	IsAdmin       bool
	LikedProducts []primitive.ObjectID
}

type Session struct {
	Token string
	User  User
}

type FavoriteResult struct {
	Added         bool
	LikedProducts []primitive.ObjectID
}

type Service struct {
	repo     Repository
	carts    CartEnsurer
	products ProductLookup
	tokens   TokenIssuer
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, carts CartEnsurer, products ProductLookup, tokens TokenIssuer, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		carts:    carts,
		products: products,
		tokens:   tokens,
		log:      logger.With().Str("component", "user.service").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetByID(ctx context.Context, id primitive.ObjectID) (User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// Register stores a new user and then makes sure a cart with the same id
// exists. A failing cart is logged; the user record is kept.
func (s *Service) Register(ctx context.Context, reg Registration) (User, error) {
	if reg.Password == "" {
		return User{}, ErrMissingPassword
	}

	hashed, err := hashPassword(reg.Password)
	if err != nil {
		return User{}, err
	}

	now := s.now()
	created, err := s.repo.Create(ctx, User{
		ID:            reg.ID,
		Name:          reg.Name,
		Gender:        reg.Gender,
		Email:         normalizeEmail(reg.Email),
		PasswordHash:  hashed,
		Street:        reg.Street,
		Apartment:     reg.Apartment,
		City:          reg.City,
		Zip:           reg.Zip,
		Country:       reg.Country,
		Phone:         reg.Phone,
		IsAdmin:       reg.IsAdmin,
		LikedProducts: dedupe(reg.LikedProducts),
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return User{}, err
	}

	if err := s.carts.Ensure(ctx, created.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", created.ID.Hex()).Msg("cart not created for new user")
	}
	return created, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (Session, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return Session{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return Session{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID.Hex(), u.IsAdmin)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: token, User: u}, nil
}

func (s *Service) ChangePassword(ctx context.Context, id primitive.ObjectID, oldPassword, newPassword string) (User, error) {
	if newPassword == "" {
		return User{}, ErrMissingPassword
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)) != nil {
		return User{}, ErrInvalidCredentials
	}

	hashed, err := hashPassword(newPassword)
	if err != nil {
		return User{}, err
	}
	return s.repo.UpdatePassword(ctx, id, hashed, s.now())
}

// ToggleFavorite adds productID to the user's liked list, or removes it when
// already present. The write is a compare-and-swap on the user's version.
func (s *Service) ToggleFavorite(ctx context.Context, userID, productID primitive.ObjectID) (FavoriteResult, error) {
	var (
		u      User
		exists bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		u, err = s.repo.GetByID(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		exists, err = s.products.Exists(gctx, productID)
		return err
	})
	if err := g.Wait(); err != nil {
		return FavoriteResult{}, err
	}
	if !exists {
		return FavoriteResult{}, fmt.Errorf("product %s: %w", productID.Hex(), ErrNotFound)
	}

	for attempt := 0; ; attempt++ {
		added := !u.Likes(productID)
		liked := toggled(u.LikedProducts, productID, added)

		updated, err := s.repo.SetLikedProducts(ctx, u.ID, liked, u.Version, s.now())
		if err == nil {
			return FavoriteResult{Added: added, LikedProducts: updated.LikedProducts}, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return FavoriteResult{}, err
		}
		if attempt == toggleRetries {
			return FavoriteResult{}, ErrVersionConflict
		}

		s.log.Debug().Str("user_id", userID.Hex()).Int("attempt", attempt+1).Msg("favorite toggle lost version race, retrying")
		if u, err = s.repo.GetByID(ctx, userID); err != nil {
			return FavoriteResult{}, err
		}
	}
}

func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) DeleteAll(ctx context.Context) error {
	return s.repo.DeleteAll(ctx)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toggled(liked []primitive.ObjectID, productID primitive.ObjectID, add bool) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(liked)+1)
	for _, id := range liked {
		if id != productID {
			out = append(out, id)
		}
	}
	if add {
		out = append(out, productID)
	}
	return out
}

func dedupe(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}
