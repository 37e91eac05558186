package product

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestProductRoutes(t *testing.T) {
	p := Product{ID: primitive.NewObjectID(), Name: "Cat Tower", Price: 49.5, CountInStock: 3}
	h := NewHandler(NewService(NewInMemoryRepository([]Product{p})), time.Second, zerolog.New(io.Discard))
	app := fiber.New()
	h.RegisterPublicRoutes(app)

	routes := map[string]bool{}
	for _, grp := range app.Stack() {
		for _, r := range grp {
			routes[r.Path] = true
		}
	}
	if !routes["/products"] || !routes["/products/:id"] {
		t.Fatalf("expected product routes to be registered, got %v", routes)
	}

	res, err := app.Test(httptest.NewRequest("GET", "/products", nil))
	if err != nil {
		t.Fatalf("list request failed: %v", err)
	}
	b, _ := io.ReadAll(res.Body)
	if res.StatusCode != fiber.StatusOK || !strings.Contains(string(b), "Cat Tower") {
		t.Fatalf("unexpected list response %d: %s", res.StatusCode, string(b))
	}

	res, _ = app.Test(httptest.NewRequest("GET", "/products/"+p.ID.Hex(), nil))
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for existing product, got %d", res.StatusCode)
	}
	res, _ = app.Test(httptest.NewRequest("GET", "/products/"+primitive.NewObjectID().Hex(), nil))
	if res.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for absent product, got %d", res.StatusCode)
	}
	res, _ = app.Test(httptest.NewRequest("GET", "/products/123", nil))
	if res.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", res.StatusCode)
	}
}

type brokenRepo struct{}

func (brokenRepo) List(ctx context.Context) ([]Product, error) {
	return nil, errors.New("down")
}

func (brokenRepo) GetByID(ctx context.Context, id primitive.ObjectID) (Product, error) {
	return Product{}, errors.New("down")
}

func TestService_Exists(t *testing.T) {
	p := Product{ID: primitive.NewObjectID()}
	svc := NewService(NewInMemoryRepository([]Product{p}))

	ok, err := svc.Exists(context.Background(), p.ID)
	if err != nil || !ok {
		t.Fatalf("expected product to exist, got %v (%v)", ok, err)
	}
	ok, err = svc.Exists(context.Background(), primitive.NewObjectID())
	if err != nil || ok {
		t.Fatalf("expected product to be absent, got %v (%v)", ok, err)
	}

	if _, err := NewService(brokenRepo{}).Exists(context.Background(), p.ID); err == nil {
		t.Fatalf("expected store error to surface")
	}
}
