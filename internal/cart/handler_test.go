package cart

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func makeAppWithCartHandler(h *Handler) *fiber.App {
	app := fiber.New()
	h.RegisterProtectedRoutes(app)
	return app
}

func TestCartRoutes(t *testing.T) {
	id := primitive.NewObjectID()
	productID := primitive.NewObjectID()
	repo := NewInMemoryRepository([]Cart{{ID: id, Products: []Item{{ProductID: productID, Quantity: 3}}}})
	app := makeAppWithCartHandler(NewHandler(NewService(repo), time.Second, zerolog.New(io.Discard)))

	routes := map[string]bool{}
	for _, grp := range app.Stack() {
		for _, r := range grp {
			routes[r.Path] = true
		}
	}
	if !routes["/carts/:id"] {
		t.Fatalf("expected route '/carts/:id' to be registered")
	}

	res, err := app.Test(httptest.NewRequest("GET", "/carts/"+id.Hex(), nil))
	if err != nil {
		t.Fatalf("get cart failed: %v", err)
	}
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(b), productID.Hex()) || !strings.Contains(string(b), `"quantity":3`) {
		t.Fatalf("unexpected cart body: %s", string(b))
	}

	res, _ = app.Test(httptest.NewRequest("GET", "/carts/"+primitive.NewObjectID().Hex(), nil))
	if res.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for absent cart, got %d", res.StatusCode)
	}

	res, _ = app.Test(httptest.NewRequest("GET", "/carts/nope", nil))
	if res.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", res.StatusCode)
	}
}
