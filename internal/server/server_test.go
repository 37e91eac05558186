package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/wichananm65/ecommerce-backend/internal/auth"
	"github.com/wichananm65/ecommerce-backend/internal/config"
	"github.com/wichananm65/ecommerce-backend/internal/product"
	"github.com/wichananm65/ecommerce-backend/internal/store"
)

func testConfig(t *testing.T, authRequired bool) config.Config {
	t.Helper()
	return config.Config{
		APIBasePath:  "/api/v1",
		JWTSecret:    "server-secret",
		JWTTTL:       time.Hour,
		AuthRequired: authRequired,
		StoreDriver:  config.DriverMemory,
		StoreTimeout: time.Second,
		UploadsDir:   t.TempDir(),
	}
}

func newTestApp(t *testing.T, cfg config.Config, stores *store.Stores) (*fiber.App, *auth.Issuer) {
	t.Helper()
	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	require.NoError(t, err)
	return New(cfg, zerolog.New(io.Discard), stores, issuer), issuer
}

func send(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := app.Test(req, 5000)
	require.NoError(t, err)
	out, _ := io.ReadAll(res.Body)
	return res, out
}

func TestHealthzAndRequestID(t *testing.T) {
	app, _ := newTestApp(t, testConfig(t, false), store.Memory())

	res, body := send(t, app, "GET", "/healthz", "", nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	require.JSONEq(t, `{"status":"ok"}`, string(body))
	require.Len(t, res.Header.Get(fiber.HeaderXRequestID), 36)
}

func TestUnknownRouteIsNormalised(t *testing.T) {
	app, _ := newTestApp(t, testConfig(t, false), store.Memory())

	res, body := send(t, app, "GET", "/api/v1/nothing-here", "", nil)
	require.Equal(t, fiber.StatusNotFound, res.StatusCode)

	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	require.Equal(t, false, out["success"])
	require.NotEmpty(t, out["message"])
}

func TestRegistrationCreatesCart(t *testing.T) {
	app, _ := newTestApp(t, testConfig(t, false), store.Memory())

	res, body := send(t, app, "POST", "/api/v1/users", "", map[string]any{
		"name": "Pim", "email": "pim@example.com", "password": "pw", "gender": 0,
	})
	require.Equal(t, fiber.StatusOK, res.StatusCode, string(body))

	var created struct {
		ID     string `json:"id"`
		Gender string `json:"gender"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	require.Equal(t, "Female", created.Gender)

	res, body = send(t, app, "GET", "/api/v1/carts/"+created.ID, "", nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode, string(body))
	require.Contains(t, string(body), `"products":[]`)

	// deleting the user leaves the cart in place
	res, _ = send(t, app, "DELETE", "/api/v1/users/"+created.ID, "", nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	res, _ = send(t, app, "GET", "/api/v1/carts/"+created.ID, "", nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	stores := store.Memory()
	productID := primitive.NewObjectID()
	stores.Products = product.NewInMemoryRepository([]product.Product{{ID: productID, Name: "Leash"}})
	app, issuer := newTestApp(t, testConfig(t, true), stores)

	res, body := send(t, app, "POST", "/api/v1/users", "", map[string]any{"email": "u@example.com", "password": "pw"})
	require.Equal(t, fiber.StatusOK, res.StatusCode, string(body))
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &created))

	res, _ = send(t, app, "GET", "/api/v1/products", "", nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	res, _ = send(t, app, "GET", "/api/v1/products/"+productID.Hex(), "", nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	res, _ = send(t, app, "GET", "/api/v1/users/"+created.ID, "", nil)
	require.Equal(t, fiber.StatusUnauthorized, res.StatusCode)

	res, body = send(t, app, "POST", "/api/v1/users/signin", "", map[string]any{"email": "u@example.com", "password": "pw"})
	require.Equal(t, fiber.StatusOK, res.StatusCode, string(body))
	var session struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &session))

	res, _ = send(t, app, "GET", "/api/v1/users/"+created.ID, session.Token, nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	res, body = send(t, app, "PUT", "/api/v1/users/favorite/"+created.ID+"/"+productID.Hex(), session.Token, nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode, string(body))
	require.Contains(t, string(body), productID.Hex())

	res, _ = send(t, app, "GET", "/api/v1/users", session.Token, nil)
	require.Equal(t, fiber.StatusForbidden, res.StatusCode)

	adminToken, err := issuer.Issue(primitive.NewObjectID().Hex(), true)
	require.NoError(t, err)
	res, _ = send(t, app, "GET", "/api/v1/users/get/count", adminToken, nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	res, _ = send(t, app, "DELETE", "/api/v1/users/delete/all", adminToken, nil)
	require.Equal(t, fiber.StatusNoContent, res.StatusCode)

	n, err := stores.Users.Count(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestStaticUploads(t *testing.T) {
	cfg := testConfig(t, true)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.UploadsDir, "logo.txt"), []byte("hello"), 0o644))
	app, _ := newTestApp(t, cfg, store.Memory())

	res, body := send(t, app, "GET", "/public/uploads/logo.txt", "", nil)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	require.True(t, strings.HasPrefix(string(body), "hello"))
}

func TestSelfRegisteredAdminIsRejected(t *testing.T) {
	stores := store.Memory()
	app, issuer := newTestApp(t, testConfig(t, true), stores)

	res, body := send(t, app, "POST", "/api/v1/users", "", map[string]any{"email": "mallory@example.com", "password": "pw", "isAdmin": true})
	require.Equal(t, fiber.StatusForbidden, res.StatusCode, string(body))

	res, body = send(t, app, "POST", "/api/v1/users", "", map[string]any{"email": "mallory@example.com", "password": "pw"})
	require.Equal(t, fiber.StatusOK, res.StatusCode, string(body))
	require.Contains(t, string(body), `"isAdmin":false`)

	res, body = send(t, app, "POST", "/api/v1/users/signin", "", map[string]any{"email": "mallory@example.com", "password": "pw"})
	require.Equal(t, fiber.StatusOK, res.StatusCode, string(body))
	var session struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &session))

	res, _ = send(t, app, "DELETE", "/api/v1/users/delete/all", session.Token, nil)
	require.Equal(t, fiber.StatusForbidden, res.StatusCode)

	// a registration carrying a token must carry a valid one
	res, _ = send(t, app, "POST", "/api/v1/users", "not-a-token", map[string]any{"email": "x@example.com", "password": "pw"})
	require.Equal(t, fiber.StatusUnauthorized, res.StatusCode)

	adminToken, err := issuer.Issue(primitive.NewObjectID().Hex(), true)
	require.NoError(t, err)
	res, body = send(t, app, "POST", "/api/v1/users", adminToken, map[string]any{"email": "staff@example.com", "password": "pw", "isAdmin": true})
	require.Equal(t, fiber.StatusOK, res.StatusCode, string(body))

	n, err := stores.Users.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}
