package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
)

func TestIssuer_IssueAndParse(t *testing.T) {
	issuer, err := NewIssuer("s3cret", 24*time.Hour)
	require.NoError(t, err)

	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return fixed }

	raw, err := issuer.Issue("65f1c0ffee0000000000abcd", true)
	require.NoError(t, err)

	// parse with the real clock would reject the fixed past expiry, so parse
	// the claims without validation to check the embedded values
	parsed := &Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(raw, parsed)
	require.NoError(t, err)
	require.Equal(t, "65f1c0ffee0000000000abcd", parsed.UserID)
	require.True(t, parsed.IsAdmin)
	require.Equal(t, fixed.Add(24*time.Hour).Unix(), parsed.ExpiresAt.Unix())
}

func TestIssuer_ParseRejectsBadTokens(t *testing.T) {
	issuer, err := NewIssuer("s3cret", time.Hour)
	require.NoError(t, err)

	raw, err := issuer.Issue("abc", false)
	require.NoError(t, err)

	claims, err := issuer.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "abc", claims.UserID)
	require.False(t, claims.IsAdmin)

	other, err := NewIssuer("different", time.Hour)
	require.NoError(t, err)
	_, err = other.Parse(raw)
	require.ErrorIs(t, err, ErrInvalidToken)

	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := issuer.Issue("abc", false)
	require.NoError(t, err)
	_, err = issuer.Parse(expired)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Parse("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewIssuer_RequiresSecret(t *testing.T) {
	_, err := NewIssuer("", time.Hour)
	require.Error(t, err)
	_, err = NewIssuer("x", 0)
	require.Error(t, err)
}

func TestProtectAndRequireAdmin(t *testing.T) {
	issuer, err := NewIssuer("s3cret", time.Hour)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(Protect(issuer.Secret(), func(c *fiber.Ctx) bool {
		return c.Path() == "/public"
	}))
	app.Get("/public", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/me", func(c *fiber.Ctx) error {
		claims, err := ClaimsFromCtx(c)
		if err != nil {
			return err
		}
		return c.SendString(claims.UserID)
	})
	app.Delete("/admin", RequireAdmin(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	res, err := app.Test(httptest.NewRequest("GET", "/public", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	res, err = app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, res.StatusCode)

	userToken, err := issuer.Issue("u1", false)
	require.NoError(t, err)
	adminToken, err := issuer.Issue("a1", true)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	res, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	req = httptest.NewRequest("DELETE", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	res, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, res.StatusCode)

	req = httptest.NewRequest("DELETE", "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	res, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, res.StatusCode)
}

func TestClaimsFromCtx_MapClaims(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", &jwt.Token{Claims: jwt.MapClaims{"user_id": "u9", "is_admin": true}})
		return c.Next()
	})
	app.Get("/", RequireAdmin(), func(c *fiber.Ctx) error {
		claims, err := ClaimsFromCtx(c)
		if err != nil {
			return err
		}
		return c.SendString(claims.UserID)
	})

	res, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
}
