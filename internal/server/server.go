package server

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wichananm65/ecommerce-backend/internal/auth"
	"github.com/wichananm65/ecommerce-backend/internal/cart"
	"github.com/wichananm65/ecommerce-backend/internal/config"
	"github.com/wichananm65/ecommerce-backend/internal/product"
	"github.com/wichananm65/ecommerce-backend/internal/store"
	"github.com/wichananm65/ecommerce-backend/internal/user"
)

// New wires services and handlers on top of the given stores and returns the
// HTTP application. Every API route lives under cfg.APIBasePath.
func New(cfg config.Config, logger zerolog.Logger, stores *store.Stores, issuer *auth.Issuer) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "ecommerce-backend",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(requestLogger(logger))
	setupCORS(app)

	app.Static("/public/uploads", cfg.UploadsDir)
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	cartService := cart.NewService(stores.Carts)
	productService := product.NewService(stores.Products)
	userService := user.NewService(stores.Users, cartService, productService, issuer, logger)

	userHandler := user.NewHandler(userService, cfg.StoreTimeout, logger)
	if cfg.AuthRequired {
		userHandler.EnforceAccess()
	}
	cartHandler := cart.NewHandler(cartService, cfg.StoreTimeout, logger)
	productHandler := product.NewHandler(productService, cfg.StoreTimeout, logger)

	api := app.Group(cfg.APIBasePath)
	admin := auth.Passthrough()
	if cfg.AuthRequired {
		api.Use(auth.Protect(issuer.Secret(), publicRoute(cfg.APIBasePath)))
		admin = auth.RequireAdmin()
	}

	userHandler.RegisterPublicRoutes(api)
	productHandler.RegisterPublicRoutes(api)
	userHandler.RegisterProtectedRoutes(api, admin)
	cartHandler.RegisterProtectedRoutes(api)

	return app
}

func setupCORS(app *fiber.App) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
}

// publicRoute reports the API routes that stay reachable without a token:
// registration, sign-in and product reads. A registration carrying a token
// still goes through the guard so its claims reach the handler.
func publicRoute(base string) func(c *fiber.Ctx) bool {
	return func(c *fiber.Ctx) bool {
		p := strings.TrimSuffix(strings.TrimPrefix(c.Path(), base), "/")
		switch c.Method() {
		case fiber.MethodPost:
			if p == "/users" {
				return c.Get(fiber.HeaderAuthorization) == ""
			}
			return p == "/users/signin"
		case fiber.MethodGet, fiber.MethodHead:
			return p == "/products" || strings.HasPrefix(p, "/products/")
		case fiber.MethodOptions:
			return true
		}
		return false
	}
}

// errorHandler turns any error that escaped a handler into the standard
// {"success": false, "message": ...} body.
func errorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error().Err(err).
				Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Msg("unhandled error")
		}
		return c.Status(code).JSON(fiber.Map{"success": false, "message": msg})
	}
}
