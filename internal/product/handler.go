package product

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Handler struct {
	service *Service
	timeout time.Duration
	log     zerolog.Logger
}

func NewHandler(service *Service, timeout time.Duration, logger zerolog.Logger) *Handler {
	return &Handler{service: service, timeout: timeout, log: logger}
}

func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Get("/products", h.getProducts)
	r.Get("/products/:id", h.getProduct)
}

func (h *Handler) getProducts(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	products, err := h.service.List(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("list products failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "internal server error"})
	}
	return c.JSON(products)
}

func (h *Handler) getProduct(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": ErrInvalidID.Error()})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	p, err := h.service.GetByID(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "product not found"})
	case err != nil:
		h.log.Error().Err(err).Str("product_id", id.Hex()).Msg("get product failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "internal server error"})
	}
	return c.JSON(p)
}
