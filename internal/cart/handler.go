package cart

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

func NewHandler(s *Service, timeout time.Duration, logger zerolog.Logger) *Handler {
	return &Handler{service: s, timeout: timeout, log: logger}
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	r.Get("/carts/:id", h.getCart)
}

func (h *Handler) getCart(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": ErrInvalidID.Error()})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	cart, err := h.service.Get(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "cart not found"})
	case err != nil:
		h.log.Error().Err(err).Str("cart_id", id.Hex()).Msg("get cart failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "internal server error"})
	}
	return c.JSON(cart)
}
