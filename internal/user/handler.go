package user

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/wichananm65/ecommerce-backend/internal/auth"
)

type Handler struct {
	service  *Service
	validate *validator.Validate
	timeout  time.Duration
	log      zerolog.Logger
	// enforce is set when a token guard runs in front of the routes.
	enforce bool
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	ID            string   `json:"id" validate:"omitempty,len=24,hexadecimal"`
	Name          string   `json:"name" validate:"max=200"`
	Gender        *int     `json:"gender"`
	Email         string   `json:"email" validate:"required,email"`
	Password      string   `json:"password" validate:"max=72"`
	Street        string   `json:"street"`
	Apartment     string   `json:"apartment"`
	City          string   `json:"city"`
	Zip           string   `json:"zip"`
	Country       string   `json:"country"`
	Phone         string   `json:"phone"`
	IsAdmin       bool     `json:"isAdmin"`
	LikedProducts []string `json:"likedProducts" validate:"omitempty,dive,len=24,hexadecimal"`
}

type changePasswordRequest struct {
	ID          string `json:"id" validate:"required"`
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword" validate:"max=72"`
}

type favoriteResponse struct {
	Message       string   `json:"message"`
	LikedProducts []string `json:"likedProducts"`
}

func NewHandler(service *Service, timeout time.Duration, logger zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		timeout:  timeout,
		log:      logger.With().Str("component", "user.handler").Logger(),
	}
}

// EnforceAccess makes the handler act on token claims: only admins may
// create admin accounts, and a user may only change their own password and
// favorites unless the caller is an admin.
func (h *Handler) EnforceAccess() *Handler {
	h.enforce = true
	return h
}

// RegisterPublicRoutes mounts the routes reachable without a token.
func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Post("/users", h.register)
	r.Post("/users/signin", h.signIn)
}

// RegisterProtectedRoutes mounts the remaining user routes. admin runs in
// front of the administrator-only ones.
func (h *Handler) RegisterProtectedRoutes(r fiber.Router, admin fiber.Handler) {
	r.Get("/users", admin, h.list)
	r.Get("/users/get/count", admin, h.count)
	r.Put("/users/changepassword", h.changePassword)
	r.Put("/users/favorite/:userId/:productId", h.toggleFavorite)
	r.Delete("/users/delete/all", admin, h.deleteAll)
	r.Get("/users/:id", h.get)
	r.Delete("/users/:id", admin, h.delete)
}

func (h *Handler) storeCtx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), h.timeout)
}

func (h *Handler) list(c *fiber.Ctx) error {
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	users, err := h.service.List(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(ToList(users))
}

func (h *Handler) get(c *fiber.Ctx) error {
	id, err := ParseID(c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	u, err := h.service.GetByID(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(ToResponse(u))
}

func (h *Handler) count(c *fiber.Ctx) error {
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	n, err := h.service.Count(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"userCount": n})
}

func (h *Handler) register(c *fiber.Ctx) error {
	payload := new(registerRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid request body"})
	}
	if ok := h.validStruct(c, payload); !ok {
		return nil
	}

	if payload.IsAdmin {
		if err := h.requireAdmin(c); err != nil {
			return h.fail(c, err)
		}
	}

	reg := Registration{
		Name:      payload.Name,
		Gender:    GenderFromCode(payload.Gender),
		Email:     payload.Email,
		Password:  payload.Password,
		Street:    payload.Street,
		Apartment: payload.Apartment,
		City:      payload.City,
		Zip:       payload.Zip,
		Country:   payload.Country,
		Phone:     payload.Phone,
		IsAdmin:   payload.IsAdmin,
	}
	if payload.ID != "" {
		id, err := ParseID(payload.ID)
		if err != nil {
			return h.fail(c, err)
		}
		reg.ID = id
	}
	for _, raw := range payload.LikedProducts {
		pid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return h.fail(c, ErrInvalidID)
		}
		reg.LikedProducts = append(reg.LikedProducts, pid)
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	created, err := h.service.Register(ctx, reg)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(ToResponse(created))
}

func (h *Handler) signIn(c *fiber.Ctx) error {
	payload := new(signInRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid request body"})
	}
	if ok := h.validStruct(c, payload); !ok {
		return nil
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	session, err := h.service.Authenticate(ctx, payload.Email, payload.Password)
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "user not found"})
	case errors.Is(err, ErrInvalidCredentials):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "password is not correct"})
	case err != nil:
		return h.fail(c, err)
	}
	return c.JSON(ToSignIn(session))
}

func (h *Handler) changePassword(c *fiber.Ctx) error {
	payload := new(changePasswordRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "message": "invalid request body"})
	}
	if ok := h.validStruct(c, payload); !ok {
		return nil
	}

	id, err := ParseID(payload.ID)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.requireSelfOrAdmin(c, id); err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	updated, err := h.service.ChangePassword(ctx, id, payload.OldPassword, payload.NewPassword)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(ToResponse(updated))
}

func (h *Handler) toggleFavorite(c *fiber.Ctx) error {
	userID, uerr := primitive.ObjectIDFromHex(c.Params("userId"))
	productID, perr := primitive.ObjectIDFromHex(c.Params("productId"))
	if uerr != nil || perr != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "user or product not found"})
	}
	if err := h.requireSelfOrAdmin(c, userID); err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	res, err := h.service.ToggleFavorite(ctx, userID, productID)
	if errors.Is(err, ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "user or product not found"})
	}
	if err != nil {
		return h.fail(c, err)
	}

	msg := "product removed from favorites"
	if res.Added {
		msg = "product added to favorites"
	}
	return c.JSON(favoriteResponse{Message: msg, LikedProducts: hexIDs(res.LikedProducts)})
}

func (h *Handler) delete(c *fiber.Ctx) error {
	id, err := ParseID(c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	if err := h.service.Delete(ctx, id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "user deleted"})
}

func (h *Handler) deleteAll(c *fiber.Ctx) error {
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	if err := h.service.DeleteAll(ctx); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) requireAdmin(c *fiber.Ctx) error {
	if !h.enforce {
		return nil
	}
	claims, err := auth.ClaimsFromCtx(c)
	if err != nil || !claims.IsAdmin {
		return ErrForbidden
	}
	return nil
}

func (h *Handler) requireSelfOrAdmin(c *fiber.Ctx, id primitive.ObjectID) error {
	if !h.enforce {
		return nil
	}
	claims, err := auth.ClaimsFromCtx(c)
	if err != nil {
		return ErrForbidden
	}
	if claims.IsAdmin || claims.UserID == id.Hex() {
		return nil
	}
	return ErrForbidden
}

// validStruct writes a 400 with per-field details and reports false when v
// does not pass validation.
func (h *Handler) validStruct(c *fiber.Ctx, v any) bool {
	err := h.validate.Struct(v)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		h.log.Error().Err(err).Msg("unexpected validation error")
		_ = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "message": "internal validation error"})
		return false
	}
	_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": "validation failed",
		"details": formatValidationErrors(verrs),
	})
	return false
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status, msg := statusFor(err)
	if status == fiber.StatusInternalServerError {
		h.log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("user request failed")
	}
	return c.Status(status).JSON(fiber.Map{"success": false, "message": msg})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidID):
		return fiber.StatusBadRequest, "invalid user id"
	case errors.Is(err, ErrEmailExists):
		return fiber.StatusBadRequest, "email already exists"
	case errors.Is(err, ErrUserExists):
		return fiber.StatusBadRequest, "user id already exists"
	case errors.Is(err, ErrMissingPassword):
		return fiber.StatusBadRequest, "password is required"
	case errors.Is(err, ErrPasswordTooLong):
		return fiber.StatusBadRequest, "password must be at most 72 bytes"
	case errors.Is(err, ErrInvalidCredentials):
		return fiber.StatusBadRequest, "password is not correct"
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden, "forbidden"
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound, "user not found"
	case errors.Is(err, ErrVersionConflict):
		return fiber.StatusConflict, "user was modified concurrently, try again"
	default:
		return fiber.StatusInternalServerError, "internal server error"
	}
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			details[fe.Field()] = "is required"
		case "email":
			details[fe.Field()] = "must be a valid email"
		case "len", "hexadecimal":
			details[fe.Field()] = "must be a 24 character hex id"
		case "max":
			details[fe.Field()] = "must be at most " + fe.Param() + " characters"
		default:
			details[fe.Field()] = "is invalid"
		}
	}
	return details
}
