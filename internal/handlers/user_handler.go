package handlers

import (
	"errors"

	"questrya/internal/middleware"
	"questrya/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CreateUserRequest is the body of POST /users/user.
type CreateUserRequest struct {
	Username string `json:"username" validate:"notblank"`
	Email    string `json:"email" validate:"email_address"`
	Password string `json:"password" validate:"min=8"`
}

// UpdateUserRequest is the body of PATCH /users/user. Omitted fields are left unchanged.
type UpdateUserRequest struct {
	Email    string `json:"email" validate:"omitempty,email_address"`
	Password string `json:"password" validate:"omitempty,min=8"`
}

// UserHandler handles HTTP requests for users.
type UserHandler struct {
	service  *services.UserService
	validate *validator.Validate
	log      logrus.FieldLogger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service *services.UserService, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{
		service:  service,
		validate: newValidator(),
		log:      log,
	}
}

// RegisterRoutes registers the user routes. auth guards the routes acting on the caller's account.
func (h *UserHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	userRoutes := router.Group("/users")
	userRoutes.Post("/user", h.HandleCreateUser)
	userRoutes.Patch("/user", auth, h.HandleUpdateUser)
	userRoutes.Get("/user", auth, h.HandleGetUser)
}

// HandleCreateUser registers a new user.
func (h *UserHandler) HandleCreateUser(c *fiber.Ctx) error {
	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		h.log.WithError(err).Debug("error parsing create user request body")
		return badRequest(c, "Invalid request body")
	}
	if err := validate(h.validate, req); err != nil {
		return badRequest(c, err.Error())
	}

	user, err := h.service.Register(c.UserContext(), req.Username, req.Email, req.Password)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"uuid": user.ID().String(),
	})
}

// HandleUpdateUser changes the caller's email and/or password.
func (h *UserHandler) HandleUpdateUser(c *fiber.Ctx) error {
	id, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	var req UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		h.log.WithError(err).Debug("error parsing update user request body")
		return badRequest(c, "Invalid request body")
	}
	if req.Email == "" && req.Password == "" {
		return badRequest(c, "Nothing to update: provide email and/or password")
	}
	if err := validate(h.validate, req); err != nil {
		return badRequest(c, err.Error())
	}

	user, err := h.service.Update(c.UserContext(), id, req.Email, req.Password)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"uuid":     user.ID().String(),
		"email":    user.Email().Address(),
		"password": "UPDATED",
	})
}

// HandleGetUser returns the caller's account.
func (h *UserHandler) HandleGetUser(c *fiber.Ctx) error {
	id, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	user, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"uuid":     user.ID().String(),
		"email":    user.Email().Address(),
		"username": user.Username(),
	})
}

// currentUserID reads the identity stored by the token middleware.
func currentUserID(c *fiber.Ctx) (uuid.UUID, error) {
	raw, _ := c.Locals(middleware.LocalUserID).(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New("token does not carry a valid user id")
	}
	return id, nil
}
