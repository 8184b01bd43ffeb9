package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/absensi-go-api/internal/dto"
	"github.com/noah-isme/absensi-go-api/internal/service"
	"github.com/noah-isme/absensi-go-api/internal/utils"
)

// AdminHandler exposes the administrative actions over sessions and daily
// secrets. The scan pipeline itself never mutates either.
type AdminHandler struct {
	service   service.AdminService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAdminHandler builds an admin handler instance.
func NewAdminHandler(service service.AdminService, validate *validator.Validate, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		service:   service,
		validator: validate,
		logger:    logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Post("/sessions", h.createSession)
	router.Post("/sessions/:id/close", h.closeSession)
	router.Post("/daily-secrets/:day/rotate", h.rotateSecret)
}

func (h *AdminHandler) createSession(c *fiber.Ctx) error {
	var payload dto.SessionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	session, err := h.service.CreateSession(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "session created", session)
}

func (h *AdminHandler) closeSession(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "session id is required")
	}

	session, err := h.service.CloseSession(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "session closed", session)
}

func (h *AdminHandler) rotateSecret(c *fiber.Ctx) error {
	day, err := strconv.Atoi(c.Params("day"))
	if err != nil || day < 1 || day > 7 {
		return utils.SendError(c, fiber.StatusBadRequest, "day must be 1..7")
	}

	var payload dto.SecretRotateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.RotateDailySecret(c.Context(), day, payload); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "daily secret rotated", nil)
}

func (h *AdminHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "session not found")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
