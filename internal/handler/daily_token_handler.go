package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/absensi-go-api/internal/service"
	"github.com/noah-isme/absensi-go-api/internal/utils"
)

// DailyTokenHandler serves the companion read interface the QR printer uses
// to embed the currently valid daily token.
type DailyTokenHandler struct {
	service service.ScanService
	logger  zerolog.Logger
}

// NewDailyTokenHandler builds a daily token handler instance.
func NewDailyTokenHandler(service service.ScanService, logger zerolog.Logger) *DailyTokenHandler {
	return &DailyTokenHandler{
		service: service,
		logger:  logger.With().Str("component", "daily_token_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *DailyTokenHandler) Register(router fiber.Router) {
	router.Get("/daily-token", h.dailyToken)
}

func (h *DailyTokenHandler) dailyToken(c *fiber.Ctx) error {
	day, err := strconv.Atoi(strings.TrimSpace(c.Query("day")))
	if err != nil || day < 1 || day > 7 {
		return utils.SendError(c, fiber.StatusBadRequest, "day must be 1..7")
	}

	payload, err := h.service.DailyToken(c.Context(), day)
	if err != nil {
		if errors.Is(err, service.ErrNoDailySecret) {
			return utils.SendError(c, fiber.StatusNotFound, "no secret provisioned for weekday")
		}
		h.logger.Error().Err(err).Int("day", day).Msg("daily token lookup failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return c.Status(fiber.StatusOK).JSON(payload)
}
