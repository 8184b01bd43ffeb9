package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/absensi-go-api/internal/dto"
	"github.com/noah-isme/absensi-go-api/internal/middleware"
	"github.com/noah-isme/absensi-go-api/internal/models"
	"github.com/noah-isme/absensi-go-api/internal/service"
)

// ScanHandler serves the QR scan check-in endpoint. Its wire format is the
// flat contract scanner clients already speak, not the admin envelope.
type ScanHandler struct {
	service   service.ScanService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewScanHandler builds a scan handler instance.
func NewScanHandler(service service.ScanService, validate *validator.Validate, logger zerolog.Logger) *ScanHandler {
	return &ScanHandler{
		service:   service,
		validator: validate,
		logger:    logger.With().Str("component", "scan_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ScanHandler) Register(router fiber.Router) {
	router.Post("/scan", h.scan)
}

func (h *ScanHandler) scan(c *fiber.Ctx) error {
	var payload dto.ScanRequest
	if err := c.BodyParser(&payload); err != nil {
		return sendScanError(c, fiber.StatusBadRequest, models.ResultBadRequest)
	}
	if err := h.validator.Struct(payload); err != nil {
		return sendScanError(c, fiber.StatusBadRequest, models.ResultBadRequest)
	}

	meta := service.ScanMeta{
		UserAgent: string(c.Request().Header.UserAgent()),
		ClientIP:  c.IP(),
	}

	result, err := h.service.Scan(c.Context(), payload, meta)
	if err != nil {
		if errors.Is(err, service.ErrUnknownSession) {
			return sendScanError(c, fiber.StatusBadRequest, models.ResultBadRequest)
		}
		h.logger.Error().Err(err).
			Str("correlation_id", middleware.GetCorrelationID(c)).
			Str("sid", payload.SID).
			Msg("scan pipeline failed")
		return sendScanError(c, fiber.StatusInternalServerError, "internal_error")
	}

	switch result {
	case models.ResultOK, models.ResultDuplicate:
		return c.Status(fiber.StatusOK).JSON(dto.ScanOKResponse{Status: result})
	default:
		return sendScanError(c, scanStatusCode(result), result)
	}
}

func sendScanError(c *fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(dto.ScanErrorResponse{Error: code})
}

// scanStatusCode maps rejection codes to HTTP statuses.
func scanStatusCode(result string) int {
	switch result {
	case models.ResultBadRequest, models.ResultClosed, models.ResultInvalid:
		return fiber.StatusBadRequest
	case models.ResultUnauth:
		return fiber.StatusUnauthorized
	case models.ResultNotAllowed, models.ResultLocationRequired,
		models.ResultOutsideGeofence, models.ResultDeviceMultiUser:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}
