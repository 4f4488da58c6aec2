package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/labelgrid/labelgrid-api/internal/dto"
	"github.com/labelgrid/labelgrid-api/internal/service"
	"github.com/labelgrid/labelgrid-api/internal/utils"
)

// AnnotationHandler accepts label submissions and deletions from
// annotators. Request duration is measured here and back-filled onto the
// recorded action once the response is ready.
type AnnotationHandler struct {
	annotations service.AnnotationService
	logger      zerolog.Logger
}

// NewAnnotationHandler constructs the handler.
func NewAnnotationHandler(annotations service.AnnotationService, logger zerolog.Logger) *AnnotationHandler {
	return &AnnotationHandler{
		annotations: annotations,
		logger:      logger.With().Str("component", "annotation_handler").Logger(),
	}
}

// Register attaches annotation routes under the annotator group.
func (h *AnnotationHandler) Register(router fiber.Router) {
	router.Post("/annotations", h.submit)
	router.Delete("/annotations", h.remove)
}

func (h *AnnotationHandler) submit(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user id missing")
	}

	var req dto.AnnotationSubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	start := time.Now()
	response, err := h.annotations.Submit(c.Context(), userID, req)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "item not found")
		case errors.Is(err, service.ErrUnknownScheme):
			return utils.SendError(c, fiber.StatusBadRequest, "unknown annotation scheme")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("annotation submit failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to store annotation")
		}
	}
	h.annotations.FinishRequest(c.Context(), userID, time.Since(start))

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "annotation recorded", response)
}

func (h *AnnotationHandler) remove(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user id missing")
	}

	var req dto.AnnotationDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	start := time.Now()
	response, err := h.annotations.Remove(c.Context(), userID, req)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "annotation not found")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("annotation delete failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to delete annotation")
		}
	}
	h.annotations.FinishRequest(c.Context(), userID, time.Since(start))

	return utils.SendSuccess(c, "annotation deleted", response)
}
