package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/labelgrid/labelgrid-api/internal/service"
	"github.com/labelgrid/labelgrid-api/internal/utils"
)

// AdminMediaHandler accepts media uploads for items used by audio, video
// and image schemes.
type AdminMediaHandler struct {
	media  service.MediaService
	logger zerolog.Logger
}

// NewAdminMediaHandler constructs the handler.
func NewAdminMediaHandler(media service.MediaService, logger zerolog.Logger) *AdminMediaHandler {
	return &AdminMediaHandler{
		media:  media,
		logger: logger.With().Str("component", "admin_media_handler").Logger(),
	}
}

// Register attaches the media route to the admin group.
func (h *AdminMediaHandler) Register(router fiber.Router) {
	router.Post("/media", h.upload)
}

func (h *AdminMediaHandler) upload(c *fiber.Ctx) error {
	instanceID := strings.TrimSpace(c.FormValue("instance_id"))
	if instanceID == "" {
		return utils.SendAdminError(c, fiber.StatusBadRequest, "instance_id is required")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendAdminError(c, fiber.StatusBadRequest, "file is required")
	}

	response, err := h.media.Attach(c.Context(), instanceID, file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return utils.SendAdminError(c, fiber.StatusNotFound, "item not found")
		case errors.Is(err, service.ErrUnsupportedMedia):
			return utils.SendAdminError(c, fiber.StatusUnsupportedMediaType, "only audio, video and image files are accepted")
		default:
			requestLogger(h.logger, c).Error().Err(err).Str("instance_id", instanceID).Msg("media upload failed")
			return utils.SendAdminError(c, fiber.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(fiber.StatusCreated).JSON(response)
}
