package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/labelgrid/labelgrid-api/internal/dto"
	"github.com/labelgrid/labelgrid-api/internal/service"
	"github.com/labelgrid/labelgrid-api/internal/utils"
)

// AdminDashboardHandler serves the dashboard statistics endpoints. Admin
// responses carry the aggregate payloads directly, with errors rendered
// as a bare {"error": ...} object.
type AdminDashboardHandler struct {
	dashboard service.AdminDashboardService
	overview  service.OverviewService
	logger    zerolog.Logger
}

// NewAdminDashboardHandler constructs the handler.
func NewAdminDashboardHandler(dashboard service.AdminDashboardService, overview service.OverviewService, logger zerolog.Logger) *AdminDashboardHandler {
	return &AdminDashboardHandler{
		dashboard: dashboard,
		overview:  overview,
		logger:    logger.With().Str("component", "admin_dashboard_handler").Logger(),
	}
}

// Register attaches dashboard routes to the admin group.
func (h *AdminDashboardHandler) Register(router fiber.Router) {
	router.Get("/annotators", h.annotators)
	router.Get("/annotation_history", h.annotationHistory)
	router.Get("/suspicious_activity", h.suspiciousActivity)
	router.Get("/overview", h.platformOverview)
}

func (h *AdminDashboardHandler) annotators(c *fiber.Ctx) error {
	response, err := h.dashboard.Annotators(c.Context())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to build annotator statistics")
		return utils.SendAdminError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(response)
}

func (h *AdminDashboardHandler) annotationHistory(c *fiber.Ctx) error {
	minutes, err := parseQueryInt(c, "minutes")
	if err != nil {
		return utils.SendAdminError(c, fiber.StatusBadRequest, "minutes must be an integer")
	}

	query := dto.AnnotationHistoryQuery{
		UserID:     c.Query("user_id"),
		InstanceID: c.Query("instance_id"),
		Minutes:    minutes,
	}

	response, err := h.dashboard.AnnotationHistory(c.Context(), query)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return utils.SendAdminError(c, fiber.StatusNotFound, "annotator not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to build annotation history")
		return utils.SendAdminError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(response)
}

func (h *AdminDashboardHandler) suspiciousActivity(c *fiber.Ctx) error {
	response, err := h.dashboard.SuspiciousActivity(c.Context())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to build suspicious activity roll-up")
		return utils.SendAdminError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(response)
}

func (h *AdminDashboardHandler) platformOverview(c *fiber.Ctx) error {
	response, err := h.overview.Overview(c.Context())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to build platform overview")
		return utils.SendAdminError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(response)
}
