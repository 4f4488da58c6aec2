package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/labelgrid/labelgrid-api/internal/dto"
	"github.com/labelgrid/labelgrid-api/internal/service"
	"github.com/labelgrid/labelgrid-api/internal/utils"
)

// WorkflowHandler exposes the study workflow to annotators: phase state,
// consent, phase advancement and item navigation.
type WorkflowHandler struct {
	workflow service.WorkflowService
	logger   zerolog.Logger
}

// NewWorkflowHandler constructs the handler.
func NewWorkflowHandler(workflow service.WorkflowService, logger zerolog.Logger) *WorkflowHandler {
	return &WorkflowHandler{
		workflow: workflow,
		logger:   logger.With().Str("component", "workflow_handler").Logger(),
	}
}

// Register attaches workflow routes under the annotator group.
func (h *WorkflowHandler) Register(router fiber.Router) {
	router.Get("/workflow", h.state)
	router.Post("/workflow/consent", h.consent)
	router.Post("/workflow/advance", h.advance)
	router.Get("/items/current", h.currentItem)
	router.Post("/items/next", h.nextItem)
	router.Post("/items/prev", h.prevItem)
	router.Post("/items/goto", h.gotoItem)
}

func (h *WorkflowHandler) state(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user id missing")
	}

	state, err := h.workflow.State(c.Context(), userID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load workflow state")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load workflow state")
	}
	return utils.SendSuccess(c, "workflow state", state)
}

func (h *WorkflowHandler) consent(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user id missing")
	}

	var req dto.ConsentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	state, err := h.workflow.Consent(c.Context(), userID, req.Agreed)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConsentRequired):
			return utils.SendError(c, fiber.StatusBadRequest, "consent must be given to continue")
		case errors.Is(err, service.ErrInvalidTransition):
			return utils.SendError(c, fiber.StatusConflict, "consent already recorded")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to record consent")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to record consent")
		}
	}
	return utils.SendSuccess(c, "consent recorded", state)
}

func (h *WorkflowHandler) advance(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user id missing")
	}

	state, err := h.workflow.Advance(c.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConsentRequired):
			return utils.SendError(c, fiber.StatusBadRequest, "consent must be given to continue")
		case errors.Is(err, service.ErrTrainingIncomplete):
			return utils.SendError(c, fiber.StatusBadRequest, "training must be passed to continue")
		case errors.Is(err, service.ErrInvalidTransition):
			return utils.SendError(c, fiber.StatusConflict, "no further phase to advance to")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to advance workflow")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to advance workflow")
		}
	}
	return utils.SendSuccess(c, "workflow advanced", state)
}

func (h *WorkflowHandler) currentItem(c *fiber.Ctx) error {
	return h.serveItem(c, h.workflow.CurrentItem)
}

func (h *WorkflowHandler) nextItem(c *fiber.Ctx) error {
	return h.serveItem(c, h.workflow.NextItem)
}

func (h *WorkflowHandler) prevItem(c *fiber.Ctx) error {
	return h.serveItem(c, h.workflow.PrevItem)
}

func (h *WorkflowHandler) gotoItem(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user id missing")
	}

	var req dto.GotoItemRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	item, err := h.workflow.GotoItem(c.Context(), userID, req.Index)
	if err != nil {
		return h.itemError(c, err)
	}
	return utils.SendSuccess(c, "item", item)
}

func (h *WorkflowHandler) serveItem(c *fiber.Ctx, fetch func(ctx context.Context, userID string) (dto.ItemResponse, error)) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user id missing")
	}

	item, err := fetch(c.Context(), userID)
	if err != nil {
		return h.itemError(c, err)
	}
	return utils.SendSuccess(c, "item", item)
}

func (h *WorkflowHandler) itemError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "no item at that position")
	case errors.Is(err, service.ErrInvalidTransition):
		return utils.SendError(c, fiber.StatusConflict, "items are only available during annotation")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to serve item")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to serve item")
	}
}
