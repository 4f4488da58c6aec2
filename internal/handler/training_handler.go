package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/labelgrid/labelgrid-api/internal/dto"
	"github.com/labelgrid/labelgrid-api/internal/service"
	"github.com/labelgrid/labelgrid-api/internal/utils"
)

// TrainingHandler serves training questions and scores answers.
type TrainingHandler struct {
	training service.TrainingService
	logger   zerolog.Logger
}

// NewTrainingHandler constructs the handler.
func NewTrainingHandler(training service.TrainingService, logger zerolog.Logger) *TrainingHandler {
	return &TrainingHandler{
		training: training,
		logger:   logger.With().Str("component", "training_handler").Logger(),
	}
}

// Register attaches training routes under the annotator group.
func (h *TrainingHandler) Register(router fiber.Router) {
	router.Get("/training/question", h.question)
	router.Post("/training/answer", h.answer)
}

func (h *TrainingHandler) question(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user id missing")
	}

	question, err := h.training.Question(c.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrTrainingIncomplete) {
			return utils.SendError(c, fiber.StatusNotFound, "training is not enabled")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load training question")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load training question")
	}
	return utils.SendSuccess(c, "training question", question)
}

func (h *TrainingHandler) answer(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "user id missing")
	}

	var req dto.TrainingAnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Answer == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "answer is required")
	}

	result, err := h.training.Answer(c.Context(), userID, req.Answer)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTransition):
			return utils.SendError(c, fiber.StatusConflict, "training already passed")
		case errors.Is(err, service.ErrNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "no training question pending")
		case errors.Is(err, service.ErrTrainingIncomplete):
			return utils.SendError(c, fiber.StatusNotFound, "training is not enabled")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to score training answer")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to score training answer")
		}
	}
	return utils.SendSuccess(c, "training answer scored", result)
}
