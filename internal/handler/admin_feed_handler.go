package handler

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/labelgrid/labelgrid-api/internal/service"
)

// AdminFeedHandler streams recorded annotation actions to connected
// admin dashboards over a websocket.
type AdminFeedHandler struct {
	feed   service.FeedService
	logger zerolog.Logger
}

// NewAdminFeedHandler constructs the handler.
func NewAdminFeedHandler(feed service.FeedService, logger zerolog.Logger) *AdminFeedHandler {
	return &AdminFeedHandler{
		feed:   feed,
		logger: logger.With().Str("component", "admin_feed_handler").Logger(),
	}
}

// Register attaches the feed route to the admin group.
func (h *AdminFeedHandler) Register(router fiber.Router) {
	router.Use("/feed", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/feed", websocket.New(h.handleConnection))
}

func (h *AdminFeedHandler) handleConnection(conn *websocket.Conn) {
	events, cancel := h.feed.Subscribe()
	defer cancel()

	h.logger.Info().Msg("admin feed websocket connected")
	defer h.logger.Info().Msg("admin feed websocket disconnected")

	// Reads are discarded; the read loop exists to observe the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case action, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(action)
			if err != nil {
				h.logger.Warn().Err(err).Msg("failed to encode feed action")
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
