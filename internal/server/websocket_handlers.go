package server

import (
	"log/slog"

	"schoolboard/internal/middleware"
	"schoolboard/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// BoardWebSocketHandler serves GET /api/ws/board. Anonymous viewers may
// subscribe; events carry no private data. Plain HTTP requests get 426.
func (s *Server) BoardWebSocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		var viewer uint
		if id, ok := conn.Locals("userID").(uint); ok {
			viewer = id
		}

		client, err := s.hub.Register(viewer, conn)
		if err != nil {
			middleware.Logger.Warn("Board websocket rejected",
				slog.Uint64("viewer_id", uint64(viewer)), slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()))
			_ = conn.Close()
			return
		}
		middleware.Logger.Debug("Board websocket connected", slog.Uint64("viewer_id", uint64(viewer)))

		go client.WritePump()
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return models.RespondWithError(c, fiber.StatusUpgradeRequired,
				models.NewValidationError("websocket upgrade required"))
		}
		return upgrade(c)
	}
}
