package controllers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-crm/pkg/utils"
	appws "field-crm/pkg/websocket"
)

type BoardController struct {
	hub      *appws.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewBoardController(hub *appws.Hub, logger *zap.Logger) *BoardController {
	return &BoardController{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return hub.AllowOrigin(r.Header.Get(echo.HeaderOrigin))
			},
		},
		logger: logger,
	}
}

// Subscribe upgrades to a websocket and streams job updates until the peer leaves.
func (c *BoardController) Subscribe(ctx echo.Context) error {
	actorID, err := utils.ResolveActor(ctx.Request().Context(), ctx.QueryParam("actorId"))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	conn, err := c.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// Upgrade has already answered the request.
		c.logger.Warn("board upgrade failed", zap.String("actorID", actorID), zap.Error(err))
		return nil
	}

	client := appws.NewClient(c.hub, conn, actorID)
	if !c.hub.Register(client) {
		conn.Close()
		return nil
	}
	go client.WritePump()
	client.ReadPump()
	return nil
}
