package routes

import (
	"github.com/labstack/echo/v4"

	"field-crm/internal/controllers"
)

func runBoardRouter(api *echo.Group, boardCtrl *controllers.BoardController) {
	api.GET("/board/ws", boardCtrl.Subscribe)
}
