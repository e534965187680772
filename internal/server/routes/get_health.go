package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"wikigraph/internal/server/middleware"
	"wikigraph/pkg/logger"
)

// HealthHandler reports API liveness and store reachability. It always
// answers 200; an unreachable store degrades the neo4j field to "down".
func HealthHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	storeStatus := "up"
	if err := app.Graph.Ping(ctx); err != nil {
		logger.Warn("Graph store ping failed", "err", err)
		storeStatus = "down"
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"neo4j":  storeStatus,
	})
}
