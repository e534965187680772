package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"wikigraph/pkg/graph"
	"wikigraph/pkg/logger"
)

// queryErrorResponse maps query layer errors to transport responses:
// invalid input to 400, missing entities to 404, everything else to an
// opaque 500 with the cause logged.
func queryErrorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, graph.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, map[string]string{"message": err.Error()})
	case errors.Is(err, graph.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"message": err.Error()})
	default:
		logger.Error("Graph query failed", "path", c.Path(), "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}
}
