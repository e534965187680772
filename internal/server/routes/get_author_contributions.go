package routes

import (
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"wikigraph/internal/server/middleware"
	"wikigraph/pkg/graph"
)

func AuthorContributionsHandler(c echo.Context) error {
	type contributionsParams struct {
		AuthorID string `param:"author_id" validate:"required"`
	}

	params := new(contributionsParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request params"})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()
	sess := app.Graph.Session(ctx)
	defer sess.Close(ctx)

	result, err := graph.ContributionsByAuthor(ctx, sess, params.AuthorID)
	if err != nil {
		return queryErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, result)
}
