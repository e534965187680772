package routes

import (
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"wikigraph/internal/server/middleware"
	"wikigraph/pkg/graph"
)

func SearchHandler(c echo.Context) error {
	type searchParams struct {
		Query string `query:"q"`
		Limit int    `query:"limit" validate:"min=1,max=50"`
	}

	type searchResponse struct {
		Query   string                     `json:"query"`
		Results []graph.ArticleWithContext `json:"results"`
	}

	// Bind only touches fields present in the request, so defaults are
	// set up front.
	params := &searchParams{Limit: graph.DefaultLimit}
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

	results, err := graph.Search(ctx, sess, params.Query, params.Limit)
	if err != nil {
		return queryErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, searchResponse{
		Query:   params.Query,
		Results: results,
	})
}
