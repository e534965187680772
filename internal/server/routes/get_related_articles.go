package routes

import (
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"wikigraph/internal/server/middleware"
	"wikigraph/pkg/graph"
)

func RelatedArticlesHandler(c echo.Context) error {
	type relatedParams struct {
		ArticleID string `param:"article_id" validate:"required"`
		Limit     int    `query:"limit" validate:"min=1,max=50"`
	}

	type relatedResponse struct {
		ArticleID string                 `json:"article_id"`
		Related   []graph.RelatedArticle `json:"related"`
	}

	params := &relatedParams{Limit: graph.DefaultLimit}
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

	related, err := graph.RelatedArticles(ctx, sess, params.ArticleID, params.Limit)
	if err != nil {
		return queryErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, relatedResponse{
		ArticleID: params.ArticleID,
		Related:   related,
	})
}
