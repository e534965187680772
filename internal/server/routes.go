package server

import (
	"wikigraph/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Liveness probe, round-trips the store
	e.GET("/health", routes.HealthHandler)

	apiRoutes := e.Group("/api")

	apiRoutes.GET("/search", routes.SearchHandler)
	apiRoutes.GET("/articles/:article_id/related", routes.RelatedArticlesHandler)
	apiRoutes.GET("/topics/:topic_id/graph", routes.TopicGraphHandler)
	apiRoutes.GET("/authors/:author_id/contributions", routes.AuthorContributionsHandler)
}
