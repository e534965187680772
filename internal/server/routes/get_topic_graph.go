package routes

import (
	"net/http"
	"net/url"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"wikigraph/internal/server/middleware"
	"wikigraph/pkg/graph"
)

// TopicGraphHandler returns the one-hop neighborhood around a topic. The
// topic is addressed by its name. Depth 2 is accepted but only one hop is
// traversed for now.
func TopicGraphHandler(c echo.Context) error {
	type topicGraphParams struct {
		TopicID string `param:"topic_id" validate:"required"`
		Depth   int    `query:"depth" validate:"min=1,max=2"`
	}

	params := &topicGraphParams{Depth: 1}
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request params"})
	}

	// Topic names contain spaces; the path segment arrives escaped.
	if name, err := url.PathUnescape(params.TopicID); err == nil {
		params.TopicID = name
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()
	sess := app.Graph.Session(ctx)
	defer sess.Close(ctx)

	result, err := graph.TopicGraphByName(ctx, sess, params.TopicID)
	if err != nil {
		return queryErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, result)
}
