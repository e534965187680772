package middleware

import (
	"github.com/labstack/echo/v4"

	"wikigraph/pkg/graph"
)

// App holds the process-wide dependencies handlers draw from.
type App struct {
	Graph graph.Store
}

// AppContext wraps the echo context with the application dependencies.
type AppContext struct {
	echo.Context
	App *App
}

// AppContextMiddleware injects the shared store handle into every request
// context. Sessions are acquired per request by the handlers themselves.
func AppContextMiddleware(store graph.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			app := &App{
				Graph: store,
			}
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
