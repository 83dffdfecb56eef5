package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/learnit/learnit-api/internal/handler"
	"github.com/learnit/learnit-api/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
// The liveness probe answers as long as the process runs; the readiness
// probe additionally pings the database.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterAuth registers the authentication endpoints. Unauthenticated
// operations live under /v1/auth; token-protected session endpoints
// live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout accepts a refresh_token body without a JWT, so a client
	// whose access token already expired can still end its session.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
	auth.POST("/logout", a.Logout)
}
