package router

import (
	"github.com/labstack/echo/v4"

	"github.com/learnit/learnit-api/internal/handler"
	"github.com/learnit/learnit-api/internal/middleware"
	"github.com/learnit/learnit-api/internal/model"
)

// AdminHandlers bundles the handlers mounted on the admin surface.
type AdminHandlers struct {
	Machines *handler.MachineHandler
	Courses  *handler.CourseHandler
	Quizzes  *handler.QuizHandler
	Certs    *handler.CertificationHandler
	Bookings *handler.BookingHandler
	Users    *handler.UserHandler
}

// RegisterAdmin registers the moderation endpoints under /v1/admin.
// Every route requires a valid JWT carrying the ADMIN role.
func RegisterAdmin(e *echo.Echo, h AdminHandlers, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	// User roster.
	g.GET("/users", h.Users.List)
	g.PATCH("/users/:id/role", h.Users.SetRole)
	g.PATCH("/users/:id/active", h.Users.SetActive)
	g.DELETE("/users/:id", h.Users.Delete)
	g.GET("/users/:id/certifications", h.Certs.ListForUser)

	// Machine catalog and status overrides.
	g.POST("/machines", h.Machines.Create)
	g.PUT("/machines/:id", h.Machines.Update)
	g.PATCH("/machines/:id/status", h.Machines.UpdateStatus)
	g.DELETE("/machines/:id", h.Machines.Delete)

	// Course and quiz authoring.
	g.POST("/courses", h.Courses.Create)
	g.PUT("/courses/:id", h.Courses.Update)
	g.DELETE("/courses/:id", h.Courses.Delete)
	g.POST("/quizzes", h.Quizzes.Create)
	g.PUT("/quizzes/:id", h.Quizzes.Update)
	g.DELETE("/quizzes/:id", h.Quizzes.Delete)

	// Manual certification grants and revocations.
	g.POST("/certifications", h.Certs.Grant)
	g.DELETE("/certifications", h.Certs.Revoke)

	// Booking review queue.
	g.GET("/bookings", h.Bookings.ListAll)
	g.PATCH("/bookings/:id/status", h.Bookings.Decide)
}
