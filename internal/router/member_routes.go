package router

import (
	"github.com/labstack/echo/v4"

	"github.com/learnit/learnit-api/internal/handler"
	"github.com/learnit/learnit-api/internal/middleware"
	"github.com/learnit/learnit-api/internal/model"
)

// MemberHandlers bundles the handlers mounted on the member surface.
type MemberHandlers struct {
	Machines *handler.MachineHandler
	Courses  *handler.CourseHandler
	Quizzes  *handler.QuizHandler
	Certs    *handler.CertificationHandler
	Bookings *handler.BookingHandler
	Users    *handler.UserHandler
}

// RegisterMember registers the member-facing endpoints under /v1. All
// routes require a valid JWT; both roles are accepted since admins use
// the same browsing surface with gating bypassed.
func RegisterMember(e *echo.Echo, h MemberHandlers, jwtSecret string, cached echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleMember, model.RoleAdmin),
	)

	// Machine browsing. List and availability are the client's hot
	// polling paths, so they go through the response cache when one is
	// configured.
	if cached != nil {
		g.GET("/machines", h.Machines.List, cached)
		g.GET("/machines/:id/availability", h.Machines.Availability, cached)
	} else {
		g.GET("/machines", h.Machines.List)
		g.GET("/machines/:id/availability", h.Machines.Availability)
	}
	g.GET("/machines/:id", h.Machines.Get)

	// Safety courses and quizzes.
	g.GET("/courses", h.Courses.List)
	g.GET("/courses/:id", h.Courses.Get)
	g.POST("/courses/:id/complete", h.Courses.Complete)
	g.GET("/quizzes/:id", h.Quizzes.Get)
	g.POST("/quizzes/:id/submit", h.Quizzes.Submit)

	// Certifications and bookings.
	g.GET("/certifications", h.Certs.Mine)
	g.POST("/bookings", h.Bookings.Create)
	g.GET("/bookings", h.Bookings.Mine)
	g.DELETE("/bookings/:id", h.Bookings.Cancel)

	// Profile self-service.
	g.PATCH("/me", h.Users.UpdateProfile)
	g.PATCH("/me/password", h.Users.ChangePassword)
}
