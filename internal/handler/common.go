package handler // handler defines http handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/learnit/learnit-api/internal/model"
	"github.com/learnit/learnit-api/internal/repository"
	"github.com/learnit/learnit-api/internal/rules"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// isAdmin reports whether the authenticated request carries the ADMIN role.
func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == model.RoleAdmin
}

// parseIDParam parses a positive numeric path parameter.
func parseIDParam(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// eligibilityContext carries one user's certification and completion
// sets plus the designated safety gate machine, loaded once and reused
// across every machine evaluated in a request.
type eligibilityContext struct {
	admin     bool
	gateID    uint64 // 0 when no safety gate machine exists
	held      map[uint64]bool
	completed map[uint64]bool
}

// loadEligibilityContext builds the per-user eligibility inputs. Set
// loads that fail leave the corresponding set empty so gating fails
// closed, matching the documented default-on-error policy.
func loadEligibilityContext(ctx context.Context, admin bool, userID uint64,
	machines *repository.MachineRepo, certs *repository.CertificationRepo, courses *repository.CourseRepo) eligibilityContext {
	ec := eligibilityContext{admin: admin, held: map[uint64]bool{}, completed: map[uint64]bool{}}
	if gate, err := machines.GetSafetyGate(ctx); err == nil {
		ec.gateID = gate.ID
	}
	if held, err := certs.HeldSet(ctx, userID); err == nil {
		ec.held = held
	}
	if done, err := courses.CompletedSet(ctx, userID); err == nil {
		ec.completed = done
	}
	return ec
}

// evaluate computes the access level for one machine using the
// preloaded sets.
func (ec eligibilityContext) evaluate(m *model.Machine) rules.Eligibility {
	courseDone := false
	if m.CourseID != nil {
		courseDone = ec.completed[*m.CourseID]
	}
	return rules.Compute(rules.EligibilityInput{
		IsAdmin:         ec.admin,
		HasSafetyCert:   ec.gateID != 0 && ec.held[ec.gateID],
		MachineType:     m.Type,
		RequiresCert:    m.RequiresCertification,
		HasMachineCert:  ec.held[m.ID],
		CourseCompleted: courseDone,
	})
}
