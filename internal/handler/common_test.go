package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/learnit/learnit-api/internal/model"
	"github.com/learnit/learnit-api/internal/rules"
)

func TestEligibilityContextEvaluate(t *testing.T) {
	gate := model.Machine{ID: 1, Type: model.MachineTypeSafetyCabinet}
	courseID := uint64(10)
	laser := model.Machine{ID: 2, Type: model.MachineTypeMachine, RequiresCertification: true, CourseID: &courseID}
	bench := model.Machine{ID: 3, Type: model.MachineTypeEquipment}

	t.Run("no safety cert locks every non-gate machine", func(t *testing.T) {
		ec := eligibilityContext{gateID: 1, held: map[uint64]bool{}, completed: map[uint64]bool{}}
		assert.Equal(t, rules.CourseRequired, ec.evaluate(&gate)) // gate is never locked
		assert.Equal(t, rules.Locked, ec.evaluate(&laser))
		assert.Equal(t, rules.Locked, ec.evaluate(&bench))
	})

	t.Run("safety cert unlocks, machine cert still gates", func(t *testing.T) {
		ec := eligibilityContext{gateID: 1, held: map[uint64]bool{1: true}, completed: map[uint64]bool{}}
		assert.Equal(t, rules.Certified, ec.evaluate(&gate))
		assert.Equal(t, rules.CourseRequired, ec.evaluate(&laser))
		assert.Equal(t, rules.Certified, ec.evaluate(&bench)) // no own cert required

		ec.completed[courseID] = true
		assert.Equal(t, rules.QuizRequired, ec.evaluate(&laser))

		ec.held[laser.ID] = true
		assert.Equal(t, rules.Certified, ec.evaluate(&laser))
	})

	t.Run("admin bypasses gating", func(t *testing.T) {
		ec := eligibilityContext{admin: true, gateID: 1, held: map[uint64]bool{}, completed: map[uint64]bool{}}
		assert.Equal(t, rules.Certified, ec.evaluate(&laser))
	})

	t.Run("empty sets fail closed", func(t *testing.T) {
		// Simulates set-load failures: the context carries empty maps and
		// everything behind the gate stays locked.
		ec := eligibilityContext{gateID: 1, held: map[uint64]bool{}, completed: map[uint64]bool{}}
		assert.Equal(t, rules.Locked, ec.evaluate(&laser))
	})
}
