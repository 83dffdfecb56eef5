package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/learnit/learnit-api/internal/model"
)

func TestCompute_LockedWithoutSafetyCert(t *testing.T) {
	// Without the safety certification every non-gate machine must be
	// Locked, regardless of its own requires_certification flag.
	for _, requiresCert := range []bool{true, false} {
		for _, mt := range []string{model.MachineTypeMachine, model.MachineTypeEquipment} {
			got := Compute(EligibilityInput{
				MachineType:  mt,
				RequiresCert: requiresCert,
			})
			assert.Equal(t, Locked, got, "type=%s requiresCert=%v", mt, requiresCert)
		}
	}
}

func TestCompute_SafetyGateNeverLocked(t *testing.T) {
	testCases := []struct {
		name string
		in   EligibilityInput
		want Eligibility
	}{
		{
			name: "fresh user starts with the course",
			in:   EligibilityInput{MachineType: model.MachineTypeSafetyCabinet},
			want: CourseRequired,
		},
		{
			name: "course done, quiz pending",
			in:   EligibilityInput{MachineType: model.MachineTypeSafetyCourse, CourseCompleted: true},
			want: QuizRequired,
		},
		{
			name: "safety cert held",
			in:   EligibilityInput{MachineType: model.MachineTypeSafetyCabinet, HasSafetyCert: true},
			want: Certified,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Compute(tc.in))
		})
	}
}

func TestCompute_PastSafetyGate(t *testing.T) {
	testCases := []struct {
		name string
		in   EligibilityInput
		want Eligibility
	}{
		{
			name: "no machine cert needed",
			in:   EligibilityInput{MachineType: model.MachineTypeMachine, HasSafetyCert: true},
			want: Certified,
		},
		{
			name: "cert needed, nothing done yet",
			in:   EligibilityInput{MachineType: model.MachineTypeMachine, HasSafetyCert: true, RequiresCert: true},
			want: CourseRequired,
		},
		{
			name: "cert needed, course complete",
			in:   EligibilityInput{MachineType: model.MachineTypeMachine, HasSafetyCert: true, RequiresCert: true, CourseCompleted: true},
			want: QuizRequired,
		},
		{
			name: "cert held",
			in:   EligibilityInput{MachineType: model.MachineTypeMachine, HasSafetyCert: true, RequiresCert: true, HasMachineCert: true},
			want: Certified,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Compute(tc.in))
		})
	}
}

func TestCompute_AdminBypassesGating(t *testing.T) {
	got := Compute(EligibilityInput{
		IsAdmin:      true,
		MachineType:  model.MachineTypeMachine,
		RequiresCert: true,
	})
	assert.Equal(t, Certified, got)
}

func TestCompute_EmptySetsFailClosed(t *testing.T) {
	// The documented default-on-error policy: a caller that failed to
	// load the certification set passes empty sets and gets Locked.
	got := Compute(EligibilityInput{MachineType: model.MachineTypeMachine, RequiresCert: true})
	assert.Equal(t, Locked, got)
}
