// Package rules holds the certification and booking business rules in
// one place: eligibility evaluation, quiz scoring, the fixed daily
// slot template and the booking status machine. Everything here is
// pure computation over values the caller already loaded; the package
// performs no I/O so every rule is unit-testable in isolation.
package rules

import "github.com/learnit/learnit-api/internal/model"

// Eligibility is the derived access level for a (user, machine) pair.
type Eligibility string

const (
	// Locked means the user has not earned the safety certification
	// and therefore cannot see or book this machine at all.
	Locked Eligibility = "locked"
	// CourseRequired means the user may proceed but must first
	// complete the machine's safety course.
	CourseRequired Eligibility = "course_required"
	// QuizRequired means the course is complete and only the quiz
	// stands between the user and the certification.
	QuizRequired Eligibility = "quiz_required"
	// Certified means the user may book the machine.
	Certified Eligibility = "certified"
)

// EligibilityInput carries everything Compute needs. Callers load the
// user's certification and completion sets once and reuse the input
// across machines; they must not re-derive gating logic themselves.
//
// Default-on-error policy: when the certification or completion set
// cannot be loaded, callers MUST pass empty sets, which yields Locked
// for every gated machine. Failing closed is the one documented
// policy; call sites do not get to choose.
type EligibilityInput struct {
	IsAdmin         bool
	HasSafetyCert   bool
	MachineType     string
	RequiresCert    bool
	HasMachineCert  bool
	CourseCompleted bool
}

// Compute returns the access level for one user-machine pair.
//
// The rule set, in order:
//   - Admins bypass all gating.
//   - The designated safety cabinet / safety course machine is never
//     Locked: it is the entry point, so without its certification the
//     user is sent down the course → quiz path for it.
//   - Every other machine is Locked until the user holds the safety
//     certification, regardless of that machine's own
//     requires_certification flag.
//   - Past the safety gate, a machine that does not require its own
//     certification is Certified outright.
//   - Otherwise the user is Certified when holding the machine's
//     certification, QuizRequired when its course is complete, and
//     CourseRequired when it is not.
func Compute(in EligibilityInput) Eligibility {
	if in.IsAdmin {
		return Certified
	}
	gate := in.MachineType == model.MachineTypeSafetyCabinet || in.MachineType == model.MachineTypeSafetyCourse
	if gate {
		if in.HasSafetyCert || in.HasMachineCert {
			return Certified
		}
		if in.CourseCompleted {
			return QuizRequired
		}
		return CourseRequired
	}
	if !in.HasSafetyCert {
		return Locked
	}
	if !in.RequiresCert {
		return Certified
	}
	if in.HasMachineCert {
		return Certified
	}
	if in.CourseCompleted {
		return QuizRequired
	}
	return CourseRequired
}
