package model

import "time"

// Machine type values stored in machines.type. The safety cabinet
// and safety course entries are the gating machines: completing
// their course unlocks visibility of everything else.
const (
	MachineTypeMachine       = "machine"
	MachineTypeSafetyCabinet = "safety-cabinet"
	MachineTypeSafetyCourse  = "safety-course"
	MachineTypeEquipment     = "equipment"
)

// Machine operational status values stored in machines.status.
// Status is set by admins (or nominally by booking side effects);
// it is independent of the booking slot calendar.
const (
	MachineStatusAvailable   = "available"
	MachineStatusMaintenance = "maintenance"
	MachineStatusInUse       = "in-use"
)

// Machine mirrors the `machines` table.
//
// Fields:
//  ID                    – primary key identifier.
//  Name                  – display name of the machine.
//  Type                  – one of the MachineType* constants.
//  Description           – free-text description shown to members.
//  Status                – one of the MachineStatus* constants.
//  MaintenanceNote       – optional note attached when status is maintenance.
//  CourseID              – optional linked safety course.
//  QuizID                – optional linked quiz.
//  RequiresCertification – whether booking requires a certification for this machine.
//  CreatedAt             – timestamp of creation.
//  UpdatedAt             – timestamp of last update.
type Machine struct {
	ID                    uint64    // machines.id
	Name                  string    // machines.name
	Type                  string    // machines.type
	Description           string    // machines.description
	Status                string    // machines.status
	MaintenanceNote       *string   // machines.maintenance_note (nullable)
	CourseID              *uint64   // machines.course_id (nullable)
	QuizID                *uint64   // machines.quiz_id (nullable)
	RequiresCertification bool      // machines.requires_certification
	CreatedAt             time.Time // machines.created_at
	UpdatedAt             time.Time // machines.updated_at
}

// IsSafetyGate reports whether this machine is the designated safety
// cabinet / safety course whose certification unlocks all other machines.
func (m *Machine) IsSafetyGate() bool {
	return m.Type == MachineTypeSafetyCabinet || m.Type == MachineTypeSafetyCourse
}
