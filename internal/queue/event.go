// Package queue defines message payloads exchanged over the message broker.
package queue

// AuditQueueName is the durable queue that carries every domain event the
// API publishes. A single queue keeps the consumer simple; the Kind field
// tells entries apart in the audit log.
const AuditQueueName = "learnit.audit"

// Event kinds carried on the audit queue.
const (
	KindBookingCreated       = "booking.created"
	KindBookingDecided       = "booking.decided"
	KindCertificationGranted = "certification.granted"
)

// BookingCreatedEvent is published when a member reserves a slot. It carries
// enough information for downstream consumers to log or notify without
// querying the primary database.
type BookingCreatedEvent struct {
	BookingID   uint64 `json:"booking_id"`
	Reference   string `json:"reference"`
	UserID      uint64 `json:"user_id"`
	MachineID   uint64 `json:"machine_id"`
	MachineName string `json:"machine_name"`
	BookingDate string `json:"booking_date"`
	TimeSlot    string `json:"time_slot"`
	CreatedAt   string `json:"created_at"`
}

// BookingDecidedEvent is published when an admin moves a booking out of
// PENDING (or an APPROVED booking is completed or canceled).
type BookingDecidedEvent struct {
	BookingID   uint64 `json:"booking_id"`
	Reference   string `json:"reference"`
	UserID      uint64 `json:"user_id"`
	MachineID   uint64 `json:"machine_id"`
	FromStatus  string `json:"from_status"`
	ToStatus    string `json:"to_status"`
	DecidedByID uint64 `json:"decided_by_id"`
	DecidedAt   string `json:"decided_at"`
}

// CertificationGrantedEvent is published when a user earns a machine
// certification, either by passing a quiz or by an admin grant. Score is -1
// for manual grants where no quiz attempt exists.
type CertificationGrantedEvent struct {
	UserID      uint64 `json:"user_id"`
	MachineID   uint64 `json:"machine_id"`
	MachineName string `json:"machine_name"`
	Score       int    `json:"score"`
	Manual      bool   `json:"manual"`
	IssuedAt    string `json:"issued_at"`
}

// Envelope wraps every published event with its kind so a single consumer
// can decode the stream.
type Envelope struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload"`
}
