package model

import "time"

// Certification mirrors the `certifications` table. A certification
// is a first-class (user, machine) grant with the quiz score that
// earned it and an issue date. The table carries a unique key on
// (user_id, machine_id) so granting twice leaves exactly one row.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – holder of the certification.
//  MachineID – machine the holder may book.
//  Score     – quiz score that earned the grant (0 for manual admin grants).
//  IssuedAt  – when the certification was first granted.
type Certification struct {
	ID        uint64    // certifications.id
	UserID    uint64    // certifications.user_id
	MachineID uint64    // certifications.machine_id
	Score     int       // certifications.score
	IssuedAt  time.Time // certifications.issued_at
}
