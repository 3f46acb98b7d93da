package domain

import "time"

// Idempotency represents a recorded result of a previously processed request,
// keyed by (subject, scope, key). It enables safe retries for POST requests by
// returning the originally produced message without re-executing side effects.
//
// Subject is the caller identity (token subject or client IP) and Scope the
// route the key was used on, so the same key can be reused across routes.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Subject   string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_subject_scope_key,priority:1"`
	Scope     string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_subject_scope_key,priority:2"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_subject_scope_key,priority:3"`
	MessageID uint      `gorm:"type:INTEGER NOT NULL"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
