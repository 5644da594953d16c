// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// Idempotency records the output produced for a (client_key, key) pair so a
// retried share request can be answered with the original URLs instead of
// creating a second record.
type Idempotency struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	ClientKey string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_idem_client_key,priority:1"`
	Key       string    `gorm:"type:varchar(200);not null;uniqueIndex:ux_idem_client_key,priority:2"`
	OutputID  uint      `gorm:"not null;index"`
	Status    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`

	// Output is removed together with its idempotency records.
	Output Output `gorm:"foreignKey:OutputID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
