package models

import (
	"time"

	"github.com/google/uuid"
)

// Fidelity test status values.
const (
	FidelityTestPending = "pending"
	FidelityTestActive  = "active"
	FidelityTestExpired = "expired"
)

// Message directions within a fidelity test conversation.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// FidelityUser is a registered user of the fidelity-test feature.
type FidelityUser struct {
	BaseModel
	Name         string `json:"name"`
	Email        string `gorm:"uniqueIndex" json:"email"`
	Phone        string `json:"phone"`
	PasswordHash string `json:"-"`
}

// FidelityTest is one conversation attempt against a target phone.
// It stays pending until payment activates it, then expires after the
// paid access window.
type FidelityTest struct {
	BaseModel
	UserID       uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	TargetPhone  string     `gorm:"index" json:"target_phone"`
	FirstMessage string     `json:"first_message"`
	Status       string     `gorm:"index" json:"status"`
	SaleID       string     `json:"sale_id"`
	PaidAt       *time.Time `json:"paid_at"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// FidelityMessage is one message exchanged within a test.
type FidelityMessage struct {
	BaseModel
	TestID    uuid.UUID `gorm:"type:uuid;index" json:"test_id"`
	Direction string    `json:"direction"`
	Content   string    `json:"content"`
	Blurred   bool      `gorm:"-" json:"blurred"`
}
