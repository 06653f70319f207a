package donation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ItemType string

const (
	ItemTypeDevice   ItemType = "device"
	ItemTypeMedicine ItemType = "medicine"
)

type Condition string

const (
	ConditionNew         Condition = "new"
	ConditionGood        Condition = "good"
	ConditionFair        Condition = "fair"
	ConditionNeedsRepair Condition = "needs_repair"
)

func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionGood, ConditionFair, ConditionNeedsRepair:
		return true
	}
	return false
}

// AIStatus records how the advisory AI check concluded.
type AIStatus string

const (
	AIStatusSkipped              AIStatus = "Skipped"
	AIStatusCompleted            AIStatus = "Completed"
	AIStatusCompletedNoDetection AIStatus = "Completed_NoDetection"
	AIStatusFailed               AIStatus = "Failed"
	AIStatusFromFrontend         AIStatus = "From_Frontend"
)

// AIValidation is advisory metadata and never gates a transition.
type AIValidation struct {
	Status             AIStatus  `json:"status"`
	PredictedClass     string    `json:"predictedClass,omitempty"`
	Confidence         *float64  `json:"confidence,omitempty"`
	ExpiryTextDetected string    `json:"expiryTextDetected,omitempty"`
	IsValidExpiry      *bool     `json:"isValidExpiry,omitempty"`
	ParsedExpiryDate   string    `json:"parsedExpiryDate,omitempty"`
	Error              string    `json:"error,omitempty"`
	ValidatedAt        time.Time `json:"validatedAt"`
}

// Donation represents the donations table
type Donation struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	DonorID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	ReceiverID *uuid.UUID `gorm:"type:uuid;index"`
	ItemType   ItemType   `gorm:"type:varchar(16);not null"`

	DeviceType  string    `gorm:"type:varchar(255)"`
	Description string    `gorm:"type:varchar(500)"`
	Condition   Condition `gorm:"type:varchar(16)"`

	MedicineName string `gorm:"type:varchar(255)"`
	Quantity     string `gorm:"type:varchar(255)"`
	Strength     string `gorm:"type:varchar(255)"`

	ImageURL        string `gorm:"not null"`
	ImageStorageKey string `gorm:"not null"`

	Status       Status                           `gorm:"type:varchar(32);not null;default:'pending_approval';index"`
	AIValidation datatypes.JSONType[AIValidation] `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Donation) TableName() string {
	return "donations"
}

// HasReceiver reports whether a receiver has been bound to the record.
func (d Donation) HasReceiver() bool {
	return d.ReceiverID != nil && *d.ReceiverID != uuid.Nil
}

func (d Donation) AI() AIValidation {
	return d.AIValidation.Data()
}
