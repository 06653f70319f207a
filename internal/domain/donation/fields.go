package donation

import (
	"strings"
	"unicode/utf8"

	medishare_errors "medishare/pkg/errors"
)

const MaxDescriptionLength = 500

// DeviceFields is the type-specific payload of a device donation.
type DeviceFields struct {
	DeviceType  string
	Description string
	Condition   Condition
}

func (f DeviceFields) Normalize() DeviceFields {
	return DeviceFields{
		DeviceType:  strings.TrimSpace(f.DeviceType),
		Description: strings.TrimSpace(f.Description),
		Condition:   Condition(strings.TrimSpace(string(f.Condition))),
	}
}

func (f DeviceFields) Validate() error {
	if f.DeviceType == "" {
		return medishare_errors.Validation("deviceType", "Device type (e.g., wheelchair, crutches) is required")
	}
	if f.Description == "" {
		return medishare_errors.Validation("description", "A brief description of the item and its condition is required")
	}
	if utf8.RuneCountInString(f.Description) > MaxDescriptionLength {
		return medishare_errors.Validation("description", "Description must be at most 500 characters")
	}
	if !f.Condition.Valid() {
		return medishare_errors.Validation("condition", "Please select the item's condition")
	}
	return nil
}

// MedicineFields is the type-specific payload of a medicine donation.
type MedicineFields struct {
	MedicineName string
	Quantity     string
	Strength     string
}

func (f MedicineFields) Normalize() MedicineFields {
	return MedicineFields{
		MedicineName: strings.TrimSpace(f.MedicineName),
		Quantity:     strings.TrimSpace(f.Quantity),
		Strength:     strings.TrimSpace(f.Strength),
	}
}

func (f MedicineFields) Validate() error {
	if f.MedicineName == "" {
		return medishare_errors.Validation("medicineName", "Medicine name is required")
	}
	if f.Quantity == "" {
		return medishare_errors.Validation("quantity", "Quantity is required (e.g., 1 Strip, 100ml)")
	}
	return nil
}

// ExpiryHints are the medicine expiry readings a client may attach.
// A nil pointer means the hint was not sent.
type ExpiryHints struct {
	ExpiryText *string
	IsValid    *string
	ParsedDate *string
}

func (h ExpiryHints) Present() bool {
	return h.ExpiryText != nil || h.IsValid != nil || h.ParsedDate != nil
}

// ValidFlag turns the tri-state "true"/"false"/other hint into a *bool.
func (h ExpiryHints) ValidFlag() *bool {
	if h.IsValid == nil {
		return nil
	}
	switch strings.TrimSpace(*h.IsValid) {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	}
	return nil
}
