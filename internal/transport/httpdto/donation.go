package httpdto

import (
	"time"

	"medishare/internal/domain/donation"
	"medishare/internal/services"
)

// StatusRequest is used for PUT /donations/:id/status and /:id/donor-status
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type PartyDTO struct {
	ID               string      `json:"id"`
	FullName         string      `json:"fullName,omitempty"`
	Email            string      `json:"email"`
	OrganizationName string      `json:"organizationName,omitempty"`
	Address          *AddressDTO `json:"address,omitempty"`
}

// DonationDTO is the flat wire form of a donation.
type DonationDTO struct {
	ID         string    `json:"id"`
	DonorID    string    `json:"donorId"`
	ReceiverID *string   `json:"receiverId"`
	Donor      *PartyDTO `json:"donor,omitempty"`
	Receiver   *PartyDTO `json:"receiver,omitempty"`
	ItemType   string    `json:"itemType"`

	DeviceType  string `json:"deviceType,omitempty"`
	Description string `json:"description,omitempty"`
	Condition   string `json:"condition,omitempty"`

	MedicineName string `json:"medicineName,omitempty"`
	Quantity     string `json:"quantity,omitempty"`
	Strength     string `json:"strength,omitempty"`

	ImageURL        string `json:"imageUrl"`
	ImageStorageKey string `json:"imageStorageKey"`

	Status       string                `json:"status"`
	AIValidation donation.AIValidation `json:"aiValidation"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

type DeleteDonationResponse struct {
	Message          string `json:"msg"`
	ImageDeleteError string `json:"imageDeleteError,omitempty"`
}

func toPartyDTO(p *services.PartySummary) *PartyDTO {
	if p == nil {
		return nil
	}
	dto := &PartyDTO{
		ID:               p.ID.String(),
		FullName:         p.FullName,
		Email:            p.Email,
		OrganizationName: p.OrganizationName,
	}
	if p.Address.City != "" || p.Address.Street != "" {
		addr := ToAddressDTO(p.Address)
		dto.Address = &addr
	}
	return dto
}

func ToDonationDTO(v services.DonationView) DonationDTO {
	dto := DonationDTO{
		ID:              v.ID.String(),
		DonorID:         v.DonorID.String(),
		Donor:           toPartyDTO(v.Donor),
		Receiver:        toPartyDTO(v.Receiver),
		ItemType:        string(v.ItemType),
		DeviceType:      v.DeviceType,
		Description:     v.Description,
		Condition:       string(v.Condition),
		MedicineName:    v.MedicineName,
		Quantity:        v.Quantity,
		Strength:        v.Strength,
		ImageURL:        v.ImageURL,
		ImageStorageKey: v.ImageStorageKey,
		Status:          string(v.Status),
		AIValidation:    v.AI(),
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
	}
	if v.ReceiverID != nil {
		id := v.ReceiverID.String()
		dto.ReceiverID = &id
	}
	return dto
}

func ToDonationDTOs(views []services.DonationView) []DonationDTO {
	out := make([]DonationDTO, 0, len(views))
	for _, v := range views {
		out = append(out, ToDonationDTO(v))
	}
	return out
}
