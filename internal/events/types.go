package events

// Donation events, formatted as domain.action
const (
	EventTypeDonationCreated       = "donation.created"
	EventTypeDonationStatusChanged = "donation.status_changed"
	EventTypeDonationRequested     = "donation.requested"
	EventTypeDonationDeleted       = "donation.deleted"
)

const AggregateDonation = "donation"

type DonationCreatedPayload struct {
	DonationID string `json:"donation_id"`
	DonorID    string `json:"donor_id"`
	ItemType   string `json:"item_type"`
	Status     string `json:"status"`
}

type DonationStatusChangedPayload struct {
	DonationID string `json:"donation_id"`
	DonorID    string `json:"donor_id"`
	ReceiverID string `json:"receiver_id,omitempty"`
	From       string `json:"from"`
	To         string `json:"to"`
	ChangedBy  string `json:"changed_by"`
	Operation  string `json:"operation"`
}

type DonationDeletedPayload struct {
	DonationID       string `json:"donation_id"`
	DonorID          string `json:"donor_id"`
	DeletedBy        string `json:"deleted_by"`
	ImageDeleteError string `json:"image_delete_error,omitempty"`
}
