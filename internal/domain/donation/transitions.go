package donation

type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
	StatusRequested       Status = "requested"
	StatusCollected       Status = "collected"
	StatusDelivered       Status = "delivered"
)

// AllStatuses lists every enumerated lifecycle status.
var AllStatuses = []Status{
	StatusPendingApproval,
	StatusApproved,
	StatusRejected,
	StatusRequested,
	StatusCollected,
	StatusDelivered,
}

func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	return st, st.Valid()
}

func (s Status) Valid() bool {
	for _, candidate := range AllStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// HoldsReceiver reports whether a record in this status must have a receiver.
func (s Status) HoldsReceiver() bool {
	switch s {
	case StatusRequested, StatusCollected, StatusDelivered:
		return true
	}
	return false
}

// Terminal is true for end states of the narrow transitions.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusDelivered
}

// donorSteps maps a donor-driven target to the only status it may come from.
var donorSteps = map[Status]Status{
	StatusCollected: StatusRequested,
	StatusDelivered: StatusCollected,
}

// DonorTransitionAllowed reports whether the record's donor may move from -> to.
func DonorTransitionAllowed(from, to Status) bool {
	required, ok := donorSteps[to]
	return ok && required == from
}

// DonorSource returns the status a donor-driven move to target must start from.
func DonorSource(target Status) (Status, bool) {
	from, ok := donorSteps[target]
	return from, ok
}

// ReceiverVisibleStatuses are the statuses a receiver can see on its own records.
func ReceiverVisibleStatuses() []Status {
	return []Status{StatusApproved, StatusRequested, StatusCollected, StatusDelivered}
}
