package response

import "barber-booking/internal/data/entity"

type SlotResponse struct {
	Time      string            `json:"time"`
	Available bool              `json:"available"`
	Reason    entity.SlotReason `json:"reason,omitempty"`
}

type AvailabilityResponse struct {
	BranchID string         `json:"branch_id"`
	BarberID string         `json:"barber_id"`
	Date     string         `json:"date"`
	Slots    []SlotResponse `json:"slots"`
}
