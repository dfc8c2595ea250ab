package participant

import "github.com/splittab/splittab/internal/models"

// AddParticipantRequest represents the request to add a participant to a
// bill
type AddParticipantRequest struct {
	BillID models.BillID `json:"bill_id"`
	Name   string        `json:"name"`
	Email  *string       `json:"email,omitempty"`
}

// UpdateParticipantRequest represents a partial participant edit
type UpdateParticipantRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}
