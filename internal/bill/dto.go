package bill

import (
	"encoding/json"

	"github.com/splittab/splittab/internal/models"
)

// CreateBillRequest represents the request to create a bill. The money
// components are pointers so that a missing field is distinguishable from
// an explicit zero.
type CreateBillRequest struct {
	Title               string   `json:"title"`
	Description         string   `json:"description,omitempty"`
	ImageURL            *string  `json:"image_url,omitempty"`
	Subtotal            *float64 `json:"subtotal"`
	TaxAmount           *float64 `json:"tax_amount"`
	ServiceChargeAmount *float64 `json:"service_charge_amount"`
}

// UpdateBillRequest represents a partial bill edit; absent fields keep
// their current values
type UpdateBillRequest struct {
	Title               *string  `json:"title,omitempty"`
	Description         *string  `json:"description,omitempty"`
	ImageURL            *string  `json:"image_url,omitempty"`
	Subtotal            *float64 `json:"subtotal,omitempty"`
	TaxAmount           *float64 `json:"tax_amount,omitempty"`
	ServiceChargeAmount *float64 `json:"service_charge_amount,omitempty"`
}

// OCRItemInput is one item extracted by the OCR pipeline
type OCRItemInput struct {
	Name     string   `json:"name"`
	Price    *float64 `json:"price"`
	Quantity *int     `json:"quantity"`
}

// OCRImportRequest represents the request to attach an OCR payload and its
// extracted items to a bill
type OCRImportRequest struct {
	OCRData json.RawMessage `json:"ocr_data"`
	Items   []OCRItemInput  `json:"items"`
}

// BillResponse decorates a bill with its observational status label
type BillResponse struct {
	*models.Bill
	Status models.BillStatus `json:"status"`
}

// ToResponse wraps a populated bill with its computed status.
func ToResponse(bill *models.Bill) *BillResponse {
	return &BillResponse{Bill: bill, Status: bill.Status()}
}

// ToResponseList wraps a slice of populated bills.
func ToResponseList(bills []*models.Bill) []*BillResponse {
	out := make([]*BillResponse, len(bills))
	for i, b := range bills {
		out[i] = ToResponse(b)
	}
	return out
}
