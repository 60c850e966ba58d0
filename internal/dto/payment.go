package dto

import "github.com/noah-isme/waste-mgmt-api/internal/models"

// UpdatePaymentRequest is the PUT /payments/update/:id payload.
type UpdatePaymentRequest struct {
	PaymentMethod models.PaymentMethod  `json:"paymentMethod" validate:"required"`
	PaymentStatus models.ProgressStatus `json:"paymentStatus" validate:"required"`
}
