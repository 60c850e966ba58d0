package dto

import (
	"time"

	"github.com/noah-isme/waste-mgmt-api/internal/models"
)

// CreateWasteRequestRequest is the POST /waste-requests/create payload.
type CreateWasteRequestRequest struct {
	WasteCategoryID string          `json:"wasteCategory" validate:"required"`
	DistrictID      string          `json:"district" validate:"required"`
	City            string          `json:"city" validate:"required"`
	Address         string          `json:"address" validate:"required"`
	Location        models.GeoPoint `json:"location"`
	PickUpDate      time.Time       `json:"pickUpDate" validate:"required"`
	Quantity        float64         `json:"quantity" validate:"required,gt=0"`
	EstimatedPrice  float64         `json:"estimatedPrice" validate:"required,gt=0"`
}

// UpdateWasteRequestRequest carries a partial edit; nil fields are left untouched.
type UpdateWasteRequestRequest struct {
	WasteCategoryID   *string                `json:"wasteCategory,omitempty"`
	DistrictID        *string                `json:"district,omitempty"`
	City              *string                `json:"city,omitempty"`
	Address           *string                `json:"address,omitempty"`
	Location          *models.GeoPoint       `json:"location,omitempty"`
	PickUpDate        *time.Time             `json:"pickUpDate,omitempty"`
	Quantity          *float64               `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	EstimatedPrice    *float64               `json:"estimatedPrice,omitempty" validate:"omitempty,gt=0"`
	DriverID          *string                `json:"driver,omitempty"`
	RequestStatus     *models.ApprovalStatus `json:"requestStatus,omitempty"`
	TruckDriverStatus *models.ApprovalStatus `json:"truckDriverStatus,omitempty"`
	CollectionStatus  *models.ProgressStatus `json:"collectionStatus,omitempty"`
	PaymentStatus     *models.ProgressStatus `json:"paymentStatus,omitempty"`
}

// TouchesLockedFields reports whether the edit changes anything frozen after approval.
func (r UpdateWasteRequestRequest) TouchesLockedFields() bool {
	return r.WasteCategoryID != nil || r.DistrictID != nil || r.City != nil || r.Address != nil ||
		r.Location != nil || r.PickUpDate != nil || r.Quantity != nil || r.EstimatedPrice != nil ||
		r.DriverID != nil || r.RequestStatus != nil || r.TruckDriverStatus != nil ||
		r.CollectionStatus != nil || r.PaymentStatus != nil
}

// AssignDriverRequest is the PUT /waste-requests/assign-driver/:id payload.
type AssignDriverRequest struct {
	DriverID string `json:"driverId" validate:"required"`
}

// UpdateRequestStatusRequest is the PUT /waste-requests/update-status/:id payload.
type UpdateRequestStatusRequest struct {
	RequestStatus models.ApprovalStatus `json:"requestStatus" validate:"required"`
}

// DriverResponseRequest is the PUT /waste-requests/driver-response/:id payload.
type DriverResponseRequest struct {
	TruckDriverStatus models.ApprovalStatus `json:"truckDriverStatus" validate:"required"`
}

// ConfirmCollectionRequest is the PUT /waste-requests/confirm-collection payload.
type ConfirmCollectionRequest struct {
	WasteRequestID string `json:"wasteRequestId" validate:"required"`
}

// FeedbackRequest is the PUT /waste-requests/feedback payload.
type FeedbackRequest struct {
	WasteRequestID string `json:"wasteRequestId" validate:"required"`
	Rating         int    `json:"rating" validate:"required,min=1,max=5"`
	Comment        string `json:"comment" validate:"max=1000"`
}

// WasteRequestDetail is a request with its payment resolved.
type WasteRequestDetail struct {
	models.WasteRequest
	Payment        *models.Payment `json:"paymentDetail,omitempty"`
	FullyCompleted bool            `json:"fullyCompleted"`
}
