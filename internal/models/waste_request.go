package models

import (
	"strings"
	"time"
)

// ApprovalStatus is the state of an approve/reject decision (request approval, driver acceptance).
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalAccepted ApprovalStatus = "ACCEPTED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// Valid reports whether s is a known approval status.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalAccepted, ApprovalRejected:
		return true
	}
	return false
}

// Decided reports whether s is a terminal decision (ACCEPTED or REJECTED).
func (s ApprovalStatus) Decided() bool {
	return s == ApprovalAccepted || s == ApprovalRejected
}

// ProgressStatus is the state of a fulfilment track (collection, payment).
type ProgressStatus string

const (
	ProgressPending   ProgressStatus = "PENDING"
	ProgressCompleted ProgressStatus = "COMPLETED"
	ProgressCancelled ProgressStatus = "CANCELLED"
)

// Valid reports whether s is a known progress status.
func (s ProgressStatus) Valid() bool {
	switch s {
	case ProgressPending, ProgressCompleted, ProgressCancelled:
		return true
	}
	return false
}

// WasteRequest is a user's pickup submission. Its four status tracks evolve independently.
type WasteRequest struct {
	ID                string         `db:"id" json:"id"`
	WasteCategoryID   string         `db:"waste_category_id" json:"wasteCategory"`
	DistrictID        string         `db:"district_id" json:"district"`
	City              string         `db:"city" json:"city"`
	Address           string         `db:"address" json:"address"`
	Location          GeoPoint       `db:"location" json:"location"`
	PickUpDate        time.Time      `db:"pick_up_date" json:"pickUpDate"`
	Quantity          float64        `db:"quantity" json:"quantity"`
	EstimatedPrice    float64        `db:"estimated_price" json:"estimatedPrice"`
	UserID            string         `db:"user_id" json:"user"`
	DriverID          *string        `db:"driver_id" json:"driver,omitempty"`
	PaymentID         *string        `db:"payment_id" json:"payment,omitempty"`
	RequestStatus     ApprovalStatus `db:"request_status" json:"requestStatus"`
	TruckDriverStatus ApprovalStatus `db:"truck_driver_status" json:"truckDriverStatus"`
	CollectionStatus  ProgressStatus `db:"collection_status" json:"collectionStatus"`
	PaymentStatus     ProgressStatus `db:"payment_status" json:"paymentStatus"`
	Rating            *int           `db:"rating" json:"rating,omitempty"`
	Comment           *string        `db:"comment" json:"comment,omitempty"`
	Version           int            `db:"version" json:"version"`
	CreatedAt         time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updatedAt"`
}

// Frozen reports whether requester/admin edits are locked because the request was approved.
func (r *WasteRequest) Frozen() bool {
	return r.RequestStatus == ApprovalAccepted
}

// FullyCompleted is true once every track reached its success state.
func (r *WasteRequest) FullyCompleted() bool {
	return r.RequestStatus == ApprovalAccepted &&
		r.TruckDriverStatus == ApprovalAccepted &&
		r.CollectionStatus == ProgressCompleted &&
		r.PaymentStatus == ProgressCompleted
}

// HasDriver reports whether a driver is currently assigned.
func (r *WasteRequest) HasDriver() bool {
	return r.DriverID != nil && *r.DriverID != ""
}

// AssignedTo reports whether driverID is the currently assigned driver.
func (r *WasteRequest) AssignedTo(driverID string) bool {
	return r.HasDriver() && *r.DriverID == driverID
}

// WasteRequestFilter constrains listing queries.
type WasteRequestFilter struct {
	UserID            string
	DriverID          string
	DistrictID        string
	WasteCategoryID   string
	RequestStatus     ApprovalStatus
	TruckDriverStatus ApprovalStatus
	CollectionStatus  ProgressStatus
	PaymentStatus     ProgressStatus
	From              *time.Time
	To                *time.Time
	Page              int
	PageSize          int
}

func equalFoldTrim(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
