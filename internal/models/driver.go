package models

import (
	"time"

	"github.com/lib/pq"
)

// Driver is a truck driver serving one district.
type Driver struct {
	ID            string         `db:"id" json:"id"`
	Name          string         `db:"name" json:"name"`
	Email         string         `db:"email" json:"email"`
	Phone         string         `db:"phone" json:"phone"`
	NIC           string         `db:"nic" json:"nic"`
	VehicleNumber string         `db:"vehicle_number" json:"vehicleNumber"`
	Images        pq.StringArray `db:"images" json:"images"`
	DistrictID    string         `db:"district_id" json:"district"`
	City          string         `db:"city" json:"city"`
	Active        bool           `db:"active" json:"active"`
	UserID        string         `db:"user_id" json:"user"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`
	WasteRequests []string       `db:"-" json:"wasteRequests"`
}

// DriverFilter captures filtering options for listing drivers.
type DriverFilter struct {
	DistrictID string
	City       string
	Active     *bool
	Search     string
	Page       int
	PageSize   int
}
