package models

import (
	"time"

	"github.com/lib/pq"
)

// District groups cities served by the same fleet.
type District struct {
	ID            string         `db:"id" json:"id"`
	Name          string         `db:"name" json:"name"`
	Cities        pq.StringArray `db:"cities" json:"cities"`
	Active        bool           `db:"active" json:"active"`
	DistrictCode  string         `db:"district_code" json:"districtCode"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`
	TruckDrivers  []string       `db:"-" json:"truckDrivers"`
	WasteRequests []string       `db:"-" json:"wasteRequests"`
}

// HasCity reports whether city is served by the district (case-insensitive).
func (d *District) HasCity(city string) bool {
	for _, c := range d.Cities {
		if equalFoldTrim(c, city) {
			return true
		}
	}
	return false
}

// DistrictFilter captures filtering options for listing districts.
type DistrictFilter struct {
	Search   string
	Active   *bool
	Page     int
	PageSize int
}
