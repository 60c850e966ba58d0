package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// GeoPoint is a GeoJSON point stored as JSONB. Coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// Valid reports whether the point is a well-formed GeoJSON Point within coordinate bounds.
// GeoJSON type names are case-sensitive.
func (p GeoPoint) Valid() bool {
	if p.Type != "Point" || len(p.Coordinates) != 2 {
		return false
	}
	lng, lat := p.Coordinates[0], p.Coordinates[1]
	return lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90
}

// Value marshals the point to JSON for persistence.
func (p GeoPoint) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal geo point: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSON payload into the point.
func (p *GeoPoint) Scan(value interface{}) error {
	if value == nil {
		*p = GeoPoint{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for GeoPoint", value)
	}
	if len(data) == 0 {
		*p = GeoPoint{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal geo point: %w", err)
	}
	return nil
}
