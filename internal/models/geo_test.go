package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeoPointValid(t *testing.T) {
	cases := []struct {
		name  string
		point GeoPoint
		valid bool
	}{
		{name: "colombo", point: GeoPoint{Type: "Point", Coordinates: []float64{79.86, 6.92}}, valid: true},
		{name: "lowercase type", point: GeoPoint{Type: "point", Coordinates: []float64{79.86, 6.92}}},
		{name: "latitude out of range", point: GeoPoint{Type: "Point", Coordinates: []float64{79.86, 96}}},
		{name: "missing coordinate", point: GeoPoint{Type: "Point", Coordinates: []float64{79.86}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.valid, tc.point.Valid())
		})
	}
}

func TestGeoPointScanKeepsType(t *testing.T) {
	var p GeoPoint
	require.NoError(t, p.Scan([]byte(`{"type":"Point","coordinates":[80.63,7.29]}`)))
	assert.Equal(t, "Point", p.Type)
	assert.Equal(t, []float64{80.63, 7.29}, p.Coordinates)

	require.NoError(t, p.Scan(nil))
	assert.Equal(t, GeoPoint{}, p)
}
