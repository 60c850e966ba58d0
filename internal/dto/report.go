package dto

import (
	"time"

	"github.com/noah-isme/waste-mgmt-api/internal/models"
)

// ReportRequest captures the POST /reports/* payload.
type ReportRequest struct {
	From       *time.Time          `json:"from,omitempty"`
	To         *time.Time          `json:"to,omitempty"`
	DistrictID string              `json:"district,omitempty"`
	Status     string              `json:"status,omitempty"`
	Format     models.ReportFormat `json:"format,omitempty"`
}

// Filter converts the payload to a repository filter.
func (r ReportRequest) Filter(limit int) models.ReportFilter {
	return models.ReportFilter{From: r.From, To: r.To, DistrictID: r.DistrictID, Status: r.Status, Limit: limit}
}

// ReportFile is a rendered report ready to stream.
type ReportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
