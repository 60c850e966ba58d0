package models

import "time"

// ReportType enumerates downloadable reports.
type ReportType string

const (
	ReportWasteRequests ReportType = "waste-requests"
	ReportPayments      ReportType = "payments"
	ReportDrivers       ReportType = "drivers"
	ReportDistricts     ReportType = "districts"
)

// ReportFormat enumerates output encodings.
type ReportFormat string

const (
	ReportFormatPDF ReportFormat = "pdf"
	ReportFormatCSV ReportFormat = "csv"
)

// WasteRequestReportRow is a request with its references resolved.
type WasteRequestReportRow struct {
	ID                string         `db:"id"`
	CategoryName      string         `db:"category_name"`
	DistrictName      string         `db:"district_name"`
	City              string         `db:"city"`
	RequesterName     string         `db:"requester_name"`
	DriverName        *string        `db:"driver_name"`
	PickUpDate        time.Time      `db:"pick_up_date"`
	Quantity          float64        `db:"quantity"`
	EstimatedPrice    float64        `db:"estimated_price"`
	RequestStatus     ApprovalStatus `db:"request_status"`
	TruckDriverStatus ApprovalStatus `db:"truck_driver_status"`
	CollectionStatus  ProgressStatus `db:"collection_status"`
	PaymentStatus     ProgressStatus `db:"payment_status"`
}

// PaymentReportRow is a payment with requester and request details.
type PaymentReportRow struct {
	ID             string         `db:"id"`
	UserName       string         `db:"user_name"`
	WasteRequestID string         `db:"waste_request_id"`
	Method         *string        `db:"method"`
	Status         ProgressStatus `db:"status"`
	Amount         float64        `db:"amount"`
	DueDate        time.Time      `db:"due_date"`
	PaymentDate    *time.Time     `db:"payment_date"`
	IsAdminPayment bool           `db:"is_admin_payment"`
}

// DriverReportRow aggregates a driver's workload.
type DriverReportRow struct {
	ID            string `db:"id"`
	Name          string `db:"name"`
	VehicleNumber string `db:"vehicle_number"`
	DistrictName  string `db:"district_name"`
	City          string `db:"city"`
	Active        bool   `db:"active"`
	Assigned      int    `db:"assigned"`
	Completed     int    `db:"completed"`
}

// DistrictReportRow aggregates per-district volume.
type DistrictReportRow struct {
	ID            string  `db:"id"`
	Name          string  `db:"name"`
	DistrictCode  string  `db:"district_code"`
	Active        bool    `db:"active"`
	Drivers       int     `db:"drivers"`
	Requests      int     `db:"requests"`
	TotalQuantity float64 `db:"total_quantity"`
	TotalAmount   float64 `db:"total_amount"`
}

// ReportFilter narrows the rows included in a report.
type ReportFilter struct {
	From       *time.Time
	To         *time.Time
	DistrictID string
	Status     string
	Limit      int
}
