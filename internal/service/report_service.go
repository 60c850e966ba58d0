package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/waste-mgmt-api/internal/dto"
	"github.com/noah-isme/waste-mgmt-api/internal/models"
	appErrors "github.com/noah-isme/waste-mgmt-api/pkg/errors"
	"github.com/noah-isme/waste-mgmt-api/pkg/export"
)

const reportCachePrefix = "reports:"

type reportRepository interface {
	WasteRequests(ctx context.Context, filter models.ReportFilter) ([]models.WasteRequestReportRow, error)
	Payments(ctx context.Context, filter models.ReportFilter) ([]models.PaymentReportRow, error)
	Drivers(ctx context.Context, filter models.ReportFilter) ([]models.DriverReportRow, error)
	Districts(ctx context.Context, filter models.ReportFilter) ([]models.DistrictReportRow, error)
}

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// ReportConfig tunes report rendering.
type ReportConfig struct {
	Title    string
	MaxRows  int
	Location *time.Location
	CacheTTL time.Duration
}

// ReportService assembles populated datasets and renders them as PDF or CSV.
type ReportService struct {
	repo    reportRepository
	pdf     documentRenderer
	csv     documentRenderer
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ReportConfig
	now     func() time.Time
}

// NewReportService constructs the report service. Nil renderers fall back to the gofpdf and CSV exporters.
func NewReportService(repo reportRepository, pdf, csv documentRenderer, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg ReportConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if cfg.Title == "" {
		cfg.Title = "Waste Collection Report"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &ReportService{repo: repo, pdf: pdf, csv: csv, cache: cache, metrics: metrics, logger: logger, cfg: cfg, now: time.Now}
}

// Generate renders the requested report.
func (s *ReportService) Generate(ctx context.Context, reportType models.ReportType, req dto.ReportRequest) (*dto.ReportFile, error) {
	format := req.Format
	if format == "" {
		format = models.ReportFormatPDF
	}
	if format != models.ReportFormatPDF && format != models.ReportFormatCSV {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be pdf or csv")
	}
	if req.From != nil && req.To != nil && req.To.Before(*req.From) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}

	file, hit, err := cached(ctx, s.cache, reportCacheKey(reportType, format, req), s.cfg.CacheTTL, func(ctx context.Context) (*dto.ReportFile, error) {
		return s.render(ctx, reportType, format, req)
	})
	if err != nil {
		return nil, err
	}
	if hit {
		s.logger.Debug("report served from cache", zap.String("type", string(reportType)))
	}
	return file, nil
}

func (s *ReportService) render(ctx context.Context, reportType models.ReportType, format models.ReportFormat, req dto.ReportRequest) (*dto.ReportFile, error) {
	start := s.now()
	doc, err := s.document(ctx, reportType, req.Filter(s.cfg.MaxRows))
	if err != nil {
		return nil, err
	}
	doc.Subtitle = s.subtitle(req)

	renderer, contentType := s.pdf, "application/pdf"
	if format == models.ReportFormatCSV {
		renderer, contentType = s.csv, "text/csv"
	}
	data, err := renderer.Render(*doc)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render report")
	}
	s.metrics.ObserveReport(reportType, format, s.now().Sub(start))
	s.logger.Info("report generated", zap.String("type", string(reportType)), zap.String("format", string(format)), zap.Int("bytes", len(data)))

	return &dto.ReportFile{
		Filename:    fmt.Sprintf("%s-%s.%s", reportType, s.now().In(s.cfg.Location).Format("20060102-150405"), format),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func (s *ReportService) document(ctx context.Context, reportType models.ReportType, filter models.ReportFilter) (*export.Document, error) {
	switch reportType {
	case models.ReportWasteRequests:
		rows, err := s.repo.WasteRequests(ctx, filter)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load waste request report")
		}
		return s.wasteRequestDocument(rows), nil
	case models.ReportPayments:
		rows, err := s.repo.Payments(ctx, filter)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load payment report")
		}
		return s.paymentDocument(rows), nil
	case models.ReportDrivers:
		rows, err := s.repo.Drivers(ctx, filter)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load driver report")
		}
		return s.driverDocument(rows), nil
	case models.ReportDistricts:
		rows, err := s.repo.Districts(ctx, filter)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to load district report")
		}
		return s.districtDocument(rows), nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown report %q", reportType))
}

func (s *ReportService) wasteRequestDocument(rows []models.WasteRequestReportRow) *export.Document {
	headers := []string{"Pickup", "Category", "District", "City", "Requester", "Driver", "Qty (kg)", "Price", "Request", "Driver Status", "Collection", "Payment"}
	data := export.Dataset{Headers: headers, Rows: make([]map[string]string, 0, len(rows))}
	byStatus := map[string]float64{}
	total := 0.0
	for _, row := range rows {
		driver := "-"
		if row.DriverName != nil {
			driver = *row.DriverName
		}
		data.Rows = append(data.Rows, map[string]string{
			"Pickup":        s.date(row.PickUpDate),
			"Category":      row.CategoryName,
			"District":      row.DistrictName,
			"City":          row.City,
			"Requester":     row.RequesterName,
			"Driver":        driver,
			"Qty (kg)":      formatNumber(row.Quantity),
			"Price":         formatNumber(row.EstimatedPrice),
			"Request":       string(row.RequestStatus),
			"Driver Status": string(row.TruckDriverStatus),
			"Collection":    string(row.CollectionStatus),
			"Payment":       string(row.PaymentStatus),
		})
		byStatus[string(row.RequestStatus)]++
		total += row.EstimatedPrice
	}
	summary := append([]export.SummaryItem{
		{Label: "Total requests", Value: strconv.Itoa(len(rows))},
		{Label: "Total estimated price", Value: formatNumber(total)},
	}, countSummary(byStatus)...)
	return &export.Document{
		Title:      s.cfg.Title + " - Waste Requests",
		Data:       data,
		Summary:    summary,
		ChartTitle: "Requests by status",
		Chart:      bars(byStatus),
	}
}

func (s *ReportService) paymentDocument(rows []models.PaymentReportRow) *export.Document {
	headers := []string{"Due", "Paid", "User", "Request", "Method", "Status", "Amount", "Admin Payment"}
	data := export.Dataset{Headers: headers, Rows: make([]map[string]string, 0, len(rows))}
	byStatus := map[string]float64{}
	collected, outstanding := 0.0, 0.0
	for _, row := range rows {
		method, paid := "-", "-"
		if row.Method != nil {
			method = *row.Method
		}
		if row.PaymentDate != nil {
			paid = s.date(*row.PaymentDate)
		}
		data.Rows = append(data.Rows, map[string]string{
			"Due":           s.date(row.DueDate),
			"Paid":          paid,
			"User":          row.UserName,
			"Request":       row.WasteRequestID,
			"Method":        method,
			"Status":        string(row.Status),
			"Amount":        formatNumber(row.Amount),
			"Admin Payment": yesNo(row.IsAdminPayment),
		})
		byStatus[string(row.Status)] += row.Amount
		if row.Status == models.ProgressCompleted {
			collected += row.Amount
		} else if row.Status == models.ProgressPending {
			outstanding += row.Amount
		}
	}
	return &export.Document{
		Title: s.cfg.Title + " - Payments",
		Data:  data,
		Summary: []export.SummaryItem{
			{Label: "Total payments", Value: strconv.Itoa(len(rows))},
			{Label: "Collected", Value: formatNumber(collected)},
			{Label: "Outstanding", Value: formatNumber(outstanding)},
		},
		ChartTitle: "Amount by status",
		Chart:      bars(byStatus),
	}
}

func (s *ReportService) driverDocument(rows []models.DriverReportRow) *export.Document {
	headers := []string{"Name", "Vehicle", "District", "City", "Active", "Assigned", "Completed"}
	data := export.Dataset{Headers: headers, Rows: make([]map[string]string, 0, len(rows))}
	workload := map[string]float64{}
	active := 0
	for _, row := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"Name":      row.Name,
			"Vehicle":   row.VehicleNumber,
			"District":  row.DistrictName,
			"City":      row.City,
			"Active":    yesNo(row.Active),
			"Assigned":  strconv.Itoa(row.Assigned),
			"Completed": strconv.Itoa(row.Completed),
		})
		workload[row.Name] = float64(row.Assigned)
		if row.Active {
			active++
		}
	}
	return &export.Document{
		Title: s.cfg.Title + " - Drivers",
		Data:  data,
		Summary: []export.SummaryItem{
			{Label: "Total drivers", Value: strconv.Itoa(len(rows))},
			{Label: "Active drivers", Value: strconv.Itoa(active)},
		},
		ChartTitle: "Assigned requests per driver",
		Chart:      bars(workload),
	}
}

func (s *ReportService) districtDocument(rows []models.DistrictReportRow) *export.Document {
	headers := []string{"Code", "Name", "Active", "Drivers", "Requests", "Quantity (kg)", "Amount"}
	data := export.Dataset{Headers: headers, Rows: make([]map[string]string, 0, len(rows))}
	volume := map[string]float64{}
	totalRequests, totalAmount := 0, 0.0
	for _, row := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"Code":          row.DistrictCode,
			"Name":          row.Name,
			"Active":        yesNo(row.Active),
			"Drivers":       strconv.Itoa(row.Drivers),
			"Requests":      strconv.Itoa(row.Requests),
			"Quantity (kg)": formatNumber(row.TotalQuantity),
			"Amount":        formatNumber(row.TotalAmount),
		})
		volume[row.Name] = row.TotalQuantity
		totalRequests += row.Requests
		totalAmount += row.TotalAmount
	}
	return &export.Document{
		Title: s.cfg.Title + " - Districts",
		Data:  data,
		Summary: []export.SummaryItem{
			{Label: "Total districts", Value: strconv.Itoa(len(rows))},
			{Label: "Total requests", Value: strconv.Itoa(totalRequests)},
			{Label: "Total amount", Value: formatNumber(totalAmount)},
		},
		ChartTitle: "Collected quantity per district (kg)",
		Chart:      bars(volume),
	}
}

func (s *ReportService) subtitle(req dto.ReportRequest) string {
	parts := make([]string, 0, 3)
	if req.From != nil || req.To != nil {
		from, to := "start", "today"
		if req.From != nil {
			from = s.date(*req.From)
		}
		if req.To != nil {
			to = s.date(*req.To)
		}
		parts = append(parts, fmt.Sprintf("Period %s to %s", from, to))
	}
	if req.Status != "" {
		parts = append(parts, "Status "+strings.ToUpper(req.Status))
	}
	if req.DistrictID != "" {
		parts = append(parts, "District "+req.DistrictID)
	}
	return strings.Join(parts, " | ")
}

func (s *ReportService) date(t time.Time) string {
	return t.In(s.cfg.Location).Format("2006-01-02")
}

func countSummary(counts map[string]float64) []export.SummaryItem {
	keys := sortedKeys(counts)
	items := make([]export.SummaryItem, 0, len(keys))
	for _, key := range keys {
		items = append(items, export.SummaryItem{Label: key, Value: strconv.Itoa(int(counts[key]))})
	}
	return items
}

func bars(values map[string]float64) []export.Bar {
	keys := sortedKeys(values)
	out := make([]export.Bar, 0, len(keys))
	for _, key := range keys {
		out = append(out, export.Bar{Label: key, Value: values[key]})
	}
	return out
}

func sortedKeys(values map[string]float64) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func reportCacheKey(reportType models.ReportType, format models.ReportFormat, req dto.ReportRequest) string {
	raw, _ := json.Marshal(req)
	sum := sha1.Sum(raw)
	return fmt.Sprintf("%s%s:%s:%s", reportCachePrefix, reportType, format, hex.EncodeToString(sum[:8]))
}
