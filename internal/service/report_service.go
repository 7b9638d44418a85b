package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/smap-labs/smap-compliance-api/internal/models"
	appErrors "github.com/smap-labs/smap-compliance-api/pkg/errors"
	"github.com/smap-labs/smap-compliance-api/pkg/export"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type riskReporter interface {
	List(ctx context.Context, filter RiskFilter) ([]models.Risk, error)
	GenerateReport(ctx context.Context) (*models.RiskReport, error)
}

// ReportFormat names a supported export rendering.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportService renders the risk register into downloadable exports.
type ReportService struct {
	risks  riskReporter
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewReportService constructs the service with default renderers.
func NewReportService(risks riskReporter, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		risks:  risks,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

// ExportRegister renders the full register in the requested format.
func (s *ReportService) ExportRegister(ctx context.Context, format ReportFormat) ([]byte, string, error) {
	risks, err := s.risks.List(ctx, RiskFilter{})
	if err != nil {
		return nil, "", err
	}
	dataset := registerDataset(risks)

	switch format {
	case ReportFormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return data, "text/csv", nil
	case ReportFormatPDF:
		title := fmt.Sprintf("Risk register %s", time.Now().UTC().Format("2006-01-02"))
		data, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return data, "application/pdf", nil
	}
	return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
}

func registerDataset(risks []models.Risk) export.Dataset {
	headers := []string{"Title", "Category", "Level", "Status", "Owner", "Score", "Identified", "Mitigations"}
	rows := make([]map[string]string, 0, len(risks))
	for _, risk := range risks {
		rows = append(rows, map[string]string{
			"Title":       risk.Title,
			"Category":    string(risk.Category),
			"Level":       string(risk.Level),
			"Status":      string(risk.Status),
			"Owner":       risk.Owner,
			"Score":       strconv.Itoa(risk.LatestScore()),
			"Identified":  risk.IdentifiedDate.Format("2006-01-02"),
			"Mitigations": strconv.Itoa(len(risk.Mitigations)),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

// ParseReportFormat normalises a query parameter into a known format.
func ParseReportFormat(raw string) (ReportFormat, error) {
	switch ReportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case ReportFormatCSV:
		return ReportFormatCSV, nil
	case ReportFormatPDF:
		return ReportFormatPDF, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
}
