package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-leave-api/internal/dto"
	"github.com/noah-isme/sma-leave-api/internal/models"
	appErrors "github.com/noah-isme/sma-leave-api/pkg/errors"
	"github.com/noah-isme/sma-leave-api/pkg/export"
)

type ledgerReader interface {
	All(actor *models.Principal) ([]models.LeaveRequest, error)
}

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
	ContentType() string
}

// ExportFile is a rendered ledger export.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// LeaveExportService renders the ledger for admins.
type LeaveExportService struct {
	ledger ledgerReader
	csv    tableRenderer
	pdf    tableRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewLeaveExportService constructs the export service; nil renderers fall back to the defaults.
func NewLeaveExportService(ledger ledgerReader, logger *zap.Logger, csv, pdf tableRenderer) *LeaveExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &LeaveExportService{
		ledger: ledger,
		csv:    csv,
		pdf:    pdf,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

var leaveExportColumns = []export.Column{
	{Header: "ID", Width: 2.4},
	{Header: "Requester", Width: 1.2},
	{Header: "Role", Width: 0.9},
	{Header: "Reason", Width: 1.4},
	{Header: "Start", Width: 1},
	{Header: "End", Width: 1},
	{Header: "Days", Width: 0.5},
	{Header: "Teacher", Width: 1},
	{Header: "Status", Width: 1.4},
}

// Export renders every request in the requested format.
func (s *LeaveExportService) Export(actor *models.Principal, format dto.ExportFormat) (*ExportFile, error) {
	var renderer tableRenderer
	switch dto.ExportFormat(strings.ToLower(string(format))) {
	case dto.ExportFormatCSV, "":
		format, renderer = dto.ExportFormatCSV, s.csv
	case dto.ExportFormatPDF:
		format, renderer = dto.ExportFormatPDF, s.pdf
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	requests, err := s.ledger.All(actor)
	if err != nil {
		return nil, err
	}

	table := export.Table{
		Title:   fmt.Sprintf("Leave Requests %s", s.now().Format(models.DateLayout)),
		Columns: leaveExportColumns,
		Rows:    make([]map[string]string, 0, len(requests)),
	}
	for i := range requests {
		r := &requests[i]
		table.Rows = append(table.Rows, map[string]string{
			"ID":        r.ID,
			"Requester": r.Requester,
			"Role":      strings.ToLower(string(r.RequesterRole)),
			"Reason":    r.Reason.Label(),
			"Start":     r.StartDate.String(),
			"End":       r.EndDate.String(),
			"Days":      strconv.Itoa(r.NumberOfDays),
			"Teacher":   r.TeacherApprovalTarget(),
			"Status":    string(r.Status),
		})
	}

	payload, err := renderer.Render(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Info("leave ledger exported", zap.String("format", string(format)), zap.Int("rows", len(table.Rows)))

	return &ExportFile{
		Filename:    fmt.Sprintf("leave_requests_%s.%s", s.now().Format("20060102_150405"), format),
		ContentType: renderer.ContentType(),
		Payload:     payload,
	}, nil
}
