package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/institute-crm-api/internal/models"
	appErrors "github.com/noah-isme/institute-crm-api/pkg/errors"
	"github.com/noah-isme/institute-crm-api/pkg/export"
	"github.com/noah-isme/institute-crm-api/pkg/storage"
)

// Export formats supported by the report endpoints.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// exportPageSize caps how many enquiries one export file may carry.
const exportPageSize = 10000

type exportEnquiryLister interface {
	List(ctx context.Context, filter models.EnquiryFilter) ([]models.EnquiryDetail, int, error)
}

// ExportService renders enquiry exports to local files and hands out signed
// download tokens. Files are cleaned up by age through the storage layer.
type ExportService struct {
	enquiries exportEnquiryLister
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	store     *storage.LocalStorage
	signer    *storage.SignedURLSigner
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(enquiries exportEnquiryLister, store *storage.LocalStorage, signer *storage.SignedURLSigner, metrics *MetricsService, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		enquiries: enquiries,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		store:     store,
		signer:    signer,
		metrics:   metrics,
		logger:    logger,
	}
}

// ExportEnquiries renders the filtered enquiry list to the requested format
// and returns a signed download link.
func (s *ExportService) ExportEnquiries(ctx context.Context, actor *models.JWTClaims, filter models.EnquiryFilter, format string) (*models.ExportLink, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	format = strings.ToLower(format)
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if actor.Role == models.RoleExecutive && actor.BranchID != nil {
		filter.BranchID = *actor.BranchID
	}
	filter.Page = 1
	filter.PageSize = exportPageSize

	enquiries, _, err := s.enquiries.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enquiries for export")
	}

	dataset := enquiryDataset(enquiries)
	var payload []byte
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, "Enquiry Report")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	exportID := uuid.NewString()
	fileName := fmt.Sprintf("enquiries-%s-%s.%s", time.Now().UTC().Format("20060102-150405"), exportID[:8], format)
	if _, err := s.store.Save(fileName, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export file")
	}

	token, expiresAt, err := s.signer.Generate(exportID, fileName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	if s.metrics != nil {
		s.metrics.RecordExport(format)
	}
	s.logger.Info("export generated",
		zap.String("export_id", exportID),
		zap.String("file", fileName),
		zap.String("format", format),
		zap.Int("rows", len(enquiries)))

	return &models.ExportLink{FileName: fileName, Token: token, ExpiresAt: expiresAt}, nil
}

// OpenDownload validates the signed token and opens the export file.
func (s *ExportService) OpenDownload(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "download link is invalid or expired")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export file no longer exists")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return file, relPath, nil
}

// Cleanup removes export files older than the retention window.
func (s *ExportService) Cleanup(retention time.Duration) {
	removed, err := s.store.CleanupOlderThan(retention)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("export files cleaned up", zap.Int("count", len(removed)))
	}
}

func enquiryDataset(enquiries []models.EnquiryDetail) export.Dataset {
	headers := []string{"Candidate", "Phone", "Status", "Branch", "Source", "Course", "Assigned To", "Created"}
	rows := make([]map[string]string, 0, len(enquiries))
	for _, enquiry := range enquiries {
		rows = append(rows, map[string]string{
			"Candidate":   enquiry.CandidateName,
			"Phone":       enquiry.Phone,
			"Status":      string(enquiry.Status),
			"Branch":      deref(enquiry.BranchName),
			"Source":      deref(enquiry.SourceName),
			"Course":      deref(enquiry.CourseName),
			"Assigned To": deref(enquiry.AssignedToName),
			"Created":     enquiry.CreatedAt.UTC().Format("2006-01-02 15:04"),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
