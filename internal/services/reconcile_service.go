package services

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"drawing_tracker/internal/models"
	"drawing_tracker/internal/repository"
	"drawing_tracker/internal/scanner"
	"drawing_tracker/pkg/bistrack"
)

// ScanReport is the outcome of one reconciliation batch. Per-item problems
// land in Unmatched or Failures; only a store failure aborts a batch.
type ScanReport struct {
	BatchID   string                 `json:"batch_id"`
	StartedAt time.Time              `json:"started_at"`
	Created   int                    `json:"created"`
	Attached  int                    `json:"attached"`
	Unchanged int                    `json:"unchanged"`
	Unmatched []models.DiscoveredPDF `json:"unmatched"`
	Failures  []ScanFailure          `json:"failures"`
}

type ScanFailure struct {
	OrderNumber string `json:"order_number,omitempty"`
	PDFPath     string `json:"pdf_path,omitempty"`
	Error       string `json:"error"`
}

type ReconcileService interface {
	Reconcile(orders []models.OrderRecord, pdfs []models.DiscoveredPDF) (*ScanReport, error)
	ScanAndReconcile() (*ScanReport, error)
}

// ScanCache is the slice of the redis client the engine needs: dropping day
// buckets a batch touched and parking the batch report. The redis.Client
// satisfies it.
type ScanCache interface {
	InvalidateDayBucket(date string) error
	SetScanReport(batchID string, report interface{}, ttl time.Duration) error
}

type reconcileService struct {
	relationshipRepo repository.RelationshipRepository
	htmlScanner      scanner.ExportScanner
	csvScanner       scanner.ExportScanner
	pdfScanner       *scanner.PDFDirectoryScanner
	exportClient     *bistrack.Client
	cache            ScanCache
	exportDir        string
	pdfDir           string
	logger           *log.Logger
}

func NewReconcileService(
	relationshipRepo repository.RelationshipRepository,
	htmlScanner scanner.ExportScanner,
	csvScanner scanner.ExportScanner,
	pdfScanner *scanner.PDFDirectoryScanner,
	exportClient *bistrack.Client,
	cache ScanCache,
	exportDir string,
	pdfDir string,
	logger *log.Logger,
) ReconcileService {
	return &reconcileService{
		relationshipRepo: relationshipRepo,
		htmlScanner:      htmlScanner,
		csvScanner:       csvScanner,
		pdfScanner:       pdfScanner,
		exportClient:     exportClient,
		cache:            cache,
		exportDir:        exportDir,
		pdfDir:           pdfDir,
		logger:           logger,
	}
}

// Reconcile aligns the known orders with the discovered drawings. Running it
// again on an unchanged input appends nothing: every attach is guarded by a
// current-path comparison.
func (s *reconcileService) Reconcile(orders []models.OrderRecord, pdfs []models.DiscoveredPDF) (*ScanReport, error) {
	report := &ScanReport{
		BatchID:   uuid.NewString(),
		StartedAt: time.Now(),
	}

	// Every exported order gets a relationship, with or without a drawing.
	for _, order := range orders {
		existing, err := s.relationshipRepo.FindByOrderNumber(order.OrderNumber)
		if err != nil {
			return report, fmt.Errorf("order %s lookup failed: %w", order.OrderNumber, err)
		}
		if existing != nil {
			// A relationship created by a drawing that beat its export row
			// carries only the order number; copy the export fields over so
			// the order lands in its calendar bucket. Also refreshes details
			// BisTrack amended since the last scan.
			if orderDetailsDiffer(existing, order) {
				updated, err := s.relationshipRepo.UpdateOrderDetails(existing.ID, order)
				if err != nil {
					return report, fmt.Errorf("order %s detail update failed: %w", order.OrderNumber, err)
				}
				s.invalidateBucket(existing.DateRequired)
				s.invalidateBucket(updated.DateRequired)
			}
			report.Unchanged++
			continue
		}

		if _, err := s.relationshipRepo.Create(order, nil, models.ReasonAutoMatch); err != nil {
			if errors.Is(err, repository.ErrDuplicateActiveRelationship) {
				report.Failures = append(report.Failures, ScanFailure{OrderNumber: order.OrderNumber, Error: err.Error()})
				continue
			}
			return report, fmt.Errorf("order %s create failed: %w", order.OrderNumber, err)
		}
		report.Created++
		s.invalidateBucket(order.DateRequired)
	}

	// Match drawings to relationships by extracted order number.
	for _, pdf := range pdfs {
		if pdf.OrderNumber == "" {
			report.Unmatched = append(report.Unmatched, pdf)
			continue
		}

		rel, err := s.relationshipRepo.FindByOrderNumber(pdf.OrderNumber)
		if err != nil {
			return report, fmt.Errorf("pdf %s lookup failed: %w", pdf.Path, err)
		}

		switch {
		case rel == nil:
			// Drawing arrived ahead of the export. Create a relationship
			// carrying only the order number; the order pass of the next
			// scan backfills the export fields.
			order := models.OrderRecord{OrderNumber: pdf.OrderNumber}
			path := pdf.Path
			created, err := s.relationshipRepo.Create(order, &path, models.ReasonAutoMatch)
			if err != nil {
				if errors.Is(err, repository.ErrDuplicateActiveRelationship) {
					report.Failures = append(report.Failures, ScanFailure{OrderNumber: pdf.OrderNumber, PDFPath: pdf.Path, Error: err.Error()})
					continue
				}
				return report, fmt.Errorf("pdf %s create failed: %w", pdf.Path, err)
			}
			report.Created++
			s.invalidateBucket(created.DateRequired)

		case rel.PDFPath != nil && *rel.PDFPath == pdf.Path:
			report.Unchanged++

		default:
			// A processed relationship may still receive a newer drawing; a
			// reprint supersedes the archived one. The auto_match reason
			// keeps those attachments distinguishable from manual ones.
			updated, err := s.relationshipRepo.AttachPDF(rel.ID, pdf.Path, models.ReasonAutoMatch)
			if err != nil {
				if errors.Is(err, repository.ErrRelationshipNotFound) {
					report.Failures = append(report.Failures, ScanFailure{OrderNumber: pdf.OrderNumber, PDFPath: pdf.Path, Error: err.Error()})
					continue
				}
				return report, fmt.Errorf("pdf %s attach failed: %w", pdf.Path, err)
			}
			report.Attached++
			s.invalidateBucket(updated.DateRequired)
		}
	}

	s.logger.Printf("scan %s: created=%d attached=%d unchanged=%d unmatched=%d failures=%d",
		report.BatchID, report.Created, report.Attached, report.Unchanged, len(report.Unmatched), len(report.Failures))

	if s.cache != nil {
		if err := s.cache.SetScanReport(report.BatchID, report, time.Hour*24); err != nil {
			s.logger.Printf("scan %s: failed to cache report: %v", report.BatchID, err)
		}
	}
	return report, nil
}

// ScanAndReconcile reads the export directory and the drawing directory and
// feeds both into Reconcile. Export files are picked by extension; both the
// HTML and CSV report formats may be present at once.
func (s *reconcileService) ScanAndReconcile() (*ScanReport, error) {
	// Pull a fresh export from the BisTrack server when one is configured;
	// otherwise scan whatever is already in the export directory.
	if s.exportClient != nil {
		path, err := s.exportClient.FetchExport(s.exportDir)
		if err != nil {
			return nil, err
		}
		s.logger.Printf("fetched export %s", path)
	}

	orders, err := s.scanExports()
	if err != nil {
		return nil, err
	}

	pdfs, err := s.pdfScanner.Scan(s.pdfDir)
	if err != nil {
		return nil, err
	}

	return s.Reconcile(orders, pdfs)
}

func (s *reconcileService) scanExports() ([]models.OrderRecord, error) {
	entries, err := os.ReadDir(s.exportDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read export directory %s: %w", s.exportDir, err)
	}

	seen := make(map[string]bool)
	var orders []models.OrderRecord
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		var exportScanner scanner.ExportScanner
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".html", ".htm":
			exportScanner = s.htmlScanner
		case ".csv":
			exportScanner = s.csvScanner
		default:
			continue
		}

		records, err := exportScanner.Scan(filepath.Join(s.exportDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		for _, record := range records {
			if seen[record.OrderNumber] {
				continue // same order in both export formats
			}
			seen[record.OrderNumber] = true
			orders = append(orders, record)
		}
	}
	return orders, nil
}

// orderDetailsDiffer compares the relationship's copied export fields against
// the current export record. Dates compare by calendar day; the stored value
// may round-trip through the database in a different zone representation.
func orderDetailsDiffer(rel *models.Relationship, order models.OrderRecord) bool {
	sameDay := rel.DateRequired.UTC().Format("2006-01-02") == order.DateRequired.UTC().Format("2006-01-02")
	return !sameDay ||
		rel.Customer != order.Customer ||
		rel.JobReference != order.JobReference ||
		rel.DeliveryArea != order.DeliveryArea ||
		rel.Designer != order.Designer
}

func (s *reconcileService) invalidateBucket(dateRequired time.Time) {
	if s.cache == nil || dateRequired.IsZero() {
		return
	}
	date := dateRequired.UTC().Format("2006-01-02")
	if err := s.cache.InvalidateDayBucket(date); err != nil {
		s.logger.Printf("failed to invalidate bucket cache for %s: %v", date, err)
	}
}
