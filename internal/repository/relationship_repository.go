package repository

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"drawing_tracker/internal/models"
)

var (
	ErrDuplicateActiveRelationship = errors.New("an active relationship already exists for this order number")
	ErrRelationshipNotFound        = errors.New("relationship not found")
)

type RelationshipRepository interface {
	FindByOrderNumber(orderNumber string) (*models.Relationship, error)
	GetByID(id uint) (*models.Relationship, error)
	Create(order models.OrderRecord, initialPDFPath *string, reason models.ChangeReason) (*models.Relationship, error)
	UpdateOrderDetails(relationshipID uint, order models.OrderRecord) (*models.Relationship, error)
	AttachPDF(relationshipID uint, newPath string, reason models.ChangeReason) (*models.Relationship, error)
	ClearPDF(relationshipID uint, reason models.ChangeReason) (*models.Relationship, error)
	ArchivePDF(relationshipID uint, archivePath *string, reason models.ChangeReason) (*models.Relationship, error)
	MarkProcessed(relationshipID uint) (*models.Relationship, error)
	UnmarkProcessed(relationshipID uint, reason models.ChangeReason) (*models.Relationship, error)
	History(relationshipID uint) ([]models.PDFChangeRecord, error)
	GetByDateRange(startDate, endDate time.Time) ([]models.Relationship, error)
	GetAll() ([]models.Relationship, error)
}

type relationshipRepository struct {
	db       *gorm.DB
	auditLog *log.Logger
}

func NewRelationshipRepository(db *gorm.DB, auditLog *log.Logger) RelationshipRepository {
	return &relationshipRepository{db: db, auditLog: auditLog}
}

// FindByOrderNumber returns the active relationship for the order number, or
// nil when there is none. Archived (soft-deleted) relationships are excluded,
// so at most one row can match.
func (r *relationshipRepository) FindByOrderNumber(orderNumber string) (*models.Relationship, error) {
	var rel models.Relationship
	err := r.db.Where("order_number = ?", orderNumber).First(&rel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rel, nil
}

// GetByID looks up a relationship including archived ones, so history stays
// reachable after retirement.
func (r *relationshipRepository) GetByID(id uint) (*models.Relationship, error) {
	var rel models.Relationship
	err := r.db.Unscoped().First(&rel, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRelationshipNotFound
		}
		return nil, err
	}
	return &rel, nil
}

func (r *relationshipRepository) Create(order models.OrderRecord, initialPDFPath *string, reason models.ChangeReason) (*models.Relationship, error) {
	rel := &models.Relationship{
		OrderNumber:  order.OrderNumber,
		PDFPath:      initialPDFPath,
		Customer:     order.Customer,
		JobReference: order.JobReference,
		DeliveryArea: order.DeliveryArea,
		Designer:     order.Designer,
		DateRequired: order.DateRequired,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Relationship
		err := tx.Where("order_number = ?", order.OrderNumber).First(&existing).Error
		if err == nil {
			return ErrDuplicateActiveRelationship
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(rel).Error; err != nil {
			return err
		}

		// A relationship born with a PDF still gets an attach record, so
		// replaying the history from a nil baseline reproduces the path.
		if initialPDFPath != nil {
			return r.appendChange(tx, rel.ID, models.ActionAttach, nil, initialPDFPath, reason)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.auditLog.Printf("relationship %d created for order %s (pdf=%v)", rel.ID, rel.OrderNumber, deref(initialPDFPath))
	return rel, nil
}

// UpdateOrderDetails copies the export record's fields onto the relationship.
// A drawing can arrive before its export row, leaving the relationship with
// only an order number; the next scan fills in the rest here. The PDF path is
// untouched, so no change record is written.
func (r *relationshipRepository) UpdateOrderDetails(relationshipID uint, order models.OrderRecord) (*models.Relationship, error) {
	var rel models.Relationship
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := r.lockRow(tx, relationshipID, &rel); err != nil {
			return err
		}

		rel.Customer = order.Customer
		rel.JobReference = order.JobReference
		rel.DeliveryArea = order.DeliveryArea
		rel.Designer = order.Designer
		rel.DateRequired = order.DateRequired
		return tx.Unscoped().Model(&rel).Updates(map[string]interface{}{
			"customer":      order.Customer,
			"job_reference": order.JobReference,
			"delivery_area": order.DeliveryArea,
			"designer":      order.Designer,
			"date_required": order.DateRequired,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	r.auditLog.Printf("relationship %d: order details refreshed from export", rel.ID)
	return &rel, nil
}

func (r *relationshipRepository) AttachPDF(relationshipID uint, newPath string, reason models.ChangeReason) (*models.Relationship, error) {
	var rel models.Relationship
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := r.lockRow(tx, relationshipID, &rel); err != nil {
			return err
		}

		action := models.ActionAttach
		if rel.PDFPath != nil {
			action = models.ActionReplace
		}
		oldPath := rel.PDFPath

		rel.PDFPath = &newPath
		if err := tx.Unscoped().Model(&rel).Update("pdf_path", newPath).Error; err != nil {
			return err
		}
		return r.appendChange(tx, rel.ID, action, oldPath, &newPath, reason)
	})
	if err != nil {
		return nil, err
	}

	r.auditLog.Printf("relationship %d: pdf attached %s (reason=%s)", rel.ID, newPath, reason)
	return &rel, nil
}

func (r *relationshipRepository) ClearPDF(relationshipID uint, reason models.ChangeReason) (*models.Relationship, error) {
	var rel models.Relationship
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := r.lockRow(tx, relationshipID, &rel); err != nil {
			return err
		}

		oldPath := rel.PDFPath
		rel.PDFPath = nil
		if err := tx.Unscoped().Model(&rel).Update("pdf_path", nil).Error; err != nil {
			return err
		}
		return r.appendChange(tx, rel.ID, models.ActionClear, oldPath, nil, reason)
	})
	if err != nil {
		return nil, err
	}

	r.auditLog.Printf("relationship %d: pdf cleared (reason=%s)", rel.ID, reason)
	return &rel, nil
}

// ArchivePDF retires a relationship. The stored path becomes the archive
// pointer (or nil when the file is gone) and the row is soft-deleted, which
// frees the order number for a successor while keeping history queryable.
func (r *relationshipRepository) ArchivePDF(relationshipID uint, archivePath *string, reason models.ChangeReason) (*models.Relationship, error) {
	var rel models.Relationship
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := r.lockRow(tx, relationshipID, &rel); err != nil {
			return err
		}

		oldPath := rel.PDFPath
		rel.PDFPath = archivePath
		if err := tx.Unscoped().Model(&rel).Update("pdf_path", archivePath).Error; err != nil {
			return err
		}
		if err := r.appendChange(tx, rel.ID, models.ActionArchive, oldPath, archivePath, reason); err != nil {
			return err
		}
		return tx.Delete(&rel).Error
	})
	if err != nil {
		return nil, err
	}

	r.auditLog.Printf("relationship %d: archived (reason=%s)", rel.ID, reason)
	return &rel, nil
}

// MarkProcessed is idempotent: marking an already-processed relationship is a
// no-op and appends nothing to the history.
func (r *relationshipRepository) MarkProcessed(relationshipID uint) (*models.Relationship, error) {
	var rel models.Relationship
	var changed bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := r.lockRow(tx, relationshipID, &rel); err != nil {
			return err
		}
		if rel.Processed {
			return nil
		}

		rel.Processed = true
		changed = true
		if err := tx.Unscoped().Model(&rel).Update("processed", true).Error; err != nil {
			return err
		}
		return r.appendChange(tx, rel.ID, models.ActionProcessed, rel.PDFPath, rel.PDFPath, "labels printed")
	})
	if err != nil {
		return nil, err
	}

	if changed {
		r.auditLog.Printf("relationship %d: marked processed", rel.ID)
	}
	return &rel, nil
}

// UnmarkProcessed reverts the processed flag. Only administrative callers may
// reach this; the handler enforces the credential check.
func (r *relationshipRepository) UnmarkProcessed(relationshipID uint, reason models.ChangeReason) (*models.Relationship, error) {
	var rel models.Relationship
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := r.lockRow(tx, relationshipID, &rel); err != nil {
			return err
		}
		if !rel.Processed {
			return nil
		}

		rel.Processed = false
		if err := tx.Unscoped().Model(&rel).Update("processed", false).Error; err != nil {
			return err
		}
		return r.appendChange(tx, rel.ID, models.ActionUnprocessed, rel.PDFPath, rel.PDFPath, reason)
	})
	if err != nil {
		return nil, err
	}

	r.auditLog.Printf("relationship %d: processed flag reverted (reason=%s)", rel.ID, reason)
	return &rel, nil
}

func (r *relationshipRepository) History(relationshipID uint) ([]models.PDFChangeRecord, error) {
	if _, err := r.GetByID(relationshipID); err != nil {
		return nil, err
	}

	var records []models.PDFChangeRecord
	err := r.db.Where("relationship_id = ?", relationshipID).
		Order("timestamp ASC, id ASC").
		Find(&records).Error
	return records, err
}

func (r *relationshipRepository) GetByDateRange(startDate, endDate time.Time) ([]models.Relationship, error) {
	var rels []models.Relationship
	err := r.db.Where("date_required BETWEEN ? AND ?", startDate, endDate).Find(&rels).Error
	return rels, err
}

func (r *relationshipRepository) GetAll() ([]models.Relationship, error) {
	var rels []models.Relationship
	err := r.db.Find(&rels).Error
	return rels, err
}

func (r *relationshipRepository) lockRow(tx *gorm.DB, id uint, dest *models.Relationship) error {
	err := tx.Unscoped().First(dest, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRelationshipNotFound
	}
	return err
}

// appendChange writes the audit record inside the caller's transaction, so
// the row update and its history entry commit or roll back together.
// Timestamps are bumped past the previous record when the clock has not
// advanced, keeping them strictly increasing per relationship.
func (r *relationshipRepository) appendChange(tx *gorm.DB, relationshipID uint, action models.ChangeAction, oldPath, newPath *string, reason models.ChangeReason) error {
	ts := time.Now()

	var last models.PDFChangeRecord
	err := tx.Where("relationship_id = ?", relationshipID).
		Order("timestamp DESC, id DESC").
		First(&last).Error
	if err == nil && !ts.After(last.Timestamp) {
		ts = last.Timestamp.Add(time.Microsecond)
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	record := models.PDFChangeRecord{
		RelationshipID: relationshipID,
		Action:         string(action),
		OldPDFPath:     oldPath,
		NewPDFPath:     newPath,
		Reason:         string(reason),
		Timestamp:      ts,
	}
	return tx.Create(&record).Error
}

func deref(s *string) string {
	if s == nil {
		return "<none>"
	}
	return *s
}
