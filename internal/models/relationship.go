package models

import (
	"time"

	"gorm.io/gorm"
)

// Relationship binds an order number to its current shop drawing PDF.
// PDFPath is nil while no drawing has been matched. A superseded
// relationship is soft-deleted, never removed; its history stays queryable.
type Relationship struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	OrderNumber  string         `json:"order_number" gorm:"index;not null"`
	PDFPath      *string        `json:"pdf_path"`
	Processed    bool           `json:"processed" gorm:"default:false"`
	Customer     string         `json:"customer"`
	JobReference string         `json:"job_reference"`
	DeliveryArea string         `json:"delivery_area"`
	Designer     string         `json:"designer"`
	DateRequired time.Time      `json:"date_required" gorm:"type:date;index"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// PDFChangeRecord is one entry in a relationship's append-only audit trail.
// Timestamps are strictly increasing within a relationship, and OldPDFPath of
// each record equals NewPDFPath of the one before it, so replaying the
// history reproduces the current PDFPath.
type PDFChangeRecord struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	RelationshipID uint      `json:"relationship_id" gorm:"not null;index"`
	Action         string    `json:"action" gorm:"not null"`
	OldPDFPath     *string   `json:"old_pdf_path"`
	NewPDFPath     *string   `json:"new_pdf_path"`
	Reason         string    `json:"reason"`
	Timestamp      time.Time `json:"timestamp" gorm:"not null;index"`
}

func (PDFChangeRecord) TableName() string {
	return "pdf_change_history"
}

type ChangeAction string

const (
	ActionAttach      ChangeAction = "attach"
	ActionReplace     ChangeAction = "replace"
	ActionClear       ChangeAction = "clear"
	ActionArchive     ChangeAction = "archive"
	ActionProcessed   ChangeAction = "processed"
	ActionUnprocessed ChangeAction = "unprocessed"
)

type ChangeReason string

const (
	ReasonAutoMatch        ChangeReason = "auto_match"
	ReasonManualAttachment ChangeReason = "manual_attachment"
	// ReasonLegacyUnknown appears only in rows written before reason
	// classification existed; migrations rewrite it to manual_attachment.
	ReasonLegacyUnknown ChangeReason = "unknown"
)
