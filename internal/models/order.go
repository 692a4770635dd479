package models

import "time"

// OrderRecord is one row of a BisTrack export scan. Records are rebuilt on
// every scan and never stored directly; the fields are copied onto the
// relationship when one is created.
type OrderRecord struct {
	OrderNumber  string    `json:"order_number"`
	Customer     string    `json:"customer"`
	JobReference string    `json:"job_reference"`
	DeliveryArea string    `json:"delivery_area"`
	Designer     string    `json:"designer"`
	DateRequired time.Time `json:"date_required"`
}

// DiscoveredPDF is a shop drawing found on disk, paired with the extractor's
// best-effort order number. OrderNumber is empty when extraction failed;
// such files are reported as unmatched rather than attached.
type DiscoveredPDF struct {
	Path        string `json:"path"`
	OrderNumber string `json:"order_number"`
	ExtractErr  string `json:"extract_error,omitempty"`
}
