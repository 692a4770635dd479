package scanner

import (
	"fmt"
	"strings"
	"time"

	"drawing_tracker/internal/models"
)

// ExportScanner reads one BisTrack export file into order records. The
// export is regenerated on every scan, so scanners hold no state between
// calls.
type ExportScanner interface {
	Scan(path string) ([]models.OrderRecord, error)
}

// BisTrack writes UK-format dates; older exports used ISO. Try both.
var dateLayouts = []string{"02/01/2006", "2/1/2006", "2006-01-02"}

func parseDateRequired(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date value %q", value)
}

// column header aliases seen across BisTrack report versions
var columnAliases = map[string]string{
	"order no":      "order_number",
	"order no.":     "order_number",
	"order number":  "order_number",
	"customer":      "customer",
	"customer name": "customer",
	"job ref":       "job_reference",
	"job reference": "job_reference",
	"area":          "delivery_area",
	"delivery area": "delivery_area",
	"designer":      "designer",
	"date required": "date_required",
	"required":      "date_required",
}

func normalizeHeader(header string) string {
	return columnAliases[strings.ToLower(strings.TrimSpace(header))]
}

// buildRecord maps one row of cell values, keyed by normalized column name,
// into an order record. Rows without an order number are skipped by callers;
// a bad date is an error because the calendar view cannot place the order.
func buildRecord(cells map[string]string) (models.OrderRecord, error) {
	record := models.OrderRecord{
		OrderNumber:  strings.TrimSpace(cells["order_number"]),
		Customer:     strings.TrimSpace(cells["customer"]),
		JobReference: strings.TrimSpace(cells["job_reference"]),
		DeliveryArea: strings.TrimSpace(cells["delivery_area"]),
		Designer:     strings.TrimSpace(cells["designer"]),
	}

	date, err := parseDateRequired(cells["date_required"])
	if err != nil {
		return record, fmt.Errorf("order %s: %w", record.OrderNumber, err)
	}
	record.DateRequired = date
	return record, nil
}
