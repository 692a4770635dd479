package models

// DailyStatusBucket is the per-day relationship count breakdown shown on the
// calendar view. Derived on demand, never persisted.
//
// A relationship counts as ready when a PDF is attached but the labels have
// not been printed, missing when no PDF is attached, and processed once the
// labels and plots have gone out.
type DailyStatusBucket struct {
	Date      string `json:"date"` // YYYY-MM-DD
	Ready     int    `json:"ready"`
	Missing   int    `json:"missing"`
	Processed int    `json:"processed"`
}
