package models

import "time"

// ============================================================
// Report Journal Entry
// ============================================================

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

type ReportEntry struct {
	ID        string    `json:"id"`
	RefID     string    `json:"ref_id"`
	Project   string    `json:"project"`
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
