package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	ScanStatusPending    = "pending"
	ScanStatusInProgress = "in_progress"
	ScanStatusCompleted  = "completed"
	ScanStatusFailed     = "failed"
)

// Scan is a queued scan event. Rows act as a FIFO work queue: the worker
// claims the oldest pending scan and runs it through the metadata pipeline
// to completion before picking up the next.
type Scan struct {
	bun.BaseModel `bun:"table:scans,alias:s"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Code      string    `bun:",nullzero" json:"code"`
	Status    string    `bun:",nullzero" json:"status"`
	ProcessID *string   `json:"process_id,omitempty"`
	BookID    *int      `json:"book_id,omitempty"`
	Book      *Book     `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
	Error     *string   `json:"error,omitempty"`
}
