// Package store persists one record per unique inbound PDF and carries the
// processing state shared by the pipeline stages.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

//go:generate mockgen -source=store.go -destination=store_mock.go -package=store

// Status is the persisted processing state of a document.
type Status string

const (
	StatusRegistered           Status = "document_registration_success"
	StatusExtracted            Status = "extracted"
	StatusExtractionError      Status = "extraction_error"
	StatusCompleted            Status = "completed"
	StatusDuplicate            Status = "duplicate"
	StatusProcessingError      Status = "processing_error"
	StatusCaseUnmatched        Status = "claim_case_unmatched"
	StatusMailCompletedMoved   Status = "mail_completed_moved"
	StatusMailFailedMoved      Status = "mail_failed_moved"
	StatusMailDuplicateMoved   Status = "mail_duplicate_moved"
	StatusMailExtractErrMoved  Status = "mail_extractionerror_moved"
	StatusMailUnmatchedMoved   Status = "mail_case_unmatched_moved"
)

// Settled reports whether a re-downloaded document with this status should be
// skipped instead of re-queued. The IGNORE_ALREADY_EXISTING control category
// overrides this at the controller level.
func (s Status) Settled() bool {
	switch s {
	case StatusCompleted, StatusDuplicate, StatusMailCompletedMoved, StatusMailDuplicateMoved:
		return true
	}
	return false
}

// Document is a single row of the documents table.
type Document struct {
	ID              int64          `db:"id"`
	DocHash         string         `db:"doc_hash"`
	Subfolder       string         `db:"subfolder"`
	MessageID       string         `db:"message_id"`
	MessageCategory sql.NullString `db:"message_category"`
	ControlCategory sql.NullString `db:"control_category"`
	Status          Status         `db:"doc_status"`
	Link            sql.NullString `db:"link"`
	ExtractedText   sql.NullString `db:"extracted_text"`
	OutputData      []byte         `db:"output_file"` // JSON-encoded extracted record
	LogText         sql.NullString `db:"log_file"`
	CaseID          sql.NullInt64  `db:"case_id"`
	CreatedAt       time.Time      `db:"created_at"`
	LastUpdate      sql.NullTime   `db:"last_update"`
}

// Fields maps column names to new values for partial updates.
type Fields map[string]any

// BulkRow pairs a record id with the fields to update on it.
type BulkRow struct {
	ID     int64
	Fields Fields
}

// ErrRecordNotFound is returned when no record matches the selection.
var ErrRecordNotFound = fmt.Errorf("store: record not found")

// Store defines the persistence operations used by the pipeline stages.
type Store interface {
	// CreateDocument inserts a new record and returns its id.
	CreateDocument(ctx context.Context, doc *Document) (int64, error)
	// GetDocument returns the record with the given id or ErrRecordNotFound.
	GetDocument(ctx context.Context, id int64) (*Document, error)
	// GetDocumentsBy returns all records whose column is one of values.
	GetDocumentsBy(ctx context.Context, column string, values ...any) ([]*Document, error)
	// UpdateDocument applies fields to one record and stamps last_update.
	UpdateDocument(ctx context.Context, id int64, fields Fields) error
	// UpdateDocuments applies per-row fields in one round trip and returns
	// the number of rows touched.
	UpdateDocuments(ctx context.Context, rows []BulkRow) (int64, error)
	// DeleteByHash removes every record with the given document hash and
	// returns the ids of the deleted rows.
	DeleteByHash(ctx context.Context, hash string) ([]int64, error)

	Close() error
}

// updatableColumns guards the dynamic SET clauses built from Fields.
var updatableColumns = map[string]bool{
	"subfolder":        true,
	"message_id":       true,
	"message_category": true,
	"control_category": true,
	"doc_status":       true,
	"link":             true,
	"extracted_text":   true,
	"output_file":      true,
	"log_file":         true,
	"case_id":          true,
}

func validateFields(fields Fields) error {
	if len(fields) == 0 {
		return fmt.Errorf("store: no fields to update")
	}
	for col := range fields {
		if !updatableColumns[col] {
			return fmt.Errorf("store: column %q is not updatable", col)
		}
	}
	return nil
}
