// Package ingest orchestrates a single form submission's journey onto the
// destination spreadsheet: schema lookup, sheet provisioning, row formatting,
// the append call, and the audit record of the outcome.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arunvkumar99/atmfranchiseindia-sub001/internal/model"
	"github.com/arunvkumar99/atmfranchiseindia-sub001/internal/schema"
)

// SheetWriter is the spreadsheet side of ingestion, implemented by
// sheets.Client.
type SheetWriter interface {
	EnsureHeaders(ctx context.Context, sheetName string, columns []string) error
	Append(ctx context.Context, sheetName string, columns []string, row []string) (string, error)
}

// Recorder is the audit trail, implemented by audit.Logger. Recording is
// best-effort and returns nothing.
type Recorder interface {
	Record(ctx context.Context, entry model.SyncLogEntry)
}

// Result describes a successful ingestion.
type Result struct {
	SheetName      string
	ColumnsWritten int
	UpdatedRange   string
}

// Service ties the ingestion pipeline together.
type Service struct {
	sheets SheetWriter
	audit  Recorder
	now    func() time.Time
}

// NewService creates an ingestion Service.
func NewService(sheets SheetWriter, audit Recorder) *Service {
	return &Service{sheets: sheets, audit: audit, now: time.Now}
}

// Ingest writes one submission to its destination sheet and records the
// outcome. Form types without a registered mapping are not rejected: they
// land on a derived sheet as a two-column [timestamp, JSON payload] row, so
// no submission is ever silently dropped.
func (s *Service) Ingest(ctx context.Context, formType string, data map[string]any) (*Result, error) {
	now := s.now()

	var sheetName string
	var columns []string
	var row []string

	if mapping, ok := schema.Lookup(formType); ok {
		sheetName = mapping.SheetName
		columns = mapping.Columns
		row = schema.FormatRow(data, columns, now)
	} else {
		sheetName = schema.SheetNameFor(formType)
		columns = schema.FallbackColumns
		row = []string{now.UTC().Format(time.RFC3339), rawPayload(data)}
	}

	result, err := s.write(ctx, sheetName, columns, row)

	// The audit record is written strictly after the primary effect and
	// regardless of its outcome; it can never change what the caller sees.
	entry := model.SyncLogEntry{
		TableName:     formType,
		SheetName:     sheetName,
		Status:        model.StatusSuccess,
		SyncTimestamp: s.now().UTC(),
	}
	if err != nil {
		entry.Status = model.StatusError
		entry.ErrorMessage = err.Error()
	} else {
		entry.RowCount = 1
	}
	s.audit.Record(ctx, entry)

	return result, err
}

func (s *Service) write(ctx context.Context, sheetName string, columns []string, row []string) (*Result, error) {
	if err := s.sheets.EnsureHeaders(ctx, sheetName, columns); err != nil {
		return nil, fmt.Errorf("provisioning sheet %q: %w", sheetName, err)
	}

	updatedRange, err := s.sheets.Append(ctx, sheetName, columns, row)
	if err != nil {
		return nil, fmt.Errorf("appending to sheet %q: %w", sheetName, err)
	}

	return &Result{
		SheetName:      sheetName,
		ColumnsWritten: len(columns),
		UpdatedRange:   updatedRange,
	}, nil
}

// rawPayload serializes the payload for the fallback path.
func rawPayload(data map[string]any) string {
	blob, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(blob)
}
