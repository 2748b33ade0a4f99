package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/arunvkumar99/atmfranchiseindia-sub001/internal/audit"
	"github.com/arunvkumar99/atmfranchiseindia-sub001/internal/model"
	"github.com/arunvkumar99/atmfranchiseindia-sub001/internal/sheets"
)

// fakeSheetWriter records provisioning and append calls.
type fakeSheetWriter struct {
	ensured   []string
	appended  map[string][][]string
	ensureErr error
	appendErr error
}

func newFakeSheetWriter() *fakeSheetWriter {
	return &fakeSheetWriter{appended: map[string][][]string{}}
}

func (f *fakeSheetWriter) EnsureHeaders(_ context.Context, sheetName string, _ []string) error {
	if f.ensureErr != nil {
		return f.ensureErr
	}
	f.ensured = append(f.ensured, sheetName)
	return nil
}

func (f *fakeSheetWriter) Append(_ context.Context, sheetName string, columns []string, row []string) (string, error) {
	if f.appendErr != nil {
		return "", f.appendErr
	}
	f.appended[sheetName] = append(f.appended[sheetName], row)
	return sheetName + "!A2:J2", nil
}

func newTestService(writer *fakeSheetWriter) (*Service, *audit.Logger) {
	logger := audit.NewLogger(nil, "SheetSyncLog")
	service := NewService(writer, logger)
	service.now = func() time.Time { return time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC) }
	return service, logger
}

func TestIngest_MappedFormType(t *testing.T) {
	writer := newFakeSheetWriter()
	service, logger := newTestService(writer)

	result, err := service.Ingest(context.Background(), "contact_submissions", map[string]any{
		"name": "Asha", "email": "a@x.com", "phone": "9999999999", "subject": "Hi", "message": "Test",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.SheetName != "Contact Submissions" {
		t.Errorf("sheet name = %q", result.SheetName)
	}
	if result.ColumnsWritten != 10 {
		t.Errorf("columns written = %d, want 10", result.ColumnsWritten)
	}

	rows := writer.appended["Contact Submissions"]
	if len(rows) != 1 {
		t.Fatalf("expected 1 appended row, got %d", len(rows))
	}
	if rows[0][1] != "Asha" || rows[0][2] != "a@x.com" {
		t.Errorf("unexpected row %v", rows[0])
	}
	if len(rows[0]) != 10 {
		t.Errorf("row length = %d, want 10", len(rows[0]))
	}

	entries := logger.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	if entries[0].Status != model.StatusSuccess || entries[0].RowCount != 1 {
		t.Errorf("unexpected audit entry %+v", entries[0])
	}
}

func TestIngest_UnmappedFormTypeUsesFallback(t *testing.T) {
	writer := newFakeSheetWriter()
	service, _ := newTestService(writer)

	data := map[string]any{"field": "value"}
	result, err := service.Ingest(context.Background(), "unknown_form_type", data)
	if err != nil {
		t.Fatalf("fallback path must not fail: %v", err)
	}
	if result.SheetName != "Unknown Form Type" {
		t.Errorf("sheet name = %q", result.SheetName)
	}
	if result.ColumnsWritten != 2 {
		t.Errorf("columns written = %d, want 2", result.ColumnsWritten)
	}

	rows := writer.appended["Unknown Form Type"]
	if len(rows) != 1 {
		t.Fatalf("expected 1 appended row, got %d", len(rows))
	}
	row := rows[0]
	if len(row) != 2 {
		t.Fatalf("fallback row length = %d, want 2", len(row))
	}
	if row[0] != "2024-06-01T10:30:00Z" {
		t.Errorf("fallback timestamp = %q", row[0])
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(row[1]), &decoded); err != nil {
		t.Fatalf("fallback cell is not JSON: %v", err)
	}
	if decoded["field"] != "value" {
		t.Errorf("fallback payload = %v", decoded)
	}
}

func TestIngest_AppendFailureIsRecorded(t *testing.T) {
	writer := newFakeSheetWriter()
	writer.appendErr = &sheets.RemoteError{Status: http.StatusForbidden, Message: "The caller does not have permission"}
	service, logger := newTestService(writer)

	_, err := service.Ingest(context.Background(), "contact_submissions", map[string]any{"name": "Asha"})
	if err == nil {
		t.Fatal("expected error")
	}

	var remote *sheets.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected wrapped *RemoteError, got %T", err)
	}

	entries := logger.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Status != model.StatusError {
		t.Errorf("status = %q, want Error", entry.Status)
	}
	if entry.RowCount != 0 {
		t.Errorf("row count = %d, want 0", entry.RowCount)
	}
	if !strings.Contains(entry.ErrorMessage, "does not have permission") {
		t.Errorf("error message = %q", entry.ErrorMessage)
	}
}

func TestIngest_ProvisioningFailureIsRecorded(t *testing.T) {
	writer := newFakeSheetWriter()
	writer.ensureErr = &sheets.RemoteError{Status: http.StatusInternalServerError, Message: "backend error"}
	service, logger := newTestService(writer)

	_, err := service.Ingest(context.Background(), "contact_submissions", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(writer.appended) != 0 {
		t.Error("append must not run when provisioning fails")
	}
	if entries := logger.Entries(); len(entries) != 1 || entries[0].Status != model.StatusError {
		t.Errorf("expected a single Error audit entry, got %v", entries)
	}
}

type countingRecorder struct {
	calls int
}

func (c *countingRecorder) Record(_ context.Context, _ model.SyncLogEntry) {
	c.calls++
}

func TestIngest_AuditRunsAfterPrimaryEffect(t *testing.T) {
	writer := newFakeSheetWriter()
	recorder := &countingRecorder{}
	service := NewService(writer, recorder)
	service.now = time.Now

	result, err := service.Ingest(context.Background(), "contact_submissions", map[string]any{"name": "A"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("expected result")
	}
	if recorder.calls != 1 {
		t.Errorf("expected exactly 1 audit record, got %d", recorder.calls)
	}
}
