package model

import "time"

// Sync statuses recorded in the audit trail.
const (
	StatusSuccess = "Success"
	StatusError   = "Error"
)

// FormSubmission is the inbound request body: a form-type identifier and the
// arbitrary payload produced by the website's form layer. Nothing beyond
// "valid JSON object" can be assumed about Data.
type FormSubmission struct {
	TableName string         `json:"tableName"`
	Data      map[string]any `json:"data"`
}

// SyncLogEntry is the append-only audit record written once per ingestion
// attempt. Entries are never updated after creation.
type SyncLogEntry struct {
	ID            string    `json:"id" dynamodbav:"id"`
	TableName     string    `json:"table_name" dynamodbav:"table_name"`
	SheetName     string    `json:"sheet_name" dynamodbav:"sheet_name"`
	RowCount      int       `json:"row_count" dynamodbav:"row_count"`
	Status        string    `json:"status" dynamodbav:"status"`
	ErrorMessage  string    `json:"error_message,omitempty" dynamodbav:"error_message,omitempty"`
	SyncTimestamp time.Time `json:"sync_timestamp" dynamodbav:"sync_timestamp"`
}
