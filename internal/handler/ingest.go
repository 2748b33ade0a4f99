// Package handler translates API Gateway requests into ingestion calls and
// ingestion outcomes into the outbound response envelopes.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/arunvkumar99/atmfranchiseindia-sub001/internal/googleauth"
	"github.com/arunvkumar99/atmfranchiseindia-sub001/internal/ingest"
	"github.com/arunvkumar99/atmfranchiseindia-sub001/internal/model"
	"github.com/arunvkumar99/atmfranchiseindia-sub001/internal/sheets"
)

// Ingestor is the ingestion pipeline, implemented by ingest.Service.
type Ingestor interface {
	Ingest(ctx context.Context, formType string, data map[string]any) (*ingest.Result, error)
}

// IngestHandler handles form submission requests.
type IngestHandler struct {
	service Ingestor
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(service Ingestor) *IngestHandler {
	return &IngestHandler{service: service}
}

// ingestResponse is the outbound success envelope.
type ingestResponse struct {
	Success        bool   `json:"success"`
	SheetName      string `json:"sheetName"`
	ColumnsWritten int    `json:"columnsWritten"`
	UpdatedRange   string `json:"updatedRange"`
}

// Ingest handles POST /ingest.
func (h *IngestHandler) Ingest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var submission model.FormSubmission
	if err := json.Unmarshal([]byte(req.Body), &submission); err != nil {
		return errorResponse(http.StatusBadRequest, "invalid request body", err.Error()), nil
	}
	if strings.TrimSpace(submission.TableName) == "" {
		return errorResponse(http.StatusBadRequest, "tableName is required", ""), nil
	}

	result, err := h.service.Ingest(ctx, submission.TableName, submission.Data)
	if err != nil {
		fmt.Printf("Ingest error for %s: %v\n", submission.TableName, err)
		message, details := describeError(err)
		return errorResponse(http.StatusInternalServerError, message, details), nil
	}

	return jsonResponse(http.StatusOK, ingestResponse{
		Success:        true,
		SheetName:      result.SheetName,
		ColumnsWritten: result.ColumnsWritten,
		UpdatedRange:   result.UpdatedRange,
	}), nil
}

// describeError maps pipeline failures onto the outbound error envelope:
// the upstream message where one was parsed, the full chain as details.
func describeError(err error) (message, details string) {
	var authErr *googleauth.AuthError
	var remoteErr *sheets.RemoteError

	switch {
	case errors.As(err, &remoteErr):
		return remoteErr.Message, err.Error()
	case errors.As(err, &authErr):
		return "spreadsheet authentication failed", err.Error()
	default:
		return "spreadsheet sync failed", err.Error()
	}
}
