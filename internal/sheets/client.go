// Package sheets is a thin wrapper over the Google Sheets v4 API for the
// two operations the ingestion service needs: provisioning a sheet's header
// row and appending data rows.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// RemoteError is a non-2xx response from the Sheets API. Message carries the
// upstream error message when one could be parsed, else the HTTP status.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("sheets api: %s", e.Message)
	}
	return fmt.Sprintf("sheets api: %d: %s", e.Status, e.Message)
}

// Client performs authenticated calls against a single spreadsheet. It never
// retries; retry policy belongs to whatever wraps the service.
type Client struct {
	svc           *sheetsapi.Service
	spreadsheetID string

	locks keyedMutex
}

// NewClient wraps an authenticated Sheets service for the given spreadsheet.
func NewClient(svc *sheetsapi.Service, spreadsheetID string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID}
}

// Append appends one row to the named sheet with INSERT_ROWS semantics and
// returns the updated range reported by the API.
func (c *Client) Append(ctx context.Context, sheetName string, columns []string, row []string) (string, error) {
	cells := make([]any, len(row))
	for i, v := range row {
		cells[i] = v
	}

	target := fmt.Sprintf("%s!A:%s", sheetName, columnLetter(len(columns)))
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, target, &sheetsapi.ValueRange{
		Values: [][]any{cells},
	}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", remoteError(err)
	}

	if resp.Updates != nil {
		return resp.Updates.UpdatedRange, nil
	}
	return target, nil
}

// remoteError converts a Sheets API failure into a *RemoteError, preferring
// the structured error message and falling back to the HTTP status.
func remoteError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.Code)
		}
		return &RemoteError{Status: apiErr.Code, Message: msg}
	}
	return &RemoteError{Message: err.Error()}
}

// columnLetter converts a 1-based column count to its A1-notation letter:
// 1 -> A, 26 -> Z, 27 -> AA.
func columnLetter(n int) string {
	letters := ""
	for n > 0 {
		n--
		letters = string(rune('A'+n%26)) + letters
		n /= 26
	}
	return letters
}
