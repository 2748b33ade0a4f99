package sheets

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/api/googleapi"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// headerProbeRange reads the first row; AZ comfortably covers every
// registered column layout.
const headerProbeRange = "A1:AZ1"

// EnsureHeaders makes sure the named sheet exists and that its first row
// equals columns, creating the sheet and (re)writing formatted headers as
// needed. When the headers already match, no write is issued.
//
// Provisioning of the same sheet is serialized within the process; across
// processes, a concurrent creation losing the race is detected by the
// "already exists" error from the API and treated as success.
func (c *Client) EnsureHeaders(ctx context.Context, sheetName string, columns []string) error {
	unlock := c.locks.lock(sheetName)
	defer unlock()

	sheetID := int64(-1)

	existing, err := c.headerRow(ctx, sheetName)
	if err != nil {
		if !isMissingSheet(err) {
			return err
		}
		sheetID, err = c.addSheet(ctx, sheetName)
		if err != nil {
			return err
		}
		existing = nil
	}

	if headersEqual(existing, columns) {
		return nil
	}

	if err := c.writeHeaders(ctx, sheetName, columns); err != nil {
		return err
	}

	// The probe path never sees a numeric sheet ID; look it up rather than
	// formatting sheet 0, which is only correct for the first tab.
	if sheetID < 0 {
		sheetID, err = c.lookupSheetID(ctx, sheetName)
		if err != nil {
			return err
		}
	}

	return c.formatHeaders(ctx, sheetID, len(columns))
}

// headerRow reads row 1 of the named sheet. The returned slice is nil when
// the sheet exists but has no headers yet.
func (c *Client) headerRow(ctx context.Context, sheetName string) ([]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, sheetName+"!"+headerProbeRange).
		Context(ctx).
		Do()
	if err != nil {
		return nil, remoteError(err)
	}

	if len(resp.Values) == 0 {
		return nil, nil
	}
	row := make([]string, len(resp.Values[0]))
	for i, cell := range resp.Values[0] {
		if s, ok := cell.(string); ok {
			row[i] = s
		}
	}
	return row, nil
}

// addSheet creates a new tab and returns its sheet ID. Losing a creation
// race to another process is success: the sheet ID is looked up instead.
func (c *Client) addSheet(ctx context.Context, sheetName string) (int64, error) {
	resp, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{Title: sheetName},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		if isAlreadyExists(err) {
			return c.lookupSheetID(ctx, sheetName)
		}
		return 0, remoteError(err)
	}

	for _, reply := range resp.Replies {
		if reply.AddSheet != nil && reply.AddSheet.Properties != nil {
			return reply.AddSheet.Properties.SheetId, nil
		}
	}
	return c.lookupSheetID(ctx, sheetName)
}

// lookupSheetID resolves a tab's numeric ID by title.
func (c *Client) lookupSheetID(ctx context.Context, sheetName string) (int64, error) {
	spreadsheet, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return 0, remoteError(err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && strings.EqualFold(strings.TrimSpace(sheet.Properties.Title), strings.TrimSpace(sheetName)) {
			return sheet.Properties.SheetId, nil
		}
	}
	return 0, &RemoteError{Status: http.StatusNotFound, Message: "sheet " + sheetName + " not found in spreadsheet"}
}

func (c *Client) writeHeaders(ctx context.Context, sheetName string, columns []string) error {
	cells := make([]any, len(columns))
	for i, col := range columns {
		cells[i] = col
	}

	target := sheetName + "!A1:" + columnLetter(len(columns)) + "1"
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, target, &sheetsapi.ValueRange{
		Values: [][]any{cells},
	}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return remoteError(err)
	}
	return nil
}

// formatHeaders applies the bold white-on-blue header style to row 1 of the
// given tab.
func (c *Client) formatHeaders(ctx context.Context, sheetID int64, columnCount int) error {
	_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			RepeatCell: &sheetsapi.RepeatCellRequest{
				Range: &sheetsapi.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   int64(columnCount),
				},
				Cell: &sheetsapi.CellData{
					UserEnteredFormat: &sheetsapi.CellFormat{
						BackgroundColor: &sheetsapi.Color{Red: 0.26, Green: 0.52, Blue: 0.96},
						TextFormat: &sheetsapi.TextFormat{
							Bold:            true,
							ForegroundColor: &sheetsapi.Color{Red: 1, Green: 1, Blue: 1},
						},
					},
				},
				Fields: "userEnteredFormat(backgroundColor,textFormat)",
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return remoteError(err)
	}
	return nil
}

func headersEqual(existing, columns []string) bool {
	if len(existing) != len(columns) {
		return false
	}
	for i := range columns {
		if existing[i] != columns[i] {
			return false
		}
	}
	return true
}

// isMissingSheet reports whether a header probe failed because the tab does
// not exist. The API answers an unknown sheet name in a range with a 400
// "Unable to parse range" error.
func isMissingSheet(err error) bool {
	var remote *RemoteError
	if !errors.As(err, &remote) {
		return false
	}
	if remote.Status == http.StatusNotFound {
		return true
	}
	return remote.Status == http.StatusBadRequest && strings.Contains(remote.Message, "Unable to parse range")
}

// isAlreadyExists reports whether sheet creation lost the race to another
// writer.
func isAlreadyExists(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return strings.Contains(apiErr.Message, "already exists")
	}
	return false
}

// keyedMutex serializes work per sheet name.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
