package sheets

import (
	"context"
)

// SheetsAPI is the slice of Google Sheets the war history needs.
//
// The Google Sheets API (google.golang.org/api/sheets/v4) uses [][]interface{}
// for cell values. Keep interface{} constrained to this boundary; the rest of
// the codebase works with app.WarSnapshot.
type SheetsAPI interface {
	// EnsureSheet adds the sheet if the spreadsheet lacks it and reports whether it did
	EnsureSheet(ctx context.Context, spreadsheetID, title string) (bool, error)

	// ReadRange reads values from an A1 range
	ReadRange(ctx context.Context, spreadsheetID, a1 string) ([][]interface{}, error)

	// WriteRange overwrites values starting at an A1 range
	WriteRange(ctx context.Context, spreadsheetID, a1 string, values [][]interface{}) error

	// AppendRows appends rows after the last row with data
	AppendRows(ctx context.Context, spreadsheetID, a1 string, rows [][]interface{}) error
}
