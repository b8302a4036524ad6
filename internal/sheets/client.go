package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Client implements SheetsAPI on top of the Google Sheets v4 service
type Client struct {
	service *sheets.Service
}

// NewClient creates a Sheets client from a service account credentials file
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	service, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{service: service}, nil
}

// A1 builds a range such as 'War History - ABC'!A1:J1, quoting the sheet title
func A1(title, cells string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'!" + cells
}

func (c *Client) EnsureSheet(ctx context.Context, spreadsheetID, title string) (bool, error) {
	spreadsheet, err := c.service.Spreadsheets.Get(spreadsheetID).
		Fields(googleapi.Field("sheets.properties.title")).
		Context(ctx).
		Do()
	if err != nil {
		return false, apiError("get spreadsheet", err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == title {
			return false, nil
		}
	}

	batchUpdate := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: title,
					GridProperties: &sheets.GridProperties{
						FrozenRowCount: 1,
					},
				},
			},
		}},
	}
	if _, err := c.service.Spreadsheets.BatchUpdate(spreadsheetID, batchUpdate).Context(ctx).Do(); err != nil {
		return false, apiError("add sheet "+title, err)
	}
	return true, nil
}

func (c *Client) ReadRange(ctx context.Context, spreadsheetID, a1 string) ([][]interface{}, error) {
	resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, a1).Context(ctx).Do()
	if err != nil {
		return nil, apiError("read "+a1, err)
	}
	return resp.Values, nil
}

// WriteRange uses USER_ENTERED so timestamps and numbers are parsed by Sheets
func (c *Client) WriteRange(ctx context.Context, spreadsheetID, a1 string, values [][]interface{}) error {
	_, err := c.service.Spreadsheets.Values.Update(spreadsheetID, a1, &sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return apiError("write "+a1, err)
	}
	return nil
}

func (c *Client) AppendRows(ctx context.Context, spreadsheetID, a1 string, rows [][]interface{}) error {
	_, err := c.service.Spreadsheets.Values.Append(spreadsheetID, a1, &sheets.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return apiError("append to "+a1, err)
	}
	return nil
}

// apiError keeps the HTTP status of Google API failures in the message
func apiError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return fmt.Errorf("failed to %s (HTTP %d): %w", op, gerr.Code, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
