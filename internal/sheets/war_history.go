package sheets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"clan_war_bot/internal/app"

	"github.com/rs/zerolog/log"
)

// WarHistoryWriter appends one row per war snapshot to a per-clan history sheet
type WarHistoryWriter struct {
	api           SheetsAPI
	spreadsheetID string

	mutex   sync.Mutex
	ensured map[string]bool
}

// NewWarHistoryWriter creates a writer for the given spreadsheet
func NewWarHistoryWriter(api SheetsAPI, spreadsheetID string) *WarHistoryWriter {
	return &WarHistoryWriter{
		api:           api,
		spreadsheetID: spreadsheetID,
		ensured:       make(map[string]bool),
	}
}

// HistorySheetName returns the sheet a clan's history is written to
func HistorySheetName(clanTag string) string {
	return fmt.Sprintf("War History - %s", clanTag)
}

// AppendWarSnapshot records snapshot as a new row, creating the sheet on first use
func (w *WarHistoryWriter) AppendWarSnapshot(ctx context.Context, snapshot app.WarSnapshot) error {
	sheetName, err := w.ensureHistorySheet(ctx, snapshot.ClanTag)
	if err != nil {
		return err
	}

	row := [][]interface{}{historyRow(snapshot)}
	if err := w.api.AppendRows(ctx, w.spreadsheetID, A1(sheetName, "A:J"), row); err != nil {
		return fmt.Errorf("failed to append war history row: %w", err)
	}

	log.Debug().
		Str("sheet_name", sheetName).
		Str("clan_tag", snapshot.ClanTag).
		Int("expected_decks", snapshot.ExpectedDecks).
		Msg("Appended war history row")

	return nil
}

func (w *WarHistoryWriter) ensureHistorySheet(ctx context.Context, clanTag string) (string, error) {
	sheetName := HistorySheetName(clanTag)

	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.ensured[sheetName] {
		return sheetName, nil
	}

	created, err := w.api.EnsureSheet(ctx, w.spreadsheetID, sheetName)
	if err != nil {
		return "", fmt.Errorf("failed to ensure history sheet: %w", err)
	}
	if created {
		log.Info().
			Str("sheet_name", sheetName).
			Str("clan_tag", clanTag).
			Msg("Created war history sheet")
	}

	// a sheet created by hand may still lack headers
	existing, err := w.api.ReadRange(ctx, w.spreadsheetID, A1(sheetName, "A1:J1"))
	if err != nil {
		return "", fmt.Errorf("failed to read history headers: %w", err)
	}
	if len(existing) == 0 || len(existing[0]) == 0 {
		if err := w.api.WriteRange(ctx, w.spreadsheetID, A1(sheetName, "A1"), historyHeaders()); err != nil {
			return "", fmt.Errorf("failed to write history headers: %w", err)
		}
	}

	w.ensured[sheetName] = true
	return sheetName, nil
}

func historyHeaders() [][]interface{} {
	return [][]interface{}{{
		"Taken At",
		"Clan Tag",
		"Clan Name",
		"Period",
		"State",
		"Expected Decks",
		"Participants",
		"Active",
		"Decks Used",
		"Completion",
	}}
}

func historyRow(snapshot app.WarSnapshot) []interface{} {
	active := 0
	decksUsed := 0
	var completionSum float64
	applicable := 0
	for _, p := range snapshot.Participants {
		if p.DecksUsed > 0 {
			active++
		}
		decksUsed += p.DecksUsed
		if p.Applicable {
			completionSum += p.Completion
			applicable++
		}
	}

	completion := "n/a"
	if applicable > 0 {
		completion = fmt.Sprintf("%.1f%%", 100*completionSum/float64(applicable))
	}

	return []interface{}{
		snapshot.TakenAt.UTC().Format(time.RFC3339),
		snapshot.ClanTag,
		snapshot.ClanName,
		snapshot.PeriodType,
		snapshot.State,
		snapshot.ExpectedDecks,
		len(snapshot.Participants),
		active,
		decksUsed,
		completion,
	}
}
