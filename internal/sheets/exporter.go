// Package sheets appends newly created ledger transactions to a Google
// Sheets worksheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"paydo/internal/core"
	"paydo/internal/jalali"
)

type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
}

// Exporter writes one row per created transaction.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Header is the row layout written by the exporter.
var Header = []string{"ID", "Date", "Type", "Title", "Amount", "Tags", "Account", "Target account"}

// NewExporter authenticates with service account credentials. Extra options
// are passed to the Sheets client after the credentials.
func NewExporter(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Exporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if cfg.SheetName == "" {
		cfg.SheetName = "Transactions"
	}

	var base []goption.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		base = append(base, goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		base = append(base, goption.WithCredentialsFile(cfg.CredentialsFile))
	}
	base = append(base, goption.WithScopes(gsheet.SpreadsheetsScope))

	svc, err := gsheet.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets exporter ready", "sheet", cfg.SheetName)
	return &Exporter{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheetName: cfg.SheetName}, nil
}

func (e *Exporter) Name() string { return "sheets" }

// Handle exports created transactions and ignores every other event.
func (e *Exporter) Handle(ctx context.Context, ev core.LedgerEvent) error {
	if ev.Kind != core.EventTransactionCreated {
		return nil
	}
	return e.Append(ctx, ev.Transactions)
}

// Append writes one row per transaction whose ID is not in column A yet, so
// a redelivered event does not duplicate rows.
func (e *Exporter) Append(ctx context.Context, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	seen, err := e.exportedIDs(ctx)
	if err != nil {
		return err
	}

	vr := &gsheet.ValueRange{}
	for _, t := range txs {
		if seen[fmt.Sprint(t.ID)] {
			continue
		}
		vr.Values = append(vr.Values, Row(t))
	}
	if len(vr.Values) == 0 {
		slog.InfoContext(ctx, "Transactions already in sheet, skipping append", "count", len(txs), "sheet", e.sheetName)
		return nil
	}

	rng := fmt.Sprintf("%s!A:H", e.sheetName)
	_, err = e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append rows: %w", err)
	}
	slog.InfoContext(ctx, "Appended transactions to sheet", "count", len(vr.Values), "sheet", e.sheetName)
	return nil
}

// exportedIDs reads the ID column of the sheet.
func (e *Exporter) exportedIDs(ctx context.Context) (map[string]bool, error) {
	resp, err := e.svc.Spreadsheets.Values.Get(e.spreadsheetID, fmt.Sprintf("%s!A:A", e.sheetName)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read exported ids: %w", err)
	}
	ids := make(map[string]bool, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) > 0 {
			ids[fmt.Sprint(row[0])] = true
		}
	}
	return ids, nil
}

// Row renders t in Header order. Amounts stay numeric so the sheet can sum
// them.
func Row(t core.Transaction) []interface{} {
	target := ""
	if t.TargetAccountID != nil {
		target = fmt.Sprint(*t.TargetAccountID)
	}
	return []interface{}{
		fmt.Sprint(t.ID),
		jalali.NormalizeDigits(t.Date),
		string(t.Type),
		t.Title,
		t.Amount,
		strings.Join(t.Tags, " "),
		fmt.Sprint(t.AccountID),
		target,
	}
}
