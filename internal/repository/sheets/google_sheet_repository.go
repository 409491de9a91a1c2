package sheets

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/calftracker/internal/config"
)

var errEmptyRange = errors.New("sheet range must not be empty")

// Repository is the spreadsheet surface the feeding export writes to.
type Repository interface {
	EnsureSheet(ctx context.Context, title string) error
	AppendRows(ctx context.Context, sheetRange string, rows [][]interface{}) error
	ReadColumn(ctx context.Context, sheetRange string) ([]string, error)
}

// GoogleSheetRepository writes to one spreadsheet through the Sheets v4 API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetRepository authenticates with the service account file in cfg.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	svc, err := sheetsapi.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsPath),
		option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("init sheets client: %w", err)
	}

	return &GoogleSheetRepository{service: svc, spreadsheetID: cfg.SpreadsheetID, logger: logger}, nil
}

// EnsureSheet adds a tab named title unless the spreadsheet already has one.
func (r *GoogleSheetRepository) EnsureSheet(ctx context.Context, title string) error {
	doc, err := r.service.Spreadsheets.Get(r.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet %s: %w", r.spreadsheetID, err)
	}
	for _, s := range doc.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return nil
		}
	}

	add := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			AddSheet: &sheetsapi.AddSheetRequest{
				Properties: &sheetsapi.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := r.service.Spreadsheets.BatchUpdate(r.spreadsheetID, add).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %q: %w", title, err)
	}

	r.logger.Info("sheet tab created", zap.String("title", title))
	return nil
}

// AppendRows appends rows below the last row of sheetRange in one call.
func (r *GoogleSheetRepository) AppendRows(ctx context.Context, sheetRange string, rows [][]interface{}) error {
	if sheetRange == "" {
		return errEmptyRange
	}
	if len(rows) == 0 {
		return nil
	}

	_, err := r.service.Spreadsheets.Values.
		Append(r.spreadsheetID, sheetRange, &sheetsapi.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append %d rows to %s: %w", len(rows), sheetRange, err)
	}

	r.logger.Debug("rows appended", zap.String("range", sheetRange), zap.Int("rows", len(rows)))
	return nil
}

// ReadColumn returns the first cell of each row in sheetRange. Empty rows come
// back as "".
func (r *GoogleSheetRepository) ReadColumn(ctx context.Context, sheetRange string) ([]string, error) {
	if sheetRange == "" {
		return nil, errEmptyRange
	}

	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, sheetRange).
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheetRange, err)
	}

	cells := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 {
			cells[i] = fmt.Sprint(row[0])
		}
	}
	return cells, nil
}
