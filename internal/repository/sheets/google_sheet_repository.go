package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/farmdiary/internal/config"
)

// ErrSpreadsheetNotFound indicates no spreadsheet matches the configured name or id.
var ErrSpreadsheetNotFound = errors.New("spreadsheet not found")

const (
	spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"
	recordColumns       = "A:D"
)

// Repository defines the persistence operations supported by the Google Sheets adapter.
// All operations target the first worksheet of the resolved spreadsheet.
type Repository interface {
	WriteRow(ctx context.Context, values []interface{}) error
	ReadRows(ctx context.Context) ([][]interface{}, error)
}

// GoogleSheetRepository implements the Repository interface using the official Google Sheets API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	sheetTitle    string
	logger        *zap.Logger
}

// NewGoogleSheetRepository authenticates with the configured service account
// and resolves the target spreadsheet. Failures here are fatal for the
// application: bad credentials wrap ErrInvalidCredentials, an unknown
// spreadsheet wraps ErrSpreadsheetNotFound.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := ReadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	account, jwtCfg, err := ParseServiceAccount(data, sheetsapi.SpreadsheetsScope, drive.DriveMetadataReadonlyScope)
	if err != nil {
		return nil, err
	}

	logger.Info("using service account",
		zap.String("client_email", account.ClientEmail),
		zap.String("project_id", account.ProjectID))

	// The token source outlives ctx; refreshes happen on later requests.
	tokens := jwtCfg.TokenSource(context.WithoutCancel(ctx))

	return Open(ctx, cfg.SpreadsheetName, cfg.SpreadsheetID, logger, option.WithTokenSource(tokens))
}

// Open resolves the spreadsheet (by id when given, otherwise by exact name)
// and its first worksheet using the supplied client options.
func Open(ctx context.Context, name, spreadsheetID string, logger *zap.Logger, opts ...option.ClientOption) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	if spreadsheetID == "" {
		driveService, err := drive.NewService(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize drive client: %w", err)
		}
		spreadsheetID, err = findSpreadsheetID(ctx, driveService, name, logger)
		if err != nil {
			return nil, err
		}
	}

	spreadsheet, err := service.Spreadsheets.Get(spreadsheetID).
		Fields("spreadsheetId", "properties.title", "sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(fmt.Sprintf("open spreadsheet %s", spreadsheetID), err)
	}
	if len(spreadsheet.Sheets) == 0 || spreadsheet.Sheets[0].Properties == nil {
		return nil, fmt.Errorf("%w: spreadsheet %s has no worksheets", ErrSpreadsheetNotFound, spreadsheetID)
	}

	title := spreadsheet.Sheets[0].Properties.Title
	logger.Info("spreadsheet connected",
		zap.String("spreadsheet_id", spreadsheetID),
		zap.String("worksheet", title))

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: spreadsheetID,
		sheetTitle:    title,
		logger:        logger,
	}, nil
}

// SpreadsheetID returns the resolved spreadsheet id.
func (r *GoogleSheetRepository) SpreadsheetID() string {
	return r.spreadsheetID
}

// WriteRow appends the provided values as one new row after the last row of
// the first worksheet. RAW input keeps the date cell as text.
func (r *GoogleSheetRepository) WriteRow(ctx context.Context, values []interface{}) error {
	payload := &sheetsapi.ValueRange{Values: [][]interface{}{values}}
	sheetRange := r.recordRange()

	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, sheetRange, payload).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return classify(fmt.Sprintf("append row into range %s", sheetRange), err)
	}

	r.logger.Debug("row appended to sheet", zap.String("range", sheetRange))
	return nil
}

// ReadRows fetches every row of the record columns of the first worksheet.
func (r *GoogleSheetRepository) ReadRows(ctx context.Context) ([][]interface{}, error) {
	sheetRange := r.recordRange()

	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, sheetRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(fmt.Sprintf("read range %s", sheetRange), err)
	}

	return resp.Values, nil
}

func (r *GoogleSheetRepository) recordRange() string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(r.sheetTitle, "'", "''"), recordColumns)
}

func findSpreadsheetID(ctx context.Context, service *drive.Service, name string, logger *zap.Logger) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty spreadsheet name", ErrSpreadsheetNotFound)
	}

	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), spreadsheetMimeType)

	resp, err := service.Files.List().
		Q(query).
		Fields("files(id, name)").
		OrderBy("createdTime").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		PageSize(10).
		Context(ctx).
		Do()
	if err != nil {
		return "", classify(fmt.Sprintf("find spreadsheet %q", name), err)
	}

	var matches []*drive.File
	for _, f := range resp.Files {
		if f.Name == name {
			matches = append(matches, f)
		}
	}

	if len(matches) == 0 {
		return "", fmt.Errorf("%w: no spreadsheet named %q is shared with the service account", ErrSpreadsheetNotFound, name)
	}
	if len(matches) > 1 {
		logger.Warn("several spreadsheets share the configured name, using the oldest",
			zap.String("name", name),
			zap.Int("matches", len(matches)))
	}

	return matches[0].Id, nil
}

func escapeQuery(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `'`, `\'`)
}

// classify maps Google API failures onto the package sentinels so callers can
// tell configuration problems from transient ones.
func classify(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w: %v", op, ErrInvalidCredentials, err)
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w: %v", op, ErrSpreadsheetNotFound, err)
		}
	}

	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) {
		return fmt.Errorf("%s: %w: %v", op, ErrInvalidCredentials, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
