package sheets

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmdiary/internal/domain/models"
)

// RecordStore keeps diary records in the first worksheet of a spreadsheet,
// one row per record under a header row.
type RecordStore struct {
	repo    Repository
	columns []string
	logger  *zap.Logger
}

// NewRecordStore wraps the repository and writes the header row when the
// worksheet is still empty.
func NewRecordStore(ctx context.Context, repo Repository, columns []string, logger *zap.Logger) (*RecordStore, error) {
	if len(columns) != models.ColumnCount {
		return nil, fmt.Errorf("expected %d column labels, got %d", models.ColumnCount, len(columns))
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rows, err := repo.ReadRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("inspect worksheet: %w", err)
	}

	if len(rows) == 0 {
		header := make([]interface{}, len(columns))
		for i, c := range columns {
			header[i] = c
		}
		if err := repo.WriteRow(ctx, header); err != nil {
			return nil, fmt.Errorf("write header row: %w", err)
		}
		logger.Info("header row written to empty worksheet")
	}

	return &RecordStore{
		repo:    repo,
		columns: append([]string(nil), columns...),
		logger:  logger,
	}, nil
}

// Load returns every readable record in sheet order. The header row and rows
// that cannot be decoded are skipped.
func (s *RecordStore) Load(ctx context.Context) (models.Table, error) {
	rows, err := s.repo.ReadRows(ctx)
	if err != nil {
		return models.Table{}, fmt.Errorf("load records: %w", err)
	}

	table := models.Table{Columns: append([]string(nil), s.columns...), Records: []models.Record{}}
	for i, row := range rows {
		record, err := models.ParseRow(cellStrings(row))
		if err != nil {
			if i > 0 {
				s.logger.Warn("skip unreadable sheet row", zap.Int("row", i+1), zap.Error(err))
			}
			continue
		}
		table.Records = append(table.Records, record)
	}

	return table, nil
}

// Append writes the record as a single new row. A failed call leaves the
// sheet unchanged and may be retried by the caller.
func (s *RecordStore) Append(ctx context.Context, record models.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	if err := s.repo.WriteRow(ctx, recordCells(record)); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// recordCells is the sheet shape of a record: the egg count as a number, the
// date, feed cost and note as text. The cost stays text so that values beyond
// float64 precision come back unchanged.
func recordCells(r models.Record) []interface{} {
	return []interface{}{
		r.Date.Format(models.DateLayout),
		r.EggCount,
		r.FeedCost.String(),
		r.MedicineNote,
	}
}

func cellStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		switch v := cell.(type) {
		case string:
			out[i] = v
		case float64:
			out[i] = strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			out[i] = strconv.Itoa(v)
		case nil:
			out[i] = ""
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}
