package localfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmdiary/internal/domain/models"
)

const utf8BOM = "\ufeff"

// Store keeps records in a single UTF-8 CSV file: one header row with the
// localized column labels, then one row per record. Every append rewrites the
// whole file through a temp file and rename, so a failed append leaves the
// previous file untouched. Appends are serialized within the process; there
// is no cross-process locking.
type Store struct {
	mu        sync.Mutex
	path      string
	columns   []string
	logger    *zap.Logger
	writeFile func(path string, r io.Reader) error
}

// NewStore builds a file backed record store. The file is created on the
// first append.
func NewStore(path string, columns []string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path must not be empty")
	}
	if len(columns) != models.ColumnCount {
		return nil, fmt.Errorf("expected %d column labels, got %d", models.ColumnCount, len(columns))
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dir := filepath.Dir(path)
	if info, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("store directory %s: %w", dir, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("store directory %s is not a directory", dir)
	}

	return &Store{
		path:      path,
		columns:   append([]string(nil), columns...),
		logger:    logger,
		writeFile: atomic.WriteFile,
	}, nil
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns every readable record in file order. A missing or empty file
// yields an empty table with the configured columns. Rows that cannot be
// decoded are skipped and logged.
func (s *Store) Load(ctx context.Context) (models.Table, error) {
	if err := ctx.Err(); err != nil {
		return models.Table{}, err
	}

	rows, err := s.readRows()
	if err != nil {
		return models.Table{}, err
	}

	table := models.Table{Columns: s.Columns(), Records: []models.Record{}}
	if len(rows) == 0 {
		return table, nil
	}

	for i, row := range rows[1:] {
		record, err := models.ParseRow(row)
		if err != nil {
			s.logger.Warn("skip unreadable row", zap.Int("line", i+2), zap.Error(err))
			continue
		}
		table.Records = append(table.Records, record)
	}

	return table, nil
}

// Append adds the record after the existing rows and rewrites the file.
// Existing rows are carried over verbatim, including ones Load skips.
func (s *Store) Append(ctx context.Context, record models.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readRows()
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		rows = append(rows, s.Columns())
	}
	rows = append(rows, record.Row())

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("encode %s: %w", s.path, err)
	}

	if err := s.writeFile(s.path, &buf); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}

	s.logger.Debug("record appended", zap.String("path", s.path), zap.Int("rows", len(rows)-1))
	return nil
}

// Columns returns a copy of the header labels.
func (s *Store) Columns() []string {
	return append([]string(nil), s.columns...)
}

func (s *Store) readRows() ([][]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	data = bytes.TrimPrefix(data, []byte(utf8BOM))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return rows, nil
}
