package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the textual date format used in every store and on the wire.
const DateLayout = "2006-01-02"

// ColumnCount is the fixed width of a stored record row.
const ColumnCount = 4

// ErrInvalidRecord indicates a record violates the non-negative field rules or
// a stored row could not be decoded.
var ErrInvalidRecord = errors.New("invalid record")

// Record is one farm diary entry. Records are immutable once appended.
type Record struct {
	Date         time.Time
	EggCount     int
	FeedCost     decimal.Decimal
	MedicineNote string
}

// Table is the content of a store: the fixed column labels and every record
// in insertion order.
type Table struct {
	Columns []string `json:"columns"`
	Records []Record `json:"records"`
}

// Validate checks the numeric fields are non-negative and the date is set.
func (r Record) Validate() error {
	switch {
	case r.Date.IsZero():
		return fmt.Errorf("%w: date is required", ErrInvalidRecord)
	case r.EggCount < 0:
		return fmt.Errorf("%w: egg count must not be negative", ErrInvalidRecord)
	case r.FeedCost.IsNegative():
		return fmt.Errorf("%w: feed cost must not be negative", ErrInvalidRecord)
	}
	return nil
}

// Row serializes the record into the four positional cells
// [date, eggCount, feedCost, medicineNote].
func (r Record) Row() []string {
	return []string{
		r.Date.Format(DateLayout),
		strconv.Itoa(r.EggCount),
		r.FeedCost.String(),
		r.MedicineNote,
	}
}

// ParseRow decodes a stored row. Missing trailing cells are treated as empty,
// so a row without a medicine note is accepted. The date and numeric cells
// are trimmed; the note is returned exactly as stored.
func ParseRow(row []string) (Record, error) {
	if len(row) < 2 {
		return Record{}, fmt.Errorf("%w: expected %d cells, got %d", ErrInvalidRecord, ColumnCount, len(row))
	}

	raw := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	cell := func(i int) string { return strings.TrimSpace(raw(i)) }

	date, err := ParseDate(cell(0))
	if err != nil {
		return Record{}, fmt.Errorf("%w: date %q: %v", ErrInvalidRecord, cell(0), err)
	}

	eggs, err := strconv.Atoi(cell(1))
	if err != nil {
		return Record{}, fmt.Errorf("%w: egg count %q: %v", ErrInvalidRecord, cell(1), err)
	}

	cost := decimal.Zero
	if raw := cell(2); raw != "" {
		cost, err = decimal.NewFromString(raw)
		if err != nil {
			return Record{}, fmt.Errorf("%w: feed cost %q: %v", ErrInvalidRecord, raw, err)
		}
	}

	record := Record{Date: date, EggCount: eggs, FeedCost: cost, MedicineNote: raw(3)}
	if err := record.Validate(); err != nil {
		return Record{}, err
	}
	return record, nil
}

// ParseDate parses a YYYY-MM-DD date. A timestamp whose date part is
// followed by 'T' or a space is cut down to the date.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	if n := len(DateLayout); len(value) > n && (value[n] == 'T' || value[n] == ' ') {
		value = value[:n]
	}
	return time.Parse(DateLayout, value)
}

type recordJSON struct {
	Date         string          `json:"date"`
	EggCount     int             `json:"eggCount"`
	FeedCost     decimal.Decimal `json:"feedCost"`
	MedicineNote string          `json:"medicineNote"`
}

// MarshalJSON renders the date as YYYY-MM-DD.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		Date:         r.Date.Format(DateLayout),
		EggCount:     r.EggCount,
		FeedCost:     r.FeedCost,
		MedicineNote: r.MedicineNote,
	})
}

// UnmarshalJSON accepts the shape produced by MarshalJSON. feedCost may be a
// JSON number or a quoted decimal.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	date, err := ParseDate(raw.Date)
	if err != nil {
		return fmt.Errorf("%w: date %q: %v", ErrInvalidRecord, raw.Date, err)
	}

	*r = Record{
		Date:         date,
		EggCount:     raw.EggCount,
		FeedCost:     raw.FeedCost,
		MedicineNote: raw.MedicineNote,
	}
	return nil
}
