package diary

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/farmdiary/internal/domain/models"
)

// Form field names, shared by the HTML form and the JSON API.
const (
	FieldDate         = "date"
	FieldEggCount     = "eggCount"
	FieldFeedCost     = "feedCost"
	FieldMedicineNote = "medicineNote"
)

// Form carries the raw user input of one submission.
type Form struct {
	Date         string `form:"date" json:"date"`
	EggCount     string `form:"eggCount" json:"eggCount"`
	FeedCost     string `form:"feedCost" json:"feedCost"`
	MedicineNote string `form:"medicineNote" json:"medicineNote"`
}

// FieldErrors maps a field name to a message key understood by models.Language.T.
type FieldErrors map[string]string

// Parse coerces the raw input into a Record. Empty numeric fields count as
// zero, matching the stepper widgets that start at 0. Negative numbers are
// rejected here and never reach a store.
func (f Form) Parse() (models.Record, FieldErrors) {
	errs := FieldErrors{}
	var record models.Record

	date, err := models.ParseDate(f.Date)
	if err != nil {
		errs[FieldDate] = "date_required"
	}
	record.Date = date

	if raw := strings.TrimSpace(f.EggCount); raw != "" {
		eggs, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			errs[FieldEggCount] = "not_integer"
		case eggs < 0:
			errs[FieldEggCount] = "negative"
		default:
			record.EggCount = eggs
		}
	}

	record.FeedCost = decimal.Zero
	if raw := strings.TrimSpace(f.FeedCost); raw != "" {
		cost, err := decimal.NewFromString(raw)
		switch {
		case err != nil:
			errs[FieldFeedCost] = "not_number"
		case cost.IsNegative():
			errs[FieldFeedCost] = "negative"
		default:
			record.FeedCost = cost
		}
	}

	record.MedicineNote = normalizeNote(f.MedicineNote)

	if len(errs) > 0 {
		return models.Record{}, errs
	}
	return record, nil
}

// FormFromRecord renders a record back into form values.
func FormFromRecord(r models.Record) Form {
	return Form{
		Date:         r.Date.Format(models.DateLayout),
		EggCount:     strconv.Itoa(r.EggCount),
		FeedCost:     r.FeedCost.String(),
		MedicineNote: r.MedicineNote,
	}
}

// normalizeNote keeps the note as entered apart from line endings: browsers
// submit textarea breaks as CRLF, which are stored as LF.
func normalizeNote(note string) string {
	return strings.ReplaceAll(note, "\r\n", "\n")
}
