package diary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmdiary/internal/domain/models"
)

// ErrStoreUnavailable marks a store that could not be connected at startup.
var ErrStoreUnavailable = errors.New("record store unavailable")

// Store is an append-only record backend.
type Store interface {
	Load(ctx context.Context) (models.Table, error)
	Append(ctx context.Context, record models.Record) error
}

// Status is the result of one form submission.
type Status string

const (
	StatusSaved   Status = "saved"
	StatusInvalid Status = "invalid"
	StatusFailed  Status = "failed"
)

// SubmitOutcome tells the caller what happened and which form to show next:
// a blank form after a save, the user's own input otherwise.
type SubmitOutcome struct {
	Status Status
	Record models.Record
	Form   Form
	Errors FieldErrors
	Reason string
}

// OK reports whether the record was stored.
func (o SubmitOutcome) OK() bool {
	return o.Status == StatusSaved
}

// Service is the form controller. It holds the one store handle acquired at
// startup and performs exactly one append per accepted submission.
type Service struct {
	store  Store
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires the controller to its store. loc decides what "today"
// means for the default form date.
func NewService(store Store, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store:  store,
		loc:    loc,
		logger: logger,
		now:    time.Now,
	}
}

// Today returns the current calendar date in the configured location.
func (s *Service) Today() time.Time {
	n := s.now().In(s.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

// BlankForm returns the initial form: today's date and zeroed counters.
func (s *Service) BlankForm() Form {
	return Form{
		Date:     s.Today().Format(models.DateLayout),
		EggCount: "0",
		FeedCost: "0",
	}
}

// Submit validates the input and appends it. Invalid input never reaches the
// store. On failure the input is handed back unchanged so the user can retry.
func (s *Service) Submit(ctx context.Context, form Form) SubmitOutcome {
	record, fieldErrs := form.Parse()
	if len(fieldErrs) > 0 {
		s.logger.Debug("submission rejected", zap.Any("fields", fieldErrs))
		return SubmitOutcome{Status: StatusInvalid, Form: form, Errors: fieldErrs}
	}

	if err := s.store.Append(ctx, record); err != nil {
		s.logger.Error("failed to append record",
			zap.String("date", record.Date.Format(models.DateLayout)),
			zap.Error(err))
		return SubmitOutcome{Status: StatusFailed, Form: form, Reason: err.Error()}
	}

	s.logger.Info("record saved",
		zap.String("date", record.Date.Format(models.DateLayout)),
		zap.Int("egg_count", record.EggCount),
		zap.String("feed_cost", record.FeedCost.String()))

	return SubmitOutcome{Status: StatusSaved, Record: record, Form: s.BlankForm()}
}

// Save appends an already structured record, as received by the JSON API,
// and returns the record as stored.
func (s *Service) Save(ctx context.Context, record models.Record) (models.Record, error) {
	if err := record.Validate(); err != nil {
		return models.Record{}, err
	}
	record.MedicineNote = normalizeNote(record.MedicineNote)

	if err := s.store.Append(ctx, record); err != nil {
		s.logger.Error("failed to append record", zap.Error(err))
		return models.Record{}, fmt.Errorf("append record: %w", err)
	}
	return record, nil
}

// Records loads the full table for the results view.
func (s *Service) Records(ctx context.Context) (models.Table, error) {
	table, err := s.store.Load(ctx)
	if err != nil {
		return models.Table{}, fmt.Errorf("load records: %w", err)
	}
	return table, nil
}
