package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmdiary/internal/domain/models"
)

// RecordSource is the read side of a record store.
type RecordSource interface {
	Load(ctx context.Context) (models.Table, error)
}

// Service exposes lightweight analytics over the stored diary records.
type Service struct {
	source RecordSource
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a new reporting service instance.
func NewService(source RecordSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{source: source, logger: logger, now: time.Now}
}

// ParseMonth reads a YYYY-MM month. An empty value selects the month of now.
func ParseMonth(value string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	month, err := time.Parse(models.MonthLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("month must be YYYY-MM: %w", err)
	}
	return month, nil
}

// MonthlySummary aggregates every record dated within the calendar month of month.
func (s *Service) MonthlySummary(ctx context.Context, month time.Time) (models.MonthlySummary, error) {
	table, err := s.source.Load(ctx)
	if err != nil {
		return models.MonthlySummary{}, fmt.Errorf("load records: %w", err)
	}

	key := month.Format(models.MonthLayout)
	summary := models.MonthlySummary{
		Month:         key,
		TotalFeedCost: decimal.Zero,
		GeneratedAt:   s.now().UTC(),
	}

	medicineDays := map[string]struct{}{}
	for _, record := range table.Records {
		if record.Date.Format(models.MonthLayout) != key {
			continue
		}

		summary.Entries++
		summary.TotalEggs += record.EggCount
		summary.TotalFeedCost = summary.TotalFeedCost.Add(record.FeedCost)
		if strings.TrimSpace(record.MedicineNote) != "" {
			medicineDays[record.Date.Format(models.DateLayout)] = struct{}{}
		}
	}
	summary.MedicineDays = len(medicineDays)

	s.logger.Debug("monthly summary computed",
		zap.String("month", key),
		zap.Int("entries", summary.Entries))

	return summary, nil
}

var (
	anomalyThreshold = decimal.NewFromInt(models.AnomalyThresholdPercent)
	hundred          = decimal.NewFromInt(100)
)

// DetectAnomalies compares record with the average of the records dated in the
// AnomalyWindowDays days before it. A metric whose average is zero is never
// flagged.
func (s *Service) DetectAnomalies(ctx context.Context, record models.Record) (models.AnomalyReport, error) {
	table, err := s.source.Load(ctx)
	if err != nil {
		return models.AnomalyReport{}, fmt.Errorf("load records: %w", err)
	}

	report := models.AnomalyReport{Record: record, Recent: []models.Record{}, Deviations: []models.Deviation{}}

	day := startOfDay(record.Date)
	from := day.AddDate(0, 0, -models.AnomalyWindowDays)
	for _, r := range table.Records {
		d := startOfDay(r.Date)
		if d.Before(from) || !d.Before(day) {
			continue
		}
		report.Recent = append(report.Recent, r)
	}
	if len(report.Recent) == 0 {
		return report, nil
	}

	eggs, cost := decimal.Zero, decimal.Zero
	for _, r := range report.Recent {
		eggs = eggs.Add(decimal.NewFromInt(int64(r.EggCount)))
		cost = cost.Add(r.FeedCost)
	}
	n := decimal.NewFromInt(int64(len(report.Recent)))

	if d, ok := deviation(models.MetricEggCount, decimal.NewFromInt(int64(record.EggCount)), eggs.Div(n)); ok {
		report.Deviations = append(report.Deviations, d)
	}
	if d, ok := deviation(models.MetricFeedCost, record.FeedCost, cost.Div(n)); ok {
		report.Deviations = append(report.Deviations, d)
	}

	s.logger.Debug("anomaly check done",
		zap.String("date", record.Date.Format(models.DateLayout)),
		zap.Int("recent", len(report.Recent)),
		zap.Int("anomalies", len(report.Deviations)))

	return report, nil
}

func deviation(metric string, value, average decimal.Decimal) (models.Deviation, bool) {
	if average.IsZero() {
		return models.Deviation{}, false
	}
	pct := value.Sub(average).Mul(hundred).Div(average)
	if pct.Abs().LessThan(anomalyThreshold) {
		return models.Deviation{}, false
	}
	return models.Deviation{
		Metric:  metric,
		Value:   value,
		Average: average.Round(2),
		Percent: pct.Round(2),
	}, true
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Describe renders a one-line human summary, used in logs and reports.
func Describe(summary models.MonthlySummary) string {
	if summary.Entries == 0 {
		return fmt.Sprintf("Farm diary (%s): no records yet.", summary.Month)
	}
	return fmt.Sprintf("Farm diary (%s): %d eggs across %d entries, feed cost %s, medicine given on %d days.",
		summary.Month, summary.TotalEggs, summary.Entries, summary.TotalFeedCost.StringFixed(2), summary.MedicineDays)
}

// PreviousMonth returns the first day of the month before t.
func PreviousMonth(t time.Time) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, -1, 0)
}
