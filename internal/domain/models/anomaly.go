package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// AnomalyThresholdPercent is the deviation from the recent average, in
	// percent, at which a metric is flagged.
	AnomalyThresholdPercent = 20
	// AnomalyWindowDays is the number of days before an entry that form its baseline.
	AnomalyWindowDays = 7
)

// Metrics compared against the recent average.
const (
	MetricEggCount = "eggCount"
	MetricFeedCost = "feedCost"
)

// Deviation describes one metric of an entry that strays from its recent average.
type Deviation struct {
	Metric  string          `json:"metric"`
	Value   decimal.Decimal `json:"value"`
	Average decimal.Decimal `json:"average"`
	Percent decimal.Decimal `json:"deviationPercent"`
}

func (d Deviation) String() string {
	return fmt.Sprintf("%s: %s (avg %s, deviation %s%%)",
		d.Metric, d.Value.StringFixed(2), d.Average.StringFixed(2), d.Percent.StringFixed(2))
}

// AnomalyReport is the outcome of comparing one entry with the entries of the
// days before it. Recent is empty when there was nothing to compare with.
type AnomalyReport struct {
	Record     Record      `json:"record"`
	Recent     []Record    `json:"recent"`
	Deviations []Deviation `json:"anomalies"`
}
