package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthLayout identifies a calendar month, e.g. "2024-05".
const MonthLayout = "2006-01"

// MonthlySummary aggregates the records of one calendar month.
type MonthlySummary struct {
	Month         string          `json:"month"`
	Entries       int             `json:"entries"`
	TotalEggs     int             `json:"totalEggs"`
	TotalFeedCost decimal.Decimal `json:"totalFeedCost"`
	MedicineDays  int             `json:"medicineDays"`
	GeneratedAt   time.Time       `json:"generatedAt"`
}
