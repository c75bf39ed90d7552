package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmdiary/internal/domain/models"
	"github.com/mamadbah2/farmdiary/internal/service/reporting"
	"github.com/mamadbah2/farmdiary/pkg/clients/anthropic"
)

// ReportService computes aggregates and anomaly reports.
type ReportService interface {
	Summarizer
	DetectAnomalies(ctx context.Context, record models.Record) (models.AnomalyReport, error)
}

// APIHandler exposes the diary as JSON.
type APIHandler struct {
	svc      DiaryService
	reports  ReportService
	ai       anthropic.Client
	lang     models.Language
	storeErr error
	logger   *zap.Logger
}

// NewAPIHandler constructs the JSON handler. ai may be nil, in which case
// anomalies are reported without a written analysis.
func NewAPIHandler(svc DiaryService, reports ReportService, ai anthropic.Client, lang models.Language, storeErr error, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{svc: svc, reports: reports, ai: ai, lang: lang, storeErr: storeErr, logger: logger}
}

// ListRecords returns the full table.
func (h *APIHandler) ListRecords(c *gin.Context) {
	if h.unavailable(c) {
		return
	}

	table, err := h.svc.Records(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to load records", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to load records"})
		return
	}
	if table.Records == nil {
		table.Records = []models.Record{}
	}

	c.JSON(http.StatusOK, table)
}

// CreateRecord appends one record.
func (h *APIHandler) CreateRecord(c *gin.Context) {
	if h.unavailable(c) {
		return
	}

	var record models.Record
	if err := c.ShouldBindJSON(&record); err != nil {
		h.logger.Warn("invalid record payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	saved, err := h.svc.Save(c.Request.Context(), record)
	if err != nil {
		if errors.Is(err, models.ErrInvalidRecord) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to save record"})
		return
	}

	c.JSON(http.StatusCreated, saved)
}

// Summary returns the aggregate for ?month=YYYY-MM, defaulting to the current month.
func (h *APIHandler) Summary(c *gin.Context) {
	if h.unavailable(c) {
		return
	}

	month, err := reporting.ParseMonth(c.Query("month"), h.svc.Today())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.reports.MonthlySummary(c.Request.Context(), month)
	if err != nil {
		h.logger.Error("failed to compute summary", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to compute summary"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

type analysisResponse struct {
	models.AnomalyReport
	Message       string `json:"message"`
	Analysis      string `json:"analysis,omitempty"`
	AnalysisError string `json:"analysisError,omitempty"`
}

// Analyze compares one record with the records of the week before it. Only
// when a metric deviates is the AI client asked to explain it.
func (h *APIHandler) Analyze(c *gin.Context) {
	if h.unavailable(c) {
		return
	}

	var record models.Record
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := record.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	report, err := h.reports.DetectAnomalies(ctx, record)
	if err != nil {
		h.logger.Error("anomaly check failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to load records"})
		return
	}

	resp := analysisResponse{AnomalyReport: report}
	switch {
	case len(report.Recent) == 0:
		resp.Message = h.lang.T("no_recent_data")
	case len(report.Deviations) == 0:
		resp.Message = h.lang.T("no_anomaly")
	default:
		resp.Message = h.lang.T("anomaly_found")
		if h.ai == nil {
			resp.AnalysisError = h.lang.T("analysis_off")
			break
		}
		records := append(append([]models.Record(nil), report.Recent...), record)
		analysis, err := h.ai.AnalyzeRecords(ctx, records, report.Deviations, h.lang)
		if err != nil {
			h.logger.Error("anomaly analysis failed", zap.Error(err))
			resp.AnalysisError = h.lang.T("analysis_failed")
			break
		}
		resp.Analysis = analysis
	}

	c.JSON(http.StatusOK, resp)
}

func (h *APIHandler) unavailable(c *gin.Context) bool {
	if h.storeErr == nil {
		return false
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": h.storeErr.Error()})
	return true
}
