package handlers

import (
	"context"
	"encoding/csv"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmdiary/internal/domain/models"
	"github.com/mamadbah2/farmdiary/internal/server/views"
	"github.com/mamadbah2/farmdiary/internal/service/diary"
)

// DiaryService is the form controller used by the HTTP layer.
type DiaryService interface {
	Today() time.Time
	BlankForm() diary.Form
	Submit(ctx context.Context, form diary.Form) diary.SubmitOutcome
	Save(ctx context.Context, record models.Record) (models.Record, error)
	Records(ctx context.Context) (models.Table, error)
}

// Summarizer computes monthly aggregates.
type Summarizer interface {
	MonthlySummary(ctx context.Context, month time.Time) (models.MonthlySummary, error)
}

// DiaryHandler serves the form and results pages.
type DiaryHandler struct {
	svc      DiaryService
	reports  Summarizer
	lang     models.Language
	storeErr error
	logger   *zap.Logger
}

// NewDiaryHandler constructs the page handler. A non-nil storeErr means the
// store could not be opened at startup; every page then shows that error.
func NewDiaryHandler(svc DiaryService, reports Summarizer, lang models.Language, storeErr error, logger *zap.Logger) *DiaryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiaryHandler{svc: svc, reports: reports, lang: lang, storeErr: storeErr, logger: logger}
}

// ShowForm renders a blank form dated today.
func (h *DiaryHandler) ShowForm(c *gin.Context) {
	if h.unavailable(c) {
		return
	}
	c.HTML(http.StatusOK, views.FormPage, h.formPage(h.svc.BlankForm()))
}

// SubmitForm handles one form submission and re-renders the form with the outcome.
func (h *DiaryHandler) SubmitForm(c *gin.Context) {
	if h.unavailable(c) {
		return
	}

	var form diary.Form
	if err := c.ShouldBind(&form); err != nil {
		h.logger.Warn("invalid form payload", zap.Error(err))
		// Whatever pairs could be decoded are shown again.
		page := h.formPage(diary.Form{
			Date:         c.PostForm(diary.FieldDate),
			EggCount:     c.PostForm(diary.FieldEggCount),
			FeedCost:     c.PostForm(diary.FieldFeedCost),
			MedicineNote: c.PostForm(diary.FieldMedicineNote),
		})
		page.Status = diary.StatusInvalid
		c.HTML(http.StatusBadRequest, views.FormPage, page)
		return
	}

	outcome := h.svc.Submit(c.Request.Context(), form)
	page := h.formPage(outcome.Form)
	page.Status = outcome.Status
	page.Errors = outcome.Errors
	page.Reason = outcome.Reason

	c.HTML(outcomeStatus(outcome.Status), views.FormPage, page)
}

// Records renders every stored record with the current month's summary.
func (h *DiaryHandler) Records(c *gin.Context) {
	if h.unavailable(c) {
		return
	}

	ctx := c.Request.Context()
	page := recordsPage{Lang: h.lang, Columns: h.lang.Columns()}

	table, err := h.svc.Records(ctx)
	if err != nil {
		h.logger.Error("failed to load records", zap.Error(err))
		page.Error = err.Error()
		c.HTML(http.StatusBadGateway, views.RecordsPage, page)
		return
	}
	if len(table.Columns) == models.ColumnCount {
		page.Columns = table.Columns
	}
	for _, r := range table.Records {
		page.Rows = append(page.Rows, r.Row())
	}

	if h.reports != nil {
		summary, err := h.reports.MonthlySummary(ctx, h.svc.Today())
		if err != nil {
			h.logger.Warn("failed to compute monthly summary", zap.Error(err))
		} else {
			page.Summary = &summary
		}
	}

	c.HTML(http.StatusOK, views.RecordsPage, page)
}

// ExportCSV downloads every record with the localized header row.
func (h *DiaryHandler) ExportCSV(c *gin.Context) {
	if h.storeErr != nil {
		c.String(http.StatusServiceUnavailable, h.storeErr.Error())
		return
	}

	table, err := h.svc.Records(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to export records", zap.Error(err))
		c.String(http.StatusBadGateway, "unable to load records")
		return
	}

	filename := "farm_records_" + h.svc.Today().Format(models.DateLayout) + ".csv"
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write(h.lang.Columns())
	for _, r := range table.Records {
		_ = w.Write(r.Row())
	}
	w.Flush()
	if err := w.Error(); err != nil {
		h.logger.Error("failed writing csv export", zap.Error(err))
	}
}

func (h *DiaryHandler) formPage(form diary.Form) formPage {
	return formPage{Lang: h.lang, Columns: h.lang.Columns(), Form: form}
}

func (h *DiaryHandler) unavailable(c *gin.Context) bool {
	if h.storeErr == nil {
		return false
	}
	c.HTML(http.StatusServiceUnavailable, views.UnavailablePage, unavailablePage{Lang: h.lang, Error: h.storeErr.Error()})
	return true
}

func outcomeStatus(status diary.Status) int {
	switch status {
	case diary.StatusInvalid:
		return http.StatusUnprocessableEntity
	case diary.StatusFailed:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}
