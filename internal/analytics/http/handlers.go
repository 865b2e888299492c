package analytichttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/retail-analytics/internal/analytics"
	"github.com/odyssey-erp/retail-analytics/internal/analytics/export"
	"github.com/odyssey-erp/retail-analytics/internal/platform/httpx"
)

const (
	defaultTimeout = 5 * time.Second
	maxComputeBody = 8 << 20
)

// ReportService produces analytics reports.
type ReportService interface {
	Report(ctx context.Context, q analytics.Query) (analytics.Report, error)
	Compute(raw analytics.RawDataset, q analytics.Query) (analytics.Report, error)
}

// PDFService renders report content to PDF bytes.
type PDFService interface {
	RenderReport(ctx context.Context, payload export.ReportPayload) ([]byte, error)
}

// Handler serves the analytics report and its exports.
type Handler struct {
	logger   *slog.Logger
	service  ReportService
	pdf      PDFService
	validate *validator.Validate
	csvPool  sync.Pool
	timeout  time.Duration
	now      func() time.Time
}

// NewHandler constructs the analytics HTTP handler. pdf may be nil when no
// Gotenberg endpoint is configured.
func NewHandler(logger *slog.Logger, service ReportService, pdf PDFService) *Handler {
	h := &Handler{
		logger:   logger,
		service:  service,
		pdf:      pdf,
		validate: newValidator(),
		timeout:  defaultTimeout,
		now:      time.Now,
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// WithTimeout bounds the time spent loading a report.
func (h *Handler) WithTimeout(d time.Duration) {
	if d > 0 {
		h.timeout = d
	}
}

type reportParams struct {
	ShopID   string `validate:"omitempty,shop"`
	Category string `validate:"max=120"`
	Month    string `validate:"omitempty,month"`
	Year     string `validate:"omitempty,len=4,number"`
}

func (p reportParams) query() analytics.Query {
	return analytics.Query{ShopID: p.ShopID, Category: p.Category, Month: p.Month, Year: p.Year}
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("shop", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if value == analytics.AllShops {
			return true
		}
		_, err := uuid.Parse(value)
		return err == nil
	})
	_ = v.RegisterValidation("month", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if len(value) > 2 || strings.ContainsAny(value, "+-") {
			return false
		}
		month, err := strconv.Atoi(value)
		return err == nil && month >= 1 && month <= 12
	})
	return v
}

func (h *Handler) parseQuery(r *http.Request) (analytics.Query, error) {
	values := r.URL.Query()
	params := reportParams{
		ShopID:   strings.TrimSpace(values.Get("shopId")),
		Category: strings.TrimSpace(values.Get("category")),
		Month:    strings.TrimSpace(values.Get("month")),
		Year:     strings.TrimSpace(values.Get("year")),
	}
	if err := h.validate.Struct(params); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return analytics.Query{}, validationError{field: queryName(fieldErrs[0].Field())}
		}
		return analytics.Query{}, err
	}
	return params.query(), nil
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		h.handleError(w, "parse query", err)
		return
	}
	report, err := h.loadReport(r.Context(), q)
	if err != nil {
		h.handleError(w, "load report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleCompute(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		h.handleError(w, "parse query", err)
		return
	}
	var raw analytics.RawDataset
	if err := httpx.DecodeJSON(w, r, maxComputeBody, &raw); err != nil {
		h.handleError(w, "decode dataset", validationError{field: "body", cause: err})
		return
	}
	report, err := h.service.Compute(raw, q)
	if err != nil {
		h.handleError(w, "compute report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		h.handleError(w, "parse query", err)
		return
	}
	report, err := h.loadReport(r.Context(), q)
	if err != nil {
		h.handleError(w, "load report", err)
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := export.WriteReportCSV(buf, report, shopLabel(q)); err != nil {
		h.handleError(w, "write csv", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", h.filename(q)))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		h.handleError(w, "pdf exporter", fmt.Errorf("pdf export: %w", httpx.ErrDisabled))
		return
	}
	q, err := h.parseQuery(r)
	if err != nil {
		h.handleError(w, "parse query", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	report, err := h.service.Report(ctx, q)
	if err != nil {
		h.handleError(w, "load report", err)
		return
	}
	pdfBytes, err := h.pdf.RenderReport(ctx, export.ReportPayload{Shop: shopLabel(q), Category: q.Category, Report: report})
	if err != nil {
		h.handleError(w, "render pdf", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.pdf\"", h.filename(q)))
	if _, err := w.Write(pdfBytes); err != nil {
		h.logError("stream pdf", err)
	}
}

func (h *Handler) loadReport(ctx context.Context, q analytics.Query) (analytics.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return h.service.Report(ctx, q)
}

func (h *Handler) filename(q analytics.Query) string {
	suffix := h.now().Format("2006-01-02")
	if year, month, ok := q.Period(); ok {
		suffix = fmt.Sprintf("%04d-%02d", year, int(month))
	}
	return fmt.Sprintf("rapport-%s-%s", shopLabel(q), suffix)
}

func shopLabel(q analytics.Query) string {
	if q.AllShops() {
		return analytics.AllShops
	}
	return q.ShopID
}

func (h *Handler) handleError(w http.ResponseWriter, op string, err error) {
	var (
		vErr     validationError
		fetchErr *analytics.FetchError
	)
	switch {
	case errors.As(err, &vErr):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", vErr.Error())
	case errors.Is(err, analytics.ErrInvalidShop):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid shopId")
	case errors.As(err, &fetchErr):
		h.logError(op, err, slog.String("collection", fetchErr.Collection))
		httpx.RespondError(w, fmt.Errorf("%s: %w", fetchErr.Collection, httpx.ErrUpstream))
	default:
		h.logError(op, err)
		httpx.RespondError(w, err)
	}
}

func (h *Handler) logError(op string, err error, attrs ...any) {
	if h.logger != nil {
		h.logger.Error(op, append([]any{slog.Any("error", err)}, attrs...)...)
	}
}

type validationError struct {
	field string
	cause error
}

func (v validationError) Error() string {
	return fmt.Sprintf("invalid %s", v.field)
}

func (v validationError) Unwrap() error { return v.cause }

func queryName(field string) string {
	switch field {
	case "ShopID":
		return "shopId"
	default:
		return strings.ToLower(field)
	}
}
