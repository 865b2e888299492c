// Package chart renders the daily income/outcome trend as inline SVG for
// report exports.
package chart

import (
	"fmt"
	"html/template"
	"math"
	"strings"

	"github.com/odyssey-erp/retail-analytics/internal/analytics"
)

// Defaults for the trend chart.
const (
	DefaultWidth  = 720
	DefaultHeight = 240
	padding       = 28.0
	ticks         = 5
	maxLabels     = 10
)

// Options customises the trend chart.
type Options struct {
	Title        string
	IncomeLabel  string
	OutcomeLabel string
	IncomeColor  string
	OutcomeColor string
	AxisColor    string
	// Tick formats axis values; defaults to compact k/M notation.
	Tick func(float64) string
}

// TrendBars renders one income and one outcome bar per day.
func TrendBars(width, height int, points []analytics.TrendPoint, opts Options) (template.HTML, error) {
	if len(points) == 0 {
		return "", fmt.Errorf("chart: trend is empty")
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	plotW := float64(width) - 2*padding
	plotH := float64(height) - 2*padding
	if plotW <= 0 || plotH <= 0 {
		return "", fmt.Errorf("chart: viewport too small")
	}

	axis := fallback(opts.AxisColor, "#475569")
	incomeColor := fallback(opts.IncomeColor, "#16a34a")
	outcomeColor := fallback(opts.OutcomeColor, "#dc2626")
	incomeLabel := fallback(opts.IncomeLabel, "Income")
	outcomeLabel := fallback(opts.OutcomeLabel, "Outcome")
	tick := opts.Tick
	if tick == nil {
		tick = compact
	}

	top := 0.0
	for _, p := range points {
		top = math.Max(top, math.Max(p.Income, p.Outcome))
	}
	if top <= 0 {
		top = 1
	}
	scale := plotH / top
	bottom := padding + plotH
	slot := plotW / float64(len(points))
	bar := slot * 0.4
	every := int(math.Ceil(float64(len(points)) / maxLabels))

	var b strings.Builder
	title := fallback(opts.Title, "Trend")
	fmt.Fprintf(&b, "<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-label=\"%s\">", width, height, template.HTMLEscapeString(title))
	fmt.Fprintf(&b, "<title>%s</title>", template.HTMLEscapeString(title))

	for i := 0; i <= ticks; i++ {
		ratio := float64(i) / ticks
		y := bottom - ratio*plotH
		fmt.Fprintf(&b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"#e2e8f0\" stroke-width=\"0.5\"></line>", padding, y, padding+plotW, y)
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"9\" text-anchor=\"end\">%s</text>", padding-4, y+3, axis, template.HTMLEscapeString(tick(top*ratio)))
	}
	fmt.Fprintf(&b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\"></line>", padding, bottom, padding+plotW, bottom, axis)

	for i, p := range points {
		x := padding + float64(i)*slot + slot*0.1
		writeBar(&b, x, bottom, p.Income*scale, bar, incomeColor, incomeLabel, p.Date)
		writeBar(&b, x+bar, bottom, p.Outcome*scale, bar, outcomeColor, outcomeLabel, p.Date)
		if i%every == 0 {
			fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"9\" text-anchor=\"middle\">%s</text>", x+bar, bottom+12, axis, template.HTMLEscapeString(shortDate(p.Date)))
		}
	}

	fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"8\" width=\"8\" height=\"8\" fill=\"%s\"></rect>", padding, incomeColor)
	fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"16\" fill=\"%s\" font-size=\"10\">%s</text>", padding+12, axis, template.HTMLEscapeString(incomeLabel))
	fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"8\" width=\"8\" height=\"8\" fill=\"%s\"></rect>", padding+90, outcomeColor)
	fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"16\" fill=\"%s\" font-size=\"10\">%s</text>", padding+102, axis, template.HTMLEscapeString(outcomeLabel))

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

func writeBar(b *strings.Builder, x, bottom, h, w float64, color, series, date string) {
	if h < 0 {
		h = 0
	}
	fmt.Fprintf(b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" fill=\"%s\" aria-label=\"%s %s\"></rect>",
		x, bottom-h, w, h, color, template.HTMLEscapeString(series), template.HTMLEscapeString(date))
}

// shortDate turns YYYY-MM-DD into DD/MM.
func shortDate(date string) string {
	if len(date) != 10 {
		return date
	}
	return date[8:10] + "/" + date[5:7]
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func compact(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	case math.Abs(v-math.Round(v)) < 1e-9:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
