package export

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/retail-analytics/internal/analytics"
	"github.com/odyssey-erp/retail-analytics/internal/analytics/chart"
)

// ReportPayload is the report rendered into the PDF export.
type ReportPayload struct {
	Shop     string
	Category string
	Report   analytics.Report
}

// PDFExporter wraps Gotenberg interactions for report exports.
type PDFExporter struct {
	Endpoint string
	Client   *http.Client
}

// RenderReport sends the report HTML to Gotenberg and returns the PDF bytes.
func (p *PDFExporter) RenderReport(ctx context.Context, payload ReportPayload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("pdf exporter not initialised")
	}
	endpoint := strings.TrimRight(p.Endpoint, "/")
	if endpoint == "" {
		return nil, fmt.Errorf("gotenberg endpoint required")
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(part, BuildHTML(payload)); err != nil {
		return nil, err
	}
	if err := writer.WriteField("waitDelay", "500"); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/forms/chromium/convert/html", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("gotenberg response %d: %s", resp.StatusCode, string(data))
	}

	return io.ReadAll(resp.Body)
}

// BuildHTML renders the report as a standalone French-language page.
func BuildHTML(payload ReportPayload) string {
	p := message.NewPrinter(language.French)
	report := payload.Report

	var b strings.Builder
	b.WriteString("<html><head><meta charset=\"utf-8\"><style>")
	b.WriteString("body{font-family:sans-serif;margin:24px;}h1{font-size:20px;}table{width:100%;border-collapse:collapse;margin-bottom:16px;}th,td{border:1px solid #ddd;padding:6px;text-align:right;}th{text-align:left;background:#f5f5f5;}section{margin-bottom:24px;} .label{text-align:left;}")
	b.WriteString("</style></head><body>")
	fmt.Fprintf(&b, "<h1>Rapport financier – %s</h1>", html.EscapeString(scopeLabel(payload.Shop, payload.Category)))
	fmt.Fprintf(&b, "<p>Période du %s au %s</p>", html.EscapeString(report.Window.From), html.EscapeString(report.Window.To))

	m := report.Metrics
	b.WriteString("<section><h2>Indicateurs</h2><table><tbody>")
	writeAmountRow(&b, p, "Chiffre d'affaires TTC", m.TotalSales)
	writeAmountRow(&b, p, "Chiffre d'affaires HT", m.RevenueExclTax)
	writeAmountRow(&b, p, "TVA", m.TVA)
	writeAmountRow(&b, p, "Coût des marchandises", m.COGS)
	writeAmountRow(&b, p, "Marge brute", m.GrossMargin)
	writeRow(&b, "Taux de marge brute", p.Sprintf("%.1f %%", analytics.MarginRate(m.GrossMargin, m.RevenueExclTax)))
	writeAmountRow(&b, p, "Dépenses", m.TotalExpenses)
	writeAmountRow(&b, p, "Marge nette", m.NetMargin)
	writeAmountRow(&b, p, "Dettes en cours", m.TotalDebts)
	b.WriteString("</tbody></table></section>")

	if len(report.TopProducts) > 0 {
		b.WriteString("<section><h2>Meilleures ventes</h2><table><thead><tr><th>Produit</th><th>Quantité</th><th>Chiffre d'affaires</th></tr></thead><tbody>")
		for _, product := range report.TopProducts {
			b.WriteString("<tr><td class=\"label\">")
			b.WriteString(html.EscapeString(product.Name))
			b.WriteString("</td><td>")
			b.WriteString(p.Sprintf("%.0f", product.TotalQuantity))
			b.WriteString("</td><td>")
			b.WriteString(formatAmount(p, product.TotalRevenue))
			b.WriteString("</td></tr>")
		}
		b.WriteString("</tbody></table></section>")
	}

	if len(report.Trend) > 0 {
		b.WriteString("<section><h2>Évolution</h2>")
		svg, err := chart.TrendBars(chart.DefaultWidth, chart.DefaultHeight, report.Trend, chart.Options{
			Title:        "Entrées et sorties par jour",
			IncomeLabel:  "Entrées",
			OutcomeLabel: "Sorties",
			Tick:         func(v float64) string { return p.Sprintf("%.0f", v) },
		})
		if err == nil {
			b.WriteString(string(svg))
		}
		b.WriteString("<table><thead><tr><th>Jour</th><th>Entrées</th><th>Sorties</th></tr></thead><tbody>")
		for _, point := range report.Trend {
			b.WriteString("<tr><td class=\"label\">")
			b.WriteString(html.EscapeString(point.Date))
			b.WriteString("</td><td>")
			b.WriteString(formatAmount(p, point.Income))
			b.WriteString("</td><td>")
			b.WriteString(formatAmount(p, point.Outcome))
			b.WriteString("</td></tr>")
		}
		b.WriteString("</tbody></table></section>")
	}

	b.WriteString("</body></html>")
	return b.String()
}

func scopeLabel(shop, category string) string {
	if shop == "" || shop == analytics.AllShops {
		shop = "Toutes les boutiques"
	}
	if category == "" || category == analytics.AllCategories {
		return shop
	}
	return shop + " / " + category
}

func writeAmountRow(b *strings.Builder, p *message.Printer, label string, value float64) {
	writeRow(b, label, formatAmount(p, value))
}

func writeRow(b *strings.Builder, label, value string) {
	b.WriteString("<tr><td class=\"label\">")
	b.WriteString(html.EscapeString(label))
	b.WriteString("</td><td>")
	b.WriteString(value)
	b.WriteString("</td></tr>")
}

func formatAmount(p *message.Printer, v float64) string {
	return p.Sprintf("%.2f", v)
}
