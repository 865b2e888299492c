package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/odyssey-erp/retail-analytics/internal/analytics"
)

// WriteReportCSV writes every report section, separated by blank lines.
func WriteReportCSV(w io.Writer, report analytics.Report, scope string) error {
	sections := []func(io.Writer) error{
		func(w io.Writer) error { return WriteMetricsCSV(w, report.Metrics, scope) },
		func(w io.Writer) error { return WriteTopProductsCSV(w, report.TopProducts) },
		func(w io.Writer) error { return WriteTrendCSV(w, report.Trend) },
		func(w io.Writer) error { return WriteCategoriesCSV(w, report.AvailableCategories) },
	}
	for i, section := range sections {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := section(w); err != nil {
			return err
		}
	}
	return nil
}

// WriteMetricsCSV serialises the headline metrics with their margin rates.
func WriteMetricsCSV(w io.Writer, m analytics.Metrics, scope string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Metric", "Value"}); err != nil {
		return err
	}
	records := [][]string{
		{"Scope", scope},
		{"Total Sales", formatFloat(m.TotalSales)},
		{"Revenue Excl. Tax", formatFloat(m.RevenueExclTax)},
		{"VAT", formatFloat(m.TVA)},
		{"Cost of Goods Sold", formatFloat(m.COGS)},
		{"Gross Margin", formatFloat(m.GrossMargin)},
		{"Gross Margin Rate", formatFloat(analytics.MarginRate(m.GrossMargin, m.RevenueExclTax))},
		{"Total Expenses", formatFloat(m.TotalExpenses)},
		{"Net Margin", formatFloat(m.NetMargin)},
		{"Net Margin Rate", formatFloat(analytics.MarginRate(m.NetMargin, m.RevenueExclTax))},
		{"Profit", formatFloat(m.Profit)},
		{"Total Debts", formatFloat(m.TotalDebts)},
	}
	if err := writer.WriteAll(records); err != nil {
		return err
	}
	return writer.Error()
}

// WriteTopProductsCSV emits the best sellers in rank order.
func WriteTopProductsCSV(w io.Writer, products []analytics.ProductRank) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Rank", "Product", "Quantity", "Revenue"}); err != nil {
		return err
	}
	for i, p := range products {
		if err := writer.Write([]string{
			strconv.Itoa(i + 1),
			p.Name,
			formatFloat(p.TotalQuantity),
			formatFloat(p.TotalRevenue),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteTrendCSV emits daily income and outcome.
func WriteTrendCSV(w io.Writer, points []analytics.TrendPoint) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Date", "Income", "Outcome"}); err != nil {
		return err
	}
	for _, point := range points {
		if err := writer.Write([]string{point.Date, formatFloat(point.Income), formatFloat(point.Outcome)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteCategoriesCSV lists the categories offered as filters.
func WriteCategoriesCSV(w io.Writer, categories []string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Category"}); err != nil {
		return err
	}
	for _, category := range categories {
		if err := writer.Write([]string{category}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
