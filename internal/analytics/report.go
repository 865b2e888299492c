package analytics

import "time"

// ReportWindow describes the trend window in calendar days.
type ReportWindow struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Monthly bool   `json:"monthly"`
}

// Report is the assembled analytics response.
type Report struct {
	Metrics             Metrics       `json:"metrics"`
	TopProducts         []ProductRank `json:"topProducts"`
	Trend               []TrendPoint  `json:"trend"`
	AvailableCategories []string      `json:"availableCategories"`
	Window              ReportWindow  `json:"window"`
}

// BuildReport runs the engine over data. now fixes "today" and the time zone
// used to bucket dates; the function reads no clock and keeps no state.
func BuildReport(data Dataset, q Query, now time.Time) Report {
	window := ResolveWindow(q, now)
	filtered := ApplyFilters(data, q, now.Location())

	return Report{
		Metrics:             ComputeMetrics(filtered, data.Debts, q.CategoryActive()),
		TopProducts:         TopProducts(filtered.Items, TopProductsLimit),
		Trend:               BuildTrend(window, filtered.Sales, filtered.Expenses),
		AvailableCategories: Categories(data.SaleItems),
		Window: ReportWindow{
			From:    window.From.Format(dayLayout),
			To:      window.To.Format(dayLayout),
			Monthly: window.Monthly,
		},
	}
}
