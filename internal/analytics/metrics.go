package analytics

// Metrics is the financial summary of a report.
type Metrics struct {
	TotalSales     float64 `json:"totalSales"`
	TotalExpenses  float64 `json:"totalExpenses"`
	Profit         float64 `json:"profit"`
	TVA            float64 `json:"tva"`
	GrossMargin    float64 `json:"margeBrute"`
	NetMargin      float64 `json:"margeNet"`
	TotalDebts     float64 `json:"totalDebts"`
	COGS           float64 `json:"cogs"`
	RevenueExclTax float64 `json:"revenueExclTax"`
}

// ComputeMetrics derives revenue, VAT, COGS and margins from the filtered
// collections. When a category filter is active revenue is rebuilt from sale
// lines, since sale totals cannot be split by category. Debts are the current
// outstanding balance and ignore the report window.
func ComputeMetrics(f Filtered, debts []Debt, categoryActive bool) Metrics {
	var m Metrics
	if categoryActive {
		for _, item := range f.Items {
			m.TotalSales += item.Revenue()
		}
	} else {
		for _, sale := range f.Sales {
			m.TotalSales += sale.TotalAmount
		}
	}

	for _, item := range f.Items {
		m.COGS += item.Quantity * item.Product.Cost()
	}

	if m.TotalSales != 0 {
		m.RevenueExclTax = ExcludeVAT(m.TotalSales)
		m.TVA = m.TotalSales - m.RevenueExclTax
		m.GrossMargin = m.RevenueExclTax - m.COGS
	}

	for _, expense := range f.Expenses {
		m.TotalExpenses += expense.Amount
	}
	m.NetMargin = m.GrossMargin - m.TotalExpenses
	m.Profit = m.NetMargin

	for _, debt := range debts {
		m.TotalDebts += debt.RemainingAmount
	}
	return m
}

// ExcludeVAT strips VATRate from a tax-inclusive amount.
func ExcludeVAT(amount float64) float64 {
	return amount / (1 + VATRate)
}

// MarginRate returns margin as a percentage of revenue, or 0 without revenue.
func MarginRate(margin, revenue float64) float64 {
	if revenue == 0 {
		return 0
	}
	return margin / revenue * 100
}
