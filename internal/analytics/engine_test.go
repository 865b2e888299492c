package analytics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cost(v float64) *float64 { return &v }

func day(y int, m time.Month, d int) Timestamp {
	return At(time.Date(y, m, d, 10, 30, 0, 0, time.UTC))
}

func item(id, saleID string, qty, price float64, product *Product) SaleItem {
	return SaleItem{ID: id, SaleID: saleID, Quantity: qty, Price: price, Product: product}
}

func TestNormalizeProductShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want *Product
	}{
		{"object", `{"name":"Robe","category":"A","cost_price":300}`, &Product{Name: "Robe", Category: "A", CostPrice: cost(300)}},
		{"one element array", `[{"name":"Robe","category":"A"}]`, &Product{Name: "Robe", Category: "A"}},
		{"empty array", `[]`, nil},
		{"null", `null`, nil},
		{"missing", ``, nil},
		{"malformed", `{"name":`, nil},
		{"scalar", `"Robe"`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeProduct(json.RawMessage(tc.raw))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRawDatasetDecodesBothJoinShapes(t *testing.T) {
	payload := `{
		"sales": [{"id":"s1","total_amount":1180,"created_at":"2025-03-04T09:00:00Z","shop_id":"x"}],
		"expenses": [{"id":"e1","amount":50,"date":"not-a-date","shop_id":"x"}],
		"saleItems": [
			{"id":"i1","sale_id":"s1","quantity":1,"price":1000,"products":{"name":"Sac","category":"B","cost_price":400}},
			{"id":"i2","sale_id":"s1","quantity":2,"price":90,"products":[{"name":"Ceinture","category":"C"}]},
			{"id":"i3","sale_id":"s1","quantity":1,"price":0}
		],
		"debts": [{"remaining_amount":20,"status":"pending"}]
	}`
	var raw RawDataset
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))
	data := raw.Normalize()

	require.Len(t, data.SaleItems, 3)
	assert.Equal(t, "Sac", data.SaleItems[0].Product.Name)
	assert.Equal(t, "Ceinture", data.SaleItems[1].Product.Name)
	assert.Nil(t, data.SaleItems[2].Product)
	assert.True(t, data.Sales[0].CreatedAt.Valid)
	assert.False(t, data.Expenses[0].Date.Valid)
}

func TestParseTimestampLayouts(t *testing.T) {
	for _, raw := range []string{
		"2025-03-04T09:00:00Z",
		"2025-03-04T09:00:00.123456+01:00",
		"2025-03-04T09:00:00.123",
		"2025-03-04 09:00:00",
		"2025-03-04",
	} {
		assert.True(t, ParseTimestamp(raw).Valid, raw)
	}
	assert.False(t, ParseTimestamp("04/03/2025").Valid)
	assert.False(t, ParseTimestamp("").Valid)
}

func TestApplyFiltersMonthWindow(t *testing.T) {
	data := Dataset{
		Sales: []Sale{
			{ID: "s1", TotalAmount: 100, CreatedAt: day(2025, time.March, 1)},
			{ID: "s2", TotalAmount: 200, CreatedAt: day(2025, time.April, 1)},
			{ID: "s3", TotalAmount: 300, CreatedAt: Timestamp{}},
		},
		Expenses: []Expense{
			{ID: "e1", Amount: 10, Date: day(2025, time.March, 31)},
			{ID: "e2", Amount: 20, Date: ParseTimestamp("garbage")},
		},
		SaleItems: []SaleItem{
			item("i1", "s1", 1, 100, &Product{Name: "A", Category: "X"}),
			item("i2", "s2", 1, 200, &Product{Name: "B", Category: "X"}),
			item("i3", "s3", 1, 300, &Product{Name: "C", Category: "X"}),
		},
	}

	got := ApplyFilters(data, Query{Month: "03", Year: "2025"}, time.UTC)
	require.Len(t, got.Sales, 1)
	assert.Equal(t, "s1", got.Sales[0].ID)
	require.Len(t, got.Expenses, 1)
	assert.Equal(t, "e1", got.Expenses[0].ID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "i1", got.Items[0].ID)
}

func TestApplyFiltersWithoutFullPeriodKeepsEverything(t *testing.T) {
	data := Dataset{
		Sales:     []Sale{{ID: "s1", CreatedAt: Timestamp{}}, {ID: "s2", CreatedAt: day(2020, time.January, 1)}},
		Expenses:  []Expense{{ID: "e1"}},
		SaleItems: []SaleItem{item("i1", "unknown", 1, 1, nil)},
	}
	for _, q := range []Query{{}, {Month: "03"}, {Year: "2025"}, {Month: "13", Year: "2025"}} {
		got := ApplyFilters(data, q, time.UTC)
		assert.Len(t, got.Sales, 2)
		assert.Len(t, got.Expenses, 1)
		assert.Len(t, got.Items, 1)
	}
}

func TestQueryPeriodRejectsSignedValues(t *testing.T) {
	for _, q := range []Query{
		{Month: "03", Year: "+202"},
		{Month: "03", Year: "-202"},
		{Month: "+3", Year: "2025"},
		{Month: "03", Year: "20250"},
	} {
		_, _, ok := q.Period()
		assert.False(t, ok, "%+v", q)
	}
	year, month, ok := Query{Month: " 3", Year: "2025 "}.Period()
	require.True(t, ok)
	assert.Equal(t, 2025, year)
	assert.Equal(t, time.March, month)
}

func TestApplyFiltersCategoryIgnoresSurroundingSpaces(t *testing.T) {
	data := Dataset{SaleItems: []SaleItem{
		item("i1", "s1", 1, 1, &Product{Category: "Robes "}),
		item("i2", "s1", 1, 1, &Product{Category: "Sacs"}),
	}}
	require.Equal(t, []string{"Robes", "Sacs"}, Categories(data.SaleItems))

	got := ApplyFilters(data, Query{Category: Categories(data.SaleItems)[0]}, time.UTC)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "i1", got.Items[0].ID)
}

func TestApplyFiltersCategory(t *testing.T) {
	data := Dataset{
		SaleItems: []SaleItem{
			item("i1", "s1", 1, 1, &Product{Category: "A"}),
			item("i2", "s1", 1, 1, &Product{Category: "B"}),
			item("i3", "s1", 1, 1, nil),
		},
	}
	got := ApplyFilters(data, Query{Category: "A"}, time.UTC)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "i1", got.Items[0].ID)

	got = ApplyFilters(data, Query{Category: AllCategories}, time.UTC)
	assert.Len(t, got.Items, 3)
}

func TestComputeMetricsVATExample(t *testing.T) {
	f := Filtered{Sales: []Sale{{TotalAmount: 5900}, {TotalAmount: 5900}}}
	m := ComputeMetrics(f, nil, false)
	assert.Equal(t, 11800.0, m.TotalSales)
	assert.InDelta(t, 10000.0, m.RevenueExclTax, 1e-9)
	assert.InDelta(t, 1800.0, m.TVA, 1e-9)
}

func TestComputeMetricsCategoryScopedRevenue(t *testing.T) {
	data := Dataset{
		Sales: []Sale{{ID: "s1", TotalAmount: 2000}},
		SaleItems: []SaleItem{
			item("i1", "s1", 2, 500, &Product{Name: "P1", Category: "A", CostPrice: cost(300)}),
			item("i2", "s1", 1, 1000, &Product{Name: "P2", Category: "B", CostPrice: cost(600)}),
		},
	}
	f := ApplyFilters(data, Query{Category: "A"}, time.UTC)
	m := ComputeMetrics(f, nil, true)
	assert.Equal(t, 1000.0, m.TotalSales)
	assert.Equal(t, 600.0, m.COGS)
	assert.InDelta(t, 247.46, m.GrossMargin, 0.01)
}

func TestComputeMetricsMarginsExpensesAndDebts(t *testing.T) {
	f := Filtered{
		Sales:    []Sale{{TotalAmount: 1180}},
		Expenses: []Expense{{Amount: 100}, {Amount: 50, Personal: true}},
		Items:    []SaleItem{item("i1", "s1", 2, 590, &Product{CostPrice: cost(200)}), item("i2", "s1", 1, 0, nil)},
	}
	debts := []Debt{{RemainingAmount: 75, Status: "pending"}, {RemainingAmount: 25, Status: "partial"}}
	m := ComputeMetrics(f, debts, false)

	assert.InDelta(t, 1000, m.RevenueExclTax, 1e-9)
	assert.Equal(t, 400.0, m.COGS)
	assert.InDelta(t, 600, m.GrossMargin, 1e-9)
	assert.Equal(t, 150.0, m.TotalExpenses)
	assert.InDelta(t, 450, m.NetMargin, 1e-9)
	assert.Equal(t, m.NetMargin, m.Profit)
	assert.Equal(t, 100.0, m.TotalDebts)
}

func TestComputeMetricsZeroRevenue(t *testing.T) {
	f := Filtered{
		Expenses: []Expense{{Amount: 40}},
		Items:    []SaleItem{item("i1", "s1", 3, 0, &Product{CostPrice: cost(10)})},
	}
	m := ComputeMetrics(f, nil, true)
	assert.Zero(t, m.TotalSales)
	assert.Zero(t, m.TVA)
	assert.Zero(t, m.GrossMargin)
	assert.Equal(t, 30.0, m.COGS)
	assert.Equal(t, -40.0, m.NetMargin)
	assert.Zero(t, MarginRate(m.GrossMargin, m.TotalSales))
}

func TestVATDecompositionHolds(t *testing.T) {
	for _, revenue := range []float64{0, 1, 3.33, 11800, 99999.99, 1e9 + 7} {
		m := ComputeMetrics(Filtered{Sales: []Sale{{TotalAmount: revenue}}}, nil, false)
		assert.InDelta(t, revenue, m.TVA+revenue/(1+VATRate), 1e-6)
	}
}

func TestBuildTrendTrailingWeek(t *testing.T) {
	now := time.Date(2025, time.March, 3, 15, 0, 0, 0, time.UTC)
	w := ResolveWindow(Query{}, now)
	sales := []Sale{
		{TotalAmount: 100, CreatedAt: day(2025, time.March, 3)},
		{TotalAmount: 50, CreatedAt: day(2025, time.March, 3)},
		{TotalAmount: 70, CreatedAt: day(2025, time.February, 25)},
		{TotalAmount: 999, CreatedAt: day(2025, time.February, 24)},
		{TotalAmount: 999, CreatedAt: Timestamp{}},
	}
	expenses := []Expense{{Amount: 30, Date: day(2025, time.February, 28)}}

	points := BuildTrend(w, sales, expenses)
	require.Len(t, points, 7)
	assert.Equal(t, "2025-02-25", points[0].Date)
	assert.Equal(t, "2025-03-03", points[6].Date)
	assert.Equal(t, 70.0, points[0].Income)
	assert.Equal(t, 150.0, points[6].Income)
	assert.Equal(t, 30.0, points[3].Outcome)
	assert.Zero(t, points[1].Income)
	assert.Zero(t, points[1].Outcome)
}

func TestBuildTrendCoversWholeMonth(t *testing.T) {
	now := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	cases := map[Query]int{
		{Month: "02", Year: "2024"}: 29,
		{Month: "02", Year: "2025"}: 28,
		{Month: "04", Year: "2025"}: 30,
		{Month: "12", Year: "2025"}: 31,
	}
	for q, want := range cases {
		points := BuildTrend(ResolveWindow(q, now), nil, nil)
		require.Len(t, points, want)
		seen := make(map[string]bool)
		for i, p := range points {
			assert.False(t, seen[p.Date], "duplicate %s", p.Date)
			seen[p.Date] = true
			if i > 0 {
				assert.Less(t, points[i-1].Date, p.Date)
			}
		}
	}
}

func TestBuildTrendUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2025, time.March, 3, 12, 0, 0, 0, loc)
	sale := Sale{TotalAmount: 10, CreatedAt: At(time.Date(2025, time.March, 2, 23, 0, 0, 0, time.UTC))}
	points := BuildTrend(ResolveWindow(Query{}, now), []Sale{sale}, nil)
	require.Len(t, points, 7)
	assert.Equal(t, 10.0, points[6].Income)
}

func TestWallDatesKeepTheirDayWestOfUTC(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	var raw RawDataset
	require.NoError(t, json.Unmarshal([]byte(`{
		"sales": [{"id":"s1","total_amount":118,"created_at":"2025-03-01 00:30:00"}],
		"expenses": [{"id":"e1","amount":100,"date":"2025-03-01"}]
	}`), &raw))
	data := raw.Normalize()
	assert.True(t, data.Expenses[0].Date.Wall)
	assert.True(t, data.Sales[0].CreatedAt.Wall)

	march := BuildReport(data, Query{Month: "03", Year: "2025"}, time.Date(2025, time.April, 2, 9, 0, 0, 0, loc))
	assert.Equal(t, 100.0, march.Metrics.TotalExpenses)
	assert.Equal(t, 118.0, march.Metrics.TotalSales)
	require.NotEmpty(t, march.Trend)
	assert.Equal(t, TrendPoint{Date: "2025-03-01", Income: 118, Outcome: 100}, march.Trend[0])

	february := BuildReport(data, Query{Month: "02", Year: "2025"}, time.Date(2025, time.April, 2, 9, 0, 0, 0, loc))
	assert.Zero(t, february.Metrics.TotalExpenses)
	assert.Zero(t, february.Trend[len(february.Trend)-1].Outcome)
}

func TestZonedTimestampsMoveIntoReportZone(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	ts := ParseTimestamp("2025-03-01T02:00:00Z")
	assert.False(t, ts.Wall)
	d, ok := ts.Day(loc)
	require.True(t, ok)
	assert.Equal(t, 28, d.Day())
}

func TestTopProductsRanking(t *testing.T) {
	items := []SaleItem{
		item("1", "s", 1, 100, &Product{Name: "A"}),
		item("2", "s", 1, 300, &Product{Name: "B"}),
		item("3", "s", 2, 100, &Product{Name: "A"}),
		item("4", "s", 1, 50, &Product{Name: "C"}),
		item("5", "s", 1, 50, &Product{Name: "D"}),
		item("6", "s", 1, 10, &Product{Name: "E"}),
		item("7", "s", 1, 5, &Product{Name: "F"}),
		item("8", "s", 4, 1, nil),
	}
	ranks := TopProducts(items, TopProductsLimit)
	require.Len(t, ranks, 5)
	assert.Equal(t, ProductRank{Name: "A", TotalQuantity: 3, TotalRevenue: 300}, ranks[0])
	assert.Equal(t, "B", ranks[1].Name)
	assert.Equal(t, "C", ranks[2].Name)
	assert.Equal(t, "D", ranks[3].Name)
	assert.Equal(t, "E", ranks[4].Name)
	for i := 1; i < len(ranks); i++ {
		assert.GreaterOrEqual(t, ranks[i-1].TotalRevenue, ranks[i].TotalRevenue)
	}

	ranks = TopProducts([]SaleItem{item("8", "s", 4, 1, nil)}, 0)
	require.Len(t, ranks, 1)
	assert.Equal(t, UnknownProduct, ranks[0].Name)
}

func TestCategoriesDistinctSorted(t *testing.T) {
	items := []SaleItem{
		item("1", "s", 1, 1, &Product{Category: "Robes"}),
		item("2", "s", 1, 1, &Product{Category: "Accessoires"}),
		item("3", "s", 1, 1, &Product{Category: "Robes"}),
		item("4", "s", 1, 1, &Product{Category: " "}),
		item("5", "s", 1, 1, nil),
	}
	assert.Equal(t, []string{"Accessoires", "Robes"}, Categories(items))
}
