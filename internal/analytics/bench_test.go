package analytics

import (
	"fmt"
	"testing"
	"time"
)

func largeDataset(shops, salesPerShop int) Dataset {
	start := time.Date(2025, time.January, 1, 10, 0, 0, 0, time.UTC)
	categories := []string{"Vêtements", "Accessoires", "Chaussures", "Beauté"}
	var data Dataset
	for s := 0; s < shops; s++ {
		shop := fmt.Sprintf("shop-%d", s)
		for i := 0; i < salesPerShop; i++ {
			id := fmt.Sprintf("%s-s%d", shop, i)
			at := At(start.Add(time.Duration(i) * 3 * time.Hour))
			data.Sales = append(data.Sales, Sale{ID: id, ShopID: shop, TotalAmount: 1180, CreatedAt: at})
			data.SaleItems = append(data.SaleItems, item(id+"-1", id, 2, 590, &Product{
				Name:      fmt.Sprintf("Produit %d", i%40),
				Category:  categories[i%len(categories)],
				CostPrice: cost(250),
			}))
			if i%10 == 0 {
				data.Expenses = append(data.Expenses, Expense{ID: id + "-e", ShopID: shop, Amount: 300, Date: at})
			}
		}
		data.Debts = append(data.Debts, Debt{ShopID: shop, RemainingAmount: 1000, Status: "pending"})
	}
	return data
}

func BenchmarkBuildReportMonth(b *testing.B) {
	data := largeDataset(10, 2000)
	q := Query{ShopID: AllShops, Month: "03", Year: "2025"}
	now := time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		BuildReport(data, q, now)
	}
}

func BenchmarkBuildReportTrailingCategory(b *testing.B) {
	data := largeDataset(10, 2000)
	q := Query{Category: "Accessoires"}
	now := time.Date(2025, time.March, 15, 9, 0, 0, 0, time.UTC)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		BuildReport(data, q, now)
	}
}

func TestBuildReportLargeDatasetWithinBudget(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping latency check in short mode")
	}
	data := largeDataset(10, 2000)
	now := time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)

	start := time.Now()
	report := BuildReport(data, Query{Month: "03", Year: "2025"}, now)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("report over 20k sales took %s", elapsed)
	}
	if len(report.TopProducts) != 5 {
		t.Fatalf("expected 5 top products, got %d", len(report.TopProducts))
	}
	if len(report.Trend) != 31 {
		t.Fatalf("expected 31 trend points, got %d", len(report.Trend))
	}
}
