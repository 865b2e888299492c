package analytics

import (
	"sort"
	"strings"
)

// ProductRank aggregates sold quantity and revenue for one product name.
type ProductRank struct {
	Name          string  `json:"name"`
	TotalQuantity float64 `json:"totalQuantity"`
	TotalRevenue  float64 `json:"totalRevenue"`
}

// TopProducts groups sale lines by product name and returns the limit best
// sellers by revenue. Equal revenues keep first-seen order. Products sharing a
// name are merged.
func TopProducts(items []SaleItem, limit int) []ProductRank {
	if limit <= 0 {
		limit = TopProductsLimit
	}
	index := make(map[string]int)
	ranks := make([]ProductRank, 0)
	for _, item := range items {
		name := UnknownProduct
		if item.Product != nil && strings.TrimSpace(item.Product.Name) != "" {
			name = item.Product.Name
		}
		pos, ok := index[name]
		if !ok {
			pos = len(ranks)
			index[name] = pos
			ranks = append(ranks, ProductRank{Name: name})
		}
		ranks[pos].TotalQuantity += item.Quantity
		ranks[pos].TotalRevenue += item.Revenue()
	}

	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].TotalRevenue > ranks[j].TotalRevenue
	})
	if len(ranks) > limit {
		ranks = ranks[:limit]
	}
	return ranks
}

// Categories lists the distinct non-empty product categories, sorted.
func Categories(items []SaleItem) []string {
	seen := make(map[string]struct{})
	categories := make([]string, 0)
	for _, item := range items {
		category := strings.TrimSpace(item.Category())
		if category == "" {
			continue
		}
		if _, ok := seen[category]; ok {
			continue
		}
		seen[category] = struct{}{}
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}
