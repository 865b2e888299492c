package analytics

import (
	"strconv"
	"strings"
	"time"
)

// Query carries the report request parameters as plain values.
type Query struct {
	ShopID   string
	Category string
	Month    string
	Year     string
}

// CategoryActive reports whether the request narrows sale lines by category.
func (q Query) CategoryActive() bool {
	category := strings.TrimSpace(q.Category)
	return category != "" && category != AllCategories
}

// AllShops reports whether the request spans every shop.
func (q Query) AllShops() bool {
	shop := strings.TrimSpace(q.ShopID)
	return shop == "" || shop == AllShops
}

// Period resolves the calendar month requested. Both month and year must be
// present and well formed; otherwise ok is false.
func (q Query) Period() (year int, month time.Month, ok bool) {
	m, ok := digits(q.Month, 2)
	if !ok || m < 1 || m > 12 {
		return 0, 0, false
	}
	y, ok := digits(q.Year, 4)
	if !ok || y < 1 {
		return 0, 0, false
	}
	return y, time.Month(m), true
}

// digits parses an unsigned decimal of at most maxLen digits.
func digits(raw string, maxLen int) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxLen {
		return 0, false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}

// Window is the inclusive range of calendar days covered by the trend.
type Window struct {
	From    time.Time
	To      time.Time
	Monthly bool
}

// ResolveWindow returns the requested calendar month, or the trailing seven
// days ending on now's calendar day.
func ResolveWindow(q Query, now time.Time) Window {
	if year, month, ok := q.Period(); ok {
		from := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
		to := from.AddDate(0, 1, -1)
		return Window{From: from, To: to, Monthly: true}
	}
	to := startOfDay(now)
	return Window{From: to.AddDate(0, 0, -(TrailingDays - 1)), To: to}
}

// Days enumerates every calendar day of the window, oldest first.
func (w Window) Days() []time.Time {
	if w.From.After(w.To) {
		return nil
	}
	var days []time.Time
	for day := w.From; !day.After(w.To); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days
}

func (w Window) contains(day time.Time) bool {
	return !day.Before(w.From) && !day.After(w.To)
}

// Filtered holds the collections that survived the filter stage.
type Filtered struct {
	Sales    []Sale
	Expenses []Expense
	Items    []SaleItem
}

// ApplyFilters narrows the dataset by calendar month and category. Shop scope
// is applied upstream by the Source. Records without a usable date are dropped
// from month-scoped sets.
func ApplyFilters(data Dataset, q Query, loc *time.Location) Filtered {
	if loc == nil {
		loc = time.UTC
	}
	out := Filtered{Sales: data.Sales, Expenses: data.Expenses, Items: data.SaleItems}

	if year, month, ok := q.Period(); ok {
		inPeriod := func(ts Timestamp) bool {
			day, valid := ts.Day(loc)
			return valid && day.Year() == year && day.Month() == month
		}
		out.Sales = make([]Sale, 0, len(data.Sales))
		kept := make(map[string]struct{}, len(data.Sales))
		for _, sale := range data.Sales {
			if inPeriod(sale.CreatedAt) {
				out.Sales = append(out.Sales, sale)
				kept[sale.ID] = struct{}{}
			}
		}
		out.Expenses = make([]Expense, 0, len(data.Expenses))
		for _, expense := range data.Expenses {
			if inPeriod(expense.Date) {
				out.Expenses = append(out.Expenses, expense)
			}
		}
		out.Items = make([]SaleItem, 0, len(data.SaleItems))
		for _, item := range data.SaleItems {
			if _, ok := kept[item.SaleID]; ok {
				out.Items = append(out.Items, item)
			}
		}
	}

	if q.CategoryActive() {
		category := strings.TrimSpace(q.Category)
		items := make([]SaleItem, 0, len(out.Items))
		for _, item := range out.Items {
			if item.Product != nil && strings.TrimSpace(item.Product.Category) == category {
				items = append(items, item)
			}
		}
		out.Items = items
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
