package analytics

import "time"

// TrendPoint conveys the cash movement of one calendar day.
type TrendPoint struct {
	Date    string  `json:"date"`
	Income  float64 `json:"income"`
	Outcome float64 `json:"outcome"`
}

// BuildTrend returns one point per day of the window, oldest first, with
// zero-filled days where nothing happened. Records outside the window or
// without a usable date are ignored.
func BuildTrend(w Window, sales []Sale, expenses []Expense) []TrendPoint {
	loc := w.From.Location()
	income := make(map[string]float64)
	outcome := make(map[string]float64)
	for _, sale := range sales {
		if key, ok := dayKey(sale.CreatedAt, w, loc); ok {
			income[key] += sale.TotalAmount
		}
	}
	for _, expense := range expenses {
		if key, ok := dayKey(expense.Date, w, loc); ok {
			outcome[key] += expense.Amount
		}
	}

	days := w.Days()
	points := make([]TrendPoint, 0, len(days))
	for _, day := range days {
		key := day.Format(dayLayout)
		points = append(points, TrendPoint{Date: key, Income: income[key], Outcome: outcome[key]})
	}
	return points
}

func dayKey(ts Timestamp, w Window, loc *time.Location) (string, bool) {
	day, ok := ts.Day(loc)
	if !ok || !w.contains(day) {
		return "", false
	}
	return day.Format(dayLayout), true
}
