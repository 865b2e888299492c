package analytics

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

const (
	// VATRate is the fixed value-added tax rate embedded in sale totals.
	VATRate = 0.18
	// AllShops disables the shop restriction.
	AllShops = "all"
	// AllCategories disables the category filter.
	AllCategories = "Toutes"
	// TopProductsLimit bounds the product ranking.
	TopProductsLimit = 5
	// TrailingDays is the trend window used when no month/year is requested.
	TrailingDays = 7
	// UnknownProduct labels line items whose product reference is missing.
	UnknownProduct = "Inconnu"
)

const dayLayout = "2006-01-02"

// Timestamp is a leniently decoded point in time. Records whose date is
// missing or malformed keep Valid=false instead of failing the whole payload.
// Wall is set for values written without a zone (plain dates, timestamp
// without time zone): their fields are read as-is in the report zone.
type Timestamp struct {
	Time  time.Time
	Valid bool
	Wall  bool
}

var timestampLayouts = []struct {
	layout string
	wall   bool
}{
	{time.RFC3339Nano, false},
	{"2006-01-02 15:04:05.999999-07", false},
	{"2006-01-02T15:04:05.999999", true},
	{"2006-01-02 15:04:05.999999", true},
	{"2006-01-02 15:04:05", true},
	{dayLayout, true},
}

const wallLayout = "2006-01-02T15:04:05.999999999"

// At wraps a valid time.
func At(t time.Time) Timestamp {
	return Timestamp{Time: t, Valid: !t.IsZero()}
}

// WallDate is a calendar day with no zone attached.
func WallDate(y int, m time.Month, d int) Timestamp {
	return Timestamp{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true, Wall: true}
}

// ParseTimestamp accepts the ISO-like layouts produced by PostgreSQL and REST
// collaborators. Anything else yields an invalid Timestamp.
func ParseTimestamp(raw string) Timestamp {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Timestamp{}
	}
	for _, l := range timestampLayouts {
		if t, err := time.Parse(l.layout, raw); err == nil {
			return Timestamp{Time: t, Valid: true, Wall: l.wall}
		}
	}
	return Timestamp{}
}

// UnmarshalJSON never returns an error for bad dates.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*t = Timestamp{}
		return nil
	}
	*t = ParseTimestamp(raw)
	return nil
}

// MarshalJSON renders RFC3339, a zone-less timestamp for wall values, or null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	if t.Wall {
		return json.Marshal(t.Time.Format(wallLayout))
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// Day truncates the timestamp to its calendar day in loc. Wall values keep
// their written date.
func (t Timestamp) Day(loc *time.Location) (time.Time, bool) {
	if !t.Valid {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	if t.Wall {
		return time.Date(t.Time.Year(), t.Time.Month(), t.Time.Day(), 0, 0, 0, 0, loc), true
	}
	return startOfDay(t.Time.In(loc)), true
}

// Sale is one completed transaction. TotalAmount includes VAT.
type Sale struct {
	ID          string    `json:"id"`
	ShopID      string    `json:"shop_id"`
	TotalAmount float64   `json:"total_amount"`
	CreatedAt   Timestamp `json:"created_at"`
}

// Expense is an outgoing payment. Personal marks personal or cross-shop
// spending as opposed to shop operations.
type Expense struct {
	ID       string    `json:"id"`
	ShopID   string    `json:"shop_id"`
	Amount   float64   `json:"amount"`
	Date     Timestamp `json:"date"`
	Personal bool      `json:"is_personal"`
}

// Debt is an outstanding customer balance.
type Debt struct {
	ShopID          string  `json:"shop_id"`
	RemainingAmount float64 `json:"remaining_amount"`
	Status          string  `json:"status"`
}

// Product is the product data embedded in a sale line.
type Product struct {
	Name      string   `json:"name"`
	Category  string   `json:"category"`
	CostPrice *float64 `json:"cost_price"`
}

// Cost returns the cost price, zero when absent.
func (p *Product) Cost() float64 {
	if p == nil || p.CostPrice == nil {
		return 0
	}
	return *p.CostPrice
}

// RawSaleItem is a sale line as delivered by a collaborator. Products holds the
// joined product as either an object or a one-element array.
type RawSaleItem struct {
	ID       string          `json:"id"`
	SaleID   string          `json:"sale_id"`
	Products json.RawMessage `json:"products"`
	Quantity float64         `json:"quantity"`
	Price    float64         `json:"price"`
}

// SaleItem is a normalized sale line.
type SaleItem struct {
	ID       string
	SaleID   string
	Product  *Product
	Quantity float64
	Price    float64
}

// Revenue is quantity × unit price.
func (i SaleItem) Revenue() float64 {
	return i.Quantity * i.Price
}

// Category returns the product category, empty when the product is missing.
func (i SaleItem) Category() string {
	if i.Product == nil {
		return ""
	}
	return i.Product.Category
}

// Dataset is the set of collections a report is computed from.
type Dataset struct {
	Sales     []Sale
	Expenses  []Expense
	SaleItems []SaleItem
	Debts     []Debt
}

// RawDataset mirrors Dataset with unnormalized sale lines.
type RawDataset struct {
	Sales     []Sale        `json:"sales"`
	Expenses  []Expense     `json:"expenses"`
	SaleItems []RawSaleItem `json:"saleItems"`
	Debts     []Debt        `json:"debts"`
}

// Normalize converts the raw collections into a Dataset.
func (r RawDataset) Normalize() Dataset {
	return Dataset{
		Sales:     r.Sales,
		Expenses:  r.Expenses,
		SaleItems: NormalizeItems(r.SaleItems),
		Debts:     r.Debts,
	}
}

func isJSONNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
