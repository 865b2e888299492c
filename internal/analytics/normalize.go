package analytics

import (
	"bytes"
	"encoding/json"
)

// NormalizeProduct coerces a joined product reference into a single record.
// Both `{...}` and `[{...}]` are accepted; null, empty arrays and undecodable
// payloads yield nil.
func NormalizeProduct(raw json.RawMessage) *Product {
	if isJSONNull(raw) {
		return nil
	}
	trimmed := bytes.TrimSpace(raw)
	switch trimmed[0] {
	case '[':
		var list []*Product
		if err := json.Unmarshal(trimmed, &list); err != nil || len(list) == 0 {
			return nil
		}
		return list[0]
	case '{':
		var product Product
		if err := json.Unmarshal(trimmed, &product); err != nil {
			return nil
		}
		return &product
	default:
		return nil
	}
}

// NormalizeItem flattens a raw sale line.
func NormalizeItem(raw RawSaleItem) SaleItem {
	return SaleItem{
		ID:       raw.ID,
		SaleID:   raw.SaleID,
		Product:  NormalizeProduct(raw.Products),
		Quantity: raw.Quantity,
		Price:    raw.Price,
	}
}

// NormalizeItems flattens every raw sale line. All product reads downstream go
// through the result of this function.
func NormalizeItems(raw []RawSaleItem) []SaleItem {
	items := make([]SaleItem, 0, len(raw))
	for _, item := range raw {
		items = append(items, NormalizeItem(item))
	}
	return items
}
