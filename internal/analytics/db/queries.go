// Package analyticsdb reads the report collections from PostgreSQL.
package analyticsdb

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/retail-analytics/internal/analytics"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Queries implements analytics.Source.
type Queries struct {
	db DBTX
}

// New wraps a connection or pool.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

var _ analytics.Source = (*Queries)(nil)

const listSales = `
SELECT s.id::text, s.shop_id::text, s.total_amount, s.created_at
FROM sales s
WHERE ($1::uuid IS NULL OR s.shop_id = $1)
ORDER BY s.created_at, s.id`

// ListSales returns every sale of the scope.
func (q *Queries) ListSales(ctx context.Context, scope analytics.Scope) ([]analytics.Sale, error) {
	rows, err := q.db.Query(ctx, listSales, shopParam(scope))
	if err != nil {
		return nil, fmt.Errorf("analyticsdb: list sales: %w", err)
	}
	defer rows.Close()

	var sales []analytics.Sale
	for rows.Next() {
		var (
			sale      analytics.Sale
			shopID    pgtype.Text
			total     decimal.NullDecimal
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&sale.ID, &shopID, &total, &createdAt); err != nil {
			return nil, fmt.Errorf("analyticsdb: scan sale: %w", err)
		}
		sale.ShopID = shopID.String
		sale.TotalAmount = amount(total)
		sale.CreatedAt = timestamptz(createdAt)
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("analyticsdb: list sales: %w", err)
	}
	return sales, nil
}

// Shop-scoped reports also carry personal and cross-shop expenses, which are
// stored without a shop.
const listExpenses = `
SELECT e.id::text, e.shop_id::text, e.amount, e.date, COALESCE(e.is_personal, false)
FROM expenses e
WHERE ($1::uuid IS NULL OR e.shop_id = $1 OR (e.shop_id IS NULL AND e.is_personal))
ORDER BY e.date, e.id`

// ListExpenses returns the operational and personal expenses of the scope.
func (q *Queries) ListExpenses(ctx context.Context, scope analytics.Scope) ([]analytics.Expense, error) {
	rows, err := q.db.Query(ctx, listExpenses, shopParam(scope))
	if err != nil {
		return nil, fmt.Errorf("analyticsdb: list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []analytics.Expense
	for rows.Next() {
		var (
			expense analytics.Expense
			shopID  pgtype.Text
			value   decimal.NullDecimal
			date    pgtype.Date
		)
		if err := rows.Scan(&expense.ID, &shopID, &value, &date, &expense.Personal); err != nil {
			return nil, fmt.Errorf("analyticsdb: scan expense: %w", err)
		}
		expense.ShopID = shopID.String
		expense.Amount = amount(value)
		expense.Date = dateValue(date)
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("analyticsdb: list expenses: %w", err)
	}
	return expenses, nil
}

// The product join is delivered as jsonb so it goes through the same
// normalizer as REST payloads.
const listSaleItems = `
SELECT si.id::text, si.sale_id::text, si.quantity, si.price,
       CASE WHEN p.id IS NULL THEN NULL
            ELSE jsonb_build_object('name', p.name, 'category', p.category, 'cost_price', p.cost_price)
       END AS products
FROM sale_items si
JOIN sales s ON s.id = si.sale_id
LEFT JOIN products p ON p.id = si.product_id
WHERE ($1::uuid IS NULL OR s.shop_id = $1)
ORDER BY si.sale_id, si.id`

// ListSaleItems returns the sale lines of the scope with their product.
func (q *Queries) ListSaleItems(ctx context.Context, scope analytics.Scope) ([]analytics.SaleItem, error) {
	rows, err := q.db.Query(ctx, listSaleItems, shopParam(scope))
	if err != nil {
		return nil, fmt.Errorf("analyticsdb: list sale items: %w", err)
	}
	defer rows.Close()

	var raw []analytics.RawSaleItem
	for rows.Next() {
		var (
			item     analytics.RawSaleItem
			quantity decimal.NullDecimal
			price    decimal.NullDecimal
			product  []byte
		)
		if err := rows.Scan(&item.ID, &item.SaleID, &quantity, &price, &product); err != nil {
			return nil, fmt.Errorf("analyticsdb: scan sale item: %w", err)
		}
		item.Quantity = amount(quantity)
		item.Price = amount(price)
		item.Products = product
		raw = append(raw, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("analyticsdb: list sale items: %w", err)
	}
	return analytics.NormalizeItems(raw), nil
}

const listDebts = `
SELECT d.shop_id::text, d.remaining_amount, COALESCE(d.status, '')
FROM debts d
WHERE ($1::uuid IS NULL OR d.shop_id = $1)`

// ListDebts returns the current debts of the scope.
func (q *Queries) ListDebts(ctx context.Context, scope analytics.Scope) ([]analytics.Debt, error) {
	rows, err := q.db.Query(ctx, listDebts, shopParam(scope))
	if err != nil {
		return nil, fmt.Errorf("analyticsdb: list debts: %w", err)
	}
	defer rows.Close()

	var debts []analytics.Debt
	for rows.Next() {
		var (
			debt      analytics.Debt
			shopID    pgtype.Text
			remaining decimal.NullDecimal
		)
		if err := rows.Scan(&shopID, &remaining, &debt.Status); err != nil {
			return nil, fmt.Errorf("analyticsdb: scan debt: %w", err)
		}
		debt.ShopID = shopID.String
		debt.RemainingAmount = amount(remaining)
		debts = append(debts, debt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("analyticsdb: list debts: %w", err)
	}
	return debts, nil
}

const listShopIDs = `SELECT id::text FROM shops ORDER BY id`

// ListShopIDs returns every shop identifier.
func (q *Queries) ListShopIDs(ctx context.Context) ([]string, error) {
	rows, err := q.db.Query(ctx, listShopIDs)
	if err != nil {
		return nil, fmt.Errorf("analyticsdb: list shops: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("analyticsdb: list shops: %w", err)
	}
	return ids, nil
}

func shopParam(scope analytics.Scope) pgtype.UUID {
	if scope.ShopID == nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: *scope.ShopID, Valid: true}
}

func amount(v decimal.NullDecimal) float64 {
	if !v.Valid {
		return 0
	}
	return v.Decimal.InexactFloat64()
}

func timestamptz(v pgtype.Timestamptz) analytics.Timestamp {
	if !v.Valid || v.InfinityModifier != pgtype.Finite {
		return analytics.Timestamp{}
	}
	return analytics.At(v.Time)
}

func dateValue(v pgtype.Date) analytics.Timestamp {
	if !v.Valid || v.InfinityModifier != pgtype.Finite {
		return analytics.Timestamp{}
	}
	return analytics.WallDate(v.Time.Year(), v.Time.Month(), v.Time.Day())
}
