package analyticsdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/retail-analytics/internal/analytics"
)

type fakeRows struct {
	rows [][]any
	pos  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) { return r.rows[r.pos-1], nil }

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("expected %d destinations, got %d", len(row), len(dest))
	}
	for i, d := range dest {
		if scanner, ok := d.(sql.Scanner); ok {
			if err := scanner.Scan(row[i]); err != nil {
				return err
			}
			continue
		}
		target := reflect.ValueOf(d).Elem()
		if row[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(row[i]))
	}
	return nil
}

type fakeDB struct {
	rows  map[string][][]any
	err   error
	sql   string
	args  []any
	calls int
}

func (f *fakeDB) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	f.calls++
	f.sql = query
	f.args = args
	if f.err != nil {
		return nil, f.err
	}
	for table, rows := range f.rows {
		if strings.Contains(query, "FROM "+table) {
			return &fakeRows{rows: rows}, nil
		}
	}
	return &fakeRows{}, nil
}

func TestListSalesScansRows(t *testing.T) {
	created := time.Date(2025, time.March, 5, 8, 0, 0, 0, time.UTC)
	db := &fakeDB{rows: map[string][][]any{
		"sales": {
			{"s1", "shop-1", "1180.00", created},
			{"s2", nil, nil, nil},
		},
	}}
	shop := uuid.New()

	sales, err := New(db).ListSales(context.Background(), analytics.Scope{ShopID: &shop})
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, analytics.Sale{ID: "s1", ShopID: "shop-1", TotalAmount: 1180, CreatedAt: analytics.At(created)}, sales[0])
	assert.False(t, sales[1].CreatedAt.Valid)
	assert.Zero(t, sales[1].TotalAmount)

	param, ok := db.args[0].(pgtype.UUID)
	require.True(t, ok)
	assert.True(t, param.Valid)
	assert.Equal(t, [16]byte(shop), param.Bytes)
}

func TestListSaleItemsNormalizesProducts(t *testing.T) {
	db := &fakeDB{rows: map[string][][]any{
		"sale_items": {
			{"i1", "s1", "2", "500.50", []byte(`{"name":"Robe","category":"A","cost_price":300}`)},
			{"i2", "s1", "1", "90", nil},
		},
	}}

	items, err := New(db).ListSaleItems(context.Background(), analytics.Scope{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.NotNil(t, items[0].Product)
	assert.Equal(t, "Robe", items[0].Product.Name)
	assert.Equal(t, 300.0, items[0].Product.Cost())
	assert.Equal(t, 500.5, items[0].Price)
	assert.Nil(t, items[1].Product)

	param := db.args[0].(pgtype.UUID)
	assert.False(t, param.Valid)
}

func TestListExpensesAndDebts(t *testing.T) {
	date := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	db := &fakeDB{rows: map[string][][]any{
		"expenses": {{"e1", nil, "75.25", date, true}},
		"debts":    {{"shop-1", "40", "pending"}},
	}}
	q := New(db)

	expenses, err := q.ListExpenses(context.Background(), analytics.Scope{})
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, 75.25, expenses[0].Amount)
	assert.True(t, expenses[0].Personal)
	assert.True(t, expenses[0].Date.Valid)
	assert.True(t, expenses[0].Date.Wall)
	west := time.FixedZone("UTC-5", -5*60*60)
	d, ok := expenses[0].Date.Day(west)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, west), d)
	assert.Contains(t, db.sql, "e.is_personal")

	debts, err := q.ListDebts(context.Background(), analytics.Scope{})
	require.NoError(t, err)
	assert.Equal(t, []analytics.Debt{{ShopID: "shop-1", RemainingAmount: 40, Status: "pending"}}, debts)
}

func TestListShopIDs(t *testing.T) {
	db := &fakeDB{rows: map[string][][]any{"shops": {{"a"}, {"b"}}}}
	ids, err := New(db).ListShopIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestQueryErrorsAreWrapped(t *testing.T) {
	boom := errors.New("boom")
	_, err := New(&fakeDB{err: boom}).ListDebts(context.Background(), analytics.Scope{})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "analyticsdb: list debts")
}

func TestAmountConversion(t *testing.T) {
	assert.Zero(t, amount(decimal.NullDecimal{}))
	assert.Equal(t, 10.5, amount(decimal.NewNullDecimal(decimal.RequireFromString("10.50"))))
	assert.False(t, timestamptz(pgtype.Timestamptz{Valid: true, InfinityModifier: pgtype.Infinity}).Valid)
	assert.False(t, dateValue(pgtype.Date{}).Valid)
}

func TestSchemaCoversQueriedTables(t *testing.T) {
	for _, table := range []string{"shops", "products", "sales", "sale_items", "expenses", "debts"} {
		assert.Contains(t, Schema, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}
