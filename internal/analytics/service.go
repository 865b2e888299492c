package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidShop is returned when the shop identifier is neither "all" nor a UUID.
var ErrInvalidShop = errors.New("analytics: invalid shop id")

// Scope restricts fetches to one shop; a nil ShopID spans every shop.
type Scope struct {
	ShopID *uuid.UUID
}

// ScopeFor derives the fetch scope from a query.
func ScopeFor(q Query) (Scope, error) {
	if q.AllShops() {
		return Scope{}, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(q.ShopID))
	if err != nil {
		return Scope{}, fmt.Errorf("%w: %q", ErrInvalidShop, q.ShopID)
	}
	return Scope{ShopID: &id}, nil
}

// Source fetches the shop-scoped collections a report is built from. The four
// calls are independent and may run concurrently.
type Source interface {
	ListSales(ctx context.Context, scope Scope) ([]Sale, error)
	ListExpenses(ctx context.Context, scope Scope) ([]Expense, error)
	ListSaleItems(ctx context.Context, scope Scope) ([]SaleItem, error)
	ListDebts(ctx context.Context, scope Scope) ([]Debt, error)
}

// FetchError reports which collection could not be loaded.
type FetchError struct {
	Collection string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("analytics: fetch %s: %v", e.Collection, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Observer is notified after every report request.
type Observer interface {
	ObserveReport(duration time.Duration, err error)
}

// Service coordinates source fetches, the report engine and the cache layer.
type Service struct {
	source   Source
	cache    *Cache
	loc      *time.Location
	now      func() time.Time
	observer Observer
}

// NewService wires a Source with an optional Cache.
func NewService(source Source, cache *Cache) *Service {
	return &Service{source: source, cache: cache, loc: time.UTC, now: time.Now}
}

// WithLocation sets the time zone used to bucket dates into days.
func (s *Service) WithLocation(loc *time.Location) {
	if loc != nil {
		s.loc = loc
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// WithObserver installs a report observer.
func (s *Service) WithObserver(o Observer) {
	s.observer = o
}

// Cache exposes the cache helper for invalidation.
func (s *Service) Cache() *Cache {
	return s.cache
}

// Today returns the service clock in the report time zone.
func (s *Service) Today() time.Time {
	return s.now().In(s.loc)
}

// Report fetches the scoped collections and assembles the report. A failed
// fetch fails the whole report.
func (s *Service) Report(ctx context.Context, q Query) (Report, error) {
	start := time.Now()
	report, err := s.report(ctx, q)
	if s.observer != nil {
		s.observer.ObserveReport(time.Since(start), err)
	}
	return report, err
}

// Compute runs the engine over caller-supplied collections.
func (s *Service) Compute(raw RawDataset, q Query) (Report, error) {
	if _, err := ScopeFor(q); err != nil {
		return Report{}, err
	}
	return BuildReport(raw.Normalize(), q, s.Today()), nil
}

func (s *Service) report(ctx context.Context, q Query) (Report, error) {
	if s.source == nil {
		return Report{}, errors.New("analytics: source not configured")
	}
	scope, err := ScopeFor(q)
	if err != nil {
		return Report{}, err
	}
	now := s.Today()
	loader := func(ctx context.Context) (Report, error) {
		data, err := s.fetch(ctx, scope)
		if err != nil {
			return Report{}, err
		}
		return BuildReport(data, q, now), nil
	}

	// An unreachable cache leaves key empty and the report is built uncached.
	key, _ := s.cache.BuildKey(ctx, keyReport(q, now))
	return fetchJSON(ctx, s.cache, key, loader)
}

func (s *Service) fetch(ctx context.Context, scope Scope) (Dataset, error) {
	var data Dataset
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sales, err := s.source.ListSales(ctx, scope)
		if err != nil {
			return &FetchError{Collection: "sales", Err: err}
		}
		data.Sales = sales
		return nil
	})

	g.Go(func() error {
		expenses, err := s.source.ListExpenses(ctx, scope)
		if err != nil {
			return &FetchError{Collection: "expenses", Err: err}
		}
		data.Expenses = expenses
		return nil
	})

	g.Go(func() error {
		items, err := s.source.ListSaleItems(ctx, scope)
		if err != nil {
			return &FetchError{Collection: "sale_items", Err: err}
		}
		data.SaleItems = items
		return nil
	})

	g.Go(func() error {
		debts, err := s.source.ListDebts(ctx, scope)
		if err != nil {
			return &FetchError{Collection: "debts", Err: err}
		}
		data.Debts = debts
		return nil
	})

	if err := g.Wait(); err != nil {
		return Dataset{}, err
	}
	return data, nil
}
