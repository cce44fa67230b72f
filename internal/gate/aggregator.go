// ABOUTME: Onboarding state aggregator with sequential short-circuit lookups
// ABOUTME: Derives Progress from session, store, and product lookups, failing toward the earliest step

package gate

import (
	"context"
	"log/slog"
	"time"
)

// DefaultLookupTimeout bounds each external lookup when no timeout is
// configured.
const DefaultLookupTimeout = 5 * time.Second

// Aggregator derives onboarding Progress for one browser session. Lookups
// run sequentially and short-circuit: no store query without a principal,
// no product query without a store.
type Aggregator struct {
	resolver SessionResolver
	stores   StoreLookup
	products ProductLookup
	timeout  time.Duration
	logger   *slog.Logger
}

// NewAggregator creates an aggregator. timeout bounds each individual
// lookup; zero means DefaultLookupTimeout. Pass nil logger for default.
func NewAggregator(resolver SessionResolver, stores StoreLookup, products ProductLookup, timeout time.Duration, logger *slog.Logger) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		resolver: resolver,
		stores:   stores,
		products: products,
		timeout:  timeout,
		logger:   logger.With("component", "gate"),
	}
}

// Aggregate runs one full resolution pass and returns the derived Progress.
// Every error path degrades to the most conservative answer for that stage:
// a failed session resolution reads as signed out, a failed store lookup as
// "no store", a failed product lookup as "no products". The result is
// computed whole; callers apply it atomically or not at all.
func (a *Aggregator) Aggregate(ctx context.Context) Progress {
	principal, err := a.resolveWithTimeout(ctx)
	if err != nil {
		a.logger.Warn("session resolution failed, treating as signed out", "error", err)
		return Progress{}
	}
	if principal == nil {
		return Progress{}
	}

	storeRef, err := a.findStoreWithTimeout(ctx, principal.ID)
	if err != nil {
		a.logger.Warn("store lookup failed, treating as no store",
			"merchant_id", principal.ID, "error", err)
		return Progress{Authenticated: true}
	}
	if storeRef == nil {
		return Progress{Authenticated: true}
	}

	hasProduct, err := a.anyProductWithTimeout(ctx, storeRef.ID)
	if err != nil {
		a.logger.Warn("product lookup failed, treating as no products",
			"store_id", storeRef.ID, "error", err)
		return Progress{Authenticated: true, HasStore: true}
	}

	return Progress{Authenticated: true, HasStore: true, HasProduct: hasProduct}
}

func (a *Aggregator) resolveWithTimeout(ctx context.Context) (*Principal, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.resolver.CurrentPrincipal(ctx)
}

func (a *Aggregator) findStoreWithTimeout(ctx context.Context, ownerID string) (*StoreRef, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.stores.FindStoreByOwner(ctx, ownerID)
}

func (a *Aggregator) anyProductWithTimeout(ctx context.Context, storeID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.products.AnyProductForStore(ctx, storeID)
}
