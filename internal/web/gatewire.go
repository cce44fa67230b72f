// ABOUTME: Adapters binding the onboarding gate to identity and catalog data
// ABOUTME: Builds per-session aggregators from the shared services

package web

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopyhq/shopy/internal/gate"
	"github.com/shopyhq/shopy/internal/identity"
	"github.com/shopyhq/shopy/internal/store"
)

// sessionResolver binds one session token to the identity service.
type sessionResolver struct {
	identity *identity.Service
	token    string
}

func (r *sessionResolver) CurrentPrincipal(ctx context.Context) (*gate.Principal, error) {
	p, err := r.identity.ResolveSession(ctx, r.token)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	return &gate.Principal{ID: p.ID, Email: p.Email}, nil
}

// storeLookup answers "does this merchant own a store" from the database.
type storeLookup struct {
	store store.Store
}

func (l *storeLookup) FindStoreByOwner(ctx context.Context, ownerID string) (*gate.StoreRef, error) {
	rec, err := l.store.GetStoreByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &gate.StoreRef{ID: rec.ID, Name: rec.Name}, nil
}

// productLookup answers "does this store have any product" from the database.
type productLookup struct {
	store store.Store
}

func (l *productLookup) AnyProductForStore(ctx context.Context, storeID string) (bool, error) {
	n, err := l.store.CountProductsByStore(ctx, storeID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// NewAggregatorFactory builds session-bound aggregators for the gate
// manager: each gate's resolver sees exactly its own session token.
func NewAggregatorFactory(idsvc *identity.Service, st store.Store, lookupTimeout time.Duration, logger *slog.Logger) gate.AggregatorFactory {
	stores := &storeLookup{store: st}
	products := &productLookup{store: st}
	return func(sessionID string) *gate.Aggregator {
		resolver := &sessionResolver{identity: idsvc, token: sessionID}
		return gate.NewAggregator(resolver, stores, products, lookupTimeout, logger)
	}
}
