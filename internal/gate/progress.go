// ABOUTME: Value types and collaborator contracts for the onboarding gate
// ABOUTME: Progress is the atomic output of one aggregation pass

package gate

import "context"

// Principal is the authenticated identity observed by the gate. It is a
// typed snapshot of the identity service's answer, never mutated here.
type Principal struct {
	ID    string
	Email string
}

// StoreRef is the gate's view of a merchant's storefront record.
type StoreRef struct {
	ID   string
	Name string
}

// Progress is the three-stage onboarding state derived by one full
// aggregation pass. It is computed fresh each pass, never partially
// updated. HasProduct true implies HasStore true.
type Progress struct {
	Authenticated bool
	HasStore      bool
	HasProduct    bool
}

// SessionResolver resolves the current browser session to a Principal.
// A signed-out session resolves to (nil, nil); errors are treated by the
// aggregator as signed-out (fail open).
type SessionResolver interface {
	CurrentPrincipal(ctx context.Context) (*Principal, error)
}

// StoreLookup finds the storefront owned by a merchant. Absence is
// (nil, nil), not an error.
type StoreLookup interface {
	FindStoreByOwner(ctx context.Context, ownerID string) (*StoreRef, error)
}

// ProductLookup reports whether a store has at least one product.
type ProductLookup interface {
	AnyProductForStore(ctx context.Context, storeID string) (bool, error)
}
