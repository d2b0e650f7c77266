// Package content is the boundary to the host application's document store
// and rules engine. The builder resolves item references, lists compendium
// categories, and asks for character projections through this client; it
// never owns the documents themselves.
package content

//go:generate mockgen -destination=mock/mock_client.go -package=mockcontent -source=interface.go

import (
	"context"

	"github.com/emberfell/character-builder/internal/domain/compendium"
)

// Filters narrows a category listing.
type Filters struct {
	// MaxCostUnits drops gear above the given cost. Zero means no limit.
	MaxCostUnits float64

	// Refs restricts the listing to the given refs, preserving their order.
	Refs []string
}

// Client resolves compendium documents and derived character numbers.
//
// GetItem returns a not-found error for unknown refs; callers treat that as a
// soft failure (log and skip), never as fatal. ListCategory results are sorted
// by display name. ProjectCharacter is the host rules engine computing derived
// fields for a throwaway character; the builder does not reimplement those
// rules.
type Client interface {
	GetItem(ctx context.Context, ref string) (*compendium.Item, error)
	ListCategory(ctx context.Context, category compendium.Category, filters *Filters) ([]compendium.ItemSummary, error)
	ProjectCharacter(ctx context.Context, input *compendium.ProjectionInput) (*compendium.DerivedFields, error)
}
