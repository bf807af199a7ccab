package interfaces

import (
	"context"

	pricing "main/internal/domain/entity/pricing"
)

// SourceAdapter is the capability every market-data source implements. An
// empty code list requests all instruments the source serves. Adapters may
// fail with network or protocol errors; the extractor imposes an outer
// timeout regardless of the adapter's own discipline.
type SourceAdapter interface {
	ID() string
	FetchQuotes(ctx context.Context, codes []string) ([]pricing.QuoteRecord, error)
}
