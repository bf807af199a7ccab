package interfaces

import (
	"context"

	pricing "main/internal/domain/entity/pricing"
)

// Publisher fans freshly derived artifacts out to downstream consumers.
// Best effort only: publish failures never affect a cycle's verdict.
type Publisher interface {
	PublishCycleRun(ctx context.Context, run *pricing.CycleRun) error
	PublishVWAP(ctx context.Context, record *pricing.VWAPRecord) error
	Close()
}
