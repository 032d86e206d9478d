package interfaces

import (
	"context"

	"orb-news-trader/internal/types"
)

// Engine runs one full trading cycle over the tracked universe.
type Engine interface {
	RunCycle(ctx context.Context) ([]types.ExecutionResult, error)
}
