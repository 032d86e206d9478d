package engineobs

import (
	"context"

	"orb-news-trader/internal/interfaces"
	"orb-news-trader/internal/logger"
	"orb-news-trader/internal/trace"
	"orb-news-trader/internal/types"
)

// observableEngine wraps an Engine with observability (logging & tracing)
type observableEngine struct {
	engine interfaces.Engine
}

// Compile-time interface check
var _ interfaces.Engine = (*observableEngine)(nil)

// Wrap wraps an engine with observability middleware
func Wrap(engine interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: engine,
	}
}

func (oe *observableEngine) RunCycle(ctx context.Context) ([]types.ExecutionResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.RunCycle")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Trading cycle starting")

	results, err := oe.engine.RunCycle(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Trading cycle failed", err)
		return nil, err
	}

	executed, queued := 0, 0
	for _, r := range results {
		if r.Executed {
			executed++
		}
		if r.Queued {
			queued++
		}
	}
	logger.InfoSkip(ctx, 1, "Trading cycle completed",
		"results", len(results),
		"executed", executed,
		"queued", queued,
	)
	return results, nil
}
