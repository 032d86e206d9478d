package alpaca

import (
	"context"
	"fmt"

	"orb-news-trader/internal/interfaces"
	"orb-news-trader/internal/types"
)

// QuotePriceSource prices off the live NBBO midpoint. Needs a data plan
// that serves real-time quotes.
type QuotePriceSource struct {
	Broker interfaces.Broker
}

var _ interfaces.PriceSource = (*QuotePriceSource)(nil)

func (s *QuotePriceSource) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	q, err := s.Broker.GetLatestQuote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	mid := q.Mid()
	if mid <= 0 {
		return 0, fmt.Errorf("quote midpoint for %s: %w", symbol, types.ErrDataUnavailable)
	}
	return mid, nil
}

// DelayedPriceSource prices off the close of the most recent minute bar.
// Free-tier fallback when real-time quotes are not entitled.
type DelayedPriceSource struct {
	Broker interfaces.Broker
}

var _ interfaces.PriceSource = (*DelayedPriceSource)(nil)

func (s *DelayedPriceSource) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	bar, err := s.Broker.GetLatestBar(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if bar.Close <= 0 {
		return 0, fmt.Errorf("latest bar close for %s: %w", symbol, types.ErrDataUnavailable)
	}
	return bar.Close, nil
}
