package interfaces

import "context"

// PriceSource supplies the reference price used for breakout checks and
// position sizing. Variants: live broker quotes, or delayed last-bar closes.
type PriceSource interface {
	LatestPrice(ctx context.Context, symbol string) (float64, error)
}
