package interfaces

import (
	"context"
	"time"

	"orb-news-trader/internal/types"
)

// Broker is the order-management and market-data surface of the brokerage
// service. Implementations enforce their own per-call deadlines.
type Broker interface {
	GetClock(ctx context.Context) (types.Clock, error)
	GetCalendar(ctx context.Context, start, end string) ([]types.CalendarDay, error)
	GetAccount(ctx context.Context) (types.Account, error)
	GetLatestQuote(ctx context.Context, symbol string) (types.Quote, error)
	GetLatestBar(ctx context.Context, symbol string) (types.Bar, error)
	GetBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]types.Bar, error)
	ListPositions(ctx context.Context) ([]types.Position, error)
	GetPosition(ctx context.Context, symbol string) (types.Position, error)
	SubmitOrder(ctx context.Context, req types.OrderReq) (types.Order, error)
	GetOrder(ctx context.Context, orderID string) (types.Order, error)
}
