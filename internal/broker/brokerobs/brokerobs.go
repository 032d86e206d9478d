package brokerobs

import (
	"context"
	"time"

	"orb-news-trader/internal/interfaces"
	"orb-news-trader/internal/logger"
	"orb-news-trader/internal/trace"
	"orb-news-trader/internal/types"
)

// observableBroker wraps a Broker with observability (logging & tracing)
type observableBroker struct {
	broker interfaces.Broker
}

// Compile-time interface check
var _ interfaces.Broker = (*observableBroker)(nil)

// Wrap wraps a broker with observability middleware
func Wrap(broker interfaces.Broker) interfaces.Broker {
	return &observableBroker{
		broker: broker,
	}
}

func (ob *observableBroker) GetClock(ctx context.Context) (types.Clock, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetClock")
	defer span.End()

	clock, err := ob.broker.GetClock(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch market clock", err)
		return types.Clock{}, err
	}

	logger.DebugSkip(ctx, 1, "Market clock fetched", "is_open", clock.IsOpen)
	return clock, nil
}

func (ob *observableBroker) GetCalendar(ctx context.Context, start, end string) ([]types.CalendarDay, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetCalendar")
	defer span.End()

	days, err := ob.broker.GetCalendar(ctx, start, end)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch trading calendar", err, "start", start, "end", end)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Trading calendar fetched", "start", start, "end", end, "days", len(days))
	return days, nil
}

func (ob *observableBroker) GetAccount(ctx context.Context) (types.Account, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetAccount")
	defer span.End()

	acct, err := ob.broker.GetAccount(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch account", err)
		return types.Account{}, err
	}

	logger.DebugSkip(ctx, 1, "Account fetched",
		"cash", acct.Cash,
		"portfolio_value", acct.PortfolioValue,
	)
	return acct, nil
}

func (ob *observableBroker) GetLatestQuote(ctx context.Context, symbol string) (types.Quote, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetLatestQuote")
	defer span.End()

	quote, err := ob.broker.GetLatestQuote(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch quote", err, "symbol", symbol)
		return types.Quote{}, err
	}

	logger.DebugSkip(ctx, 1, "Quote fetched", "symbol", symbol, "bid", quote.Bid, "ask", quote.Ask)
	return quote, nil
}

func (ob *observableBroker) GetLatestBar(ctx context.Context, symbol string) (types.Bar, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetLatestBar")
	defer span.End()

	bar, err := ob.broker.GetLatestBar(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch latest bar", err, "symbol", symbol)
		return types.Bar{}, err
	}

	logger.DebugSkip(ctx, 1, "Latest bar fetched", "symbol", symbol, "close", bar.Close)
	return bar, nil
}

func (ob *observableBroker) GetBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]types.Bar, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetBars")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching bars",
		"symbol", symbol,
		"timeframe", timeframe,
		"start", start,
		"end", end,
	)

	bars, err := ob.broker.GetBars(ctx, symbol, timeframe, start, end)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch bars", err, "symbol", symbol, "timeframe", timeframe)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Bars fetched", "symbol", symbol, "count", len(bars))
	return bars, nil
}

func (ob *observableBroker) ListPositions(ctx context.Context) ([]types.Position, error) {
	ctx, span := trace.StartSpan(ctx, "broker.ListPositions")
	defer span.End()

	positions, err := ob.broker.ListPositions(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to list positions", err)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Positions listed", "count", len(positions))
	return positions, nil
}

func (ob *observableBroker) GetPosition(ctx context.Context, symbol string) (types.Position, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetPosition")
	defer span.End()

	pos, err := ob.broker.GetPosition(ctx, symbol)
	if err != nil {
		// No-position is an expected outcome, leave the logging to callers.
		return types.Position{}, err
	}

	logger.DebugSkip(ctx, 1, "Position fetched", "symbol", symbol, "qty", pos.Qty)
	return pos, nil
}

func (ob *observableBroker) SubmitOrder(ctx context.Context, req types.OrderReq) (types.Order, error) {
	ctx, span := trace.StartSpan(ctx, "broker.SubmitOrder")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Submitting order",
		"symbol", req.Symbol,
		"side", req.Side,
		"qty", req.Qty,
		"type", req.Type,
	)

	order, err := ob.broker.SubmitOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to submit order", err,
			"symbol", req.Symbol,
			"side", req.Side,
			"qty", req.Qty,
		)
		return types.Order{}, err
	}

	logger.InfoSkip(ctx, 1, "Order submitted",
		"symbol", req.Symbol,
		"order_id", order.ID,
		"status", order.Status,
	)
	return order, nil
}

func (ob *observableBroker) GetOrder(ctx context.Context, orderID string) (types.Order, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetOrder")
	defer span.End()

	order, err := ob.broker.GetOrder(ctx, orderID)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch order", err, "order_id", orderID)
		return types.Order{}, err
	}

	logger.DebugSkip(ctx, 1, "Order fetched", "order_id", orderID, "status", order.Status)
	return order, nil
}
