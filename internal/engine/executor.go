package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"orb-news-trader/internal/broker/alpaca"
	"orb-news-trader/internal/interfaces"
	"orb-news-trader/internal/logger"
	"orb-news-trader/internal/store"
	"orb-news-trader/internal/types"
)

// Terminal broker order statuses.
const (
	statusFilled   = "filled"
	statusRejected = "rejected"
	statusCanceled = "canceled"
)

// Executor turns decisions into broker orders: position sizing, market
// entry, fill wait, and protective bracket placement. Every submitted order
// leaves an audit record behind.
type Executor struct {
	broker interfaces.Broker
	prices interfaces.PriceSource
	docs   store.DocumentStore
	cfg    *store.Config
}

func NewExecutor(broker interfaces.Broker, prices interfaces.PriceSource, docs store.DocumentStore, cfg *store.Config) *Executor {
	return &Executor{broker: broker, prices: prices, docs: docs, cfg: cfg}
}

// Execute carries out a fused decision. Skips (too small, already holding,
// nothing to sell) come back as non-error results; broker rejections, fill
// timeouts and transport failures come back as errors.
func (e *Executor) Execute(ctx context.Context, d types.Decision) (types.ExecutionResult, error) {
	switch d.Action {
	case types.ActionBuy:
		return e.executeBuy(ctx, d)
	case types.ActionSell:
		return e.executeSell(ctx, d)
	default:
		return types.ExecutionResult{
			Symbol:    d.Symbol,
			Action:    types.ActionHold,
			Message:   "holding",
			Rationale: d.Rationale,
		}, nil
	}
}

func (e *Executor) executeBuy(ctx context.Context, d types.Decision) (types.ExecutionResult, error) {
	result := types.ExecutionResult{Symbol: d.Symbol, Action: types.ActionBuy, Rationale: d.Rationale}

	pos, err := e.broker.GetPosition(ctx, d.Symbol)
	if err != nil && !errors.Is(err, alpaca.ErrNoPosition) {
		return result, err
	}
	if err == nil && pos.Qty > 0 {
		result.Message = fmt.Sprintf("already holding %d shares", pos.Qty)
		return result, nil
	}

	acct, err := e.broker.GetAccount(ctx)
	if err != nil {
		return result, err
	}
	price, err := e.prices.LatestPrice(ctx, d.Symbol)
	if err != nil {
		return result, err
	}

	qty := e.positionSize(acct, price, d.Confidence)
	if qty < 1 {
		result.Message = "position too small to trade"
		return result, nil
	}

	order, entryPrice, err := e.submitAndWait(ctx, d, types.OrderReq{
		Symbol:      d.Symbol,
		Qty:         qty,
		Side:        "buy",
		Type:        "market",
		TimeInForce: "day",
	}, price)
	if err != nil {
		return result, err
	}

	result.Executed = true
	result.OrderID = order.ID

	stopLoss := entryPrice * (1 - e.cfg.ORB.StopLossPct)
	takeProfit := entryPrice * (1 + e.cfg.ORB.ProfitTargetPct)
	result.StopLoss = stopLoss
	result.TakeProf = takeProfit

	bracketState, stopID, tpID := e.placeBrackets(ctx, d.Symbol, qty, stopLoss, takeProfit)
	if bracketState == types.OrderStateBracketFailed {
		result.Message = fmt.Sprintf("bought %d shares at %.2f, BRACKETS FAILED, position unprotected", qty, entryPrice)
	} else {
		result.Message = fmt.Sprintf("bought %d shares at %.2f, stop %.2f, target %.2f", qty, entryPrice, stopLoss, takeProfit)
	}

	e.recordOrder(ctx, types.OrderRecord{
		Symbol:            d.Symbol,
		BrokerOrderID:     order.ID,
		Side:              "buy",
		Quantity:          qty,
		EntryPrice:        entryPrice,
		StopLossPrice:     stopLoss,
		TakeProfitPrice:   takeProfit,
		StopLossOrderID:   stopID,
		TakeProfitOrderID: tpID,
		Confidence:        d.Confidence,
		Rationale:         d.Rationale,
		SubmittedAt:       time.Now().UTC(),
		State:             bracketState,
	})

	logger.Order(ctx, d.Symbol, "buy", qty, entryPrice, order.ID, "state", bracketState)
	return result, nil
}

func (e *Executor) executeSell(ctx context.Context, d types.Decision) (types.ExecutionResult, error) {
	result := types.ExecutionResult{Symbol: d.Symbol, Action: types.ActionSell, Rationale: d.Rationale}

	pos, err := e.broker.GetPosition(ctx, d.Symbol)
	if errors.Is(err, alpaca.ErrNoPosition) {
		result.Message = "no position to sell"
		return result, nil
	}
	if err != nil {
		return result, err
	}
	if pos.Qty < 1 {
		result.Message = "no position to sell"
		return result, nil
	}

	price, err := e.prices.LatestPrice(ctx, d.Symbol)
	if err != nil {
		return result, err
	}

	order, exitPrice, err := e.submitAndWait(ctx, d, types.OrderReq{
		Symbol:      d.Symbol,
		Qty:         pos.Qty,
		Side:        "sell",
		Type:        "market",
		TimeInForce: "day",
	}, price)
	if err != nil {
		return result, err
	}

	result.Executed = true
	result.OrderID = order.ID
	result.Message = fmt.Sprintf("sold %d shares at %.2f", pos.Qty, exitPrice)

	e.recordOrder(ctx, types.OrderRecord{
		Symbol:        d.Symbol,
		BrokerOrderID: order.ID,
		Side:          "sell",
		Quantity:      pos.Qty,
		EntryPrice:    exitPrice,
		Confidence:    d.Confidence,
		Rationale:     d.Rationale,
		SubmittedAt:   time.Now().UTC(),
		State:         types.OrderStateFilled,
	})

	logger.Order(ctx, d.Symbol, "sell", pos.Qty, exitPrice, order.ID)
	return result, nil
}

// positionSize returns the share count for a buy: confidence-scaled slice
// of portfolio value, capped by spendable cash.
func (e *Executor) positionSize(acct types.Account, price, confidence float64) int {
	target := acct.PortfolioValue * e.cfg.Risk.MaxPositionPct * confidence
	spendable := acct.Cash * (1 - e.cfg.Risk.CashBufferPct)
	if spendable < target {
		target = spendable
	}
	if price <= 0 {
		return 0
	}
	return int(math.Floor(target / price))
}

// submitAndWait submits the entry order and polls until a terminal status
// or the fill timeout. Returns the final order and the effective fill price
// (broker average when reported, reference price otherwise).
func (e *Executor) submitAndWait(ctx context.Context, d types.Decision, req types.OrderReq, refPrice float64) (types.Order, float64, error) {
	order, err := e.broker.SubmitOrder(ctx, req)
	if err != nil {
		return types.Order{}, 0, err
	}

	filled, err := e.waitForFill(ctx, order.ID)
	if err != nil {
		e.recordOrder(ctx, types.OrderRecord{
			Symbol:        d.Symbol,
			BrokerOrderID: order.ID,
			Side:          req.Side,
			Quantity:      req.Qty,
			Confidence:    d.Confidence,
			Rationale:     d.Rationale,
			SubmittedAt:   time.Now().UTC(),
			State:         orderStateForError(err),
		})
		return types.Order{}, 0, err
	}

	entryPrice := filled.FilledAvgPrice
	if entryPrice <= 0 {
		entryPrice = refPrice
	}
	return filled, entryPrice, nil
}

func orderStateForError(err error) string {
	switch {
	case errors.Is(err, types.ErrFillTimeout):
		return types.OrderStateTimeout
	case errors.Is(err, types.ErrBrokerRejection):
		return types.OrderStateRejected
	default:
		return types.OrderStateSubmitted
	}
}

// waitForFill polls the order until it fills, is rejected or canceled, or
// the configured timeout elapses.
func (e *Executor) waitForFill(ctx context.Context, orderID string) (types.Order, error) {
	poll := time.Duration(e.cfg.Execution.FillPollSeconds) * time.Second
	deadline := time.Now().Add(time.Duration(e.cfg.Execution.FillTimeoutSeconds) * time.Second)

	for {
		order, err := e.broker.GetOrder(ctx, orderID)
		if err != nil {
			return types.Order{}, err
		}

		switch order.Status {
		case statusFilled:
			return order, nil
		case statusRejected, statusCanceled:
			return types.Order{}, fmt.Errorf("order %s %s: %w", orderID, order.Status, types.ErrBrokerRejection)
		}

		if time.Now().After(deadline) {
			return types.Order{}, fmt.Errorf("order %s not filled within %ds: %w",
				orderID, e.cfg.Execution.FillTimeoutSeconds, types.ErrFillTimeout)
		}

		select {
		case <-ctx.Done():
			return types.Order{}, ctx.Err()
		case <-time.After(poll):
		}
	}
}

// placeBrackets submits the protective stop-loss and take-profit orders for
// a freshly filled entry. A failure here leaves the position unprotected,
// which is logged loudly and reflected in the record state.
func (e *Executor) placeBrackets(ctx context.Context, symbol string, qty int, stopLoss, takeProfit float64) (state, stopID, tpID string) {
	state = types.OrderStateBracketPend

	stopOrder, err := e.broker.SubmitOrder(ctx, types.OrderReq{
		Symbol:      symbol,
		Qty:         qty,
		Side:        "sell",
		Type:        "stop",
		TimeInForce: "day",
		StopPrice:   stopLoss,
	})
	if err != nil {
		logger.ErrorWithErr(ctx, "Stop-loss placement failed, position UNPROTECTED, manual intervention required",
			err, "symbol", symbol, "qty", qty, "stop_price", stopLoss)
		return types.OrderStateBracketFailed, "", ""
	}
	stopID = stopOrder.ID

	tpOrder, err := e.broker.SubmitOrder(ctx, types.OrderReq{
		Symbol:      symbol,
		Qty:         qty,
		Side:        "sell",
		Type:        "limit",
		TimeInForce: "day",
		LimitPrice:  takeProfit,
	})
	if err != nil {
		logger.ErrorWithErr(ctx, "Take-profit placement failed, stop-loss active but target missing, manual intervention required",
			err, "symbol", symbol, "qty", qty, "limit_price", takeProfit)
		return types.OrderStateBracketFailed, stopID, ""
	}
	tpID = tpOrder.ID

	return types.OrderStateBracketed, stopID, tpID
}

// recordOrder appends to the order-history document. Audit persistence
// failures are logged, not propagated: the order already happened.
func (e *Executor) recordOrder(ctx context.Context, rec types.OrderRecord) {
	var records []types.OrderRecord
	err := e.docs.Update(store.DocOrderHistory, &records, func() error {
		records = append(records, rec)
		return nil
	})
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to persist order record", err,
			"symbol", rec.Symbol, "order_id", rec.BrokerOrderID)
	}
}
