package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"orb-news-trader/internal/store"
	"orb-news-trader/internal/types"
)

func buyDecision(confidence float64) types.Decision {
	return types.Decision{
		Symbol:     "AAPL",
		Action:     types.ActionBuy,
		Confidence: confidence,
		Rationale:  "breakout BUY confirmed by sentiment",
	}
}

func fundedBroker() *fakeBroker {
	return &fakeBroker{
		accountFn: func(ctx context.Context) (types.Account, error) {
			return types.Account{Cash: 10000, PortfolioValue: 10000}, nil
		},
	}
}

func TestPositionSize(t *testing.T) {
	ex := NewExecutor(&fakeBroker{}, &fakePriceSource{}, testStore(t), testConfig(t))

	cases := []struct {
		cash, pv, price, confidence float64
		want                        int
	}{
		// 10000 * 0.10 * 0.8 = 800 target, cash allows it: floor(800/100)
		{10000, 10000, 100, 0.8, 8},
		// higher confidence buys more
		{10000, 10000, 100, 1.0, 10},
		// cash buffer caps the target: min(800, 500*0.95)=475
		{500, 10000, 100, 0.8, 4},
		// sub-share target rounds to zero
		{10000, 10000, 5000, 0.5, 0},
	}

	for i, tc := range cases {
		got := ex.positionSize(types.Account{Cash: tc.cash, PortfolioValue: tc.pv}, tc.price, tc.confidence)
		if got != tc.want {
			t.Errorf("case %d: expected qty %d, got %d", i, tc.want, got)
		}
	}
}

func TestPositionSizeMonotonicInConfidence(t *testing.T) {
	ex := NewExecutor(&fakeBroker{}, &fakePriceSource{}, testStore(t), testConfig(t))
	acct := types.Account{Cash: 100000, PortfolioValue: 100000}

	prev := -1
	for _, conf := range []float64{0.5, 0.6, 0.7, 0.8, 0.9, 1.0} {
		qty := ex.positionSize(acct, 50, conf)
		if qty < prev {
			t.Fatalf("Sizing not monotonic: confidence %.1f gave %d after %d", conf, qty, prev)
		}
		prev = qty
	}
}

func TestExecuteBuyPlacesBrackets(t *testing.T) {
	brk := fundedBroker()
	docs := testStore(t)
	ex := NewExecutor(brk, &fakePriceSource{price: 100}, docs, testConfig(t))

	result, err := ex.Execute(context.Background(), buyDecision(0.8))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Executed {
		t.Fatalf("Expected execution, got message %q", result.Message)
	}

	// Market entry plus two protective orders.
	if len(brk.submitCalls) != 3 {
		t.Fatalf("Expected 3 orders, got %d", len(brk.submitCalls))
	}
	entry, stop, limit := brk.submitCalls[0], brk.submitCalls[1], brk.submitCalls[2]

	if entry.Side != "buy" || entry.Type != "market" || entry.Qty != 8 {
		t.Errorf("Unexpected entry order %+v", entry)
	}
	if stop.Type != "stop" || stop.Side != "sell" || stop.StopPrice != 99.50 {
		t.Errorf("Expected stop sell at 99.50, got %+v", stop)
	}
	if limit.Type != "limit" || limit.Side != "sell" || limit.LimitPrice != 101.00 {
		t.Errorf("Expected limit sell at 101.00, got %+v", limit)
	}
	if result.StopLoss != 99.50 || result.TakeProf != 101.00 {
		t.Errorf("Expected bracket prices in result, got %+v", result)
	}

	var records []types.OrderRecord
	if err := docs.Load(store.DocOrderHistory, &records); err != nil {
		t.Fatalf("Load history: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 audit record, got %d", len(records))
	}
	if records[0].State != types.OrderStateBracketed {
		t.Errorf("Expected state BRACKETED, got %s", records[0].State)
	}
	if records[0].StopLossOrderID == "" || records[0].TakeProfitOrderID == "" {
		t.Errorf("Expected bracket order IDs recorded, got %+v", records[0])
	}
}

func TestExecuteBuySkipsWhenHolding(t *testing.T) {
	brk := fundedBroker()
	brk.positionFn = func(ctx context.Context, symbol string) (types.Position, error) {
		return types.Position{Symbol: symbol, Qty: 5}, nil
	}
	ex := NewExecutor(brk, &fakePriceSource{price: 100}, testStore(t), testConfig(t))

	result, err := ex.Execute(context.Background(), buyDecision(0.8))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Executed {
		t.Error("Expected skip while holding a position")
	}
	if len(brk.submitCalls) != 0 {
		t.Errorf("Expected no orders, got %d", len(brk.submitCalls))
	}
}

func TestExecuteBuyTooSmall(t *testing.T) {
	brk := fundedBroker()
	ex := NewExecutor(brk, &fakePriceSource{price: 5000}, testStore(t), testConfig(t))

	result, err := ex.Execute(context.Background(), buyDecision(0.5))
	if err != nil {
		t.Fatalf("Expected non-error skip, got %v", err)
	}
	if result.Executed {
		t.Error("Expected no execution for sub-share sizing")
	}
}

func TestExecuteBuyRejectedOrder(t *testing.T) {
	brk := fundedBroker()
	brk.getOrderFn = func(ctx context.Context, orderID string) (types.Order, error) {
		return types.Order{ID: orderID, Status: "rejected"}, nil
	}
	docs := testStore(t)
	ex := NewExecutor(brk, &fakePriceSource{price: 100}, docs, testConfig(t))

	_, err := ex.Execute(context.Background(), buyDecision(0.8))
	if !errors.Is(err, types.ErrBrokerRejection) {
		t.Fatalf("Expected ErrBrokerRejection, got %v", err)
	}
	// Only the entry went out, no brackets after a rejection.
	if len(brk.submitCalls) != 1 {
		t.Errorf("Expected 1 order, got %d", len(brk.submitCalls))
	}

	var records []types.OrderRecord
	if err := docs.Load(store.DocOrderHistory, &records); err != nil {
		t.Fatalf("Load history: %v", err)
	}
	if len(records) != 1 || records[0].State != types.OrderStateRejected {
		t.Errorf("Expected REJECTED audit record, got %+v", records)
	}
}

func TestExecuteBuyFillTimeout(t *testing.T) {
	brk := fundedBroker()
	brk.getOrderFn = func(ctx context.Context, orderID string) (types.Order, error) {
		return types.Order{ID: orderID, Status: "accepted"}, nil
	}
	cfg := testConfig(t)
	cfg.Execution.FillPollSeconds = 0
	cfg.Execution.FillTimeoutSeconds = 0
	docs := testStore(t)
	ex := NewExecutor(brk, &fakePriceSource{price: 100}, docs, cfg)

	_, err := ex.Execute(context.Background(), buyDecision(0.8))
	if !errors.Is(err, types.ErrFillTimeout) {
		t.Fatalf("Expected ErrFillTimeout, got %v", err)
	}
	if len(brk.submitCalls) != 1 {
		t.Errorf("Expected no brackets after timeout, got %d orders", len(brk.submitCalls))
	}

	var records []types.OrderRecord
	if err := docs.Load(store.DocOrderHistory, &records); err != nil {
		t.Fatalf("Load history: %v", err)
	}
	if len(records) != 1 || records[0].State != types.OrderStateTimeout {
		t.Errorf("Expected TIMEOUT audit record, got %+v", records)
	}
}

func TestExecuteBuyBracketFailureFlagged(t *testing.T) {
	brk := fundedBroker()
	brk.submitFn = func(ctx context.Context, req types.OrderReq) (types.Order, error) {
		if req.Type == "stop" {
			return types.Order{}, fmt.Errorf("stop orders rejected: %w", types.ErrBrokerRejection)
		}
		return types.Order{ID: fmt.Sprintf("OID-%d", len(brk.submitCalls)), Symbol: req.Symbol, Status: "filled", Qty: req.Qty, FilledQty: req.Qty}, nil
	}
	docs := testStore(t)
	ex := NewExecutor(brk, &fakePriceSource{price: 100}, docs, testConfig(t))

	result, err := ex.Execute(context.Background(), buyDecision(0.8))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Executed {
		t.Fatal("Entry filled, result should be executed despite bracket failure")
	}

	var records []types.OrderRecord
	if err := docs.Load(store.DocOrderHistory, &records); err != nil {
		t.Fatalf("Load history: %v", err)
	}
	if len(records) != 1 || records[0].State != types.OrderStateBracketFailed {
		t.Errorf("Expected BRACKET_FAILED audit record, got %+v", records)
	}
}

func TestExecuteSellFullPosition(t *testing.T) {
	brk := fundedBroker()
	brk.positionFn = func(ctx context.Context, symbol string) (types.Position, error) {
		return types.Position{Symbol: symbol, Qty: 12, AvgEntryPrice: 95}, nil
	}
	ex := NewExecutor(brk, &fakePriceSource{price: 100}, testStore(t), testConfig(t))

	result, err := ex.Execute(context.Background(), types.Decision{
		Symbol: "AAPL", Action: types.ActionSell, Confidence: 0.7, Rationale: "breakdown",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Executed {
		t.Fatalf("Expected sell execution, got %q", result.Message)
	}
	if len(brk.submitCalls) != 1 {
		t.Fatalf("Expected single sell order, got %d", len(brk.submitCalls))
	}
	sell := brk.submitCalls[0]
	if sell.Side != "sell" || sell.Type != "market" || sell.Qty != 12 {
		t.Errorf("Expected full-position market sell, got %+v", sell)
	}
}

func TestExecuteSellNothingHeld(t *testing.T) {
	brk := fundedBroker()
	ex := NewExecutor(brk, &fakePriceSource{price: 100}, testStore(t), testConfig(t))

	result, err := ex.Execute(context.Background(), types.Decision{
		Symbol: "AAPL", Action: types.ActionSell, Confidence: 0.7,
	})
	if err != nil {
		t.Fatalf("Expected non-error skip, got %v", err)
	}
	if result.Executed || len(brk.submitCalls) != 0 {
		t.Errorf("Expected no order without a position, got %+v", result)
	}
}

func TestExecuteHoldDoesNothing(t *testing.T) {
	brk := fundedBroker()
	ex := NewExecutor(brk, &fakePriceSource{price: 100}, testStore(t), testConfig(t))

	result, err := ex.Execute(context.Background(), types.Decision{Symbol: "AAPL", Action: types.ActionHold})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Executed || result.Queued || len(brk.submitCalls) != 0 {
		t.Errorf("Expected inert hold, got %+v", result)
	}
}
