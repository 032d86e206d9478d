package engine

import (
	"context"
	"time"

	"orb-news-trader/internal/broker/alpaca"
	"orb-news-trader/internal/interfaces"
	"orb-news-trader/internal/types"
)

// fakeBroker implements interfaces.Broker with per-method hooks. Unset
// hooks return zero values; GetPosition defaults to no position held.
type fakeBroker struct {
	clockFn      func(ctx context.Context) (types.Clock, error)
	calendarFn   func(ctx context.Context, start, end string) ([]types.CalendarDay, error)
	accountFn    func(ctx context.Context) (types.Account, error)
	quoteFn      func(ctx context.Context, symbol string) (types.Quote, error)
	latestBarFn  func(ctx context.Context, symbol string) (types.Bar, error)
	barsFn       func(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]types.Bar, error)
	positionsFn  func(ctx context.Context) ([]types.Position, error)
	positionFn   func(ctx context.Context, symbol string) (types.Position, error)
	submitFn     func(ctx context.Context, req types.OrderReq) (types.Order, error)
	getOrderFn   func(ctx context.Context, orderID string) (types.Order, error)
	barsCalls    int
	submitCalls  []types.OrderReq
}

var _ interfaces.Broker = (*fakeBroker)(nil)

func (f *fakeBroker) GetClock(ctx context.Context) (types.Clock, error) {
	if f.clockFn != nil {
		return f.clockFn(ctx)
	}
	return types.Clock{IsOpen: true}, nil
}

func (f *fakeBroker) GetCalendar(ctx context.Context, start, end string) ([]types.CalendarDay, error) {
	if f.calendarFn != nil {
		return f.calendarFn(ctx, start, end)
	}
	return nil, nil
}

func (f *fakeBroker) GetAccount(ctx context.Context) (types.Account, error) {
	if f.accountFn != nil {
		return f.accountFn(ctx)
	}
	return types.Account{}, nil
}

func (f *fakeBroker) GetLatestQuote(ctx context.Context, symbol string) (types.Quote, error) {
	if f.quoteFn != nil {
		return f.quoteFn(ctx, symbol)
	}
	return types.Quote{}, types.ErrDataUnavailable
}

func (f *fakeBroker) GetLatestBar(ctx context.Context, symbol string) (types.Bar, error) {
	if f.latestBarFn != nil {
		return f.latestBarFn(ctx, symbol)
	}
	return types.Bar{}, types.ErrDataUnavailable
}

func (f *fakeBroker) GetBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]types.Bar, error) {
	f.barsCalls++
	if f.barsFn != nil {
		return f.barsFn(ctx, symbol, timeframe, start, end)
	}
	return nil, nil
}

func (f *fakeBroker) ListPositions(ctx context.Context) ([]types.Position, error) {
	if f.positionsFn != nil {
		return f.positionsFn(ctx)
	}
	return nil, nil
}

func (f *fakeBroker) GetPosition(ctx context.Context, symbol string) (types.Position, error) {
	if f.positionFn != nil {
		return f.positionFn(ctx, symbol)
	}
	return types.Position{}, alpaca.ErrNoPosition
}

func (f *fakeBroker) SubmitOrder(ctx context.Context, req types.OrderReq) (types.Order, error) {
	f.submitCalls = append(f.submitCalls, req)
	if f.submitFn != nil {
		return f.submitFn(ctx, req)
	}
	return types.Order{ID: "FAKE-1", Symbol: req.Symbol, Status: "filled", Qty: req.Qty, FilledQty: req.Qty}, nil
}

func (f *fakeBroker) GetOrder(ctx context.Context, orderID string) (types.Order, error) {
	if f.getOrderFn != nil {
		return f.getOrderFn(ctx, orderID)
	}
	return types.Order{ID: orderID, Status: "filled"}, nil
}

// fakePriceSource returns a fixed price.
type fakePriceSource struct {
	price float64
	err   error
}

var _ interfaces.PriceSource = (*fakePriceSource)(nil)

func (f *fakePriceSource) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	return f.price, f.err
}

// fakeFeed serves a canned article list.
type fakeFeed struct {
	articles []types.NewsArticle
	err      error
}

var _ interfaces.NewsFeed = (*fakeFeed)(nil)

func (f *fakeFeed) FetchArticles(ctx context.Context, query string, maxResults int) ([]types.NewsArticle, error) {
	return f.articles, f.err
}

// fakeClassifier returns classifications keyed by article title prefix,
// falling back to Neutral.
type fakeClassifier struct {
	byTitle func(text string) (types.Classification, error)
}

var _ interfaces.Classifier = (*fakeClassifier)(nil)

func (f *fakeClassifier) Classify(ctx context.Context, text string) (types.Classification, error) {
	if f.byTitle != nil {
		return f.byTitle(text)
	}
	return types.Classification{Sentiment: types.SentimentNeutral}, nil
}
