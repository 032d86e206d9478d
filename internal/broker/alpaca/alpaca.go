package alpaca

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"orb-news-trader/internal/interfaces"
	"orb-news-trader/internal/types"
)

type Params struct {
	Mode      string // DRY_RUN or LIVE
	APIKey    string
	SecretKey string
	BaseURL   string // trading API, e.g. https://paper-api.alpaca.markets
	DataURL   string // market data API, e.g. https://data.alpaca.markets
	Timeout   time.Duration
}

// Alpaca talks to an Alpaca-style brokerage over REST. In DRY_RUN mode
// order submission is simulated in memory while market data still goes to
// the wire.
type Alpaca struct {
	p       Params
	trading *resty.Client
	data    *resty.Client

	mu        sync.Mutex
	simOrders map[string]types.Order
	simSeq    int
}

var _ interfaces.Broker = (*Alpaca)(nil)

func New(p Params) *Alpaca {
	if p.BaseURL == "" {
		p.BaseURL = "https://paper-api.alpaca.markets"
	}
	if p.DataURL == "" {
		p.DataURL = "https://data.alpaca.markets"
	}
	if p.Timeout == 0 {
		p.Timeout = 20 * time.Second
	}

	newClient := func(base string) *resty.Client {
		return resty.New().
			SetBaseURL(base).
			SetTimeout(p.Timeout).
			SetHeader("APCA-API-KEY-ID", p.APIKey).
			SetHeader("APCA-API-SECRET-KEY", p.SecretKey)
	}

	return &Alpaca{
		p:         p,
		trading:   newClient(p.BaseURL),
		data:      newClient(p.DataURL),
		simOrders: make(map[string]types.Order),
	}
}

func asFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func asInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func apiErr(resp *resty.Response, err error, what string) error {
	if err != nil {
		return fmt.Errorf("%s: %w: %v", what, types.ErrTransientIO, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s: http %d: %s", what, resp.StatusCode(), resp.String())
	}
	return nil
}

func (a *Alpaca) GetClock(ctx context.Context) (types.Clock, error) {
	var out struct {
		IsOpen    bool      `json:"is_open"`
		NextOpen  time.Time `json:"next_open"`
		NextClose time.Time `json:"next_close"`
	}
	resp, err := a.trading.R().SetContext(ctx).SetResult(&out).Get("/v2/clock")
	if err := apiErr(resp, err, "get clock"); err != nil {
		return types.Clock{}, err
	}
	return types.Clock{IsOpen: out.IsOpen, NextOpen: out.NextOpen, NextClose: out.NextClose}, nil
}

func (a *Alpaca) GetCalendar(ctx context.Context, start, end string) ([]types.CalendarDay, error) {
	var out []struct {
		Date  string `json:"date"`
		Open  string `json:"open"`
		Close string `json:"close"`
	}
	resp, err := a.trading.R().SetContext(ctx).
		SetQueryParams(map[string]string{"start": start, "end": end}).
		SetResult(&out).
		Get("/v2/calendar")
	if err := apiErr(resp, err, "get calendar"); err != nil {
		return nil, err
	}
	days := make([]types.CalendarDay, 0, len(out))
	for _, d := range out {
		days = append(days, types.CalendarDay{Date: d.Date, Open: d.Open, Close: d.Close})
	}
	return days, nil
}

func (a *Alpaca) GetAccount(ctx context.Context) (types.Account, error) {
	var out struct {
		ID             string `json:"id"`
		Cash           string `json:"cash"`
		PortfolioValue string `json:"portfolio_value"`
	}
	resp, err := a.trading.R().SetContext(ctx).SetResult(&out).Get("/v2/account")
	if err := apiErr(resp, err, "get account"); err != nil {
		return types.Account{}, err
	}
	return types.Account{
		ID:             out.ID,
		Cash:           asFloat(out.Cash),
		PortfolioValue: asFloat(out.PortfolioValue),
	}, nil
}

func (a *Alpaca) GetLatestQuote(ctx context.Context, symbol string) (types.Quote, error) {
	var out struct {
		Quote struct {
			Bid float64 `json:"bp"`
			Ask float64 `json:"ap"`
		} `json:"quote"`
	}
	resp, err := a.data.R().SetContext(ctx).SetResult(&out).
		Get("/v2/stocks/" + symbol + "/quotes/latest")
	if err := apiErr(resp, err, "get latest quote"); err != nil {
		return types.Quote{}, err
	}
	if out.Quote.Bid == 0 && out.Quote.Ask == 0 {
		return types.Quote{}, fmt.Errorf("quote for %s: %w", symbol, types.ErrDataUnavailable)
	}
	return types.Quote{Symbol: symbol, Bid: out.Quote.Bid, Ask: out.Quote.Ask}, nil
}

type wireBar struct {
	Ts    time.Time `json:"t"`
	Open  float64   `json:"o"`
	High  float64   `json:"h"`
	Low   float64   `json:"l"`
	Close float64   `json:"c"`
	Vol   float64   `json:"v"`
}

func (b wireBar) toBar() types.Bar {
	return types.Bar{Ts: b.Ts, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Vol: b.Vol}
}

func (a *Alpaca) GetLatestBar(ctx context.Context, symbol string) (types.Bar, error) {
	var out struct {
		Bar wireBar `json:"bar"`
	}
	resp, err := a.data.R().SetContext(ctx).SetResult(&out).
		Get("/v2/stocks/" + symbol + "/bars/latest")
	if err := apiErr(resp, err, "get latest bar"); err != nil {
		return types.Bar{}, err
	}
	if out.Bar.Close == 0 {
		return types.Bar{}, fmt.Errorf("latest bar for %s: %w", symbol, types.ErrDataUnavailable)
	}
	return out.Bar.toBar(), nil
}

func (a *Alpaca) GetBars(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]types.Bar, error) {
	var out struct {
		Bars []wireBar `json:"bars"`
	}
	resp, err := a.data.R().SetContext(ctx).
		SetQueryParams(map[string]string{
			"timeframe": timeframe,
			"start":     start.Format(time.RFC3339),
			"end":       end.Format(time.RFC3339),
			"limit":     "1000",
		}).
		SetResult(&out).
		Get("/v2/stocks/" + symbol + "/bars")
	if err := apiErr(resp, err, "get bars"); err != nil {
		return nil, err
	}
	bars := make([]types.Bar, 0, len(out.Bars))
	for _, b := range out.Bars {
		bars = append(bars, b.toBar())
	}
	return bars, nil
}

func (a *Alpaca) ListPositions(ctx context.Context) ([]types.Position, error) {
	var out []wirePosition
	resp, err := a.trading.R().SetContext(ctx).SetResult(&out).Get("/v2/positions")
	if err := apiErr(resp, err, "list positions"); err != nil {
		return nil, err
	}
	positions := make([]types.Position, 0, len(out))
	for _, p := range out {
		positions = append(positions, p.toPosition())
	}
	return positions, nil
}

type wirePosition struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	AvgEntryPrice string `json:"avg_entry_price"`
	CurrentPrice  string `json:"current_price"`
}

func (p wirePosition) toPosition() types.Position {
	return types.Position{
		Symbol:        p.Symbol,
		Qty:           asInt(p.Qty),
		AvgEntryPrice: asFloat(p.AvgEntryPrice),
		CurrentPrice:  asFloat(p.CurrentPrice),
	}
}

// ErrNoPosition is returned by GetPosition when the account holds no shares
// of the symbol. Callers treat this as a normal outcome, not a failure.
var ErrNoPosition = errors.New("no position held")

func (a *Alpaca) GetPosition(ctx context.Context, symbol string) (types.Position, error) {
	var out wirePosition
	resp, err := a.trading.R().SetContext(ctx).SetResult(&out).Get("/v2/positions/" + symbol)
	if err != nil {
		return types.Position{}, fmt.Errorf("get position: %w: %v", types.ErrTransientIO, err)
	}
	if resp.StatusCode() == 404 {
		return types.Position{}, ErrNoPosition
	}
	if resp.IsError() {
		return types.Position{}, fmt.Errorf("get position: http %d: %s", resp.StatusCode(), resp.String())
	}
	return out.toPosition(), nil
}

func (a *Alpaca) SubmitOrder(ctx context.Context, req types.OrderReq) (types.Order, error) {
	if a.p.Mode == "DRY_RUN" {
		return a.simulateOrder(req), nil
	}

	body := map[string]any{
		"symbol":        req.Symbol,
		"qty":           strconv.Itoa(req.Qty),
		"side":          req.Side,
		"type":          req.Type,
		"time_in_force": req.TimeInForce,
	}
	if req.StopPrice > 0 {
		body["stop_price"] = fmt.Sprintf("%.2f", req.StopPrice)
	}
	if req.LimitPrice > 0 {
		body["limit_price"] = fmt.Sprintf("%.2f", req.LimitPrice)
	}

	var out wireOrder
	resp, err := a.trading.R().SetContext(ctx).SetBody(body).SetResult(&out).Post("/v2/orders")
	if err := apiErr(resp, err, "submit order"); err != nil {
		return types.Order{}, err
	}
	return out.toOrder(), nil
}

type wireOrder struct {
	ID             string `json:"id"`
	Symbol         string `json:"symbol"`
	Status         string `json:"status"`
	Qty            string `json:"qty"`
	FilledQty      string `json:"filled_qty"`
	FilledAvgPrice string `json:"filled_avg_price"`
}

func (o wireOrder) toOrder() types.Order {
	return types.Order{
		ID:             o.ID,
		Symbol:         o.Symbol,
		Status:         o.Status,
		Qty:            asInt(o.Qty),
		FilledQty:      asInt(o.FilledQty),
		FilledAvgPrice: asFloat(o.FilledAvgPrice),
	}
}

func (a *Alpaca) GetOrder(ctx context.Context, orderID string) (types.Order, error) {
	a.mu.Lock()
	if sim, ok := a.simOrders[orderID]; ok {
		a.mu.Unlock()
		return sim, nil
	}
	a.mu.Unlock()

	var out wireOrder
	resp, err := a.trading.R().SetContext(ctx).SetResult(&out).Get("/v2/orders/" + orderID)
	if err := apiErr(resp, err, "get order"); err != nil {
		return types.Order{}, err
	}
	return out.toOrder(), nil
}

// simulateOrder records a fake, immediately-filled order so the fill-wait
// loop behaves the same in DRY_RUN as in LIVE.
func (a *Alpaca) simulateOrder(req types.OrderReq) types.Order {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.simSeq++
	order := types.Order{
		ID:        fmt.Sprintf("SIM-%d-%d", time.Now().UnixNano(), a.simSeq),
		Symbol:    req.Symbol,
		Status:    "filled",
		Qty:       req.Qty,
		FilledQty: req.Qty,
	}
	a.simOrders[order.ID] = order
	return order
}
