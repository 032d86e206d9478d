package types

import "time"

// Action is a trading decision direction.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionHold = "HOLD"
)

// Sentiment labels returned by the article classifier.
const (
	SentimentBullish = "Bullish"
	SentimentBearish = "Bearish"
	SentimentNeutral = "Neutral"
)

type Bar struct {
	Ts                          time.Time
	Open, High, Low, Close, Vol float64
}

type Quote struct {
	Symbol   string
	Bid, Ask float64
}

// Mid returns the bid/ask midpoint.
func (q Quote) Mid() float64 { return (q.Bid + q.Ask) / 2 }

type Account struct {
	ID             string
	Cash           float64
	PortfolioValue float64
}

type Position struct {
	Symbol        string
	Qty           int
	AvgEntryPrice float64
	CurrentPrice  float64
}

type Clock struct {
	IsOpen    bool
	NextOpen  time.Time
	NextClose time.Time
}

type CalendarDay struct {
	Date  string // 2006-01-02
	Open  string // 09:30
	Close string // 16:00
}

type OrderReq struct {
	Symbol      string
	Qty         int
	Side        string // buy / sell
	Type        string // market / stop / limit
	TimeInForce string // day
	StopPrice   float64
	LimitPrice  float64
}

type Order struct {
	ID             string
	Symbol         string
	Status         string // pending_new, accepted, filled, rejected, canceled
	Qty            int
	FilledQty      int
	FilledAvgPrice float64
}

// OpeningRange is the high/low band over the first minutes after market
// open, computed at most once per symbol per trading day.
type OpeningRange struct {
	Symbol      string    `json:"symbol"`
	TradingDate string    `json:"trading_date"` // 2006-01-02, ET
	RangeStart  time.Time `json:"range_start"`
	RangeEnd    time.Time `json:"range_end"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Midpoint    float64   `json:"midpoint"`
	ComputedAt  time.Time `json:"computed_at"`
}

// Stale reports whether the range was computed from a prior trading day's
// bars (walk-back fallback) relative to the given ET date.
func (r OpeningRange) Stale(todayET string) bool { return r.TradingDate != todayET }

// SentimentEntry is one classified article observation for a symbol.
type SentimentEntry struct {
	Symbol       string    `json:"symbol"`
	Label        string    `json:"label"` // Bullish / Neutral / Bearish
	ArticleTitle string    `json:"article_title"`
	ArticleURL   string    `json:"article_url"`
	ObservedAt   time.Time `json:"observed_at"`
}

// Signal is the raw ORB breakout state for a symbol. Derived each cycle and
// embedded in the Decision, never persisted on its own.
type Signal struct {
	Symbol       string    `json:"symbol"`
	State        string    `json:"state"` // BUY / SELL / HOLD
	CurrentPrice float64   `json:"current_price"`
	HighBreakout float64   `json:"high_breakout"`
	LowBreakout  float64   `json:"low_breakout"`
	RangeDate    string    `json:"range_date"`
	ComputedAt   time.Time `json:"computed_at"`
}

// Decision is the fused trading decision for one symbol for one cycle.
type Decision struct {
	Symbol     string  `json:"symbol"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
	// Component signals, kept for auditability.
	ORBSignal       string  `json:"orb_signal,omitempty"`
	SentimentSignal string  `json:"sentiment_signal,omitempty"`
	SentimentAvg    float64 `json:"sentiment_avg,omitempty"`
	SentimentLabel  string  `json:"sentiment_label,omitempty"`
	Signal          *Signal `json:"signal,omitempty"`
}

// QueuedTrade is a deferred decision made while the market was closed.
// At most one exists per symbol; re-decisions replace it in place.
type QueuedTrade struct {
	Symbol    string    `json:"symbol"`
	Action    string    `json:"action"`
	Sentiment string    `json:"sentiment"`
	NewsTitle string    `json:"news_title,omitempty"`
	QueuedAt  time.Time `json:"queued_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Order lifecycle states for OrderRecord.State.
const (
	OrderStateSizing        = "SIZING"
	OrderStateSubmitted     = "SUBMITTED"
	OrderStateFilled        = "FILLED"
	OrderStateRejected      = "REJECTED"
	OrderStateCanceled      = "CANCELED"
	OrderStateTimeout       = "TIMEOUT"
	OrderStateBracketPend   = "BRACKET_PENDING"
	OrderStateBracketed     = "BRACKETED"
	OrderStateBracketFailed = "BRACKET_FAILED"
)

// OrderRecord is the append-only audit record for a submitted order.
type OrderRecord struct {
	Symbol            string    `json:"symbol"`
	BrokerOrderID     string    `json:"broker_order_id"`
	Side              string    `json:"side"`
	Quantity          int       `json:"quantity"`
	EntryPrice        float64   `json:"entry_price"`
	StopLossPrice     float64   `json:"stop_loss_price,omitempty"`
	TakeProfitPrice   float64   `json:"take_profit_price,omitempty"`
	StopLossOrderID   string    `json:"stop_loss_order_id,omitempty"`
	TakeProfitOrderID string    `json:"take_profit_order_id,omitempty"`
	Confidence        float64   `json:"decision_confidence"`
	Rationale         string    `json:"rationale"`
	SubmittedAt       time.Time `json:"submitted_at"`
	State             string    `json:"state"`
}

// ExecutionResult is the per-symbol outcome of a trading cycle step or a
// queue flush.
type ExecutionResult struct {
	Symbol    string  `json:"symbol"`
	Action    string  `json:"action"`
	Executed  bool    `json:"executed"`
	Queued    bool    `json:"queued"`
	Message   string  `json:"message"`
	OrderID   string  `json:"order_id,omitempty"`
	Rationale string  `json:"rationale,omitempty"`
	StopLoss  float64 `json:"stop_loss,omitempty"`
	TakeProf  float64 `json:"take_profit,omitempty"`
}

type NewsArticle struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at"`
}

// Classification is the structured output of the article classifier.
type Classification struct {
	Sentiment        string   `json:"sentiment"`
	RelatedCompanies []string `json:"related_companies"`
}

// SymbolSentimentUpdate reports one symbol-article sentiment match made
// during a refresh.
type SymbolSentimentUpdate struct {
	Symbol       string `json:"symbol"`
	Company      string `json:"company"`
	Sentiment    string `json:"sentiment"`
	ArticleTitle string `json:"article_title"`
}
