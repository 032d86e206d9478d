package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"orb-news-trader/internal/interfaces"
	"orb-news-trader/internal/logger"
	"orb-news-trader/internal/store"
	"orb-news-trader/internal/types"
)

// All session math happens in exchange time.
var easternTime = mustLoadET()

func mustLoadET() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic("tzdata missing America/New_York: " + err.Error())
	}
	return loc
}

const (
	marketOpenHour   = 9
	marketOpenMinute = 30
)

// RangeCalculator computes and caches the opening range per symbol per
// trading day. When today's bars are not yet available it walks back up to
// the configured number of days and serves the most recent session's range,
// flagged stale.
type RangeCalculator struct {
	broker interfaces.Broker
	prices interfaces.PriceSource
	docs   store.DocumentStore
	cfg    *store.Config

	mu     sync.Mutex
	cache  map[string]types.OpeningRange // symbol:date
	loaded bool
}

func NewRangeCalculator(broker interfaces.Broker, prices interfaces.PriceSource, docs store.DocumentStore, cfg *store.Config) *RangeCalculator {
	return &RangeCalculator{
		broker: broker,
		prices: prices,
		docs:   docs,
		cfg:    cfg,
		cache:  make(map[string]types.OpeningRange),
	}
}

func rangeKey(symbol, date string) string { return symbol + ":" + date }

func (rc *RangeCalculator) ensureLoaded() error {
	if rc.loaded {
		return nil
	}
	if err := rc.docs.Load(store.DocORBCache, &rc.cache); err != nil {
		return err
	}
	if rc.cache == nil {
		rc.cache = make(map[string]types.OpeningRange)
	}
	rc.loaded = true
	return nil
}

// OpeningRange returns the opening range for the symbol's current ET
// trading day, computing it once and caching it both in memory and on disk.
func (rc *RangeCalculator) OpeningRange(ctx context.Context, symbol string) (types.OpeningRange, error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if err := rc.ensureLoaded(); err != nil {
		return types.OpeningRange{}, err
	}

	today := time.Now().In(easternTime).Format("2006-01-02")
	if cached, ok := rc.cache[rangeKey(symbol, today)]; ok {
		return cached, nil
	}

	r, err := rc.compute(ctx, symbol, today)
	if err != nil {
		return types.OpeningRange{}, err
	}

	// Keyed by the range's own trading date: a walked-back range is not
	// cached under today, so the next call retries today's bars.
	rc.cache[rangeKey(symbol, r.TradingDate)] = r
	if err := rc.docs.Save(store.DocORBCache, rc.cache); err != nil {
		logger.Warn(ctx, "Failed to persist ORB cache", "symbol", symbol, "error", err.Error())
	}
	return r, nil
}

// compute walks back from the given ET date until it finds a session with
// opening-range bars.
func (rc *RangeCalculator) compute(ctx context.Context, symbol, fromDate string) (types.OpeningRange, error) {
	day, err := time.ParseInLocation("2006-01-02", fromDate, easternTime)
	if err != nil {
		return types.OpeningRange{}, fmt.Errorf("parse trading date: %w", err)
	}

	for back := 0; back <= rc.cfg.ORB.LookbackDays; back++ {
		candidate := day.AddDate(0, 0, -back)
		if wd := candidate.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}

		start := time.Date(candidate.Year(), candidate.Month(), candidate.Day(),
			marketOpenHour, marketOpenMinute, 0, 0, easternTime)
		end := start.Add(time.Duration(rc.cfg.ORB.Minutes) * time.Minute)

		bars, err := rc.broker.GetBars(ctx, symbol, "1Min", start, end)
		if err != nil {
			return types.OpeningRange{}, fmt.Errorf("opening range bars for %s: %w", symbol, err)
		}
		if len(bars) == 0 {
			continue
		}

		r := types.OpeningRange{
			Symbol:      symbol,
			TradingDate: candidate.Format("2006-01-02"),
			RangeStart:  start,
			RangeEnd:    end,
			High:        bars[0].High,
			Low:         bars[0].Low,
			ComputedAt:  time.Now().UTC(),
		}
		for _, b := range bars[1:] {
			if b.High > r.High {
				r.High = b.High
			}
			if b.Low < r.Low {
				r.Low = b.Low
			}
		}
		r.Midpoint = (r.High + r.Low) / 2

		if back > 0 {
			logger.Warn(ctx, "Opening range computed from a prior session",
				"symbol", symbol,
				"range_date", r.TradingDate,
				"requested_date", fromDate,
				"days_back", back,
			)
		}
		return r, nil
	}

	return types.OpeningRange{}, fmt.Errorf(
		"no opening range bars for %s within %d days: %w",
		symbol, rc.cfg.ORB.LookbackDays, types.ErrDataUnavailable)
}

// Signal evaluates the current price against the symbol's opening range and
// returns the raw breakout state.
func (rc *RangeCalculator) Signal(ctx context.Context, symbol string) (types.Signal, error) {
	r, err := rc.OpeningRange(ctx, symbol)
	if err != nil {
		return types.Signal{}, err
	}

	price, err := rc.prices.LatestPrice(ctx, symbol)
	if err != nil {
		return types.Signal{}, err
	}

	highBreakout := r.High * (1 + rc.cfg.ORB.BreakoutPct)
	lowBreakout := r.Low * (1 - rc.cfg.ORB.BreakoutPct)

	state := types.ActionHold
	switch {
	case price > highBreakout:
		state = types.ActionBuy
	case price < lowBreakout:
		state = types.ActionSell
	}

	today := time.Now().In(easternTime).Format("2006-01-02")
	if r.Stale(today) {
		logger.Warn(ctx, "Breakout evaluated against stale opening range",
			"symbol", symbol, "range_date", r.TradingDate)
	}

	return types.Signal{
		Symbol:       symbol,
		State:        state,
		CurrentPrice: price,
		HighBreakout: highBreakout,
		LowBreakout:  lowBreakout,
		RangeDate:    r.TradingDate,
		ComputedAt:   time.Now().UTC(),
	}, nil
}
