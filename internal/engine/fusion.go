package engine

import (
	"fmt"

	"orb-news-trader/internal/types"
)

// SentimentView is the aggregator's read for one symbol at fusion time.
type SentimentView struct {
	Action      string
	Average     float64
	LatestLabel string
	Available   bool
}

// Fuse combines the breakout signal with the sentiment direction into a
// single decision. Precedence, highest first:
//
//  1. no breakout signal        -> HOLD, 0.5
//  2. no sentiment history      -> breakout verbatim, 0.6
//  3. both agree                -> agreed action, 0.8 (0.6 when both HOLD)
//  4. breakout HOLD, sentiment directional -> sentiment action, 0.6
//  5. directional conflict      -> breakout action, 0.7
func Fuse(symbol string, sig *types.Signal, sent SentimentView) types.Decision {
	if sig == nil {
		return types.Decision{
			Symbol:     symbol,
			Action:     types.ActionHold,
			Confidence: 0.5,
			Rationale:  "no opening range data available",
		}
	}

	d := types.Decision{
		Symbol:    symbol,
		ORBSignal: sig.State,
		Signal:    sig,
	}

	if !sent.Available {
		d.Action = sig.State
		d.Confidence = 0.6
		d.Rationale = fmt.Sprintf("breakout %s at %.2f, no sentiment history", sig.State, sig.CurrentPrice)
		return d
	}

	d.SentimentSignal = sent.Action
	d.SentimentAvg = sent.Average
	d.SentimentLabel = sent.LatestLabel

	switch {
	case sig.State == sent.Action:
		d.Action = sig.State
		if sig.State == types.ActionHold {
			d.Confidence = 0.6
			d.Rationale = "breakout and sentiment both neutral"
		} else {
			d.Confidence = 0.8
			d.Rationale = fmt.Sprintf("breakout %s confirmed by sentiment (avg %.2f)", sig.State, sent.Average)
		}

	case sig.State == types.ActionHold:
		d.Action = sent.Action
		d.Confidence = 0.6
		d.Rationale = fmt.Sprintf("no breakout, sentiment %s (avg %.2f)", sent.Action, sent.Average)

	default:
		// Price action wins over news when they point different ways.
		d.Action = sig.State
		d.Confidence = 0.7
		d.Rationale = fmt.Sprintf("breakout %s overrides sentiment %s", sig.State, sent.Action)
	}

	return d
}
