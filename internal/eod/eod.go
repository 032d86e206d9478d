package eod

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"orb-news-trader/internal/store"
	"orb-news-trader/internal/types"
)

type aggRow struct {
	Symbol      string
	BuyQty      int
	BuyValue    float64
	SellQty     int
	SellValue   float64
	RealizedPnL float64
}

func etNow() time.Time {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.Now().UTC()
	}
	return time.Now().In(loc)
}

func csvPath(dataDir string, t time.Time) string {
	return filepath.Join(dataDir, "eod", t.Format("2006-01-02")+".csv")
}

// SummarizeDay aggregates the day's filled orders into a per-symbol CSV
// under <data_dir>/eod/. Returns the written path, or "" when the day had
// no orders.
func SummarizeDay(docs store.DocumentStore, dataDir string, t time.Time) (string, error) {
	var records []types.OrderRecord
	if err := docs.Load(store.DocOrderHistory, &records); err != nil {
		return "", err
	}

	day := t.Format("2006-01-02")
	aggs := map[string]*aggRow{}
	for _, rec := range records {
		if rec.SubmittedAt.In(t.Location()).Format("2006-01-02") != day {
			continue
		}
		switch rec.State {
		case types.OrderStateFilled, types.OrderStateBracketed, types.OrderStateBracketFailed, types.OrderStateBracketPend:
		default:
			continue
		}

		row := aggs[rec.Symbol]
		if row == nil {
			row = &aggRow{Symbol: rec.Symbol}
			aggs[rec.Symbol] = row
		}
		value := float64(rec.Quantity) * rec.EntryPrice
		if rec.Side == "buy" {
			row.BuyQty += rec.Quantity
			row.BuyValue += value
		}
		if rec.Side == "sell" {
			row.SellQty += rec.Quantity
			row.SellValue += value
		}
	}

	if len(aggs) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outPath := csvPath(dataDir, t)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	defer w.Flush()

	headers := []string{"symbol", "buy_qty", "buy_avg", "sell_qty", "sell_avg", "realized_pnl", "gross_buy_value", "gross_sell_value"}
	if err := w.Write(headers); err != nil {
		return "", err
	}

	var totalBuy, totalSell, totalPnL float64
	for _, k := range keys {
		r := aggs[k]
		var buyAvg, sellAvg float64
		if r.BuyQty > 0 {
			buyAvg = r.BuyValue / float64(r.BuyQty)
		}
		if r.SellQty > 0 {
			sellAvg = r.SellValue / float64(r.SellQty)
		}
		matched := r.BuyQty
		if r.SellQty < matched {
			matched = r.SellQty
		}
		r.RealizedPnL = float64(matched) * (sellAvg - buyAvg)

		rec := []string{
			r.Symbol,
			strconv.Itoa(r.BuyQty), fmt.Sprintf("%.4f", buyAvg),
			strconv.Itoa(r.SellQty), fmt.Sprintf("%.4f", sellAvg),
			fmt.Sprintf("%.2f", r.RealizedPnL),
			fmt.Sprintf("%.2f", r.BuyValue), fmt.Sprintf("%.2f", r.SellValue),
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
		totalBuy += r.BuyValue
		totalSell += r.SellValue
		totalPnL += r.RealizedPnL
	}
	_ = w.Write([]string{"TOTAL", "", "", "", "", fmt.Sprintf("%.2f", totalPnL), fmt.Sprintf("%.2f", totalBuy), fmt.Sprintf("%.2f", totalSell)})

	return outPath, nil
}

// SummarizeToday runs the summary for the current ET trading day.
func SummarizeToday(docs store.DocumentStore, dataDir string) (string, error) {
	return SummarizeDay(docs, dataDir, etNow())
}

// ShouldRunNow reports whether the ET close has passed without today's
// summary having been written yet.
func ShouldRunNow(dataDir string) (bool, string) {
	now := etNow()
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 16, 10, 0, 0, now.Location())
	outPath := csvPath(dataDir, now)
	if now.After(cutoff) {
		if _, err := os.Stat(outPath); errors.Is(err, os.ErrNotExist) {
			return true, outPath
		}
	}
	return false, outPath
}
