package service

import (
	"sort"
	"strconv"
	"time"

	"github.com/rimasko/orkpulse/internal/domain/models"
)

// ComputeDailyStats derives per-instrument OHLC, volume and trade count from
// one day's enriched events. Only fills (non-zero traded quantity) move the
// price series; instruments with no fills produce no row. Events are assumed
// ordered by sequence number, so first/last fill map to open/close.
func ComputeDailyStats(market string, date time.Time, events []models.EnrichedEvent) []models.DailyStats {
	perCode := make(map[string]*models.DailyStats)

	for i := range events {
		ev := &events[i]
		qty := ev.TradedQty()
		if qty == 0 {
			continue
		}
		price, err := strconv.ParseFloat(ev.TransactionPrice, 64)
		if err != nil {
			continue
		}

		s, ok := perCode[ev.OrderBookCode]
		if !ok {
			s = &models.DailyStats{
				Date:          date,
				Market:        market,
				OrderBookCode: ev.OrderBookCode,
				Open:          price,
				High:          price,
				Low:           price,
			}
			perCode[ev.OrderBookCode] = s
		}
		if price > s.High {
			s.High = price
		}
		if price < s.Low {
			s.Low = price
		}
		s.Close = price
		s.Volume += int64(qty)
		s.TradeCount++
	}

	codes := make([]string, 0, len(perCode))
	for code := range perCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	out := make([]models.DailyStats, 0, len(codes))
	for _, code := range codes {
		out = append(out, *perCode[code])
	}
	return out
}
