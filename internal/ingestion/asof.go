package ingestion

import (
	"sort"

	"github.com/rimasko/orkpulse/internal/domain/models"
)

// seqEntry is one secondary record of a backward as-of join: for each event,
// the attached entry is the one with the greatest SeqNum not exceeding the
// event's own, within the same instrument.
type seqEntry struct {
	seq int64
	a   string
	b   string
}

// lastAtOrBefore returns the entry in effect at seq, or ok=false when no
// entry precedes it. entries must be sorted by seq ascending.
func lastAtOrBefore(entries []seqEntry, seq int64) (seqEntry, bool) {
	i := sort.Search(len(entries), func(i int) bool { return entries[i].seq > seq })
	if i == 0 {
		return seqEntry{}, false
	}
	return entries[i-1], true
}

func groupBySeq(n int, at func(i int) (code string, e seqEntry)) map[string][]seqEntry {
	groups := make(map[string][]seqEntry)
	for i := 0; i < n; i++ {
		code, e := at(i)
		groups[code] = append(groups[code], e)
	}
	for _, g := range groups {
		sort.Slice(g, func(i, j int) bool { return g[i].seq < g[j].seq })
	}
	return groups
}

// attachPhases performs the backward as-of join of phase transitions onto
// events, per instrument code. Events with no preceding phase record keep an
// empty phase.
func attachPhases(events []models.EnrichedEvent, phases []models.TradingPhase) {
	groups := groupBySeq(len(phases), func(i int) (string, seqEntry) {
		p := phases[i]
		return p.OrderBookCode, seqEntry{seq: p.SeqNum, a: p.Phase}
	})
	for i := range events {
		if e, ok := lastAtOrBefore(groups[events[i].OrderBookCode], events[i].SeqNum); ok {
			events[i].TradingPhase = e.a
		}
	}
}

// attachQuotes performs the same backward join for indicative auction quotes.
func attachQuotes(events []models.EnrichedEvent, quotes []models.AuctionQuote) {
	groups := groupBySeq(len(quotes), func(i int) (string, seqEntry) {
		q := quotes[i]
		return q.OrderBookCode, seqEntry{seq: q.SeqNum, a: q.IndicativeAuctionPrice, b: q.IndicativeAuctionVol}
	})
	for i := range events {
		if e, ok := lastAtOrBefore(groups[events[i].OrderBookCode], events[i].SeqNum); ok {
			events[i].IndicativeAuctionPrice = e.a
			events[i].IndicativeAuctionVol = e.b
		}
	}
}
