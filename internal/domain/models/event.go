package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Markets served by the flat-file source.
const (
	MarketINETMain       = "INET_MainMarket"
	MarketINETFirstNorth = "INET_FirstNorth"
	MarketGeniumMain     = "Genium_MainMarket"
	MarketGeniumFN       = "Genium_FirstNorth"
)

// Trading phase labels as they appear in the phase extract.
const (
	PhaseClosed         = "Closed"
	PhasePreOpen        = "Pre-Open"
	PhaseOpeningAuction = "Opening Auction"
	PhaseContinuous     = "Continuous Trading"
	PhaseClosingAuction = "Closing Auction"
	PhasePostTrade      = "Post-Trade"
)

// NotApplicable is the source-file token for "price not applicable".
const NotApplicable = "NOAP"

// OrderBookEvent is one immutable order lifecycle fact from the daily orders
// extract. Every field is carried as text exactly as read from the file; the
// empty string is the "no value" sentinel. SeqNum is the only typed column:
// it is unique and non-decreasing within one (market, date) file.
type OrderBookEvent struct {
	SubmittingEntityID            string
	DEA                           string
	ClientIDCode                  string
	InvestmentDecisionWithinFirm  string
	ExecWithinFirm                string
	NonExecutingBroker            string
	TradingCapacity               string
	LiquidityProvisionActivity    string
	DateAndTime                   string
	ValidityPeriod                string
	OrderRestriction              string
	ValidityPeriodAndTime         string
	PriorityTimestamp             string
	PrioritySize                  string
	SeqNum                        int64
	MIC                           string
	OrderBookCode                 string
	FinancialInstrumentIDCode     string
	DateOfReceipt                 string
	OrderIDCode                   string
	OrderEvent                    string
	OrderType                     string
	OrderTypeClass                string
	LimitPrice                    string
	AdditionalLimitPrice          string
	StopPrice                     string
	PeggedLimitPrice              string
	TransactionPrice              string
	PriceCurrency                 string
	CurrencyLeg2                  string
	PriceNotation                 string
	BuySellInd                    string
	OrderStatus                   string
	QuantityNotation              string
	QuantityCurrency              string
	InitialQty                    string
	RemainingQtyInclHidden        string
	DisplayedQty                  string
	TradedQuantity                string
	MinAcceptableQty              string
	MinimumExecutableSize         string
	MESFirstExecOnly              string
	PassiveOnly                   string
	PassiveOrAggressive           string
	SelfExecutionPrevention       string
	StrategyLinkedOrderID         string
	RoutingStrategy               string
	TradingVenueTransactionIDCode string
}

// TradingPhase records one phase transition in the phase extract. Phases are
// attached to events by nearest-preceding sequence number per instrument.
type TradingPhase struct {
	OrderBookCode string
	SeqNum        int64
	Phase         string
}

// AuctionQuote records one indicative auction price/volume update. Same
// backward join semantics as TradingPhase; the whole kind is optional.
type AuctionQuote struct {
	OrderBookCode          string
	SeqNum                 int64
	IndicativeAuctionPrice string
	IndicativeAuctionVol   string
}

// EnrichedEvent is an OrderBookEvent with the phase and (if present) the
// auction quote in effect at its sequence number. Never mutated once built.
type EnrichedEvent struct {
	OrderBookEvent
	TradingPhase           string
	IndicativeAuctionPrice string
	IndicativeAuctionVol   string
}

// eventTimeLayouts covers the timestamp renderings seen in the extracts.
var eventTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// EventTime parses the event timestamp.
func (e *OrderBookEvent) EventTime() (time.Time, error) {
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, e.DateAndTime); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable event timestamp %q", e.DateAndTime)
}

// TradedQty returns the traded quantity as a number, treating the empty
// sentinel as zero.
func (e *OrderBookEvent) TradedQty() float64 {
	s := strings.TrimSpace(e.TradedQuantity)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// Lifecycle and validity code sets decoded from the comma-joined status
// string. The two axes are independent; a status carries at most one of each.
var (
	lifecycleStatuses = map[string]struct{}{
		"FIRM": {}, "IMPL": {}, "INDI": {}, "ROUT": {},
	}
	validityStatuses = map[string]struct{}{
		"ACTI": {}, "INAC": {}, "SUSP": {},
	}
)

// SplitStatus decodes the comma-joined status string into its lifecycle and
// validity components. Unknown tokens are ignored.
func SplitStatus(status string) (lifecycle, validity string) {
	for _, tok := range strings.Split(status, ",") {
		tok = strings.TrimSpace(tok)
		if _, ok := lifecycleStatuses[tok]; ok {
			lifecycle = tok
		}
		if _, ok := validityStatuses[tok]; ok {
			validity = tok
		}
	}
	return lifecycle, validity
}
