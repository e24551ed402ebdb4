package ingestion

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rimasko/orkpulse/internal/domain/models"
)

// Column names of the orders extract. Files carry a leading unnamed index
// column; mapping is header-name driven, so its position is irrelevant.
var orderColumns = []string{
	"submittingentityid", "dea", "clientidcode",
	"investmentdecisionwithinfirm", "execwithinfirm", "nonexecutingbroker",
	"tradingcapacity", "liquidityprovisionactivity", "dateandtime",
	"validityperiod", "orderrestriction", "validityperiodandtime",
	"prioritytimestamp", "prioritysize", "seqnum", "mic", "orderbookcode",
	"financialinstrumentidcode", "dateofreceipt", "orderidcode",
	"orderevent", "ordertype", "ordertypeclass", "limitprice",
	"additionallimitprice", "stopprice", "peggedlimitprice",
	"transactionprice", "pricecurrency", "currencyleg2", "pricenotation",
	"buysellind", "orderstatus", "quantitynotation", "quantitycurrency",
	"initialqty", "remainingqtyinclhidden", "displayedqty",
	"tradedquantity", "minacceptableqty", "minimumexecutablesize",
	"mesfirstexeconly", "passiveonly", "passiveoraggressive",
	"selfexecutionprevention", "strategylinkedorderid", "routingstrategy",
	"tradingvenuetransactionidcode",
}

var phaseColumns = []string{"seqnum", "orderbookcode", "tradingphases"}

var quoteColumns = []string{"seqnum", "orderbookcode", "indicativeauctionprice", "indicativeauctionvolume"}

// gzCSVRows opens a gzip CSV file and yields every data row through fn,
// along with a header-name → column-index map. Every field stays text;
// callers coerce what they need.
func gzCSVRows(path string, required []string, fn func(idx map[string]int, rec []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("gzip open: %w", err)
	}
	defer func() { _ = zr.Close() }()

	r := csv.NewReader(zr)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil // zero-row file, caller sees an empty kind
		}
		return fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return fmt.Errorf("missing column %q", col)
		}
	}

	line := 1
	for {
		rec, err := r.Read()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read line after %d: %w", line, err)
		}
		line++
		if len(rec) < len(header) {
			return fmt.Errorf("short row on line %d: expected %d columns got %d", line, len(header), len(rec))
		}
		if err := fn(idx, rec); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
}

func field(idx map[string]int, rec []string, name string) string {
	return strings.TrimSpace(rec[idx[name]])
}

func parseSeqNum(idx map[string]int, rec []string) (int64, error) {
	s := field(idx, rec, "seqnum")
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid seqnum %q: %v", s, err)
	}
	return v, nil
}

// readOrders parses one day's orders extract into enriched-event shells
// (phase and quote attached later by the as-of join).
func readOrders(path string) ([]models.EnrichedEvent, error) {
	var out []models.EnrichedEvent
	err := gzCSVRows(path, orderColumns, func(idx map[string]int, rec []string) error {
		seq, err := parseSeqNum(idx, rec)
		if err != nil {
			return err
		}
		ev := models.OrderBookEvent{
			SubmittingEntityID:            field(idx, rec, "submittingentityid"),
			DEA:                           field(idx, rec, "dea"),
			ClientIDCode:                  field(idx, rec, "clientidcode"),
			InvestmentDecisionWithinFirm:  field(idx, rec, "investmentdecisionwithinfirm"),
			ExecWithinFirm:                field(idx, rec, "execwithinfirm"),
			NonExecutingBroker:            field(idx, rec, "nonexecutingbroker"),
			TradingCapacity:               field(idx, rec, "tradingcapacity"),
			LiquidityProvisionActivity:    field(idx, rec, "liquidityprovisionactivity"),
			DateAndTime:                   field(idx, rec, "dateandtime"),
			ValidityPeriod:                field(idx, rec, "validityperiod"),
			OrderRestriction:              field(idx, rec, "orderrestriction"),
			ValidityPeriodAndTime:         field(idx, rec, "validityperiodandtime"),
			PriorityTimestamp:             field(idx, rec, "prioritytimestamp"),
			PrioritySize:                  field(idx, rec, "prioritysize"),
			SeqNum:                        seq,
			MIC:                           field(idx, rec, "mic"),
			OrderBookCode:                 field(idx, rec, "orderbookcode"),
			FinancialInstrumentIDCode:     field(idx, rec, "financialinstrumentidcode"),
			DateOfReceipt:                 field(idx, rec, "dateofreceipt"),
			OrderIDCode:                   field(idx, rec, "orderidcode"),
			OrderEvent:                    field(idx, rec, "orderevent"),
			OrderType:                     field(idx, rec, "ordertype"),
			OrderTypeClass:                field(idx, rec, "ordertypeclass"),
			LimitPrice:                    field(idx, rec, "limitprice"),
			AdditionalLimitPrice:          field(idx, rec, "additionallimitprice"),
			StopPrice:                     field(idx, rec, "stopprice"),
			PeggedLimitPrice:              field(idx, rec, "peggedlimitprice"),
			TransactionPrice:              field(idx, rec, "transactionprice"),
			PriceCurrency:                 field(idx, rec, "pricecurrency"),
			CurrencyLeg2:                  field(idx, rec, "currencyleg2"),
			PriceNotation:                 field(idx, rec, "pricenotation"),
			BuySellInd:                    field(idx, rec, "buysellind"),
			OrderStatus:                   field(idx, rec, "orderstatus"),
			QuantityNotation:              field(idx, rec, "quantitynotation"),
			QuantityCurrency:              field(idx, rec, "quantitycurrency"),
			InitialQty:                    field(idx, rec, "initialqty"),
			RemainingQtyInclHidden:        field(idx, rec, "remainingqtyinclhidden"),
			DisplayedQty:                  field(idx, rec, "displayedqty"),
			TradedQuantity:                field(idx, rec, "tradedquantity"),
			MinAcceptableQty:              field(idx, rec, "minacceptableqty"),
			MinimumExecutableSize:         field(idx, rec, "minimumexecutablesize"),
			MESFirstExecOnly:              field(idx, rec, "mesfirstexeconly"),
			PassiveOnly:                   field(idx, rec, "passiveonly"),
			PassiveOrAggressive:           field(idx, rec, "passiveoraggressive"),
			SelfExecutionPrevention:       field(idx, rec, "selfexecutionprevention"),
			StrategyLinkedOrderID:         field(idx, rec, "strategylinkedorderid"),
			RoutingStrategy:               field(idx, rec, "routingstrategy"),
			TradingVenueTransactionIDCode: field(idx, rec, "tradingvenuetransactionidcode"),
		}
		out = append(out, models.EnrichedEvent{OrderBookEvent: ev})
		return nil
	})
	return out, err
}

// readPhases parses one day's trading-phase extract.
func readPhases(path string) ([]models.TradingPhase, error) {
	var out []models.TradingPhase
	err := gzCSVRows(path, phaseColumns, func(idx map[string]int, rec []string) error {
		seq, err := parseSeqNum(idx, rec)
		if err != nil {
			return err
		}
		out = append(out, models.TradingPhase{
			OrderBookCode: field(idx, rec, "orderbookcode"),
			SeqNum:        seq,
			Phase:         field(idx, rec, "tradingphases"),
		})
		return nil
	})
	return out, err
}

// readQuotes parses one day's indicative auction price extract.
func readQuotes(path string) ([]models.AuctionQuote, error) {
	var out []models.AuctionQuote
	err := gzCSVRows(path, quoteColumns, func(idx map[string]int, rec []string) error {
		seq, err := parseSeqNum(idx, rec)
		if err != nil {
			return err
		}
		out = append(out, models.AuctionQuote{
			OrderBookCode:          field(idx, rec, "orderbookcode"),
			SeqNum:                 seq,
			IndicativeAuctionPrice: field(idx, rec, "indicativeauctionprice"),
			IndicativeAuctionVol:   field(idx, rec, "indicativeauctionvolume"),
		})
		return nil
	})
	return out, err
}
