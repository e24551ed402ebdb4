package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/rimasko/orkpulse/internal/domain/models"
)

// Namespaces of the three schema components the document is assembled from.
const (
	bizDataNS = "urn:iso:std:iso:20022:tech:xsd:head.003.001.01"
	headerNS  = "urn:iso:std:iso:20022:tech:xsd:head.001.001.01"
	reportNS  = "urn:accenture:auth.anonym.113.001.01"
)

// Fixed identifiers of the message envelope and venue.
const (
	senderID    = "LT"
	recipientID = "ESMA"
	schemeCode  = "NIDN"
	venueMIC    = "XLIT"
	bizMsgID    = "OrderBook"
	msgDefID    = "auth.113.001.01"
	currency    = "EUR"
)

// knownEventTypes is the closed set of coded order events; anything else is
// emitted as a proprietary element carrying the raw value.
var knownEventTypes = map[string]struct{}{
	"CAME": {}, "CAMO": {}, "CHME": {}, "CHMO": {}, "EXPI": {},
	"FILL": {}, "NEWO": {}, "PARF": {}, "REMA": {}, "REMO": {},
	"REMH": {}, "REME": {}, "TRIG": {}, "RFQS": {}, "RFQR": {},
}

// Builder maps an enriched event batch onto the regulatory order-book
// document. The anonymization table is fixed at construction.
type Builder struct {
	anon *Anonymizer

	// indirections for deterministic tests
	now      func() time.Time
	reportID func() string
}

// NewBuilder returns a Builder using the given anonymizer.
func NewBuilder(anon *Anonymizer) *Builder {
	return &Builder{
		anon:     anon,
		now:      time.Now,
		reportID: func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
}

// BuildDocument maps a batch into one complete document.
//
// The batch must contain more than one event; violating this is a caller bug
// and panics. Returns an error only when an event timestamp is unparseable.
func (b *Builder) BuildDocument(batch []models.EnrichedEvent) (*etree.Document, error) {
	if len(batch) < 2 {
		panic("report: batch must contain more than one event")
	}

	start, end, err := eventTimeRange(batch)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	bizData := doc.CreateElement("BizData")
	bizData.CreateAttr("xmlns", bizDataNS)

	hdr := bizData.CreateElement("Hdr")
	appHdr := hdr.CreateElement("AppHdr")
	appHdr.CreateAttr("xmlns", headerNS)
	b.appendParty(appHdr, "Fr", senderID)
	b.appendParty(appHdr, "To", recipientID)
	setText(appHdr, "BizMsgIdr", bizMsgID)
	setText(appHdr, "MsgDefIdr", msgDefID)
	setText(appHdr, "CreDt", b.now().UTC().Format("2006-01-02T15:04:05Z"))

	pyld := bizData.CreateElement("Pyld")
	mainDoc := pyld.CreateElement("Document")
	mainDoc.CreateAttr("xmlns", reportNS)
	bookRpt := mainDoc.CreateElement("OrdrBookRpt")

	rptHdr := bookRpt.CreateElement("RptHdr")
	setText(rptHdr.CreateElement("RptgNtty"), "MktIdCd", venueMIC)
	frToDt := rptHdr.CreateElement("RptgPrd").CreateElement("FrToDt")
	setText(frToDt, "FrDt", start.Format("2006-01-02"))
	setText(frToDt, "ToDt", end.Format("2006-01-02"))
	for _, isin := range distinctInstruments(batch) {
		setText(rptHdr, "ISIN", b.anon.instrument(isin))
	}

	ordrRpt := bookRpt.CreateElement("OrdrRpt")
	newRpt := ordrRpt.CreateElement("New")
	setText(newRpt, "RptId", b.reportID())

	for i := range batch {
		b.appendOrder(newRpt, &batch[i])
	}

	return doc, nil
}

// appendParty writes one Fr/To header party with the fixed scheme.
func (b *Builder) appendParty(appHdr *etree.Element, tag, id string) {
	othr := appHdr.CreateElement(tag).
		CreateElement("OrgId").
		CreateElement("Id").
		CreateElement("OrgId").
		CreateElement("Othr")
	setText(othr, "Id", id)
	setText(othr.CreateElement("SchmeNm"), "Cd", schemeCode)
}

// appendOrder emits one Ordr element with every conditional mapping rule.
// Optional fields whose source is the empty sentinel are omitted entirely.
func (b *Builder) appendOrder(parent *etree.Element, ev *models.EnrichedEvent) {
	ordr := parent.CreateElement("Ordr")

	idData := ordr.CreateElement("OrdrIdData")
	setText(idData, "OrdrBookId", b.anon.orderBook(ev.OrderBookCode))
	setText(idData, "SeqNb", fmt.Sprintf("%d", ev.SeqNum))
	if ev.PriorityTimestamp != "" {
		setText(idData.CreateElement("Prty"), "TmStmp", ev.PriorityTimestamp)
	}
	setText(idData, "TmStmp", ev.DateAndTime)
	setText(idData, "TradVn", venueMIC)
	setText(idData.CreateElement("FinInstrm"), "Id", b.anon.instrument(ev.FinancialInstrumentIDCode))
	setText(idData, "OrdrId", ev.OrderIDCode)
	setText(idData, "DtOfRct", ev.DateOfReceipt)
	setText(idData.CreateElement("VldtyPrd"), "VldtyPrdCd", ev.ValidityPeriod)
	if ev.ValidityPeriodAndTime != "" {
		setText(idData, "VldtyDtTm", ev.ValidityPeriodAndTime)
	}
	evtTp := idData.CreateElement("EvtTp")
	if _, known := knownEventTypes[ev.OrderEvent]; known {
		setText(evtTp, "Cd", ev.OrderEvent)
	} else {
		prtry := evtTp.CreateElement("Prtry")
		setText(prtry, "Id", ev.OrderEvent)
		setText(prtry, "Issr", venueMIC)
	}

	auctn := ordr.CreateElement("AuctnData")
	if ev.TradingPhase != "" {
		setText(auctn, "TradgPhs", ev.TradingPhase)
	}
	if ev.IndicativeAuctionPrice != "" {
		monetary(auctn.CreateElement("IndctvAuctnPric"), ev.IndicativeAuctionPrice)
	}
	if ev.IndicativeAuctionVol != "" {
		setText(auctn.CreateElement("IndctvAuctnVol"), "Unit", ev.IndicativeAuctionVol)
	}

	data := ordr.CreateElement("OrdrData")
	setText(data, "SubmitgNtty", venueMIC)
	setText(data, "DrctElctrncAccs", strings.ToLower(ev.DEA))

	// Exactly 20 characters classifies the client as a legal entity; any
	// other length is a natural person. Mechanical, not configurable.
	clntID := data.CreateElement("ClntId")
	if len(ev.ClientIDCode) == 20 {
		setText(clntID, "LEI", b.anon.client(ev.ClientIDCode))
	} else {
		setText(clntID.CreateElement("Prsn"), "Id", b.anon.client(ev.ClientIDCode))
	}

	if ev.InvestmentDecisionWithinFirm != "" {
		setText(data.CreateElement("InvstmtDcsnPrsn").CreateElement("Prsn"), "Id",
			b.anon.decision(ev.InvestmentDecisionWithinFirm))
	}
	if ev.ExecWithinFirm != "" {
		exctg := data.CreateElement("ExctgPrsn")
		if ev.ExecWithinFirm == "NORE" {
			// No relevant executing person within the firm.
			setText(exctg, "Clnt", "NORE")
		} else {
			setText(exctg.CreateElement("Prsn"), "Id", b.anon.executor(ev.ExecWithinFirm))
		}
	}
	if ev.NonExecutingBroker != "" {
		setText(data, "NonExctgBrkr", b.anon.broker(ev.NonExecutingBroker))
	}

	setText(data, "TradgCpcty", ev.TradingCapacity)
	setText(data, "LqdtyPrvsnActvty", strings.ToLower(ev.LiquidityProvisionActivity))

	clssfctn := data.CreateElement("OrdrClssfctn")
	setText(clssfctn, "OrdrTp", ev.OrderType)
	setText(clssfctn, "OrdrTpClssfctn", ev.OrderTypeClass)

	prics := data.CreateElement("OrdrPrics")
	if ev.LimitPrice != "" {
		monetary(prics.CreateElement("LmtPric"), ev.LimitPrice)
	}
	if ev.AdditionalLimitPrice != "" {
		monetary(prics.CreateElement("AddtlLmtPric"), ev.AdditionalLimitPrice)
	}
	if ev.StopPrice != "" {
		monetary(prics.CreateElement("StopPric"), ev.StopPrice)
	}
	if ev.PeggedLimitPrice != "" {
		monetary(prics.CreateElement("PggdPric"), ev.PeggedLimitPrice)
	}

	instr := data.CreateElement("InstrData")
	setText(instr, "BuySellInd", ev.BuySellInd)
	lifecycle, validity := models.SplitStatus(ev.OrderStatus)
	if lifecycle != "" {
		setText(instr, "OrdrSts", lifecycle)
	}
	if validity != "" {
		setText(instr, "OrdrVldtySts", validity)
	}
	setText(instr.CreateElement("InitlQty"), "Unit", ev.InitialQty)
	setText(instr.CreateElement("RmngQty"), "Unit", ev.RemainingQtyInclHidden)
	if ev.DisplayedQty != "" {
		setText(instr.CreateElement("DispdQty"), "Unit", ev.DisplayedQty)
	}
	if ev.MinAcceptableQty != "" {
		setText(instr.CreateElement("MinAccptblQty"), "Unit", ev.MinAcceptableQty)
	}
	if ev.MinimumExecutableSize != "" {
		sz := instr.CreateElement("MinExctbl").CreateElement("Sz")
		sz.SetText(ev.MinimumExecutableSize)
		if ev.MESFirstExecOnly != "" {
			setText(sz, "FrstExctnOnly", ev.MESFirstExecOnly)
		}
	}
	if ev.PassiveOnly != "" {
		setText(instr, "PssvOnlyInd", strings.ToLower(ev.PassiveOnly))
	}
	if ev.SelfExecutionPrevention != "" {
		setText(instr, "SlfExctnPrvntn", ev.SelfExecutionPrevention)
	}

	// The transaction sub-block exists only for events that actually traded.
	if ev.TradedQty() != 0 {
		tx := data.CreateElement("TxData")
		monetary(tx.CreateElement("TxPric").CreateElement("Pric"), ev.TransactionPrice)
		setText(tx.CreateElement("TraddQty"), "Unit", ev.TradedQuantity)
		if ev.PassiveOrAggressive != "" {
			setText(tx, "PssvOrAggrssvInd", ev.PassiveOrAggressive)
		}
	}
}

// setText appends <tag>text</tag> under parent and returns the new element.
func setText(parent *etree.Element, tag, text string) *etree.Element {
	el := parent.CreateElement(tag)
	el.SetText(text)
	return el
}

// monetary wraps an amount in the currency-qualified MntryVal/Amt element.
func monetary(parent *etree.Element, amount string) {
	amt := parent.CreateElement("MntryVal").CreateElement("Amt")
	amt.CreateAttr("Ccy", currency)
	amt.SetText(amount)
}

// eventTimeRange computes [min, max] over the batch's event timestamps.
func eventTimeRange(batch []models.EnrichedEvent) (time.Time, time.Time, error) {
	var start, end time.Time
	for i := range batch {
		t, err := batch[i].EventTime()
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("event seq %d: %w", batch[i].SeqNum, err)
		}
		if start.IsZero() || t.Before(start) {
			start = t
		}
		if end.IsZero() || t.After(end) {
			end = t
		}
	}
	return start, end, nil
}

// distinctInstruments returns the batch's instrument codes, first-seen order.
func distinctInstruments(batch []models.EnrichedEvent) []string {
	seen := make(map[string]struct{})
	var out []string
	for i := range batch {
		code := batch[i].FinancialInstrumentIDCode
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}
