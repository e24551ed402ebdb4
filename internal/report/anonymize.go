package report

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// FieldPolicy is the fixed per-field toggle table deciding which identity
// fields are replaced by a keyed hash before emission. It is supplied once at
// codec construction, never per call.
type FieldPolicy struct {
	InstrumentIDCode   bool
	OrderBookCode      bool
	ClientIDCode       bool
	InvestmentDecision bool
	ExecWithinFirm     bool
	NonExecutingBroker bool
}

// DefaultFieldPolicy anonymizes person and broker identifiers and leaves
// instrument and venue codes in the clear.
func DefaultFieldPolicy() FieldPolicy {
	return FieldPolicy{
		InstrumentIDCode:   false,
		OrderBookCode:      false,
		ClientIDCode:       true,
		InvestmentDecision: true,
		ExecWithinFirm:     true,
		NonExecutingBroker: true,
	}
}

// Anonymizer renders deterministic pseudonyms for identity fields.
type Anonymizer struct {
	secret string
	policy FieldPolicy
}

// NewAnonymizer builds an Anonymizer from a secret key and a toggle table.
func NewAnonymizer(secret string, policy FieldPolicy) *Anonymizer {
	return &Anonymizer{secret: secret, policy: policy}
}

// Hash returns the first 32 characters of the uppercase hex SHA-256 digest
// of secret ∥ value. Pure and deterministic.
func (a *Anonymizer) Hash(value string) string {
	h := sha256.New()
	h.Write([]byte(a.secret))
	h.Write([]byte(value))
	digest := strings.ToUpper(hex.EncodeToString(h.Sum(nil)))
	return digest[:32]
}

// apply hashes value when the toggle is on, otherwise passes it through.
func (a *Anonymizer) apply(enabled bool, value string) string {
	if enabled {
		return a.Hash(value)
	}
	return value
}

func (a *Anonymizer) instrument(v string) string { return a.apply(a.policy.InstrumentIDCode, v) }
func (a *Anonymizer) orderBook(v string) string  { return a.apply(a.policy.OrderBookCode, v) }
func (a *Anonymizer) client(v string) string     { return a.apply(a.policy.ClientIDCode, v) }
func (a *Anonymizer) decision(v string) string   { return a.apply(a.policy.InvestmentDecision, v) }
func (a *Anonymizer) executor(v string) string   { return a.apply(a.policy.ExecWithinFirm, v) }
func (a *Anonymizer) broker(v string) string     { return a.apply(a.policy.NonExecutingBroker, v) }
