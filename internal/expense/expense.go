package expense

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/zombor/hsa-ledger/internal/category"
)

// Source values for a recorded expense.
const (
	SourceScan   = "scan"
	SourceManual = "manual"
)

// DateLayout is the ISO 8601 calendar date form used everywhere a date
// is stored or hashed.
const DateLayout = "2006-01-02"

// receiptIDTag prefixes every receipt ID for readability.
const receiptIDTag = "MED"

// receiptIDLen is the number of hex digest characters kept after the tag.
const receiptIDLen = 10

// Record is one expense, produced by scanning or manual entry and
// persisted as a single ledger row. Records are never mutated after
// construction.
type Record struct {
	Date        time.Time         `json:"date"`
	Provider    string            `json:"provider"`
	Amount      int               `json:"amount"` // Amount in cents
	Category    category.Category `json:"category"`
	ReceiptID   string            `json:"receipt_id"`
	ReceiptPath string            `json:"receipt_path,omitempty"`
	Notes       string            `json:"notes,omitempty"`
	Source      string            `json:"source"`
}

// NewRecord validates and builds a Record with its receipt ID computed.
// The provider is normalized; date and amount must already be parsed.
func NewRecord(date time.Time, provider string, amountCents int, cat category.Category, notes, source string) (*Record, error) {
	provider = NormalizeProvider(provider)
	if provider == "" {
		return nil, fmt.Errorf("provider must not be empty")
	}
	if amountCents <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	if date.IsZero() {
		return nil, fmt.Errorf("date must not be zero")
	}
	if cat == "" {
		cat = category.Other
	}

	r := &Record{
		Date:     date,
		Provider: provider,
		Amount:   amountCents,
		Category: cat,
		Notes:    notes,
		Source:   source,
	}
	r.ReceiptID = r.ComputeReceiptID()
	return r, nil
}

// ComputeReceiptID derives the record's deterministic ID from its
// normalized date, provider, and amount.
func (r *Record) ComputeReceiptID() string {
	return ReceiptID(r.Date.Format(DateLayout), r.Provider, FormatAmount(r.Amount))
}

// ReceiptID produces a deterministic, collision-resistant identifier
// from normalized fields: the SHA-256 digest of "date:provider:amount",
// truncated to 10 uppercase hex characters and tagged. Recomputing from
// the same fields always yields the same ID, so duplicates are
// detectable from the ledger alone.
func ReceiptID(date, provider, amount string) string {
	seed := date + ":" + provider + ":" + amount
	sum := sha256.Sum256([]byte(seed))
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))
	return receiptIDTag + digest[:receiptIDLen]
}

// NormalizeProvider trims surrounding whitespace. Case is preserved:
// "CVS" and "cvs" are distinct providers.
func NormalizeProvider(s string) string {
	return strings.TrimSpace(s)
}

// FormatAmount renders cents with exactly two decimal digits and no
// thousands separators, e.g. 10638 -> "106.38".
func FormatAmount(cents int) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// ParseAmount converts a decimal currency string such as "25.9",
// "25.90", or "$1,234.50" into cents. The amount must be strictly
// positive.
func ParseAmount(s string) (int, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return CentsFromFloat(f)
}

// CentsFromFloat converts a dollar amount to cents, rejecting
// non-positive values.
func CentsFromFloat(f float64) (int, error) {
	cents := int(math.Round(f * 100))
	if cents <= 0 {
		return 0, fmt.Errorf("amount must be positive, got %v", f)
	}
	return cents, nil
}

// ParseDate parses an ISO 8601 calendar date.
func ParseDate(s string) (time.Time, error) {
	date, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return date, nil
}
