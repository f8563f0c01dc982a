package scanning

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dateFormats are tried in order when the model does not return ISO 8601.
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// parseReceipt extracts a validated ReceiptData from a model reply. The
// reply may surround the JSON object with prose or markdown fences; the
// first well-formed JSON object wins. Required fields that are missing
// or malformed fail with the matching ExtractionError kind, never a
// silent default.
func parseReceipt(raw string) (*ReceiptData, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return nil, &ExtractionError{Kind: ErrUnparsableResponse, Raw: raw}
	}

	var payload struct {
		Date     *string         `json:"date"`
		Provider *string         `json:"provider"`
		Amount   json.RawMessage `json:"amount"`
		Category string          `json:"category"`
		Notes    string          `json:"notes"`
	}
	// A Decoder stops after the first complete JSON value, so trailing
	// prose after the object is ignored.
	if err := json.NewDecoder(strings.NewReader(text[start:])).Decode(&payload); err != nil {
		return nil, &ExtractionError{Kind: ErrUnparsableResponse, Raw: raw, Err: err}
	}

	date, err := normalizeDate(payload.Date)
	if err != nil {
		return nil, &ExtractionError{Kind: ErrInvalidDate, Raw: raw, Err: err}
	}

	amount, err := parseAmountValue(payload.Amount)
	if err != nil {
		return nil, &ExtractionError{Kind: ErrInvalidAmount, Raw: raw, Err: err}
	}

	provider := ""
	if payload.Provider != nil {
		provider = strings.TrimSpace(*payload.Provider)
	}
	if provider == "" {
		return nil, &ExtractionError{Kind: ErrMissingProvider, Raw: raw}
	}

	return &ReceiptData{
		Date:     date,
		Provider: provider,
		Amount:   amount,
		Category: strings.TrimSpace(payload.Category),
		Notes:    strings.TrimSpace(payload.Notes),
	}, nil
}

// normalizeDate parses the model's date into ISO 8601 form.
func normalizeDate(value *string) (string, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return "", fmt.Errorf("date not present")
	}
	s := strings.TrimSpace(*value)
	for _, format := range dateFormats {
		if d, err := time.Parse(format, s); err == nil {
			return d.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", s)
}

// parseAmountValue accepts a JSON number or a numeric string such as
// "25.99" or "$1,234.50" and requires a strictly positive value.
func parseAmountValue(raw json.RawMessage) (float64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, fmt.Errorf("amount not present")
	}
	s = strings.Trim(s, `"`)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	amount, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unrecognized amount %q", string(raw))
	}
	if amount <= 0 {
		return 0, fmt.Errorf("amount %v is not positive", amount)
	}
	return amount, nil
}
