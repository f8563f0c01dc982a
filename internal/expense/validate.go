package expense

import (
	"fmt"
	"path/filepath"
)

// ValidationResult reports one ledger year's integrity check. Issues
// are data errors; warnings are suspicious but tolerable findings.
type ValidationResult struct {
	Path       string
	Rows       int
	TotalCents int
	Issues     []string
	Warnings   []string
}

// Valid reports whether the year passed with no issues.
func (r *ValidationResult) Valid() bool {
	return len(r.Issues) == 0
}

// ValidationSummary aggregates validation across ledger years.
type ValidationSummary struct {
	Files         []*ValidationResult
	TotalRows     int
	TotalCents    int
	TotalIssues   int
	TotalWarnings int
}

// Validator audits the ledger against the receipt archive.
type Validator struct {
	ledger  *CSVLedger
	archive Archiver
}

// NewValidator creates a Validator.
func NewValidator(ledger *CSVLedger, archive Archiver) *Validator {
	return &Validator{ledger: ledger, archive: archive}
}

// ValidateYear checks one ledger year: column layout, per-row date and
// amount parsing, receipt IDs that do not match their fields, duplicate
// IDs, and referenced archive files that are missing.
func (v *Validator) ValidateYear(year int) (*ValidationResult, error) {
	result := &ValidationResult{Path: v.ledger.Path(year)}

	rows, header, err := v.ledger.readRows(year)
	if err != nil {
		return nil, err
	}

	for _, col := range ledgerColumns[:6] { // Notes and Source are optional
		if columnIndex(header, col) == -1 {
			result.Issues = append(result.Issues, fmt.Sprintf("missing column %q", col))
		}
	}

	seen := make(map[string]int) // receipt ID -> first row number
	for i, row := range rows {
		rowNum := i + 2 // header is row 1
		result.Rows++

		get := func(name string) string {
			idx := columnIndex(header, name)
			if idx == -1 || idx >= len(row) {
				return ""
			}
			return row[idx]
		}

		date, dateErr := ParseDate(get("Date"))
		if dateErr != nil {
			result.Issues = append(result.Issues, fmt.Sprintf("row %d: invalid date %q", rowNum, get("Date")))
		}

		cents, amountErr := ParseAmount(get("Amount"))
		if amountErr != nil {
			result.Issues = append(result.Issues, fmt.Sprintf("row %d: invalid amount %q", rowNum, get("Amount")))
		} else {
			result.TotalCents += cents
		}

		provider := NormalizeProvider(get("Provider"))
		if provider == "" {
			result.Issues = append(result.Issues, fmt.Sprintf("row %d: empty provider", rowNum))
		}

		id := get("Receipt_ID")
		if id != "" {
			if first, dup := seen[id]; dup {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("row %d: duplicate receipt ID %s (first seen row %d)", rowNum, id, first))
			} else {
				seen[id] = rowNum
			}

			// The ID is recomputable from the row itself; a mismatch
			// means the row was edited without regenerating it.
			if dateErr == nil && amountErr == nil && provider != "" {
				expected := ReceiptID(date.Format(DateLayout), provider, FormatAmount(cents))
				if id != expected {
					result.Warnings = append(result.Warnings,
						fmt.Sprintf("row %d: receipt ID %s does not match fields (expected %s)", rowNum, id, expected))
				}
			}
		}

		if receiptPath := get("Receipt_URL"); receiptPath != "" {
			if !v.archive.Exists(receiptPath) {
				result.Issues = append(result.Issues,
					fmt.Sprintf("row %d: receipt file not found: %s", rowNum, receiptPath))
			}
		}
	}

	return result, nil
}

// ValidateAll validates every ledger year found in the data directory.
func (v *Validator) ValidateAll() (*ValidationSummary, error) {
	years, err := v.ledger.Years()
	if err != nil {
		return nil, err
	}

	summary := &ValidationSummary{}
	for _, year := range years {
		result, err := v.ValidateYear(year)
		if err != nil {
			return nil, fmt.Errorf("validating %s: %w", filepath.Base(v.ledger.Path(year)), err)
		}
		summary.Files = append(summary.Files, result)
		summary.TotalRows += result.Rows
		summary.TotalCents += result.TotalCents
		summary.TotalIssues += len(result.Issues)
		summary.TotalWarnings += len(result.Warnings)
	}
	return summary, nil
}
