package expense

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/zombor/hsa-ledger/internal/category"
)

// ledgerColumns is the fixed CSV column layout, one row per expense.
var ledgerColumns = []string{"Date", "Provider", "Amount", "Category", "Receipt_ID", "Receipt_URL", "Notes", "Source"}

// Ledger defines the interface for the append-only expense ledger.
type Ledger interface {
	// Append adds one record to the ledger year file for its date.
	Append(record *Record) error

	// LoadYear returns all records for a year, oldest file order first.
	LoadYear(year int) ([]*Record, error)

	// Years lists the years that have ledger files, ascending.
	Years() ([]int, error)

	// HasReceiptID reports whether any ledger year contains the ID.
	HasReceiptID(id string) (bool, error)
}

// CSVLedger implements Ledger as one CSV file per year under a data
// directory, matching files named hsa_expenses_YYYY.csv.
type CSVLedger struct {
	dataDir string
	mu      sync.Mutex
}

// NewCSVLedger creates a CSVLedger rooted at dataDir.
func NewCSVLedger(dataDir string) (*CSVLedger, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &CSVLedger{dataDir: dataDir}, nil
}

// Path returns the ledger file path for a year.
func (l *CSVLedger) Path(year int) string {
	return filepath.Join(l.dataDir, fmt.Sprintf("hsa_expenses_%d.csv", year))
}

// Append writes one record as a CSV row, creating the year file with a
// header when needed. Appends are serialized: the ledger is the one
// shared resource between concurrent extractions.
func (l *CSVLedger) Append(record *Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	path := l.Path(record.Date.Year())
	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(ledgerColumns); err != nil {
			return fmt.Errorf("writing ledger header: %w", err)
		}
	}
	row := []string{
		record.Date.Format(DateLayout),
		record.Provider,
		FormatAmount(record.Amount),
		string(record.Category),
		record.ReceiptID,
		record.ReceiptPath,
		record.Notes,
		record.Source,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("writing ledger row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing ledger: %w", err)
	}
	return nil
}

// LoadYear reads and parses every row of a year's ledger file.
func (l *CSVLedger) LoadYear(year int) ([]*Record, error) {
	rows, header, err := l.readRows(year)
	if err != nil {
		return nil, err
	}

	records := make([]*Record, 0, len(rows))
	for i, row := range rows {
		record, err := recordFromRow(header, row)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", filepath.Base(l.Path(year)), i+2, err)
		}
		records = append(records, record)
	}
	return records, nil
}

// Years scans the data directory for ledger files.
func (l *CSVLedger) Years() ([]int, error) {
	matches, err := filepath.Glob(filepath.Join(l.dataDir, "hsa_expenses_*.csv"))
	if err != nil {
		return nil, fmt.Errorf("listing ledger files: %w", err)
	}

	years := make([]int, 0, len(matches))
	for _, m := range matches {
		name := filepath.Base(m)
		name = strings.TrimPrefix(name, "hsa_expenses_")
		name = strings.TrimSuffix(name, ".csv")
		year, err := strconv.Atoi(name)
		if err != nil {
			continue
		}
		years = append(years, year)
	}
	sort.Ints(years)
	return years, nil
}

// HasReceiptID scans every ledger year for the given receipt ID. Rows
// that fail to parse do not hide IDs: only the ID column is read.
func (l *CSVLedger) HasReceiptID(id string) (bool, error) {
	years, err := l.Years()
	if err != nil {
		return false, err
	}
	for _, year := range years {
		rows, header, err := l.readRows(year)
		if err != nil {
			return false, err
		}
		idx := columnIndex(header, "Receipt_ID")
		if idx == -1 {
			continue
		}
		for _, row := range rows {
			if idx < len(row) && row[idx] == id {
				return true, nil
			}
		}
	}
	return false, nil
}

// readRows returns the raw data rows and header of a year file.
func (l *CSVLedger) readRows(year int) ([][]string, []string, error) {
	f, err := os.Open(l.Path(year))
	if err != nil {
		return nil, nil, fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading ledger: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, nil
	}
	return all[1:], all[0], nil
}

// columnIndex finds a column by header name, -1 when absent.
func columnIndex(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

// recordFromRow projects one CSV row into a Record.
func recordFromRow(header, row []string) (*Record, error) {
	get := func(name string) string {
		idx := columnIndex(header, name)
		if idx == -1 || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	date, err := ParseDate(get("Date"))
	if err != nil {
		return nil, err
	}
	cents, err := ParseAmount(get("Amount"))
	if err != nil {
		return nil, err
	}
	cat, ok := category.Parse(get("Category"))
	if !ok {
		cat = category.Other
	}

	return &Record{
		Date:        date,
		Provider:    get("Provider"),
		Amount:      cents,
		Category:    cat,
		ReceiptID:   get("Receipt_ID"),
		ReceiptPath: get("Receipt_URL"),
		Notes:       get("Notes"),
		Source:      get("Source"),
	}, nil
}
