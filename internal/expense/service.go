package expense

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zombor/hsa-ledger/internal/category"
	"github.com/zombor/hsa-ledger/internal/scanning"
)

// ErrDuplicate is returned when a receipt ID is already recorded.
var ErrDuplicate = errors.New("receipt already recorded")

// TimeSource provides the current time.
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// supportedExtensions are the receipt file types batch processing picks up.
var supportedExtensions = map[string]bool{
	".pdf": true, ".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".heic": true, ".heif": true,
}

// mediaTypes maps file extensions to MIME types for the scanner.
var mediaTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".heic": "image/heic",
	".heif": "image/heif",
	".pdf":  "application/pdf",
}

// MediaTypeFor detects a file's media type from its extension.
func MediaTypeFor(path string) string {
	if t, ok := mediaTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return t
	}
	return "image/png"
}

// Service handles expense operations: scanning receipts into records,
// manual entry, batch processing, and duplicate detection.
type Service struct {
	scanner    scanning.Scanner
	table      *category.Table
	ledger     Ledger
	archive    Archiver
	index      Index
	timeSource TimeSource
	suggester  *category.Classifier
}

// NewService creates a Service with the real time source.
func NewService(scanner scanning.Scanner, table *category.Table, ledger Ledger, archive Archiver, index Index) *Service {
	return NewServiceWithDeps(scanner, table, ledger, archive, index, &defaultTimeSource{})
}

// NewServiceWithDeps creates a Service with a custom time source for testing.
func NewServiceWithDeps(scanner scanning.Scanner, table *category.Table, ledger Ledger, archive Archiver, index Index, timeSource TimeSource) *Service {
	return &Service{
		scanner:    scanner,
		table:      table,
		ledger:     ledger,
		archive:    archive,
		index:      index,
		timeSource: timeSource,
	}
}

// Extract runs the extraction pipeline for one receipt file and returns
// an unpersisted record candidate: scan, validate, categorize, compute
// the receipt ID. Nothing is archived or appended.
func (s *Service) Extract(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading receipt file: %w", err)
	}
	mediaType := MediaTypeFor(path)

	scanned, err := s.scanner.ScanReceipt(data, mediaType)
	if err != nil {
		slog.Error("Failed to scan receipt",
			"file", path,
			"content_type", mediaType,
			"file_size", len(data),
			"error", err,
		)
		return nil, err
	}

	date, err := ParseDate(scanned.Date)
	if err != nil {
		return nil, &scanning.ExtractionError{Kind: scanning.ErrInvalidDate, Err: err}
	}
	if err := s.validateDate(date); err != nil {
		return nil, &scanning.ExtractionError{Kind: scanning.ErrInvalidDate, Err: err}
	}

	cents, err := CentsFromFloat(scanned.Amount)
	if err != nil {
		return nil, &scanning.ExtractionError{Kind: scanning.ErrInvalidAmount, Err: err}
	}

	record, err := NewRecord(date, scanned.Provider, cents, s.categorize(scanned), scanned.Notes, SourceScan)
	if err != nil {
		return nil, &scanning.ExtractionError{Kind: scanning.ErrMissingProvider, Err: err}
	}
	return record, nil
}

// ProcessReceipt runs Extract and persists the result: duplicate check,
// archive copy, ledger append, index update.
func (s *Service) ProcessReceipt(path string) (*Record, error) {
	record, err := s.Extract(path)
	if err != nil {
		return nil, err
	}

	if err := s.checkDuplicate(record.ReceiptID); err != nil {
		return nil, err
	}

	relPath, err := s.archive.Store(path, record)
	if err != nil {
		return nil, fmt.Errorf("archiving receipt: %w", err)
	}
	record.ReceiptPath = relPath

	if err := s.ledger.Append(record); err != nil {
		// Keep archive and ledger consistent when the append fails.
		if delErr := s.archive.Delete(relPath); delErr != nil {
			slog.Warn("Failed to remove archived file", "path", relPath, "error", delErr)
		}
		return nil, fmt.Errorf("appending to ledger: %w", err)
	}

	s.indexRecord(record)

	slog.Info("Recorded expense",
		"receipt_id", record.ReceiptID,
		"provider", record.Provider,
		"amount", FormatAmount(record.Amount),
		"category", record.Category,
	)
	return record, nil
}

// ManualEntry holds the fields of a manually entered expense. Date is
// ISO 8601, Amount a decimal string. Category may be empty: the keyword
// table, then the trained suggester, then Other decide.
type ManualEntry struct {
	Date        string
	Provider    string
	Amount      string
	Category    string
	Notes       string
	ReceiptPath string
}

// AddManual validates and records a manual expense entry.
func (s *Service) AddManual(entry ManualEntry) (*Record, error) {
	date, err := ParseDate(entry.Date)
	if err != nil {
		return nil, err
	}
	if err := s.validateDate(date); err != nil {
		return nil, err
	}

	cents, err := ParseAmount(entry.Amount)
	if err != nil {
		return nil, err
	}

	cat, err := s.resolveCategory(entry.Category, entry.Provider)
	if err != nil {
		return nil, err
	}

	record, err := NewRecord(date, entry.Provider, cents, cat, entry.Notes, SourceManual)
	if err != nil {
		return nil, err
	}
	record.ReceiptPath = entry.ReceiptPath

	if err := s.checkDuplicate(record.ReceiptID); err != nil {
		return nil, err
	}
	if err := s.ledger.Append(record); err != nil {
		return nil, fmt.Errorf("appending to ledger: %w", err)
	}
	s.indexRecord(record)

	slog.Info("Recorded manual expense",
		"receipt_id", record.ReceiptID,
		"provider", record.Provider,
		"amount", FormatAmount(record.Amount),
		"category", record.Category,
	)
	return record, nil
}

// BatchOptions controls batch folder processing.
type BatchOptions struct {
	// ProcessedDir, when set, receives successfully processed originals.
	ProcessedDir string
	// DeleteAfter removes originals after processing (ignored when
	// ProcessedDir is set).
	DeleteAfter bool
	// DryRun extracts without archiving, appending, or moving files.
	DryRun bool
}

// BatchError pairs a file with the error it produced.
type BatchError struct {
	File string
	Err  error
}

// BatchResult tallies one batch run.
type BatchResult struct {
	Processed  []*Record
	Duplicates []string
	Skipped    []BatchError
	Errors     []BatchError
}

// TotalCents sums the amounts of all processed records.
func (r *BatchResult) TotalCents() int {
	total := 0
	for _, rec := range r.Processed {
		total += rec.Amount
	}
	return total
}

// ProcessBatch processes every supported receipt file in a directory,
// in name order. One file's failure never aborts the rest: extraction
// field failures are tallied as skipped, duplicates as duplicates, and
// service or I/O failures as errors.
func (s *Service) ProcessBatch(dir string, opts BatchOptions) (*BatchResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading incoming directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !supportedExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)

	result := &BatchResult{}
	for _, file := range files {
		var record *Record
		var err error
		if opts.DryRun {
			record, err = s.Extract(file)
		} else {
			record, err = s.ProcessReceipt(file)
		}

		switch {
		case err == nil:
			result.Processed = append(result.Processed, record)
			if !opts.DryRun {
				s.finishBatchFile(file, opts, result)
			}
		case errors.Is(err, ErrDuplicate):
			result.Duplicates = append(result.Duplicates, file)
			slog.Info("Skipping duplicate receipt", "file", file)
		case isExtractionFieldError(err):
			result.Skipped = append(result.Skipped, BatchError{File: file, Err: err})
			slog.Warn("Skipping receipt with missing data", "file", file, "error", err)
		default:
			result.Errors = append(result.Errors, BatchError{File: file, Err: err})
			slog.Error("Failed to process receipt", "file", file, "error", err)
		}
	}
	return result, nil
}

// finishBatchFile moves or deletes a processed original per options.
func (s *Service) finishBatchFile(file string, opts BatchOptions, result *BatchResult) {
	switch {
	case opts.ProcessedDir != "":
		dest := filepath.Join(opts.ProcessedDir, filepath.Base(file))
		if err := os.MkdirAll(opts.ProcessedDir, 0755); err != nil {
			result.Errors = append(result.Errors, BatchError{File: file, Err: err})
			return
		}
		if err := os.Rename(file, dest); err != nil {
			result.Errors = append(result.Errors, BatchError{File: file, Err: err})
		}
	case opts.DeleteAfter:
		if err := os.Remove(file); err != nil {
			result.Errors = append(result.Errors, BatchError{File: file, Err: err})
		}
	}
}

// UseSuggester attaches a trained classifier for manual-entry category
// suggestions.
func (s *Service) UseSuggester(c *category.Classifier) {
	s.suggester = c
}

// TrainSuggester builds a category suggester from all recorded ledger
// history and attaches it.
func (s *Service) TrainSuggester() (int, error) {
	years, err := s.ledger.Years()
	if err != nil {
		return 0, err
	}
	classifier := category.NewClassifier()
	for _, year := range years {
		records, err := s.ledger.LoadYear(year)
		if err != nil {
			return 0, err
		}
		for _, r := range records {
			classifier.Train(r.Provider, r.Category)
		}
	}
	s.suggester = classifier
	return classifier.Trained(), nil
}

// Reindex rebuilds the duplicate index from the ledger and returns the
// number of records indexed.
func (s *Service) Reindex() (int, error) {
	years, err := s.ledger.Years()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, year := range years {
		records, err := s.ledger.LoadYear(year)
		if err != nil {
			return 0, err
		}
		for _, r := range records {
			if err := s.index.Put(r); err != nil {
				return count, fmt.Errorf("indexing %s: %w", r.ReceiptID, err)
			}
			count++
		}
	}
	return count, nil
}

// categorize picks a category for a scanned receipt: a valid,
// non-Other category named by the model wins, then the keyword table,
// then Other.
func (s *Service) categorize(scanned *scanning.ReceiptData) category.Category {
	if cat, ok := category.Parse(scanned.Category); ok && cat != category.Other {
		return cat
	}
	if cat, ok := s.table.Match(scanned.Provider, scanned.Notes); ok {
		return cat
	}
	return category.Other
}

// resolveCategory picks a category for a manual entry.
func (s *Service) resolveCategory(name, provider string) (category.Category, error) {
	if strings.TrimSpace(name) != "" {
		cat, ok := category.Parse(name)
		if !ok {
			return "", fmt.Errorf("unknown category %q", name)
		}
		return cat, nil
	}
	if cat, ok := s.table.Match(provider); ok {
		return cat, nil
	}
	if s.suggester != nil {
		if cat, ok := s.suggester.Suggest(provider); ok {
			return cat, nil
		}
	}
	return category.Other, nil
}

// checkDuplicate consults the index first and falls back to a ledger
// scan, so a cold or missing index never admits duplicates.
func (s *Service) checkDuplicate(receiptID string) error {
	found, err := s.index.Has(receiptID)
	if err != nil {
		slog.Warn("Index lookup failed, falling back to ledger scan", "error", err)
		found = false
	}
	if !found {
		found, err = s.ledger.HasReceiptID(receiptID)
		if err != nil {
			return fmt.Errorf("checking ledger for duplicates: %w", err)
		}
	}
	if found {
		return fmt.Errorf("receipt %s: %w", receiptID, ErrDuplicate)
	}
	return nil
}

// indexRecord adds a record to the index. Index failures are not fatal;
// the ledger remains the source of truth.
func (s *Service) indexRecord(record *Record) {
	if err := s.index.Put(record); err != nil {
		slog.Warn("Failed to index receipt", "receipt_id", record.ReceiptID, "error", err)
	}
}

// validateDate rejects dates in the future, with a day of slack for
// time zones.
func (s *Service) validateDate(date time.Time) error {
	if date.After(s.timeSource.Now().AddDate(0, 0, 1)) {
		return fmt.Errorf("date %s is in the future", date.Format(DateLayout))
	}
	return nil
}

// isExtractionFieldError reports whether an error is a recoverable
// extraction failure (bad or missing fields) rather than a service or
// I/O failure.
func isExtractionFieldError(err error) bool {
	var extractionErr *scanning.ExtractionError
	if !errors.As(err, &extractionErr) {
		return false
	}
	return !errors.Is(extractionErr.Kind, scanning.ErrServiceUnavailable)
}
