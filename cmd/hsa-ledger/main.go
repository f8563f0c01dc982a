package main

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/hsa-ledger/internal/category"
	"github.com/zombor/hsa-ledger/internal/expense"
	"github.com/zombor/hsa-ledger/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

const envPrefix = "HSA_LEDGER"

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	})))

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "scan":
		err = runScan(os.Args[2:])
	case "add":
		err = runAdd(os.Args[2:])
	case "batch":
		err = runBatch(os.Args[2:])
	case "report":
		err = runReport(os.Args[2:])
	case "validate":
		err = runValidate(os.Args[2:])
	case "reindex":
		err = runReindex(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		if errors.Is(err, ff.ErrHelp) {
			return
		}
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `hsa-ledger %s

Usage:
  hsa-ledger <command> [flags]

Commands:
  scan      Scan one receipt and record it
  add       Record a manual expense entry
  batch     Process every receipt in a folder
  report    Summarize a ledger year
  validate  Audit ledger files against the receipt archive
  reindex   Rebuild the receipt index from the ledger

Run 'hsa-ledger <command> --help' for command flags.
`, version)
}

// logLevel reads HSA_LEDGER_LOG. The default keeps informational service
// logs out of normal CLI output.
func logLevel() slog.Level {
	switch strings.ToLower(os.Getenv(envPrefix + "_LOG")) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func parse(fs *ff.FlagSet, args []string) error {
	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix(envPrefix)); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		return err
	}
	return nil
}

// storeFlags configure where ledger files, archived receipts, the
// duplicate index, and the category keyword table live.
type storeFlags struct {
	dataDir    *string
	archiveDir *string
	indexPath  *string
	categories *string
}

func addStoreFlags(fs *ff.FlagSet) *storeFlags {
	return &storeFlags{
		dataDir:    fs.StringLong("data", "./data", "Ledger CSV directory"),
		archiveDir: fs.StringLong("archive", "./receipts", "Receipt archive directory"),
		indexPath:  fs.StringLong("index", "", "Receipt index database path (default: <data>/hsa-ledger.db)"),
		categories: fs.StringLong("categories", "", "Category keyword YAML file (optional)"),
	}
}

type store struct {
	ledger  *expense.CSVLedger
	archive *expense.Archive
	index   *expense.BoltIndex
	table   *category.Table
}

func openStore(f *storeFlags) (*store, error) {
	ledger, err := expense.NewCSVLedger(*f.dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	archive, err := expense.NewArchive(*f.archiveDir)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	indexPath := *f.indexPath
	if indexPath == "" {
		indexPath = filepath.Join(*f.dataDir, "hsa-ledger.db")
	}
	index, err := expense.NewBoltIndex(indexPath)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	table, err := category.LoadTable(*f.categories)
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("loading category table: %w", err)
	}
	return &store{ledger: ledger, archive: archive, index: index, table: table}, nil
}

func (s *store) service(scanner scanning.Scanner) *expense.Service {
	return expense.NewService(scanner, s.table, s.ledger, s.archive, s.index)
}

func (s *store) Close() {
	s.index.Close()
}

// scannerFlags select and configure the vision backend.
type scannerFlags struct {
	scannerType *string
	claudeKey   *string
	claudeModel *string
	geminiKey   *string
	geminiModel *string
	ollamaURL   *string
	ollamaModel *string
}

func addScannerFlags(fs *ff.FlagSet) *scannerFlags {
	return &scannerFlags{
		scannerType: fs.StringLong("scanner", "claude", "Scanner type: 'claude', 'gemini', or 'ollama'"),
		claudeKey:   fs.StringLong("claude-key", "", "Anthropic API key (or set ANTHROPIC_API_KEY env var)"),
		claudeModel: fs.StringLong("claude-model", "claude-sonnet-4-5-20250929", "Anthropic model name"),
		geminiKey:   fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)"),
		geminiModel: fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name"),
		ollamaURL:   fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL"),
		ollamaModel: fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, bakllava, qwen2-vl)"),
	}
}

func (f *scannerFlags) build() (scanning.Scanner, error) {
	switch *f.scannerType {
	case "claude":
		apiKey := *f.claudeKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("Anthropic API key is required. Set --claude-key flag or ANTHROPIC_API_KEY environment variable")
		}
		return scanning.NewClaude(apiKey, *f.claudeModel)
	case "gemini":
		apiKey := *f.geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
		}
		return scanning.NewGemini(apiKey, *f.geminiModel)
	case "ollama":
		return scanning.NewOllama(*f.ollamaURL, *f.ollamaModel)
	default:
		return nil, fmt.Errorf("invalid scanner type %q (valid: claude, gemini, ollama)", *f.scannerType)
	}
}

func runScan(args []string) error {
	fs := ff.NewFlagSet("hsa-ledger scan")
	storeF := addStoreFlags(fs)
	scannerF := addScannerFlags(fs)
	dryRun := fs.BoolLong("dry-run", "Extract without recording anything")
	jsonOut := fs.BoolLong("json", "Print the extracted record as JSON")

	if err := parse(fs, args); err != nil {
		return err
	}
	paths := fs.GetArgs()
	if len(paths) != 1 {
		return errors.New("usage: hsa-ledger scan [flags] <receipt-file>")
	}

	st, err := openStore(storeF)
	if err != nil {
		return err
	}
	defer st.Close()

	scanner, err := scannerF.build()
	if err != nil {
		return err
	}
	defer scanner.Close()

	service := st.service(scanner)

	var record *expense.Record
	if *dryRun {
		record, err = service.Extract(paths[0])
	} else {
		record, err = service.ProcessReceipt(paths[0])
	}
	if errors.Is(err, expense.ErrDuplicate) {
		color.Yellow("Already recorded: %v", err)
		return nil
	}
	if err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(record)
	}
	if *dryRun {
		color.Green("Extracted %s (not recorded)", record.ReceiptID)
	} else {
		color.Green("Recorded %s", record.ReceiptID)
	}
	printRecord(record)
	return nil
}

func runAdd(args []string) error {
	fs := ff.NewFlagSet("hsa-ledger add")
	storeF := addStoreFlags(fs)
	var (
		date        = fs.StringLong("date", "", "Expense date (YYYY-MM-DD)")
		provider    = fs.StringLong("provider", "", "Provider name")
		amount      = fs.StringLong("amount", "", "Amount, e.g. 25.99")
		categoryArg = fs.StringLong("category", "", "Category (default: suggested from keywords and history)")
		notes       = fs.StringLong("notes", "", "Free-form notes")
		receipt     = fs.StringLong("receipt", "", "Archived receipt path to reference (optional)")
		jsonOut     = fs.BoolLong("json", "Print the recorded entry as JSON")
	)

	if err := parse(fs, args); err != nil {
		return err
	}

	st, err := openStore(storeF)
	if err != nil {
		return err
	}
	defer st.Close()

	service := st.service(nil)
	if *categoryArg == "" {
		// History-based suggestions only matter when no category is given.
		if _, err := service.TrainSuggester(); err != nil {
			slog.Warn("Failed to train category suggester", "error", err)
		}
	}

	record, err := service.AddManual(expense.ManualEntry{
		Date:        *date,
		Provider:    *provider,
		Amount:      *amount,
		Category:    *categoryArg,
		Notes:       *notes,
		ReceiptPath: *receipt,
	})
	if errors.Is(err, expense.ErrDuplicate) {
		color.Yellow("Already recorded: %v", err)
		return nil
	}
	if err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(record)
	}
	color.Green("Recorded %s", record.ReceiptID)
	printRecord(record)
	return nil
}

func runBatch(args []string) error {
	fs := ff.NewFlagSet("hsa-ledger batch")
	storeF := addStoreFlags(fs)
	scannerF := addScannerFlags(fs)
	var (
		processedDir = fs.StringLong("processed-dir", "", "Move processed originals into this directory")
		deleteAfter  = fs.BoolLong("delete", "Delete originals after processing")
		dryRun       = fs.BoolLong("dry-run", "Extract without recording or moving anything")
	)

	if err := parse(fs, args); err != nil {
		return err
	}
	dirs := fs.GetArgs()
	if len(dirs) != 1 {
		return errors.New("usage: hsa-ledger batch [flags] <directory>")
	}

	st, err := openStore(storeF)
	if err != nil {
		return err
	}
	defer st.Close()

	scanner, err := scannerF.build()
	if err != nil {
		return err
	}
	defer scanner.Close()

	result, err := st.service(scanner).ProcessBatch(dirs[0], expense.BatchOptions{
		ProcessedDir: *processedDir,
		DeleteAfter:  *deleteAfter,
		DryRun:       *dryRun,
	})
	if err != nil {
		return err
	}

	color.Green("Processed %d receipt(s), $%s", len(result.Processed), expense.FormatAmount(result.TotalCents()))
	for _, record := range result.Processed {
		fmt.Printf("  %s  %s  %s  $%s\n",
			record.ReceiptID, record.Date.Format(expense.DateLayout), record.Provider, expense.FormatAmount(record.Amount))
	}
	if len(result.Duplicates) > 0 {
		color.Yellow("Duplicates: %d", len(result.Duplicates))
		for _, file := range result.Duplicates {
			fmt.Printf("  %s\n", file)
		}
	}
	if len(result.Skipped) > 0 {
		color.Yellow("Skipped (needs manual entry): %d", len(result.Skipped))
		for _, skipped := range result.Skipped {
			fmt.Printf("  %s: %v\n", skipped.File, skipped.Err)
		}
	}
	if len(result.Errors) > 0 {
		color.Red("Failed: %d", len(result.Errors))
		for _, failed := range result.Errors {
			fmt.Printf("  %s: %v\n", failed.File, failed.Err)
		}
		return fmt.Errorf("%d receipt(s) failed", len(result.Errors))
	}
	return nil
}

func runReport(args []string) error {
	fs := ff.NewFlagSet("hsa-ledger report")
	storeF := addStoreFlags(fs)
	jsonOut := fs.BoolLong("json", "Print the report as JSON")

	if err := parse(fs, args); err != nil {
		return err
	}

	year := time.Now().Year()
	if rest := fs.GetArgs(); len(rest) == 1 {
		parsed, err := strconv.Atoi(rest[0])
		if err != nil {
			return fmt.Errorf("invalid year %q", rest[0])
		}
		year = parsed
	} else if len(rest) > 1 {
		return errors.New("usage: hsa-ledger report [flags] [year]")
	}

	st, err := openStore(storeF)
	if err != nil {
		return err
	}
	defer st.Close()

	report, err := expense.BuildReport(st.ledger, year)
	if err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(report)
	}

	bold := color.New(color.Bold)
	bold.Printf("HSA expenses %d\n", report.Year)
	fmt.Printf("  Records: %d\n", report.Count)
	fmt.Printf("  Total:   $%s\n", expense.FormatAmount(report.TotalCents))

	if len(report.ByCategory) > 0 {
		bold.Println("\nBy category")
		for _, total := range report.ByCategory {
			fmt.Printf("  %-14s $%10s  %5.1f%%\n",
				total.Category, expense.FormatAmount(total.Cents), report.Percent(total))
		}
	}
	if len(report.ByMonth) > 0 {
		bold.Println("\nBy month")
		for _, total := range report.ByMonth {
			fmt.Printf("  %s  $%s\n", total.Month, expense.FormatAmount(total.Cents))
		}
	}
	if len(report.Recent) > 0 {
		bold.Println("\nRecent")
		for _, record := range report.Recent {
			fmt.Printf("  %s  %-25s $%10s  %s\n",
				record.Date.Format(expense.DateLayout), record.Provider,
				expense.FormatAmount(record.Amount), record.ReceiptID)
		}
	}
	return nil
}

func runValidate(args []string) error {
	fs := ff.NewFlagSet("hsa-ledger validate")
	storeF := addStoreFlags(fs)
	yearFlag := fs.IntLong("year", 0, "Validate a single ledger year (default: all)")
	jsonOut := fs.BoolLong("json", "Print the validation summary as JSON")

	if err := parse(fs, args); err != nil {
		return err
	}

	st, err := openStore(storeF)
	if err != nil {
		return err
	}
	defer st.Close()

	validator := expense.NewValidator(st.ledger, st.archive)
	summary := &expense.ValidationSummary{}
	if *yearFlag != 0 {
		result, err := validator.ValidateYear(*yearFlag)
		if err != nil {
			return err
		}
		summary.Files = append(summary.Files, result)
		summary.TotalRows = result.Rows
		summary.TotalCents = result.TotalCents
		summary.TotalIssues = len(result.Issues)
		summary.TotalWarnings = len(result.Warnings)
	} else {
		summary, err = validator.ValidateAll()
		if err != nil {
			return err
		}
	}

	if *jsonOut {
		if err := printJSON(summary); err != nil {
			return err
		}
		if summary.TotalIssues > 0 {
			return fmt.Errorf("%d issue(s) found", summary.TotalIssues)
		}
		return nil
	}

	for _, file := range summary.Files {
		name := filepath.Base(file.Path)
		if file.Valid() && len(file.Warnings) == 0 {
			color.Green("%s: %d row(s), $%s, OK", name, file.Rows, expense.FormatAmount(file.TotalCents))
			continue
		}
		fmt.Printf("%s: %d row(s), $%s\n", name, file.Rows, expense.FormatAmount(file.TotalCents))
		for _, issue := range file.Issues {
			color.Red("  issue: %s", issue)
		}
		for _, warning := range file.Warnings {
			color.Yellow("  warning: %s", warning)
		}
	}

	fmt.Printf("\n%d file(s), %d row(s), $%s total\n",
		len(summary.Files), summary.TotalRows, expense.FormatAmount(summary.TotalCents))
	if summary.TotalIssues > 0 {
		return fmt.Errorf("%d issue(s) found", summary.TotalIssues)
	}
	return nil
}

func runReindex(args []string) error {
	fs := ff.NewFlagSet("hsa-ledger reindex")
	storeF := addStoreFlags(fs)

	if err := parse(fs, args); err != nil {
		return err
	}

	st, err := openStore(storeF)
	if err != nil {
		return err
	}
	defer st.Close()

	count, err := st.service(nil).Reindex()
	if err != nil {
		return err
	}
	color.Green("Indexed %d record(s)", count)
	return nil
}

func printRecord(record *expense.Record) {
	fmt.Printf("  Date:     %s\n", record.Date.Format(expense.DateLayout))
	fmt.Printf("  Provider: %s\n", record.Provider)
	fmt.Printf("  Amount:   $%s\n", expense.FormatAmount(record.Amount))
	fmt.Printf("  Category: %s\n", record.Category)
	if record.Notes != "" {
		fmt.Printf("  Notes:    %s\n", record.Notes)
	}
	if record.ReceiptPath != "" {
		fmt.Printf("  Receipt:  %s\n", record.ReceiptPath)
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
