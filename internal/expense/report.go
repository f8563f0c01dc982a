package expense

import (
	"sort"

	"github.com/zombor/hsa-ledger/internal/category"
)

// CategoryTotal is one category's share of a report.
type CategoryTotal struct {
	Category category.Category
	Cents    int
}

// MonthTotal is one month's (YYYY-MM) share of a report.
type MonthTotal struct {
	Month string
	Cents int
}

// Report summarizes one ledger year.
type Report struct {
	Year       int
	Count      int
	TotalCents int
	ByCategory []CategoryTotal // descending by amount
	ByMonth    []MonthTotal    // ascending by month
	Recent     []*Record       // up to 10, newest first
}

// Percent returns a category's share of the report total.
func (r *Report) Percent(t CategoryTotal) float64 {
	if r.TotalCents == 0 {
		return 0
	}
	return float64(t.Cents) / float64(r.TotalCents) * 100
}

// BuildReport loads a ledger year and computes its summary. A year with
// no ledger file yields an empty report rather than an error.
func BuildReport(ledger Ledger, year int) (*Report, error) {
	report := &Report{Year: year}

	years, err := ledger.Years()
	if err != nil {
		return nil, err
	}
	present := false
	for _, y := range years {
		if y == year {
			present = true
			break
		}
	}
	if !present {
		return report, nil
	}

	records, err := ledger.LoadYear(year)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[category.Category]int)
	byMonth := make(map[string]int)
	for _, r := range records {
		report.Count++
		report.TotalCents += r.Amount
		byCategory[r.Category] += r.Amount
		byMonth[r.Date.Format("2006-01")] += r.Amount
	}

	for cat, cents := range byCategory {
		report.ByCategory = append(report.ByCategory, CategoryTotal{Category: cat, Cents: cents})
	}
	sort.Slice(report.ByCategory, func(i, j int) bool {
		if report.ByCategory[i].Cents != report.ByCategory[j].Cents {
			return report.ByCategory[i].Cents > report.ByCategory[j].Cents
		}
		return report.ByCategory[i].Category < report.ByCategory[j].Category
	})

	for month, cents := range byMonth {
		report.ByMonth = append(report.ByMonth, MonthTotal{Month: month, Cents: cents})
	}
	sort.Slice(report.ByMonth, func(i, j int) bool {
		return report.ByMonth[i].Month < report.ByMonth[j].Month
	})

	recent := make([]*Record, len(records))
	copy(recent, records)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Date.After(recent[j].Date)
	})
	if len(recent) > 10 {
		recent = recent[:10]
	}
	report.Recent = recent

	return report, nil
}
