package expense

import (
	"os"
	"strings"

	. "github.com/onsi/gomega"

	"github.com/zombor/hsa-ledger/internal/category"
)

var _ = Describe("Validator", func() {
	var (
		ledger    *CSVLedger
		archiver  *mockArchiver
		validator *Validator
	)

	appendRecord := func(dateStr, provider string, cents int, receiptPath string) {
		date, err := ParseDate(dateStr)
		Expect(err).NotTo(HaveOccurred())
		record, err := NewRecord(date, provider, cents, category.Medical, "", SourceScan)
		Expect(err).NotTo(HaveOccurred())
		record.ReceiptPath = receiptPath
		Expect(ledger.Append(record)).To(Succeed())
	}

	BeforeEach(func() {
		var err error
		ledger, err = NewCSVLedger(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		archiver = newMockArchiver()
		validator = NewValidator(ledger, archiver)
	})

	Describe("ValidateYear", func() {
		When("the ledger year is clean", func() {
			BeforeEach(func() {
				archiver.stored["2026/a.png"] = []byte("x")
				appendRecord("2026-01-09", "Plainsboro Medical", 10638, "2026/a.png")
				appendRecord("2026-02-10", "CVS Pharmacy", 2599, "")
			})

			It("reports no issues and the row totals", func() {
				result, err := validator.ValidateYear(2026)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Valid()).To(BeTrue())
				Expect(result.Issues).To(BeEmpty())
				Expect(result.Warnings).To(BeEmpty())
				Expect(result.Rows).To(Equal(2))
				Expect(result.TotalCents).To(Equal(10638 + 2599))
			})
		})

		When("a row has a malformed date and amount", func() {
			BeforeEach(func() {
				appendRecord("2026-01-09", "Plainsboro Medical", 10638, "")
				data, err := os.ReadFile(ledger.Path(2026))
				Expect(err).NotTo(HaveOccurred())
				corrupted := string(data) + "not-a-date,CVS Pharmacy,free,Medical,MED0000000000,,,manual\n"
				Expect(os.WriteFile(ledger.Path(2026), []byte(corrupted), 0644)).To(Succeed())
			})

			It("flags each bad field as an issue", func() {
				result, err := validator.ValidateYear(2026)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Valid()).To(BeFalse())
				Expect(result.Issues).To(ContainElement(ContainSubstring(`invalid date "not-a-date"`)))
				Expect(result.Issues).To(ContainElement(ContainSubstring(`invalid amount "free"`)))
			})

			It("excludes unparsable amounts from the total", func() {
				result, err := validator.ValidateYear(2026)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.TotalCents).To(Equal(10638))
			})
		})

		When("the same receipt ID appears twice", func() {
			BeforeEach(func() {
				appendRecord("2026-01-09", "Plainsboro Medical", 10638, "")
				data, err := os.ReadFile(ledger.Path(2026))
				Expect(err).NotTo(HaveOccurred())
				lines := strings.SplitAfter(string(data), "\n")
				Expect(os.WriteFile(ledger.Path(2026), []byte(string(data)+lines[1]), 0644)).To(Succeed())
			})

			It("warns about the duplicate", func() {
				result, err := validator.ValidateYear(2026)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Valid()).To(BeTrue())
				Expect(result.Warnings).To(ContainElement(ContainSubstring("duplicate receipt ID MEDE6519F0E38")))
			})
		})

		When("a receipt ID does not match its fields", func() {
			BeforeEach(func() {
				appendRecord("2026-01-09", "Plainsboro Medical", 10638, "")
				data, err := os.ReadFile(ledger.Path(2026))
				Expect(err).NotTo(HaveOccurred())
				tampered := strings.Replace(string(data), "106.38", "206.38", 1)
				Expect(os.WriteFile(ledger.Path(2026), []byte(tampered), 0644)).To(Succeed())
			})

			It("warns about the mismatch", func() {
				result, err := validator.ValidateYear(2026)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Warnings).To(ContainElement(ContainSubstring("does not match fields")))
			})
		})

		When("a referenced receipt file is missing from the archive", func() {
			BeforeEach(func() {
				appendRecord("2026-01-09", "Plainsboro Medical", 10638, "2026/gone.png")
			})

			It("flags the missing file as an issue", func() {
				result, err := validator.ValidateYear(2026)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Valid()).To(BeFalse())
				Expect(result.Issues).To(ContainElement(ContainSubstring("receipt file not found: 2026/gone.png")))
			})
		})

		When("a required column is missing", func() {
			BeforeEach(func() {
				csv := "Date,Provider,Amount,Category,Notes\n2026-01-09,Plainsboro Medical,106.38,Medical,\n"
				Expect(os.WriteFile(ledger.Path(2026), []byte(csv), 0644)).To(Succeed())
			})

			It("reports the missing columns", func() {
				result, err := validator.ValidateYear(2026)
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Issues).To(ContainElement(ContainSubstring(`missing column "Receipt_ID"`)))
				Expect(result.Issues).To(ContainElement(ContainSubstring(`missing column "Receipt_URL"`)))
			})
		})
	})

	Describe("ValidateAll", func() {
		BeforeEach(func() {
			appendRecord("2025-03-14", "Lakeview Dental", 25000, "")
			appendRecord("2026-01-09", "Plainsboro Medical", 10638, "")
		})

		It("aggregates every ledger year", func() {
			summary, err := validator.ValidateAll()
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Files).To(HaveLen(2))
			Expect(summary.TotalRows).To(Equal(2))
			Expect(summary.TotalCents).To(Equal(25000 + 10638))
			Expect(summary.TotalIssues).To(BeZero())
		})

		It("is empty for an empty data directory", func() {
			empty, err := NewCSVLedger(GinkgoT().TempDir())
			Expect(err).NotTo(HaveOccurred())
			summary, err := NewValidator(empty, archiver).ValidateAll()
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Files).To(BeEmpty())
			Expect(summary.TotalRows).To(BeZero())
		})
	})
})
