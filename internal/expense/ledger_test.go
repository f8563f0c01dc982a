package expense

import (
	"os"
	"strings"
	"time"

	. "github.com/onsi/gomega"

	"github.com/zombor/hsa-ledger/internal/category"
)

var _ = Describe("CSVLedger", func() {
	var (
		dataDir string
		ledger  *CSVLedger
	)

	newRecord := func(dateStr, provider string, cents int) *Record {
		date, err := ParseDate(dateStr)
		Expect(err).NotTo(HaveOccurred())
		record, err := NewRecord(date, provider, cents, category.Medical, "", SourceManual)
		Expect(err).NotTo(HaveOccurred())
		return record
	}

	BeforeEach(func() {
		dataDir = GinkgoT().TempDir()
		var err error
		ledger, err = NewCSVLedger(dataDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Append", func() {
		It("creates the year file with a header", func() {
			Expect(ledger.Append(newRecord("2026-01-09", "Plainsboro Medical", 10638))).To(Succeed())

			data, err := os.ReadFile(ledger.Path(2026))
			Expect(err).NotTo(HaveOccurred())
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			Expect(lines).To(HaveLen(2))
			Expect(lines[0]).To(Equal("Date,Provider,Amount,Category,Receipt_ID,Receipt_URL,Notes,Source"))
		})

		It("writes the header only once", func() {
			Expect(ledger.Append(newRecord("2026-01-09", "Plainsboro Medical", 10638))).To(Succeed())
			Expect(ledger.Append(newRecord("2026-02-10", "CVS Pharmacy", 2599))).To(Succeed())

			data, err := os.ReadFile(ledger.Path(2026))
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.Count(string(data), "Date,Provider")).To(Equal(1))
			Expect(strings.Split(strings.TrimSpace(string(data)), "\n")).To(HaveLen(3))
		})

		It("stores amounts with two decimal digits", func() {
			Expect(ledger.Append(newRecord("2026-01-09", "CVS Pharmacy", 2590))).To(Succeed())

			data, err := os.ReadFile(ledger.Path(2026))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(",25.90,"))
		})

		It("splits records into files by year", func() {
			Expect(ledger.Append(newRecord("2025-12-31", "CVS Pharmacy", 2599))).To(Succeed())
			Expect(ledger.Append(newRecord("2026-01-01", "CVS Pharmacy", 2599))).To(Succeed())

			Expect(ledger.Path(2025)).To(BeAnExistingFile())
			Expect(ledger.Path(2026)).To(BeAnExistingFile())
		})
	})

	Describe("LoadYear", func() {
		BeforeEach(func() {
			Expect(ledger.Append(newRecord("2026-01-09", "Plainsboro Medical", 10638))).To(Succeed())
			Expect(ledger.Append(newRecord("2026-02-10", "CVS Pharmacy", 2599))).To(Succeed())
		})

		It("round-trips records", func() {
			records, err := ledger.LoadYear(2026)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))

			Expect(records[0].Provider).To(Equal("Plainsboro Medical"))
			Expect(records[0].Amount).To(Equal(10638))
			Expect(records[0].Category).To(Equal(category.Medical))
			Expect(records[0].ReceiptID).To(Equal("MEDE6519F0E38"))
			Expect(records[0].Date).To(Equal(time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC)))
			Expect(records[0].Source).To(Equal(SourceManual))
		})

		It("errors for a missing year", func() {
			_, err := ledger.LoadYear(1999)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Years", func() {
		It("returns an empty list for an empty data directory", func() {
			years, err := ledger.Years()
			Expect(err).NotTo(HaveOccurred())
			Expect(years).To(BeEmpty())
		})

		It("lists ledger years ascending", func() {
			Expect(ledger.Append(newRecord("2026-01-01", "CVS Pharmacy", 2599))).To(Succeed())
			Expect(ledger.Append(newRecord("2024-06-15", "CVS Pharmacy", 2599))).To(Succeed())

			years, err := ledger.Years()
			Expect(err).NotTo(HaveOccurred())
			Expect(years).To(Equal([]int{2024, 2026}))
		})
	})

	Describe("HasReceiptID", func() {
		BeforeEach(func() {
			Expect(ledger.Append(newRecord("2025-03-14", "Lakeview Dental", 25000))).To(Succeed())
		})

		It("finds a recorded ID", func() {
			found, err := ledger.HasReceiptID("MEDF3D184DA4F")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
		})

		It("does not find an unknown ID", func() {
			found, err := ledger.HasReceiptID("MED0000000000")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
		})

		It("searches across years", func() {
			Expect(ledger.Append(newRecord("2026-01-09", "Plainsboro Medical", 10638))).To(Succeed())

			found, err := ledger.HasReceiptID("MEDE6519F0E38")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
		})
	})
})
