package expense

import (
	"path/filepath"
	"time"

	. "github.com/onsi/gomega"

	"github.com/zombor/hsa-ledger/internal/category"
)

var _ = Describe("BoltIndex", func() {
	var (
		index  *BoltIndex
		record *Record
	)

	BeforeEach(func() {
		path := filepath.Join(GinkgoT().TempDir(), "index.db")
		var err error
		index, err = NewBoltIndex(path)
		Expect(err).NotTo(HaveOccurred())

		record, err = NewRecord(
			time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC),
			"Plainsboro Medical", 10638, category.Medical, "", SourceScan,
		)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if index != nil {
			index.Close()
		}
	})

	Describe("Put and Has", func() {
		It("records receipt IDs", func() {
			Expect(index.Put(record)).To(Succeed())

			found, err := index.Has(record.ReceiptID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
		})

		It("does not report unknown IDs", func() {
			found, err := index.Has("MED0000000000")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
		})
	})

	Describe("Get", func() {
		It("round-trips a record", func() {
			Expect(index.Put(record)).To(Succeed())

			got, err := index.Get(record.ReceiptID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Provider).To(Equal("Plainsboro Medical"))
			Expect(got.Amount).To(Equal(10638))
			Expect(got.ReceiptID).To(Equal(record.ReceiptID))
		})

		It("errors for unknown IDs", func() {
			_, err := index.Get("MED0000000000")
			Expect(err).To(HaveOccurred())
		})
	})
})
