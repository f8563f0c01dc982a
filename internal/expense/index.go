package expense

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const receiptBucket = "receipts"

// Index defines the interface for the receipt-ID duplicate index. The
// ledger stays the source of truth; the index makes lookups cheap
// across years.
type Index interface {
	// Put records a receipt ID with its record.
	Put(record *Record) error

	// Has reports whether a receipt ID is known.
	Has(receiptID string) (bool, error)

	// Get retrieves the record stored for a receipt ID.
	Get(receiptID string) (*Record, error)

	// Close closes the index.
	Close() error
}

// BoltIndex implements Index using bbolt.
type BoltIndex struct {
	db *bbolt.DB
}

// NewBoltIndex opens or creates the index database.
func NewBoltIndex(path string) (*BoltIndex, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(receiptBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating index bucket: %w", err)
	}

	return &BoltIndex{db: db}, nil
}

// Put records a receipt ID with its record.
func (b *BoltIndex) Put(record *Record) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(receiptBucket))
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		return bucket.Put([]byte(record.ReceiptID), data)
	})
}

// Has reports whether a receipt ID is known.
func (b *BoltIndex) Has(receiptID string) (bool, error) {
	var found bool
	err := b.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket([]byte(receiptBucket)).Get([]byte(receiptID)) != nil
		return nil
	})
	return found, err
}

// Get retrieves the record stored for a receipt ID.
func (b *BoltIndex) Get(receiptID string) (*Record, error) {
	var record *Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(receiptBucket)).Get([]byte(receiptID))
		if data == nil {
			return fmt.Errorf("receipt not found: %s", receiptID)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Close closes the index.
func (b *BoltIndex) Close() error {
	return b.db.Close()
}
