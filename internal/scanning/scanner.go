package scanning

// ReceiptData contains the fields extracted from a scanned receipt. Date
// is normalized to ISO 8601 and Amount is in dollars; the expense layer
// converts to cents when building a record.
type ReceiptData struct {
	Date     string  `json:"date"`
	Provider string  `json:"provider"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
	Notes    string  `json:"notes"`
}

// Scanner defines the interface for receipt scanning providers.
type Scanner interface {
	// ScanReceipt analyzes a receipt image or PDF and extracts its fields.
	// Failures are reported as *ExtractionError.
	ScanReceipt(imageData []byte, contentType string) (*ReceiptData, error)
	// Close releases provider resources.
	Close() error
}

// receiptScanPrompt is the shared prompt used by all providers.
const receiptScanPrompt = `You are analyzing a medical receipt, invoice, or explanation of benefits. Carefully read all text in the image and extract the following information:

1. **Date**: The date of service. Convert it to ISO 8601 format (YYYY-MM-DD). Common source formats: MM/DD/YYYY, DD/MM/YYYY, or written dates.

2. **Provider**: The healthcare provider, practice, or pharmacy name. This is usually the largest text or in a header. Examples: "CVS Pharmacy", "Plainsboro Medical", "Lakeview Dental".

3. **Amount**: The amount paid by the patient (the patient responsibility or payment, not the billed amount and not what insurance paid). Extract only the numeric value (e.g., 42.75 for $42.75).

4. **Category**: One of: Medical, Dental, Vision, Prescription, Mental Health, Other.

5. **Notes**: A brief description of the service if visible.

Return ONLY valid JSON in this exact format:
{
  "date": "YYYY-MM-DD",
  "provider": "Provider Name",
  "amount": 123.45,
  "category": "Medical",
  "notes": "Brief description of service"
}

Important:
- The date must be in YYYY-MM-DD format
- The amount must be a number (not a string), representing dollars and cents
- If you cannot determine a field with confidence, use null for that field
- Do not include any text before or after the JSON
- Do not use markdown code blocks`
