package model

import "time"

// Product is one row of the banking product catalog. Attributes holds the
// ingestion-mapped columns (fees, rates, eligibility, ...) as free-form JSON;
// SummaryText is the prose blob the answer handlers quote from.
type Product struct {
	ID          int64          `json:"id"`
	BankName    string         `json:"bank_name"`
	Category    string         `json:"category"`
	ProductName string         `json:"product_name"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	SummaryText string         `json:"summary_text,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
