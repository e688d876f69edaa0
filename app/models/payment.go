package models

import "time"

const (
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusFailed    = "failed"
	PaymentStatusCanceled  = "canceled"
	PaymentStatusUpdated   = "updated"
)

const InvoiceStatusPaid = "paid"

// Suffixes that keep synthetic payment rows unique per provider event.
const (
	PaymentIDSuffixCancellation = "_cancellation"
	PaymentIDSuffixUpdate       = "_update"
)

// Payment is one billable event. The primary key is the provider event id,
// optionally suffixed for synthetic rows. Rows are append-only.
type Payment struct {
	ID            string    `gorm:"primaryKey;type:varchar(191)" json:"id"`
	Status        string    `gorm:"type:varchar(32);not null" json:"status"`
	Amount        int64     `gorm:"not null;default:0" json:"amount"`
	Currency      string    `gorm:"type:varchar(10);default:''" json:"currency"`
	InvoiceURL    string    `gorm:"type:varchar(500);default:''" json:"invoice_url"`
	InvoicePDF    string    `gorm:"type:varchar(500);default:''" json:"invoice_pdf"`
	InvoiceStatus string    `gorm:"type:varchar(32);default:'';index" json:"invoice_status"`
	UserID        *uint     `gorm:"index" json:"user_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}
