package ordering

import (
	"time"

	"github.com/google/uuid"
)

// ReceiptFileType is the kind of uploaded payment evidence
type ReceiptFileType string

const (
	ReceiptFileImage ReceiptFileType = "image"
	ReceiptFilePDF   ReceiptFileType = "pdf"
)

// IsValid checks if the file type is accepted
func (t ReceiptFileType) IsValid() bool {
	return t == ReceiptFileImage || t == ReceiptFilePDF
}

// ReceiptStatus is the admin review state of a receipt
type ReceiptStatus string

const (
	ReceiptPending  ReceiptStatus = "pending"
	ReceiptVerified ReceiptStatus = "verified"
	ReceiptRejected ReceiptStatus = "rejected"
)

// PaymentReceipt is one piece of payment evidence attached to an order
type PaymentReceipt struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	FileKey    string
	FileType   ReceiptFileType
	UploadedBy uuid.UUID
	UploadedAt time.Time
	Status     ReceiptStatus
	AdminNotes string
	ReviewedBy *uuid.UUID
	ReviewedAt *time.Time
}

// IsVerified reports whether an admin accepted the receipt
func (r *PaymentReceipt) IsVerified() bool {
	return r.Status == ReceiptVerified
}

// IsPending reports whether the receipt still awaits review
func (r *PaymentReceipt) IsPending() bool {
	return r.Status == ReceiptPending
}

func (r *PaymentReceipt) review(status ReceiptStatus, notes string, by uuid.UUID, at time.Time) {
	r.Status = status
	r.AdminNotes = notes
	r.ReviewedBy = &by
	r.ReviewedAt = &at
}
