package models

import "time"

type DonationStatus string

const (
	DonationPending DonationStatus = "pending"
	DonationSuccess DonationStatus = "success"
	DonationFailed  DonationStatus = "failed"
)

func (s DonationStatus) Terminal() bool { return s == DonationSuccess || s == DonationFailed }

// NormalizeStatus maps a gateway-reported status onto the donation lifecycle.
// Only an explicit "success" counts as success.
func NormalizeStatus(reported string) DonationStatus {
	if DonationStatus(lower(reported)) == DonationSuccess {
		return DonationSuccess
	}
	return DonationFailed
}

type Donation struct {
	ID               int64          `json:"id"`
	TxnID            string         `json:"txn_id"`
	Amount           int64          `json:"amount"`
	DonorName        string         `json:"donor_name"`
	Email            string         `json:"email"`
	Phone            string         `json:"phone"`
	PAN              *string        `json:"pan,omitempty"`
	Message          *string        `json:"message,omitempty"`
	CategoryID       *int64         `json:"category_id,omitempty"`
	EventID          *int64         `json:"event_id,omitempty"`
	UserID           *int64         `json:"user_id,omitempty"`
	Status           DonationStatus `json:"status"`
	PaymentID        *string        `json:"payment_id,omitempty"`
	PaymentMethod    *string        `json:"payment_method,omitempty"`
	ErrorMessage     *string        `json:"error_message,omitempty"`
	ReceiptSent      bool           `json:"receipt_sent"`
	NotificationSent bool           `json:"notification_sent"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
}

// DonationOutcome is the terminal write applied by a payment callback.
type DonationOutcome struct {
	Status        DonationStatus
	PaymentID     string
	PaymentMethod string
	ErrorMessage  string
}

type DonationFilter struct {
	Status     DonationStatus
	CategoryID *int64
	EventID    *int64
	Limit      int
	Offset     int
}

// PublicDonation is what anonymous status lookups may see.
type PublicDonation struct {
	TxnID     string         `json:"txn_id"`
	Amount    int64          `json:"amount"`
	DonorName string         `json:"donor_name"`
	Status    DonationStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}

func (d Donation) Public() PublicDonation {
	return PublicDonation{TxnID: d.TxnID, Amount: d.Amount, DonorName: d.DonorName, Status: d.Status, CreatedAt: d.CreatedAt}
}
