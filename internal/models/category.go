package models

import "time"

// BankDetails are shown to donors who prefer a direct transfer.
type BankDetails struct {
	AccountName   string `json:"account_name" validate:"required"`
	AccountNumber string `json:"account_number" validate:"required,numeric,min=6,max=20"`
	BankName      string `json:"bank_name" validate:"required"`
	IFSC          string `json:"ifsc" validate:"required,len=11,alphanum"`
	Branch        string `json:"branch,omitempty"`
	UPIID         string `json:"upi_id,omitempty"`
}

type DonationCategory struct {
	ID              int64        `json:"id"`
	Name            string       `json:"name"`
	Slug            string       `json:"slug"`
	Description     string       `json:"description"`
	ImageURL        string       `json:"image_url"`
	IsActive        bool         `json:"is_active"`
	SortOrder       int          `json:"sort_order"`
	UsesBankDetails bool         `json:"uses_bank_details"`
	BankDetails     *BankDetails `json:"bank_details,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

type Event struct {
	ID              int64        `json:"id"`
	Title           string       `json:"title"`
	Slug            string       `json:"slug"`
	Description     string       `json:"description"`
	ImageURL        string       `json:"image_url"`
	Location        string       `json:"location"`
	StartsAt        time.Time    `json:"starts_at"`
	EndsAt          *time.Time   `json:"ends_at,omitempty"`
	IsActive        bool         `json:"is_active"`
	UsesBankDetails bool         `json:"uses_bank_details"`
	BankDetails     *BankDetails `json:"bank_details,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// DonationCard is a suggested amount attached to exactly one category or event.
type DonationCard struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	Amount      int64     `json:"amount"`
	CategoryID  *int64    `json:"category_id,omitempty"`
	EventID     *int64    `json:"event_id,omitempty"`
	IsActive    bool      `json:"is_active"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
