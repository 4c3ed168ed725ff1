package models

import "time"

const (
	TransactionPending   = "pending"
	TransactionComplete  = "complete"
	TransactionFailed    = "failed"
	TransactionCancelled = "cancelled"

	TransactionBooking    = "booking"
	TransactionMembership = "membership"
)

// PaymentTransaction tracks one PayFast checkout from creation to its ITN
type PaymentTransaction struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	UserID            *uint             `gorm:"index" json:"user"`
	User              *User             `gorm:"foreignKey:UserID" json:"-"`
	Amount            float64           `gorm:"not null" json:"amount"`
	Status            string            `gorm:"size:20;default:pending;index" json:"status"`
	TransactionType   string            `gorm:"size:20;not null" json:"transaction_type"`
	MerchantReference string            `gorm:"size:64;uniqueIndex;not null" json:"merchant_reference"`
	Reference         string            `gorm:"size:100" json:"reference"`
	BookingID         *uint             `gorm:"index" json:"booking_id,omitempty"`
	Plan              string            `gorm:"size:50" json:"plan,omitempty"`
	Description       string            `json:"description"`
	Metadata          map[string]string `gorm:"type:text;serializer:json" json:"-"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// TransactionResponse adds the payer's display fields
type TransactionResponse struct {
	PaymentTransaction
	UserEmail string `json:"user_email"`
	UserName  string `json:"user_name"`
}

func (t PaymentTransaction) Response() TransactionResponse {
	r := TransactionResponse{PaymentTransaction: t, UserName: "Unknown"}
	if t.User != nil {
		r.UserEmail = t.User.Email
		r.UserName = t.User.FirstName + " " + t.User.LastName
	}
	return r
}
