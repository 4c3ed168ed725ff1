package models

import "time"

const (
	NotifyBookingCreated   = "booking_created"
	NotifyBookingApproved  = "booking_approved"
	NotifyBookingCancelled = "booking_cancelled"
	NotifyUserRegistered   = "user_registered"
	NotifyDoctorApproved   = "doctor_approved"
	NotifyPaymentReceived  = "payment_received"
	NotifySystem           = "system"
)

type Notification struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	RecipientID uint           `gorm:"not null;index" json:"recipient"`
	Type        string         `gorm:"size:50;default:system" json:"type"`
	Title       string         `gorm:"size:255" json:"title"`
	Message     string         `gorm:"type:text" json:"message"`
	Data        map[string]any `gorm:"type:text;serializer:json" json:"data"`
	Read        bool           `gorm:"default:false;index" json:"read"`
	CreatedAt   time.Time      `json:"created_at"`
}

// DeviceToken is a Firebase registration token of one user device
type DeviceToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user"`
	Token     string    `gorm:"size:512;uniqueIndex;not null" json:"token"`
	Platform  string    `gorm:"size:20" json:"platform"`
	CreatedAt time.Time `json:"created_at"`
}
