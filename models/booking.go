package models

import "time"

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"

	PaymentUnpaid   = "unpaid"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

type Booking struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;index" json:"user"`
	User            User      `gorm:"foreignKey:UserID" json:"user_details"`
	DoctorID        uint      `gorm:"not null;index:idx_booking_slot" json:"doctor"`
	Doctor          Doctor    `gorm:"foreignKey:DoctorID" json:"doctor_details"`
	AppointmentDate string    `gorm:"size:10;not null;index:idx_booking_slot" json:"appointment_date"`
	AppointmentTime string    `gorm:"size:5;not null;index:idx_booking_slot" json:"appointment_time"`
	Status          string    `gorm:"size:20;default:pending;index" json:"status"`
	PaymentStatus   string    `gorm:"size:20;default:unpaid" json:"payment_status"`
	BookingFee      float64   `json:"booking_fee"`
	ConsultationFee float64   `json:"consultation_fee"`
	TotalAmount     float64   `json:"total_amount"`
	Notes           string    `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
