package models

import "time"

type Doctor struct {
	ID                 uint             `gorm:"primaryKey" json:"id"`
	UserID             uint             `gorm:"uniqueIndex;not null" json:"user"`
	User               User             `gorm:"foreignKey:UserID" json:"user_details"`
	PracticeName       string           `json:"practice_name"`
	Speciality         string           `gorm:"size:100;not null;index" json:"speciality" validate:"required,max=100"`
	Qualification      string           `json:"qualification"`
	LicenseNumber      string           `gorm:"size:100" json:"license_number"`
	Address            string           `json:"address"`
	City               string           `gorm:"size:100;index" json:"city" validate:"required,max=100"`
	Province           string           `gorm:"size:100;index" json:"province" validate:"required,max=100"`
	PostalCode         string           `gorm:"size:20" json:"postal_code"`
	Price              float64          `json:"price" validate:"gte=0"`
	YearsExperience    int              `json:"years_experience" validate:"gte=0"`
	Rating             float64          `json:"rating" validate:"gte=0,lte=5"`
	ReviewCount        int              `json:"review_count"`
	ImageURL           string           `json:"image_url"`
	Bio                string           `gorm:"type:text" json:"bio"`
	Languages          []string         `gorm:"type:text;serializer:json" json:"languages"`
	AcceptedInsurances []string         `gorm:"type:text;serializer:json" json:"accepted_insurances"`
	IsAvailable        bool             `gorm:"default:true" json:"is_available"`
	Verified           bool             `gorm:"default:false" json:"verified"`
	Latitude           *float64         `json:"latitude"`
	Longitude          *float64         `json:"longitude"`
	Schedules          []DoctorSchedule `json:"schedules,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

type DoctorSchedule struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	DoctorID    uint   `gorm:"not null;uniqueIndex:idx_schedule_slot" json:"doctor"`
	DayOfWeek   int    `gorm:"not null;uniqueIndex:idx_schedule_slot" json:"day_of_week"` // 0=Sunday
	StartTime   string `gorm:"size:5;not null;uniqueIndex:idx_schedule_slot" json:"start_time"`
	EndTime     string `gorm:"size:5;not null" json:"end_time"`
	IsAvailable bool   `gorm:"default:true" json:"is_available"`
}
