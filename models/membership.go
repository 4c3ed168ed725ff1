package models

import "time"

const (
	TierFree         = "free"
	TierPremium      = "premium"
	TierProfessional = "professional"

	MembershipActive    = "active"
	MembershipInactive  = "inactive"
	MembershipCancelled = "cancelled"
	MembershipExpired   = "expired"
)

type Membership struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"uniqueIndex;not null" json:"user"`
	Tier      string     `gorm:"size:50;default:free" json:"tier"`
	Status    string     `gorm:"size:20;default:active;index" json:"status"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
