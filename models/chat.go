package models

import "time"

const (
	ChatActive = "active"
	ChatEnded  = "ended"

	MessageText   = "text"
	MessageSystem = "system"
)

type ChatSession struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	PatientID uint          `gorm:"not null;index" json:"patient"`
	Patient   User          `gorm:"foreignKey:PatientID" json:"patient_profile"`
	DoctorID  uint          `gorm:"not null;index" json:"doctor"`
	Doctor    User          `gorm:"foreignKey:DoctorID" json:"doctor_profile"`
	Status    string        `gorm:"size:10;default:active" json:"status"`
	Messages  []ChatMessage `gorm:"foreignKey:SessionID" json:"-"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Other returns the participant that is not userID
func (s ChatSession) Other(userID uint) uint {
	if s.PatientID == userID {
		return s.DoctorID
	}
	return s.PatientID
}

func (s ChatSession) HasParticipant(userID uint) bool {
	return s.PatientID == userID || s.DoctorID == userID
}

type ChatMessage struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SessionID   uint      `gorm:"not null;index" json:"session"`
	SenderID    uint      `gorm:"not null" json:"sender"`
	Message     string    `gorm:"type:text;not null" json:"message"`
	MessageType string    `gorm:"size:10;default:text" json:"message_type"`
	IsRead      bool      `gorm:"default:false" json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}
