package models

import "time"

type SystemSetting struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SettingKey   string    `gorm:"size:100;uniqueIndex;not null" json:"setting_key"`
	SettingValue string    `gorm:"type:text" json:"setting_value"`
	Description  string    `gorm:"type:text" json:"description"`
	UpdatedByID  *uint     `json:"updated_by"`
	UpdatedAt    time.Time `json:"updated_at"`
}
