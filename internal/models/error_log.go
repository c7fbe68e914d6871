package models

import (
	"time"

	"gorm.io/gorm"
)

// ErrorLog records a capture loop failure. Stage is empty for capture errors
// and names the persistence step otherwise.
type ErrorLog struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Timestamp    time.Time      `gorm:"not null;index" json:"timestamp"`
	Stage        string         `gorm:"index" json:"stage,omitempty"`
	MonitorIndex int            `json:"monitor_index"`
	ErrorMsg     string         `gorm:"not null" json:"error_msg"`
	CreatedAt    time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}
