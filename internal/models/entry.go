package models

import (
	"time"

	"gorm.io/gorm"
)

// Entry is one persisted capture: a changed frame together with its artifact,
// extracted text, text embedding and the focused application at capture time.
type Entry struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	SessionID    string         `gorm:"not null;index" json:"session_id"`
	Timestamp    int64          `gorm:"not null;index" json:"timestamp"` // Unix seconds
	CapturedAt   time.Time      `gorm:"not null" json:"captured_at"`
	MonitorIndex int            `gorm:"not null;default:0" json:"monitor_index"`
	Similarity   float64        `gorm:"not null" json:"similarity"`
	ArtifactPath string         `gorm:"not null" json:"artifact_path"`
	Text         string         `json:"text"`
	Embedding    []byte         `json:"-"` // little-endian float32
	AppName      string         `gorm:"index" json:"app_name"`
	WindowTitle  string         `json:"window_title"`
	CreatedAt    time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

type AppSummary struct {
	AppName      string  `json:"app_name"`
	CaptureCount int64   `json:"capture_count"`
	MonitorCount int     `json:"monitor_count"`
	Percentage   float64 `json:"percentage,omitempty"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

type Report struct {
	Period        ReportPeriod `json:"period"`
	Apps          []AppSummary `json:"apps"`
	TotalCaptures int64        `json:"total_captures"`
	GeneratedAt   time.Time    `json:"generated_at"`
}
