package models

import "time"

// ActivityRow is one closed interval during which Title held focus
type ActivityRow struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null;index" json:"title"`
	Start     time.Time `gorm:"column:started_at;not null;index" json:"start"`
	End       time.Time `gorm:"column:ended_at;not null" json:"end"`
	Session   string    `gorm:"index" json:"session,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type TitleSummary struct {
	Title         string  `json:"title"`
	TotalSeconds  int64   `json:"total_seconds"`
	TotalMinutes  float64 `json:"total_minutes"`
	TotalHours    float64 `json:"total_hours"`
	IntervalCount int     `json:"interval_count"`
	Percentage    float64 `json:"percentage,omitempty"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month", "all"
}

type Report struct {
	Period       ReportPeriod   `json:"period"`
	Titles       []TitleSummary `json:"titles"`
	TotalSeconds int64          `json:"total_seconds"`
	TotalMinutes float64        `json:"total_minutes"`
	TotalHours   float64        `json:"total_hours"`
	Sessions     int            `json:"sessions"`
	GeneratedAt  time.Time      `json:"generated_at"`
}
