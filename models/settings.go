package models

import "time"

// GlobalSettingsKey is the primary key of the single settings row.
const GlobalSettingsKey = "global"

// DefaultThemeColor is used until an admin picks one.
const DefaultThemeColor = "#0f766e"

// Settings holds admin-console configuration.
type Settings struct {
	Key             string    `json:"-" gorm:"primaryKey"`
	BaseDeliveryFee float64   `json:"base_delivery_fee" gorm:"not null"`
	PerKmRate       float64   `json:"per_km_rate" gorm:"not null"`
	ThemeColor      string    `json:"theme_color" gorm:"not null"`
	UpdatedBy       uint      `json:"updated_by"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Sequence is a named monotonically increasing counter.
type Sequence struct {
	Name  string `gorm:"primaryKey"`
	Value int64  `gorm:"not null"`
}
