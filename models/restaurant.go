package models

import (
	"time"

	"gorm.io/datatypes"

	"nust-bites/availability"
)

type Restaurant struct {
	ID          uint                  `json:"id" gorm:"primaryKey"`
	OwnerID     uint                  `json:"owner_id" gorm:"not null;index"`
	Name        string                `json:"name" gorm:"not null"`
	Description string                `json:"description"`
	OrderCode   string                `json:"order_code" gorm:"uniqueIndex;not null"` // prefix of human-readable order ids
	AccentColor string                `json:"accent_color"`
	LogoURL     string                `json:"logo_url"`
	Address     string                `json:"address" gorm:"not null"`
	Latitude    float64               `json:"latitude"`
	Longitude   float64               `json:"longitude"`
	OnlineStart *int                  `json:"online_start"` // minutes since midnight
	OnlineEnd   *int                  `json:"online_end"`
	ForceStatus availability.Override `json:"force_status" gorm:"not null;default:''"`
	IsVerified  bool                  `json:"is_verified" gorm:"not null"`
	MenuItems   []MenuItem            `json:"menu_items,omitempty" gorm:"foreignKey:RestaurantID"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// Availability projects the fields the online evaluator needs.
func (r *Restaurant) Availability() availability.Restaurant {
	return availability.Restaurant{
		Verified: r.IsVerified,
		Override: r.ForceStatus,
		Window:   availability.NewWindow(r.OnlineStart, r.OnlineEnd),
	}
}

// OptionChoice is one alternative inside an option group.
type OptionChoice struct {
	Name            string  `json:"name" binding:"required"`
	AdditionalPrice float64 `json:"additional_price" binding:"gte=0"`
}

// OptionGroup is a named set of alternatives, e.g. "Size" or "Spice level".
type OptionGroup struct {
	Name     string         `json:"name" binding:"required"`
	Required bool           `json:"required"`
	Choices  []OptionChoice `json:"choices" binding:"required,min=1,dive"`
}

// Choice looks up a choice by name.
func (g OptionGroup) Choice(name string) (OptionChoice, bool) {
	for _, c := range g.Choices {
		if c.Name == name {
			return c, true
		}
	}
	return OptionChoice{}, false
}

type MenuItem struct {
	ID           uint                             `json:"id" gorm:"primaryKey"`
	RestaurantID uint                             `json:"restaurant_id" gorm:"not null;index"`
	Name         string                           `json:"name" gorm:"not null"`
	Description  string                           `json:"description"`
	Price        float64                          `json:"price" gorm:"not null"`
	ImageURL     string                           `json:"image_url"`
	Category     string                           `json:"category"`
	Options      datatypes.JSONSlice[OptionGroup] `json:"options"`
	IsAvailable  bool                             `json:"is_available" gorm:"not null"`
	UseOwnWindow bool                             `json:"use_own_window" gorm:"not null"`
	OnlineStart  *int                             `json:"online_start"`
	OnlineEnd    *int                             `json:"online_end"`
	CreatedAt    time.Time                        `json:"created_at"`
	UpdatedAt    time.Time                        `json:"updated_at"`
}

// Availability projects the fields the online evaluator needs.
func (m *MenuItem) Availability() availability.Item {
	return availability.Item{
		Available:    m.IsAvailable,
		UseOwnWindow: m.UseOwnWindow,
		Window:       availability.NewWindow(m.OnlineStart, m.OnlineEnd),
	}
}
