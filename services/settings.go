package services

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nust-bites/delivery"
	"nust-bites/models"
)

// SettingsService reads and writes the admin-console settings row.
type SettingsService struct {
	db *gorm.DB
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

// DefaultSettings are returned until an admin saves settings.
func DefaultSettings() models.Settings {
	return models.Settings{
		Key:             models.GlobalSettingsKey,
		BaseDeliveryFee: delivery.DefaultBaseFee,
		PerKmRate:       delivery.DefaultPerKmRate,
		ThemeColor:      models.DefaultThemeColor,
	}
}

// Get returns the stored settings or the defaults.
func (s *SettingsService) Get(ctx context.Context) (*models.Settings, error) {
	var st models.Settings
	res := s.db.WithContext(ctx).Where("key = ?", models.GlobalSettingsKey).Limit(1).Find(&st)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		st = DefaultSettings()
	}
	return &st, nil
}

type SettingsUpdate struct {
	BaseDeliveryFee *float64 `json:"base_delivery_fee" binding:"omitempty,gte=0"`
	PerKmRate       *float64 `json:"per_km_rate" binding:"omitempty,gte=0"`
	ThemeColor      *string  `json:"theme_color" binding:"omitempty,hexcolor"`
}

// Update applies the non-nil fields of upd.
func (s *SettingsService) Update(ctx context.Context, upd SettingsUpdate, adminID uint) (*models.Settings, error) {
	st, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	if upd.BaseDeliveryFee != nil {
		st.BaseDeliveryFee = *upd.BaseDeliveryFee
	}
	if upd.PerKmRate != nil {
		st.PerKmRate = *upd.PerKmRate
	}
	if upd.ThemeColor != nil {
		st.ThemeColor = *upd.ThemeColor
	}
	st.UpdatedBy = adminID

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(st).Error
	if err != nil {
		return nil, err
	}
	return st, nil
}

// FeeSettings implements delivery.SettingsSource.
func (s *SettingsService) FeeSettings(ctx context.Context) (delivery.FeeSettings, error) {
	st, err := s.Get(ctx)
	if err != nil {
		return delivery.FeeSettings{}, err
	}
	return delivery.FeeSettings{BaseFee: st.BaseDeliveryFee, PerKmRate: st.PerKmRate}, nil
}
