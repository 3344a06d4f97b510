package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"nust-bites/availability"
	"nust-bites/cache"
	"nust-bites/models"
	"nust-bites/storage"
	"nust-bites/txn"
)

type RestaurantInput struct {
	Name        string                `form:"name" json:"name" binding:"required,max=80"`
	Description string                `form:"description" json:"description" binding:"max=500"`
	OrderCode   string                `form:"order_code" json:"order_code" binding:"required,order_code"`
	AccentColor string                `form:"accent_color" json:"accent_color" binding:"omitempty,hexcolor"`
	Address     string                `form:"address" json:"address" binding:"required,max=200"`
	Latitude    float64               `form:"latitude" json:"latitude" binding:"gte=-90,lte=90"`
	Longitude   float64               `form:"longitude" json:"longitude" binding:"gte=-180,lte=180"`
	OnlineStart *int                  `form:"online_start" json:"online_start" binding:"omitempty,minute_of_day"`
	OnlineEnd   *int                  `form:"online_end" json:"online_end" binding:"omitempty,minute_of_day"`
	ForceStatus availability.Override `form:"force_status" json:"force_status" binding:"omitempty,override"`
}

// RestaurantUpdate changes only the fields that are set. The order code is
// fixed at creation because issued order codes embed it.
type RestaurantUpdate struct {
	Name        *string                `form:"name" json:"name" binding:"omitempty,min=1,max=80"`
	Description *string                `form:"description" json:"description" binding:"omitempty,max=500"`
	AccentColor *string                `form:"accent_color" json:"accent_color" binding:"omitempty,hexcolor"`
	Address     *string                `form:"address" json:"address" binding:"omitempty,min=1,max=200"`
	Latitude    *float64               `form:"latitude" json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude   *float64               `form:"longitude" json:"longitude" binding:"omitempty,gte=-180,lte=180"`
	OnlineStart *int                   `form:"online_start" json:"online_start" binding:"omitempty,minute_of_day"`
	OnlineEnd   *int                   `form:"online_end" json:"online_end" binding:"omitempty,minute_of_day"`
	ClearWindow bool                   `form:"clear_window" json:"clear_window"`
	ForceStatus *availability.Override `form:"force_status" json:"force_status" binding:"omitempty,override"`
}

type MenuItemInput struct {
	Name         string               `form:"name" json:"name" binding:"required,max=80"`
	Description  string               `form:"description" json:"description" binding:"max=500"`
	Price        float64              `form:"price" json:"price" binding:"required,gt=0"`
	Category     string               `form:"category" json:"category" binding:"max=40"`
	Options      []models.OptionGroup `form:"-" json:"options" binding:"omitempty,dive"`
	IsAvailable  *bool                `form:"is_available" json:"is_available"`
	UseOwnWindow bool                 `form:"use_own_window" json:"use_own_window"`
	OnlineStart  *int                 `form:"online_start" json:"online_start" binding:"omitempty,minute_of_day"`
	OnlineEnd    *int                 `form:"online_end" json:"online_end" binding:"omitempty,minute_of_day"`
}

type MenuItemUpdate struct {
	Name         *string              `form:"name" json:"name" binding:"omitempty,min=1,max=80"`
	Description  *string              `form:"description" json:"description" binding:"omitempty,max=500"`
	Price        *float64             `form:"price" json:"price" binding:"omitempty,gt=0"`
	Category     *string              `form:"category" json:"category" binding:"omitempty,max=40"`
	Options      []models.OptionGroup `form:"-" json:"options" binding:"omitempty,dive"`
	IsAvailable  *bool                `form:"is_available" json:"is_available"`
	UseOwnWindow *bool                `form:"use_own_window" json:"use_own_window"`
	OnlineStart  *int                 `form:"online_start" json:"online_start" binding:"omitempty,minute_of_day"`
	OnlineEnd    *int                 `form:"online_end" json:"online_end" binding:"omitempty,minute_of_day"`
	ClearWindow  bool                 `form:"clear_window" json:"clear_window"`
}

// RestaurantService owns every write to restaurants and menu items, keeping
// uploaded images and the public cache consistent with the database.
type RestaurantService struct {
	db     *gorm.DB
	images storage.ImageStore
	cache  *cache.Cache
}

func NewRestaurantService(db *gorm.DB, images storage.ImageStore, c *cache.Cache) *RestaurantService {
	return &RestaurantService{db: db, images: images, cache: c}
}

// checkWindow requires both ends or neither. Equal ends would describe a
// window that is never open.
func checkWindow(start, end *int) error {
	if (start == nil) != (end == nil) {
		return ErrInvalidWindow
	}
	if start != nil && *start == *end {
		return ErrInvalidWindow
	}
	return nil
}

// checkOptions rejects duplicate group names and duplicate choices in a group.
func checkOptions(groups []models.OptionGroup) error {
	seen := make(map[string]bool, len(groups))
	for _, g := range groups {
		if seen[g.Name] {
			return fmt.Errorf("%w: option %q repeated", ErrInvalidOptions, g.Name)
		}
		seen[g.Name] = true
		choices := make(map[string]bool, len(g.Choices))
		for _, c := range g.Choices {
			if choices[c.Name] {
				return fmt.Errorf("%w: choice %q repeated in %q", ErrInvalidOptions, c.Name, g.Name)
			}
			choices[c.Name] = true
		}
	}
	return nil
}

// saveImage stores file, if any, and registers its removal should u fail.
func (s *RestaurantService) saveImage(ctx context.Context, u *txn.Unit, file *multipart.FileHeader, what string) (string, error) {
	if file == nil {
		return "", nil
	}
	url, err := s.images.Save(ctx, file)
	if err != nil {
		return "", fmt.Errorf("save %s: %w", what, err)
	}
	u.OnRollback("delete new "+what, func(ctx context.Context) error {
		return s.images.Delete(ctx, url)
	})
	return url, nil
}

func (s *RestaurantService) deleteImageAfterCommit(u *txn.Unit, url, what string) {
	if url == "" {
		return
	}
	u.AfterCommit("delete old "+what, func(ctx context.Context) error {
		return s.images.Delete(ctx, url)
	})
}

func (s *RestaurantService) invalidateAfterCommit(u *txn.Unit, restaurantID uint) {
	u.AfterCommit("invalidate cache", func(context.Context) error {
		s.cache.Invalidate(cache.TagRestaurants, cache.RestaurantTag(restaurantID))
		return nil
	})
}

// OwnedBy returns the restaurant owned by ownerID.
func (s *RestaurantService) OwnedBy(ctx context.Context, ownerID uint) (*models.Restaurant, error) {
	var r models.Restaurant
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// Create registers a new, unverified restaurant for ownerID. An owner has at
// most one restaurant and order codes are unique.
func (s *RestaurantService) Create(ctx context.Context, ownerID uint, in RestaurantInput, logo *multipart.FileHeader) (*models.Restaurant, error) {
	if err := checkWindow(in.OnlineStart, in.OnlineEnd); err != nil {
		return nil, err
	}

	u := txn.New(ctx)
	logoURL, err := s.saveImage(ctx, u, logo, "logo")
	if err != nil {
		return nil, err
	}

	r := &models.Restaurant{
		OwnerID:     ownerID,
		Name:        in.Name,
		Description: in.Description,
		OrderCode:   in.OrderCode,
		AccentColor: in.AccentColor,
		LogoURL:     logoURL,
		Address:     in.Address,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		OnlineStart: in.OnlineStart,
		OnlineEnd:   in.OnlineEnd,
		ForceStatus: in.ForceStatus,
	}
	err = u.Commit(s.db, func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Restaurant{}).Where("owner_id = ?", ownerID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyHasRestaurant
		}
		if err := tx.Model(&models.Restaurant{}).Where("order_code = ?", in.OrderCode).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrOrderCodeTaken
		}
		if err := tx.Create(r).Error; err != nil {
			return err
		}
		s.invalidateAfterCommit(u, r.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Update applies in to r and reloads it.
func (s *RestaurantService) Update(ctx context.Context, r *models.Restaurant, in RestaurantUpdate, logo *multipart.FileHeader) error {
	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.AccentColor != nil {
		updates["accent_color"] = *in.AccentColor
	}
	if in.Address != nil {
		updates["address"] = *in.Address
	}
	if in.Latitude != nil {
		updates["latitude"] = *in.Latitude
	}
	if in.Longitude != nil {
		updates["longitude"] = *in.Longitude
	}
	if in.ForceStatus != nil {
		updates["force_status"] = *in.ForceStatus
	}
	if err := windowUpdates(updates, r.OnlineStart, r.OnlineEnd, in.OnlineStart, in.OnlineEnd, in.ClearWindow); err != nil {
		return err
	}

	u := txn.New(ctx)
	logoURL, err := s.saveImage(ctx, u, logo, "logo")
	if err != nil {
		return err
	}
	if logoURL != "" {
		updates["logo_url"] = logoURL
		s.deleteImageAfterCommit(u, r.LogoURL, "logo")
	}
	s.invalidateAfterCommit(u, r.ID)

	return u.Commit(s.db, func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(r).Updates(updates).Error; err != nil {
				return err
			}
		}
		var fresh models.Restaurant
		if err := tx.First(&fresh, r.ID).Error; err != nil {
			return err
		}
		*r = fresh
		return nil
	})
}

// windowUpdates merges a partial window change into updates, validating the
// window that would result.
func windowUpdates(updates map[string]interface{}, curStart, curEnd, start, end *int, clear bool) error {
	if clear {
		updates["online_start"] = nil
		updates["online_end"] = nil
		return nil
	}
	if start == nil && end == nil {
		return nil
	}
	if start == nil {
		start = curStart
	}
	if end == nil {
		end = curEnd
	}
	if err := checkWindow(start, end); err != nil {
		return err
	}
	updates["online_start"] = *start
	updates["online_end"] = *end
	return nil
}

// Delete removes r and its menu. Orders keep their snapshots.
func (s *RestaurantService) Delete(ctx context.Context, r *models.Restaurant) error {
	u := txn.New(ctx)
	s.invalidateAfterCommit(u, r.ID)
	return u.Commit(s.db, func(tx *gorm.DB) error {
		var images []string
		if err := tx.Model(&models.MenuItem{}).Where("restaurant_id = ? AND image_url <> ''", r.ID).Pluck("image_url", &images).Error; err != nil {
			return err
		}
		if err := tx.Where("restaurant_id = ?", r.ID).Delete(&models.MenuItem{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Restaurant{}, r.ID).Error; err != nil {
			return err
		}
		s.deleteImageAfterCommit(u, r.LogoURL, "logo")
		for _, url := range images {
			s.deleteImageAfterCommit(u, url, "menu image")
		}
		return nil
	})
}

// SetVerified marks a restaurant verified or not. Unverified restaurants are
// hidden from customers and cannot take orders.
func (s *RestaurantService) SetVerified(ctx context.Context, id uint, verified bool) (*models.Restaurant, error) {
	var r models.Restaurant
	err := txn.Run(ctx, s.db, func(tx *gorm.DB, u *txn.Unit) error {
		if err := tx.First(&r, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&r).Update("is_verified", verified).Error; err != nil {
			return err
		}
		s.invalidateAfterCommit(u, r.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// MenuItem returns item itemID if it belongs to restaurant r.
func (s *RestaurantService) MenuItem(ctx context.Context, r *models.Restaurant, itemID uint) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := s.db.WithContext(ctx).First(&item, itemID).Error; err != nil {
		return nil, err
	}
	if item.RestaurantID != r.ID {
		return nil, ErrNotOwner
	}
	return &item, nil
}

func (s *RestaurantService) AddMenuItem(ctx context.Context, r *models.Restaurant, in MenuItemInput, image *multipart.FileHeader) (*models.MenuItem, error) {
	if err := checkWindow(in.OnlineStart, in.OnlineEnd); err != nil {
		return nil, err
	}
	if err := checkOptions(in.Options); err != nil {
		return nil, err
	}

	u := txn.New(ctx)
	imageURL, err := s.saveImage(ctx, u, image, "menu image")
	if err != nil {
		return nil, err
	}
	item := &models.MenuItem{
		RestaurantID: r.ID,
		Name:         in.Name,
		Description:  in.Description,
		Price:        in.Price,
		ImageURL:     imageURL,
		Category:     in.Category,
		Options:      in.Options,
		IsAvailable:  in.IsAvailable == nil || *in.IsAvailable,
		UseOwnWindow: in.UseOwnWindow,
		OnlineStart:  in.OnlineStart,
		OnlineEnd:    in.OnlineEnd,
	}
	if item.Options == nil {
		item.Options = []models.OptionGroup{}
	}
	s.invalidateAfterCommit(u, r.ID)
	err = u.Commit(s.db, func(tx *gorm.DB) error {
		return tx.Create(item).Error
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *RestaurantService) UpdateMenuItem(ctx context.Context, item *models.MenuItem, in MenuItemUpdate, image *multipart.FileHeader) error {
	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Price != nil {
		updates["price"] = *in.Price
	}
	if in.Category != nil {
		updates["category"] = *in.Category
	}
	if in.Options != nil {
		if err := checkOptions(in.Options); err != nil {
			return err
		}
		updates["options"] = datatypes.JSONSlice[models.OptionGroup](in.Options)
	}
	if in.IsAvailable != nil {
		updates["is_available"] = *in.IsAvailable
	}
	if in.UseOwnWindow != nil {
		updates["use_own_window"] = *in.UseOwnWindow
	}
	if err := windowUpdates(updates, item.OnlineStart, item.OnlineEnd, in.OnlineStart, in.OnlineEnd, in.ClearWindow); err != nil {
		return err
	}

	u := txn.New(ctx)
	imageURL, err := s.saveImage(ctx, u, image, "menu image")
	if err != nil {
		return err
	}
	if imageURL != "" {
		updates["image_url"] = imageURL
		s.deleteImageAfterCommit(u, item.ImageURL, "menu image")
	}
	s.invalidateAfterCommit(u, item.RestaurantID)

	return u.Commit(s.db, func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(item).Updates(updates).Error; err != nil {
				return err
			}
		}
		var fresh models.MenuItem
		if err := tx.First(&fresh, item.ID).Error; err != nil {
			return err
		}
		*item = fresh
		return nil
	})
}

func (s *RestaurantService) DeleteMenuItem(ctx context.Context, item *models.MenuItem) error {
	u := txn.New(ctx)
	s.invalidateAfterCommit(u, item.RestaurantID)
	s.deleteImageAfterCommit(u, item.ImageURL, "menu image")
	return u.Commit(s.db, func(tx *gorm.DB) error {
		res := tx.Delete(&models.MenuItem{}, item.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
