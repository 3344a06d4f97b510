package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"nust-bites/availability"
	"nust-bites/cache"
	"nust-bites/models"
	"nust-bites/services"
	"nust-bites/statemachine"
	"nust-bites/timeutil"
)

// RestaurantView is a restaurant with its online status at request time.
type RestaurantView struct {
	models.Restaurant
	IsOnline bool   `json:"is_online"`
	Hours    string `json:"hours,omitempty"`
}

type MenuItemView struct {
	models.MenuItem
	IsOnline bool   `json:"is_online"`
	Hours    string `json:"hours,omitempty"`
}

func restaurantView(r models.Restaurant, now int) RestaurantView {
	return RestaurantView{
		Restaurant: r,
		IsOnline:   availability.RestaurantOnline(r.Availability(), now),
		Hours:      hours(r.OnlineStart, r.OnlineEnd),
	}
}

func menuItemView(item models.MenuItem, ra availability.Restaurant, now int) MenuItemView {
	v := MenuItemView{MenuItem: item, IsOnline: availability.ItemOnline(item.Availability(), ra, now)}
	if item.UseOwnWindow {
		v.Hours = hours(item.OnlineStart, item.OnlineEnd)
	}
	return v
}

// hours renders a window as "HH:MM-HH:MM"; empty when no window is set.
func hours(start, end *int) string {
	if start == nil || end == nil {
		return ""
	}
	return timeutil.FormatMinutes(*start) + "-" + timeutil.FormatMinutes(*end)
}

func (h *Handler) verifiedRestaurants() ([]models.Restaurant, error) {
	return cache.Remember(h.cache, "restaurants:verified", []string{cache.TagRestaurants}, func() ([]models.Restaurant, error) {
		var restaurants []models.Restaurant
		err := h.db.Where("is_verified = ?", true).Order("name").Find(&restaurants).Error
		return restaurants, err
	})
}

func (h *Handler) verifiedRestaurant(id uint) (*models.Restaurant, error) {
	key := "restaurant:" + strconv.FormatUint(uint64(id), 10)
	return cache.Remember(h.cache, key, []string{cache.RestaurantTag(id)}, func() (*models.Restaurant, error) {
		var r models.Restaurant
		if err := h.db.Where("is_verified = ?", true).First(&r, id).Error; err != nil {
			return nil, err
		}
		return &r, nil
	})
}

func (h *Handler) menu(id uint) ([]models.MenuItem, error) {
	key := "menu:" + strconv.FormatUint(uint64(id), 10)
	return cache.Remember(h.cache, key, []string{cache.RestaurantTag(id)}, func() ([]models.MenuItem, error) {
		var items []models.MenuItem
		err := h.db.Where("restaurant_id = ?", id).Order("category, name").Find(&items).Error
		return items, err
	})
}

// ListRestaurants returns verified restaurants (public)
func (h *Handler) ListRestaurants(c *gin.Context) {
	restaurants, err := h.verifiedRestaurants()
	if err != nil {
		serverError(c, err, "Failed to load restaurants")
		return
	}

	now := h.clock.MinutesNow()
	search := strings.ToLower(c.Query("search"))
	onlineOnly := c.Query("online") == "true"

	views := make([]RestaurantView, 0, len(restaurants))
	for _, r := range restaurants {
		if search != "" && !strings.Contains(strings.ToLower(r.Name), search) {
			continue
		}
		v := restaurantView(r, now)
		if onlineOnly && !v.IsOnline {
			continue
		}
		views = append(views, v)
	}
	c.JSON(http.StatusOK, gin.H{
		"count":       len(views),
		"restaurants": views,
	})
}

// GetRestaurant returns a single verified restaurant
func (h *Handler) GetRestaurant(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	r, err := h.verifiedRestaurant(id)
	if services.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Restaurant not found"})
		return
	}
	if err != nil {
		serverError(c, err, "Failed to load restaurant")
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurant": restaurantView(*r, h.clock.MinutesNow())})
}

// GetMenu returns the menu for a specific restaurant (public)
func (h *Handler) GetMenu(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	r, err := h.verifiedRestaurant(id)
	if services.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Restaurant not found"})
		return
	}
	if err != nil {
		serverError(c, err, "Failed to load restaurant")
		return
	}
	items, err := h.menu(id)
	if err != nil {
		serverError(c, err, "Failed to load menu")
		return
	}

	now := h.clock.MinutesNow()
	ra := r.Availability()
	category := c.Query("category")
	views := make([]MenuItemView, 0, len(items))
	for _, item := range items {
		if category != "" && item.Category != category {
			continue
		}
		views = append(views, menuItemView(item, ra, now))
	}

	c.JSON(http.StatusOK, gin.H{
		"restaurant": restaurantView(*r, now),
		"count":      len(views),
		"menu":       views,
	})
}

// GetPublicSettings exposes the theme and fee parameters to clients.
func (h *Handler) GetPublicSettings(c *gin.Context) {
	st, err := h.settings.Get(c.Request.Context())
	if err != nil {
		serverError(c, err, "Failed to load settings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": st})
}

// GetStateMachineInfo returns the full state machine for informational purposes
func GetStateMachineInfo(c *gin.Context) {
	terminal := []models.OrderStatus{}
	for _, s := range models.AllStatuses {
		if statemachine.IsTerminal(s) {
			terminal = append(terminal, s)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"state_machine":   statemachine.GetAllTransitions(),
		"terminal_states": terminal,
		"description":     "NUST Bites order lifecycle. Admins may force any status.",
	})
}
