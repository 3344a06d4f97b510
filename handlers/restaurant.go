package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nust-bites/middleware"
	"nust-bites/models"
	"nust-bites/services"
)

// ownRestaurant loads the caller's restaurant or answers 404.
func (h *Handler) ownRestaurant(c *gin.Context) (*models.Restaurant, bool) {
	r, err := h.restaurants.OwnedBy(c.Request.Context(), middleware.GetUserID(c))
	if services.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No restaurant found for your account"})
		return nil, false
	}
	if err != nil {
		serverError(c, err, "Failed to load restaurant")
		return nil, false
	}
	return r, true
}

// ownMenuItem loads a menu item of the caller's restaurant.
func (h *Handler) ownMenuItem(c *gin.Context) (*models.MenuItem, bool) {
	r, ok := h.ownRestaurant(c)
	if !ok {
		return nil, false
	}
	itemID, ok := paramID(c, "itemId")
	if !ok {
		return nil, false
	}
	item, err := h.restaurants.MenuItem(c.Request.Context(), r, itemID)
	if err != nil {
		restaurantError(c, err)
		return nil, false
	}
	return item, true
}

// CreateRestaurant registers the caller's restaurant. It starts unverified
// and stays offline until an admin verifies it.
func (h *Handler) CreateRestaurant(c *gin.Context) {
	var req services.RestaurantInput
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}
	logo, err := optionalFile(c, "logo")
	if err != nil {
		bindError(c, err)
		return
	}

	r, err := h.restaurants.Create(c.Request.Context(), middleware.GetUserID(c), req, logo)
	if err != nil {
		restaurantError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":    "Restaurant created, awaiting verification",
		"restaurant": r,
	})
}

// GetMyRestaurant returns the caller's restaurant with its full menu.
func (h *Handler) GetMyRestaurant(c *gin.Context) {
	r, ok := h.ownRestaurant(c)
	if !ok {
		return
	}
	var items []models.MenuItem
	if err := h.db.Where("restaurant_id = ?", r.ID).Order("category, name").Find(&items).Error; err != nil {
		serverError(c, err, "Failed to load menu")
		return
	}

	now := h.clock.MinutesNow()
	ra := r.Availability()
	menu := make([]MenuItemView, len(items))
	for i, item := range items {
		menu[i] = menuItemView(item, ra, now)
	}
	c.JSON(http.StatusOK, gin.H{
		"restaurant": restaurantView(*r, now),
		"menu":       menu,
	})
}

func (h *Handler) UpdateRestaurant(c *gin.Context) {
	r, ok := h.ownRestaurant(c)
	if !ok {
		return
	}
	var req services.RestaurantUpdate
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}
	logo, err := optionalFile(c, "logo")
	if err != nil {
		bindError(c, err)
		return
	}

	if err := h.restaurants.Update(c.Request.Context(), r, req, logo); err != nil {
		restaurantError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant updated", "restaurant": r})
}

func (h *Handler) DeleteMyRestaurant(c *gin.Context) {
	r, ok := h.ownRestaurant(c)
	if !ok {
		return
	}
	if err := h.restaurants.Delete(c.Request.Context(), r); err != nil {
		restaurantError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant deleted"})
}

// AddMenuItem accepts JSON, or multipart with an "image" file and options
// as a JSON string.
func (h *Handler) AddMenuItem(c *gin.Context) {
	r, ok := h.ownRestaurant(c)
	if !ok {
		return
	}
	var req services.MenuItemInput
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := formOptions(c, &req.Options); err != nil {
		bindError(c, err)
		return
	}
	image, err := optionalFile(c, "image")
	if err != nil {
		bindError(c, err)
		return
	}

	item, err := h.restaurants.AddMenuItem(c.Request.Context(), r, req, image)
	if err != nil {
		restaurantError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Menu item added", "item": item})
}

func (h *Handler) UpdateMenuItem(c *gin.Context) {
	item, ok := h.ownMenuItem(c)
	if !ok {
		return
	}
	var req services.MenuItemUpdate
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := formOptions(c, &req.Options); err != nil {
		bindError(c, err)
		return
	}
	image, err := optionalFile(c, "image")
	if err != nil {
		bindError(c, err)
		return
	}

	if err := h.restaurants.UpdateMenuItem(c.Request.Context(), item, req, image); err != nil {
		restaurantError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Menu item updated", "item": item})
}

func (h *Handler) DeleteMenuItem(c *gin.Context) {
	item, ok := h.ownMenuItem(c)
	if !ok {
		return
	}
	if err := h.restaurants.DeleteMenuItem(c.Request.Context(), item); err != nil {
		restaurantError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Menu item deleted"})
}
