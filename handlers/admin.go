package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nust-bites/config"
	"nust-bites/middleware"
	"nust-bites/models"
	"nust-bites/services"
)

type VerifyRestaurantRequest struct {
	Verified *bool `json:"verified" binding:"required"`
}

// AdminGetAllOrders returns all orders with full detail (admin only)
func (h *Handler) AdminGetAllOrders(c *gin.Context) {
	var orders []models.Order
	query := h.db.Preload("Items").Preload("Customer").Preload("StatusHistory")

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if customerID := c.Query("customer_id"); customerID != "" {
		query = query.Where("customer_id = ?", customerID)
	}
	if restaurantID := c.Query("restaurant_id"); restaurantID != "" {
		query = query.Where("restaurant_id = ?", restaurantID)
	}
	if err := query.Order("created_at desc").Find(&orders).Error; err != nil {
		serverError(c, err, "Failed to load orders")
		return
	}

	summary := map[string]int{}
	var revenue float64
	for _, o := range orders {
		summary[string(o.Status)]++
		if o.PaymentStatus == models.PaymentPaid {
			revenue += o.TotalAmount
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"order_summary": summary,
		"total_revenue": revenue,
		"count":         len(orders),
		"orders":        orders,
	})
}

// AdminForceOrderStatus lets admin override any order state (emergency use)
func (h *Handler) AdminForceOrderStatus(c *gin.Context) {
	h.changeStatus(c, models.RoleAdmin)
}

// AdminGetAllUsers returns all users (admin only)
func AdminGetAllUsers(c *gin.Context) {
	var users []models.User
	query := config.DB
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if err := query.Order("id").Find(&users).Error; err != nil {
		serverError(c, err, "Failed to load users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": users})
}

// AdminGetAllRestaurants lists every restaurant, verified or not.
func (h *Handler) AdminGetAllRestaurants(c *gin.Context) {
	var restaurants []models.Restaurant
	query := h.db.Order("created_at desc")
	switch c.Query("verified") {
	case "true":
		query = query.Where("is_verified = ?", true)
	case "false":
		query = query.Where("is_verified = ?", false)
	}
	if err := query.Find(&restaurants).Error; err != nil {
		serverError(c, err, "Failed to load restaurants")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(restaurants), "restaurants": restaurants})
}

func (h *Handler) AdminVerifyRestaurant(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req VerifyRestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	r, err := h.restaurants.SetVerified(c.Request.Context(), id, *req.Verified)
	if err != nil {
		restaurantError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant verification updated", "restaurant": r})
}

func (h *Handler) AdminDeleteRestaurant(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var r models.Restaurant
	if err := h.db.First(&r, id).Error; err != nil {
		restaurantError(c, err)
		return
	}
	if err := h.restaurants.Delete(c.Request.Context(), &r); err != nil {
		restaurantError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant deleted"})
}

func (h *Handler) AdminGetSettings(c *gin.Context) {
	st, err := h.settings.Get(c.Request.Context())
	if err != nil {
		serverError(c, err, "Failed to load settings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": st})
}

func (h *Handler) AdminUpdateSettings(c *gin.Context) {
	var req services.SettingsUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	st, err := h.settings.Update(c.Request.Context(), req, middleware.GetUserID(c))
	if err != nil {
		serverError(c, err, "Failed to save settings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Settings updated", "settings": st})
}
