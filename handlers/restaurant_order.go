package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nust-bites/middleware"
	"nust-bites/models"
	"nust-bites/services"
)

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
	Note   string             `json:"note" binding:"max=200"`
}

// GetRestaurantOrders returns all orders for the restaurant owner
func (h *Handler) GetRestaurantOrders(c *gin.Context) {
	restaurant, ok := h.ownRestaurant(c)
	if !ok {
		return
	}

	var orders []models.Order
	query := h.db.Preload("Items").Preload("Customer").Where("restaurant_id = ?", restaurant.ID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("created_at desc").Find(&orders).Error; err != nil {
		serverError(c, err, "Failed to load orders")
		return
	}

	summary := map[string]int{}
	for _, o := range orders {
		summary[string(o.Status)]++
	}
	c.JSON(http.StatusOK, gin.H{
		"restaurant":    restaurant.Name,
		"order_summary": summary,
		"count":         len(orders),
		"orders":        orders,
	})
}

// UpdateOrderStatus handles restaurant's state transitions
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	h.changeStatus(c, models.RoleRestaurant)
}

func (h *Handler) changeStatus(c *gin.Context, role models.UserRole) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	actor := services.Actor{UserID: middleware.GetUserID(c), Role: role}
	order, prev, err := h.orders.UpdateStatus(c.Request.Context(), orderID, req.Status, actor, req.Note)
	if err != nil {
		orderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         "Order status updated",
		"order_id":        order.ID,
		"order_code":      order.OrderCode,
		"previous_status": prev,
		"current_status":  order.Status,
		"payment_status":  order.PaymentStatus,
	})
}
