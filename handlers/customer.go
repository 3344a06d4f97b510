package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nust-bites/checkout"
	"nust-bites/delivery"
	"nust-bites/middleware"
	"nust-bites/models"
	"nust-bites/services"
	"nust-bites/statemachine"
)

type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=200"`
}

// orderError maps checkout and order service failures to responses.
func orderError(c *gin.Context, err error) {
	var cartErr *services.CartError
	var transErr *services.TransitionError
	switch {
	case errors.As(err, &cartErr):
		status := http.StatusUnprocessableEntity
		if errors.Is(err, services.ErrCartChanged) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": cartErr.Result.Message, "cart": cartErr.Result})
	case errors.As(err, &transErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":             "Invalid state transition",
			"current_status":    transErr.Current,
			"requested":         transErr.Requested,
			"reason":            transErr.Reason,
			"valid_next_states": statemachine.ValidTransitionsFrom(transErr.Current),
		})
	case errors.Is(err, checkout.ErrRestaurantNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Restaurant not found"})
	case errors.Is(err, delivery.ErrRouteUnavailable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Could not determine a delivery route to this address"})
	case errors.Is(err, services.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case errors.Is(err, services.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "This order does not belong to you"})
	case errors.Is(err, services.ErrStatusConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Order was updated by someone else, reload and retry"})
	default:
		serverError(c, err, "Failed to process order")
	}
}

// VerifyCart prices a cart against the live menu without ordering.
func (h *Handler) VerifyCart(c *gin.Context) {
	var req checkout.CartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.orders.Verify(c.Request.Context(), req)
	if err != nil {
		orderError(c, err)
		return
	}
	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, res)
}

// PlaceOrder creates a new order (customer only)
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req services.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	var customer models.User
	if err := h.db.First(&customer, middleware.GetUserID(c)).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Account no longer exists"})
		return
	}

	order, err := h.orders.Place(c.Request.Context(), &customer, req)
	if err != nil {
		orderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"order":   order,
	})
}

// GetMyOrders returns all orders for the logged-in customer
func (h *Handler) GetMyOrders(c *gin.Context) {
	customerID := middleware.GetUserID(c)
	var orders []models.Order
	query := h.db.Preload("Items").Where("customer_id = ?", customerID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("created_at desc").Find(&orders).Error; err != nil {
		serverError(c, err, "Failed to load orders")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// GetOrderDetail returns a single order's full detail with history
func (h *Handler) GetOrderDetail(c *gin.Context) {
	customerID := middleware.GetUserID(c)
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var order models.Order
	if err := h.db.Preload("Items").Preload("StatusHistory").First(&order, orderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if order.CustomerID != customerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This order does not belong to you"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order":           order,
		"minutes_elapsed": int(time.Since(order.CreatedAt).Minutes()),
		"can_cancel":      statemachine.CanTransition(order.Status, models.StatusCancelled, statemachine.ActorCustomer) == nil,
	})
}

// CancelOrder cancels a pending order on behalf of its customer
func (h *Handler) CancelOrder(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req CancelOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}

	order, err := h.orders.Cancel(c.Request.Context(), orderID, middleware.GetUserID(c), req.Reason)
	if err != nil {
		orderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled successfully", "order_id": order.ID, "status": order.Status})
}
