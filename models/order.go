package models

import (
	"time"

	"gorm.io/datatypes"
)

// OrderStatus represents all possible states of a food delivery order
type OrderStatus string

const (
	StatusPending        OrderStatus = "PENDING"
	StatusConfirmed      OrderStatus = "CONFIRMED"
	StatusPreparing      OrderStatus = "PREPARING"
	StatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	StatusDelivered      OrderStatus = "DELIVERED"
	StatusCancelled      OrderStatus = "CANCELLED"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []OrderStatus{
	StatusPending, StatusConfirmed, StatusPreparing, StatusOutForDelivery, StatusDelivered, StatusCancelled,
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "UNPAID"
	PaymentPaid   PaymentStatus = "PAID"
)

type Order struct {
	ID               uint                 `json:"id" gorm:"primaryKey"`
	OrderCode        string               `json:"order_code" gorm:"uniqueIndex;not null"` // <restaurant code>-<sequence>
	CustomerID       uint                 `json:"customer_id" gorm:"not null;index"`
	Customer         *User                `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	RestaurantID     uint                 `json:"restaurant_id" gorm:"not null;index"`
	RestaurantName   string               `json:"restaurant_name"` // snapshot, survives restaurant deletion
	Status           OrderStatus          `json:"status" gorm:"not null;default:'PENDING'"`
	PaymentStatus    PaymentStatus        `json:"payment_status" gorm:"not null;default:'UNPAID'"`
	PickupAddress    string               `json:"pickup_address"`
	PickupLatitude   float64              `json:"pickup_latitude"`
	PickupLongitude  float64              `json:"pickup_longitude"`
	DropoffAddress   string               `json:"dropoff_address" gorm:"not null"`
	DropoffLatitude  float64              `json:"dropoff_latitude"`
	DropoffLongitude float64              `json:"dropoff_longitude"`
	DistanceKm       float64              `json:"distance_km"`
	OrderAmount      float64              `json:"order_amount"`
	DeliveryFee      float64              `json:"delivery_fee"`
	TotalAmount      float64              `json:"total_amount"`
	Instructions     string               `json:"special_instructions"`
	Items            []OrderItem          `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	StatusHistory    []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// SelectedOption records a chosen option and its price at order time.
type SelectedOption struct {
	Group           string  `json:"group"`
	Choice          string  `json:"choice"`
	AdditionalPrice float64 `json:"additional_price"`
}

// OrderItem is a snapshot of a menu item at order time. Later menu edits
// never change it.
type OrderItem struct {
	ID              uint                                `json:"id" gorm:"primaryKey"`
	OrderID         uint                                `json:"order_id" gorm:"not null;index"`
	MenuItemID      uint                                `json:"menu_item_id"`
	Name            string                              `json:"name" gorm:"not null"`
	UnitPrice       float64                             `json:"unit_price" gorm:"not null"`
	Quantity        int                                 `json:"quantity" gorm:"not null"`
	LineTotal       float64                             `json:"line_total" gorm:"not null"`
	SelectedOptions datatypes.JSONSlice[SelectedOption] `json:"selected_options"`
}

// OrderStatusHistory tracks every status change
type OrderStatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    uint        `json:"order_id" gorm:"not null;index"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status" gorm:"not null"`
	ChangedBy  uint        `json:"changed_by"` // user ID who triggered the transition
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"created_at"`
}
