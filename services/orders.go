package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"nust-bites/checkout"
	"nust-bites/logger"
	"nust-bites/mailer"
	"nust-bites/models"
	"nust-bites/sequence"
	"nust-bites/statemachine"
	"nust-bites/txn"
)

// TransitionError describes a rejected status change.
type TransitionError struct {
	Current   models.OrderStatus
	Requested models.OrderStatus
	Reason    string
}

func (e *TransitionError) Error() string { return e.Reason }

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Actor is the authenticated user changing an order.
type Actor struct {
	UserID uint
	Role   models.UserRole
}

type PlaceOrderRequest struct {
	checkout.CartRequest
	Instructions string `json:"special_instructions" binding:"max=500"`
}

type OrderService struct {
	db        *gorm.DB
	validator *checkout.Validator
	sequences sequence.Allocator
	notifier  *mailer.Notifier
}

func NewOrderService(db *gorm.DB, validator *checkout.Validator, sequences sequence.Allocator, notifier *mailer.Notifier) *OrderService {
	return &OrderService{db: db, validator: validator, sequences: sequences, notifier: notifier}
}

// Verify prices a cart without placing it.
func (s *OrderService) Verify(ctx context.Context, req checkout.CartRequest) (*checkout.Result, error) {
	return s.validator.Validate(ctx, req)
}

// Place re-validates the cart and stores the order. The order is only
// created when the cart verifies cleanly: any removed line or changed price
// returns a *CartError so the customer sees what they are paying for.
func (s *OrderService) Place(ctx context.Context, customer *models.User, req PlaceOrderRequest) (*models.Order, error) {
	res, err := s.validator.Validate(ctx, req.CartRequest)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, &CartError{Err: ErrCartInvalid, Result: res}
	}
	if len(res.RemovedItems) > 0 || res.PriceChanged() {
		return nil, &CartError{Err: ErrCartChanged, Result: res}
	}

	// Allocated outside the order transaction; a failed insert leaves a gap
	// in the sequence but never reuses a number.
	seq, err := s.sequences.Next(ctx, sequence.OrderID)
	if err != nil {
		return nil, err
	}

	restaurant := res.Restaurant
	order := &models.Order{
		OrderCode:        sequence.OrderCode(restaurant.OrderCode, seq),
		CustomerID:       customer.ID,
		RestaurantID:     restaurant.ID,
		RestaurantName:   restaurant.Name,
		Status:           models.StatusPending,
		PaymentStatus:    models.PaymentUnpaid,
		PickupAddress:    restaurant.Address,
		PickupLatitude:   restaurant.Latitude,
		PickupLongitude:  restaurant.Longitude,
		DropoffAddress:   req.Dropoff.Address,
		DropoffLatitude:  req.Dropoff.Latitude,
		DropoffLongitude: req.Dropoff.Longitude,
		DistanceKm:       res.Fee.DistanceKm,
		OrderAmount:      res.OrderAmount,
		DeliveryFee:      res.Fee.DeliveryFee,
		TotalAmount:      res.TotalAmount,
		Instructions:     req.Instructions,
		StatusHistory: []models.OrderStatusHistory{{
			ToStatus:  models.StatusPending,
			ChangedBy: customer.ID,
			Note:      "Order placed by customer",
		}},
	}
	for _, vi := range res.VerifiedItems {
		order.Items = append(order.Items, models.OrderItem{
			MenuItemID:      vi.MenuItemID,
			Name:            vi.Name,
			UnitPrice:       vi.UnitPrice,
			Quantity:        vi.Quantity,
			LineTotal:       vi.LineTotal,
			SelectedOptions: vi.SelectedOptions,
		})
	}

	err = txn.Run(ctx, s.db, func(tx *gorm.DB, u *txn.Unit) error {
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		u.AfterCommit("order confirmation email", func(ctx context.Context) error {
			return s.notifier.OrderPlaced(ctx, customer.Email, order)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).WithFields(logrus.Fields{
		"order_code": order.OrderCode,
		"total":      order.TotalAmount,
	}).Info("Order placed")
	return order, nil
}

// UpdateStatus moves an order to status to on behalf of actor. Restaurants
// and customers follow the state machine; admins may set any status. The
// previous status is returned alongside the updated order.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uint, to models.OrderStatus, actor Actor, note string) (*models.Order, models.OrderStatus, error) {
	var (
		order models.Order
		prev  models.OrderStatus
	)
	err := txn.Run(ctx, s.db, func(tx *gorm.DB, u *txn.Unit) error {
		err := tx.Preload("Customer").Preload("Items").First(&order, orderID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		prev = order.Status

		if err := s.authorize(tx, &order, to, actor); err != nil {
			return err
		}

		updates := map[string]interface{}{"status": to}
		if to == models.StatusDelivered {
			updates["payment_status"] = models.PaymentPaid
		}
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, prev).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStatusConflict
		}

		if actor.Role == models.RoleAdmin {
			note = strings.TrimSpace("[ADMIN OVERRIDE] " + note)
		}
		history := models.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: prev,
			ToStatus:   to,
			ChangedBy:  actor.UserID,
			Note:       note,
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}

		order.Status = to
		if to == models.StatusDelivered {
			order.PaymentStatus = models.PaymentPaid
		}
		if order.Customer != nil {
			email := order.Customer.Email
			u.AfterCommit("status email", func(ctx context.Context) error {
				return s.notifier.OrderStatusChanged(ctx, email, &order)
			})
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return &order, prev, nil
}

func (s *OrderService) authorize(tx *gorm.DB, order *models.Order, to models.OrderStatus, actor Actor) error {
	var machineActor string
	switch actor.Role {
	case models.RoleAdmin:
		if !to.Valid() || to == order.Status {
			return &TransitionError{
				Current:   order.Status,
				Requested: to,
				Reason:    fmt.Sprintf("cannot force order from %s to %q", order.Status, to),
			}
		}
		return nil
	case models.RoleRestaurant:
		var restaurant models.Restaurant
		err := tx.Select("id").Where("owner_id = ?", actor.UserID).First(&restaurant).Error
		if err != nil || restaurant.ID != order.RestaurantID {
			return ErrNotOwner
		}
		machineActor = statemachine.ActorRestaurant
	case models.RoleCustomer:
		if order.CustomerID != actor.UserID {
			return ErrNotOwner
		}
		machineActor = statemachine.ActorCustomer
	default:
		return ErrNotOwner
	}

	if err := statemachine.CanTransition(order.Status, to, machineActor); err != nil {
		return &TransitionError{Current: order.Status, Requested: to, Reason: err.Error()}
	}
	return nil
}

// Cancel cancels a customer's own pending order.
func (s *OrderService) Cancel(ctx context.Context, orderID, customerID uint, reason string) (*models.Order, error) {
	note := "Cancelled by customer"
	if reason != "" {
		note += ": " + reason
	}
	order, _, err := s.UpdateStatus(ctx, orderID, models.StatusCancelled, Actor{UserID: customerID, Role: models.RoleCustomer}, note)
	return order, err
}
