// Package checkout re-validates a submitted cart against authoritative menu
// data. It is the single source of truth for what an order will cost: the
// cart preview and order placement both go through Validator.Validate.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"nust-bites/availability"
	"nust-bites/delivery"
	"nust-bites/models"
)

//go:generate mockgen -destination=../mocks/mock_quoter.go -package=mocks nust-bites/checkout FeeQuoter

var ErrRestaurantNotFound = errors.New("restaurant not found")

// Removal reasons reported to the client.
const (
	ReasonNotFound         = "item no longer exists"
	ReasonWrongRestaurant  = "item belongs to another restaurant"
	ReasonUnavailable      = "item is unavailable"
	ReasonOffline          = "item is not being served right now"
	ReasonRestaurantClosed = "restaurant is offline"
)

// Catalog looks up authoritative restaurant and menu data.
type Catalog interface {
	Restaurant(ctx context.Context, id uint) (*models.Restaurant, error)
	MenuItems(ctx context.Context, ids []uint) (map[uint]models.MenuItem, error)
}

// FeeQuoter prices delivery between two points.
type FeeQuoter interface {
	Quote(ctx context.Context, pickup, dropoff delivery.Point) (*delivery.FeeDetails, error)
}

type SelectedOption struct {
	Group  string `json:"group" binding:"required"`
	Choice string `json:"choice" binding:"required"`
}

// CartItem is one submitted line. Price is what the client displayed and is
// only used to flag changes; it is never charged.
type CartItem struct {
	MenuItemID      uint             `json:"menu_item_id" binding:"required"`
	Quantity        int              `json:"quantity" binding:"required,min=1,max=50"`
	Price           float64          `json:"price"`
	SelectedOptions []SelectedOption `json:"selected_options" binding:"omitempty,dive"`
}

type Location struct {
	Latitude  float64 `json:"latitude" binding:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" binding:"gte=-180,lte=180"`
	Address   string  `json:"address" binding:"required"`
}

// Point converts the location for distance calculations.
func (l Location) Point() delivery.Point {
	return delivery.Point{Lat: l.Latitude, Lng: l.Longitude}
}

type CartRequest struct {
	RestaurantID uint       `json:"restaurant_id" binding:"required"`
	Items        []CartItem `json:"items" binding:"required,min=1,dive"`
	Dropoff      Location   `json:"dropoff"`
}

// VerifiedItem is a cart line priced from authoritative data.
type VerifiedItem struct {
	MenuItemID      uint                    `json:"menu_item_id"`
	Name            string                  `json:"name"`
	BasePrice       float64                 `json:"base_price"`
	UnitPrice       float64                 `json:"unit_price"`
	Quantity        int                     `json:"quantity"`
	LineTotal       float64                 `json:"line_total"`
	SelectedOptions []models.SelectedOption `json:"selected_options"`
	PriceChanged    bool                    `json:"price_changed"`
	ClientPrice     float64                 `json:"client_price,omitempty"`
}

type RemovedItem struct {
	MenuItemID uint   `json:"menu_item_id"`
	Name       string `json:"name,omitempty"`
	Reason     string `json:"reason"`
}

type Result struct {
	Success       bool                 `json:"success"`
	Message       string               `json:"message"`
	VerifiedItems []VerifiedItem       `json:"verified_items"`
	RemovedItems  []RemovedItem        `json:"removed_items"`
	Fee           *delivery.FeeDetails `json:"delivery_fee_details,omitempty"`
	OrderAmount   float64              `json:"order_amount"`
	TotalAmount   float64              `json:"total_amount"`

	Restaurant *models.Restaurant `json:"-"`
}

// PriceChanged reports whether any verified line differs from what the
// client displayed.
func (r *Result) PriceChanged() bool {
	for _, item := range r.VerifiedItems {
		if item.PriceChanged {
			return true
		}
	}
	return false
}

type Validator struct {
	catalog Catalog
	quoter  FeeQuoter
	now     func() int
}

// NewValidator builds a validator. now returns the current minute-of-day and
// is read once per validation.
func NewValidator(catalog Catalog, quoter FeeQuoter, now func() int) *Validator {
	return &Validator{catalog: catalog, quoter: quoter, now: now}
}

// Validate prices req against current menu data. A restaurant that does not
// exist is an error; every other problem is reported in the Result.
// delivery.ErrRouteUnavailable is returned when no delivery fee can be
// computed for the drop-off.
func (v *Validator) Validate(ctx context.Context, req CartRequest) (*Result, error) {
	now := v.now()

	restaurant, err := v.catalog.Restaurant(ctx, req.RestaurantID)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Restaurant:    restaurant,
		VerifiedItems: []VerifiedItem{},
		RemovedItems:  []RemovedItem{},
	}

	ra := restaurant.Availability()
	if !availability.RestaurantOnline(ra, now) {
		for _, line := range req.Items {
			res.RemovedItems = append(res.RemovedItems, RemovedItem{MenuItemID: line.MenuItemID, Reason: ReasonRestaurantClosed})
		}
		res.Message = fmt.Sprintf("%s is not accepting orders right now", restaurant.Name)
		return res, nil
	}

	ids := make([]uint, 0, len(req.Items))
	for _, line := range req.Items {
		ids = append(ids, line.MenuItemID)
	}
	items, err := v.catalog.MenuItems(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load menu items: %w", err)
	}

	orderAmount := decimal.Zero
	for _, line := range req.Items {
		item, ok := items[line.MenuItemID]
		if !ok {
			res.RemovedItems = append(res.RemovedItems, RemovedItem{MenuItemID: line.MenuItemID, Reason: ReasonNotFound})
			continue
		}
		removed := func(reason string) {
			res.RemovedItems = append(res.RemovedItems, RemovedItem{MenuItemID: item.ID, Name: item.Name, Reason: reason})
		}
		switch {
		case item.RestaurantID != restaurant.ID:
			removed(ReasonWrongRestaurant)
			continue
		case !item.IsAvailable:
			removed(ReasonUnavailable)
			continue
		case !availability.ItemOnline(item.Availability(), ra, now):
			removed(ReasonOffline)
			continue
		}

		unit, selected, reason := priceLine(item, line.SelectedOptions)
		if reason != "" {
			removed(reason)
			continue
		}
		lineTotal := unit.Mul(decimal.NewFromInt(int64(line.Quantity)))
		orderAmount = orderAmount.Add(lineTotal)

		vi := VerifiedItem{
			MenuItemID:      item.ID,
			Name:            item.Name,
			BasePrice:       item.Price,
			UnitPrice:       unit.InexactFloat64(),
			Quantity:        line.Quantity,
			LineTotal:       lineTotal.InexactFloat64(),
			SelectedOptions: selected,
		}
		if line.Price > 0 && !decimal.NewFromFloat(line.Price).Equal(unit) {
			vi.PriceChanged = true
			vi.ClientPrice = line.Price
		}
		res.VerifiedItems = append(res.VerifiedItems, vi)
	}

	if len(res.VerifiedItems) == 0 {
		res.Message = "None of the items in your cart can be ordered right now"
		return res, nil
	}

	pickup := delivery.Point{Lat: restaurant.Latitude, Lng: restaurant.Longitude}
	fee, err := v.quoter.Quote(ctx, pickup, req.Dropoff.Point())
	if err != nil {
		return nil, err
	}

	res.Success = true
	res.Fee = fee
	res.OrderAmount = orderAmount.InexactFloat64()
	res.TotalAmount = orderAmount.Add(decimal.NewFromFloat(fee.DeliveryFee)).InexactFloat64()
	switch {
	case len(res.RemovedItems) > 0:
		res.Message = "Some items in your cart are no longer available"
	case res.PriceChanged():
		res.Message = "Prices in your cart were updated"
	default:
		res.Message = "Cart verified"
	}
	return res, nil
}

// priceLine validates the selected options of one line against item and
// returns the unit price. A non-empty reason means the line must be removed.
func priceLine(item models.MenuItem, selections []SelectedOption) (decimal.Decimal, []models.SelectedOption, string) {
	unit := decimal.NewFromFloat(item.Price)
	groups := make(map[string]models.OptionGroup, len(item.Options))
	for _, g := range item.Options {
		groups[g.Name] = g
	}

	picked := make(map[string]bool, len(selections))
	selected := make([]models.SelectedOption, 0, len(selections))
	for _, sel := range selections {
		group, ok := groups[sel.Group]
		if !ok {
			return decimal.Zero, nil, fmt.Sprintf("invalid option %q", sel.Group)
		}
		if picked[sel.Group] {
			return decimal.Zero, nil, fmt.Sprintf("option %q selected more than once", sel.Group)
		}
		choice, ok := group.Choice(sel.Choice)
		if !ok {
			return decimal.Zero, nil, fmt.Sprintf("invalid choice %q for option %q", sel.Choice, sel.Group)
		}
		picked[sel.Group] = true
		unit = unit.Add(decimal.NewFromFloat(choice.AdditionalPrice))
		selected = append(selected, models.SelectedOption{
			Group:           group.Name,
			Choice:          choice.Name,
			AdditionalPrice: choice.AdditionalPrice,
		})
	}

	for _, g := range item.Options {
		if g.Required && !picked[g.Name] {
			return decimal.Zero, nil, fmt.Sprintf("missing required option %q", g.Name)
		}
	}
	return unit, selected, ""
}
