// Package availability derives whether restaurants and menu items are
// accepting orders. Every function is pure: the current minute-of-day is an
// argument, never read from the wall clock.
package availability

// Override forces a restaurant online or offline regardless of its window.
type Override string

const (
	OverrideNone    Override = ""
	OverrideOnline  Override = "online"
	OverrideOffline Override = "offline"
)

// Valid reports whether o is one of the known override values.
func (o Override) Valid() bool {
	switch o {
	case OverrideNone, OverrideOnline, OverrideOffline:
		return true
	}
	return false
}

// Window is a daily online period in minutes since midnight. End is exclusive.
// A window with Start > End wraps past midnight.
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// NewWindow builds a window from nullable bounds; it returns nil unless both
// bounds are set.
func NewWindow(start, end *int) *Window {
	if start == nil || end == nil {
		return nil
	}
	return &Window{Start: *start, End: *end}
}

// Wraps reports whether the window crosses midnight.
func (w Window) Wraps() bool { return w.Start > w.End }

// Contains reports whether now falls inside the window. Start == End is
// evaluated as a non-wrapping empty window and never contains anything.
func (w Window) Contains(now int) bool {
	if w.Wraps() {
		return now >= w.Start || now < w.End
	}
	return now >= w.Start && now < w.End
}

// Restaurant is the subset of restaurant state the evaluator needs.
type Restaurant struct {
	Verified bool
	Override Override
	Window   *Window
}

// Item is the subset of menu-item state the evaluator needs. UseOwnWindow is
// the item-level override: when false the item follows its restaurant.
type Item struct {
	Available    bool
	UseOwnWindow bool
	Window       *Window
}

// RestaurantOnline reports whether r accepts orders at minute now.
// Unverified restaurants are always offline, even when forced online.
func RestaurantOnline(r Restaurant, now int) bool {
	if !r.Verified {
		return false
	}
	switch r.Override {
	case OverrideOnline:
		return true
	case OverrideOffline:
		return false
	}
	if r.Window == nil {
		return false
	}
	return r.Window.Contains(now)
}

// ItemOnline reports whether item can be ordered from r at minute now.
func ItemOnline(item Item, r Restaurant, now int) bool {
	if !item.Available {
		return false
	}
	if !RestaurantOnline(r, now) {
		return false
	}
	if !item.UseOwnWindow || item.Window == nil {
		return true
	}
	return item.Window.Contains(now)
}
