package delivery

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"nust-bites/logger"
)

var errNoRouter = errors.New("no routing service configured")

// Default fee parameters, used until an admin configures their own.
const (
	DefaultBaseFee   = 75.0
	DefaultPerKmRate = 25.0
)

// Distance sources reported in FeeDetails.
const (
	SourceRoute    = "route"
	SourceStraight = "straight_line"
)

// FeeSettings are the admin-configured fee parameters.
type FeeSettings struct {
	BaseFee   float64
	PerKmRate float64
}

// SettingsSource loads the current fee parameters.
type SettingsSource interface {
	FeeSettings(ctx context.Context) (FeeSettings, error)
}

// FeeDetails is the delivery charge breakdown returned to clients.
type FeeDetails struct {
	DistanceKm  float64 `json:"distance_km"`
	DeliveryFee float64 `json:"delivery_fee"`
	BaseFee     float64 `json:"base_fee"`
	PerKmRate   float64 `json:"per_km_rate"`
	Source      string  `json:"distance_source"`
}

// Fee computes baseFee + perKmRate*distanceKm, rounded to two decimals.
func Fee(baseFee, perKmRate, distanceKm float64) float64 {
	f, _ := decimal.NewFromFloat(baseFee).
		Add(decimal.NewFromFloat(perKmRate).Mul(decimal.NewFromFloat(distanceKm))).
		Round(2).
		Float64()
	return f
}

// Quoter prices a delivery between two points.
type Quoter struct {
	router   Router
	settings SettingsSource
}

func NewQuoter(router Router, settings SettingsSource) *Quoter {
	return &Quoter{router: router, settings: settings}
}

// Quote returns the distance and fee from pickup to dropoff. The routed
// driving distance is preferred; any routing failure falls back to the
// haversine distance. Invalid coordinates yield ErrRouteUnavailable.
func (q *Quoter) Quote(ctx context.Context, pickup, dropoff Point) (*FeeDetails, error) {
	if !pickup.Valid() || !dropoff.Valid() {
		return nil, ErrRouteUnavailable
	}

	var (
		settings FeeSettings
		meters   float64
		routeErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		settings, err = q.settings.FeeSettings(gctx)
		return err
	})
	g.Go(func() error {
		if q.router == nil {
			routeErr = errNoRouter
			return nil
		}
		meters, routeErr = q.router.DrivingDistance(gctx, pickup, dropoff)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	details := &FeeDetails{
		BaseFee:   settings.BaseFee,
		PerKmRate: settings.PerKmRate,
		Source:    SourceRoute,
	}
	if routeErr == nil {
		details.DistanceKm = MetersToKm(meters)
	} else {
		logger.WithContext(ctx).WithError(routeErr).Warn("routing service unavailable, using straight-line distance")
		details.DistanceKm = round(HaversineKm(pickup, dropoff), 1)
		details.Source = SourceStraight
	}
	details.DeliveryFee = Fee(settings.BaseFee, settings.PerKmRate, details.DistanceKm)
	return details, nil
}
