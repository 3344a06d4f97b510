package services_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"nust-bites/availability"
	"nust-bites/checkout"
	"nust-bites/config"
	"nust-bites/delivery"
	"nust-bites/mailer"
	"nust-bites/mocks"
	"nust-bites/models"
	"nust-bites/sequence"
	"nust-bites/services"
)

func intp(v int) *int { return &v }

// outbox records every email the services send.
type outbox struct {
	mu       sync.Mutex
	subjects []string
	to       []string
}

func (o *outbox) sent() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.subjects...)
}

type env struct {
	db         *gorm.DB
	settings   *services.SettingsService
	orders     *services.OrderService
	mail       *outbox
	customer   models.User
	owner      models.User
	restaurant models.Restaurant
	zinger     models.MenuItem
	fries      models.MenuItem
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := config.OpenDatabase(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)

	e := &env{db: db, mail: &outbox{}}
	e.customer = models.User{Name: "Ali", Email: "ali@nust.edu.pk", PasswordHash: "x", Role: models.RoleCustomer}
	e.owner = models.User{Name: "Sana", Email: "sana@cdhaba.pk", PasswordHash: "x", Role: models.RoleRestaurant}
	require.NoError(t, db.Create(&e.customer).Error)
	require.NoError(t, db.Create(&e.owner).Error)

	e.restaurant = models.Restaurant{
		OwnerID: e.owner.ID, Name: "C-Dhaba", OrderCode: "CDB", Address: "Central Mall",
		Latitude: 33.6425, Longitude: 72.9930, IsVerified: true,
		OnlineStart: intp(540), OnlineEnd: intp(1260),
	}
	require.NoError(t, db.Create(&e.restaurant).Error)

	e.zinger = models.MenuItem{
		RestaurantID: e.restaurant.ID, Name: "Zinger", Price: 250, IsAvailable: true,
		Options: datatypes.JSONSlice[models.OptionGroup]{
			{Name: "Size", Required: true, Choices: []models.OptionChoice{{Name: "Regular"}, {Name: "Large", AdditionalPrice: 80}}},
		},
	}
	e.fries = models.MenuItem{RestaurantID: e.restaurant.ID, Name: "Fries", Price: 120, IsAvailable: true}
	require.NoError(t, db.Create(&e.zinger).Error)
	require.NoError(t, db.Create(&e.fries).Error)

	ctrl := gomock.NewController(t)
	m := mocks.NewMockMailer(ctrl)
	m.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, to, subject, _ string) error {
			e.mail.mu.Lock()
			defer e.mail.mu.Unlock()
			e.mail.to = append(e.mail.to, to)
			e.mail.subjects = append(e.mail.subjects, subject)
			return nil
		}).AnyTimes()

	e.settings = services.NewSettingsService(db)
	// No router: fees use the straight-line distance.
	quoter := delivery.NewQuoter(nil, e.settings)
	validator := checkout.NewValidator(checkout.NewGormCatalog(db), quoter, func() int { return 720 })
	e.orders = services.NewOrderService(db, validator, sequence.NewSQLAllocator(db), mailer.NewNotifier(m))
	return e
}

// cart is 2 large Zingers and fries delivered to a hostel 2.3 km away.
func (e *env) cart() services.PlaceOrderRequest {
	return services.PlaceOrderRequest{
		CartRequest: checkout.CartRequest{
			RestaurantID: e.restaurant.ID,
			Items: []checkout.CartItem{
				{MenuItemID: e.zinger.ID, Quantity: 2, Price: 330, SelectedOptions: []checkout.SelectedOption{{Group: "Size", Choice: "Large"}}},
				{MenuItemID: e.fries.ID, Quantity: 1, Price: 120},
			},
			Dropoff: checkout.Location{Latitude: 33.6632, Longitude: 72.9930, Address: "Rumi Hostel"},
		},
		Instructions: "Call at the gate",
	}
}

func (e *env) place(t *testing.T) *models.Order {
	t.Helper()
	order, err := e.orders.Place(context.Background(), &e.customer, e.cart())
	require.NoError(t, err)
	return order
}

func (e *env) setOverride(t *testing.T, o availability.Override) {
	t.Helper()
	require.NoError(t, e.db.Model(&e.restaurant).Update("force_status", o).Error)
}
