package mailer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"nust-bites/mailer"
	"nust-bites/mocks"
	"nust-bites/models"
)

func sampleOrder() *models.Order {
	return &models.Order{
		OrderCode:      "CDB-7",
		RestaurantName: "C-Dhaba",
		Status:         models.StatusPending,
		DropoffAddress: "Hostel <Rumi>",
		DistanceKm:     2.3,
		DeliveryFee:    132.5,
		TotalAmount:    632.5,
		Items: []models.OrderItem{{
			Name: "Zinger", Quantity: 2, LineTotal: 500,
			SelectedOptions: []models.SelectedOption{{Group: "Size", Choice: "Large"}},
		}},
	}
}

func TestOrderPlacedRendersSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockMailer(ctrl)

	var body string
	m.EXPECT().
		Send(gomock.Any(), "ali@nust.edu.pk", "Order CDB-7 received", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, html string) error {
			body = html
			return nil
		})

	err := mailer.NewNotifier(m).OrderPlaced(context.Background(), "ali@nust.edu.pk", sampleOrder())
	require.NoError(t, err)
	assert.Contains(t, body, "2 × Zinger (Size: Large)")
	assert.Contains(t, body, "Rs. 632.50")
	assert.Contains(t, body, "Hostel &lt;Rumi&gt;", "addresses are escaped")
}

func TestOrderStatusChangedSubject(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockMailer(ctrl)
	m.EXPECT().Send(gomock.Any(), "ali@nust.edu.pk", "Order CDB-7 is DELIVERED", gomock.Any()).Return(nil)

	order := sampleOrder()
	order.Status = models.StatusDelivered
	assert.NoError(t, mailer.NewNotifier(m).OrderStatusChanged(context.Background(), "ali@nust.edu.pk", order))
}

func TestLogMailerNeverFails(t *testing.T) {
	assert.NoError(t, mailer.LogMailer{}.Send(context.Background(), "a@b.c", "s", "b"))
}
