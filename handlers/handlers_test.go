package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nust-bites/cache"
	"nust-bites/checkout"
	"nust-bites/config"
	"nust-bites/delivery"
	"nust-bites/handlers"
	"nust-bites/mailer"
	"nust-bites/middleware"
	"nust-bites/routes"
	"nust-bites/sequence"
	"nust-bites/services"
	"nust-bites/storage"
	"nust-bites/timeutil"
)

type api struct {
	t      *testing.T
	router *gin.Engine
}

type response struct {
	Code int
	Body map[string]any
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, middleware.RegisterValidations())

	db, err := config.OpenDatabase(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	config.DB = db
	config.JWTSecret = []byte("test-secret")
	require.NoError(t, services.EnsureAdmin(context.Background(), db, "admin@nust.edu.pk", "admin-pass"))

	// 3460.4 m by road, whatever the points.
	osrm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"Ok","routes":[{"distance":3460.4}]}`)
	}))
	t.Cleanup(osrm.Close)

	images, err := storage.NewLocalStore(t.TempDir(), "/uploads", 1<<20)
	require.NoError(t, err)

	clock := timeutil.NewFixedClock(time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC))
	readCache := cache.New(64, time.Minute)
	settings := services.NewSettingsService(db)
	quoter := delivery.NewQuoter(delivery.NewOSRMClient(osrm.URL, time.Second), settings)
	validator := checkout.NewValidator(checkout.NewGormCatalog(db), quoter, clock.MinutesNow)

	h := handlers.New(handlers.Deps{
		DB:          db,
		Clock:       clock,
		Cache:       readCache,
		Orders:      services.NewOrderService(db, validator, sequence.NewSQLAllocator(db), mailer.NewNotifier(mailer.LogMailer{})),
		Restaurants: services.NewRestaurantService(db, images, readCache),
		Settings:    settings,
	})

	r := gin.New()
	r.Use(middleware.RequestLogger())
	routes.SetupRoutes(r, h, images.Dir())
	return &api{t: t, router: r}
}

func (a *api) send(req *http.Request, token string) response {
	a.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	res := response{Code: w.Code, Body: map[string]any{}}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &res.Body), w.Body.String())
	}
	return res
}

func (a *api) json(method, path, token string, body any) response {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return a.send(req, token)
}

func (a *api) multipart(method, path, token string, fields map[string]string, fileField, fileName string, content []byte) response {
	a.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(a.t, w.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, fileName)
		require.NoError(a.t, err)
		_, err = fw.Write(content)
		require.NoError(a.t, err)
	}
	require.NoError(a.t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return a.send(req, token)
}

func (a *api) register(name, email, role string) string {
	a.t.Helper()
	res := a.json(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": name, "email": email, "password": "secret123", "role": role,
	})
	require.Equal(a.t, http.StatusCreated, res.Code, res.Body)
	return res.Body["token"].(string)
}

func (a *api) login(email, password string) string {
	a.t.Helper()
	res := a.json(http.MethodPost, "/api/auth/login", "", map[string]any{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, res.Code, res.Body)
	return res.Body["token"].(string)
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func id(v any) uint { return uint(v.(float64)) }

// openRestaurant registers an owner with a verified C-Dhaba serving a Zinger
// and returns the owner token, restaurant id and item id.
func (a *api) openRestaurant() (string, uint, uint) {
	a.t.Helper()
	owner := a.register("Sana", "sana@cdhaba.pk", "restaurant")
	res := a.json(http.MethodPost, "/api/restaurant", owner, map[string]any{
		"name": "C-Dhaba", "order_code": "CDB", "address": "Central Mall",
		"latitude": 33.6425, "longitude": 72.9930, "online_start": 540, "online_end": 1260,
	})
	require.Equal(a.t, http.StatusCreated, res.Code, res.Body)
	restaurantID := id(res.Body["restaurant"].(map[string]any)["id"])

	admin := a.login("admin@nust.edu.pk", "admin-pass")
	res = a.json(http.MethodPut, fmt.Sprintf("/api/admin/restaurants/%d/verify", restaurantID), admin, map[string]any{"verified": true})
	require.Equal(a.t, http.StatusOK, res.Code, res.Body)

	res = a.multipart(http.MethodPost, "/api/restaurant/menu", owner, map[string]string{
		"name": "Zinger", "price": "250", "category": "Burgers",
		"options": `[{"name":"Size","required":true,"choices":[{"name":"Regular"},{"name":"Large","additional_price":80}]}]`,
	}, "image", "zinger.png", pngImage(a.t))
	require.Equal(a.t, http.StatusCreated, res.Code, res.Body)
	itemID := id(res.Body["item"].(map[string]any)["id"])
	return owner, restaurantID, itemID
}

func cart(restaurantID, itemID uint, price float64) map[string]any {
	return map[string]any{
		"restaurant_id": restaurantID,
		"items": []map[string]any{{
			"menu_item_id": itemID, "quantity": 2, "price": price,
			"selected_options": []map[string]string{{"group": "Size", "choice": "Large"}},
		}},
		"dropoff":              map[string]any{"latitude": 33.6632, "longitude": 72.9930, "address": "Rumi Hostel"},
		"special_instructions": "Call at the gate",
	}
}

func TestRegisterLoginProfile(t *testing.T) {
	a := newAPI(t)
	token := a.register("Ali", "Ali@NUST.edu.pk", "")

	res := a.json(http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	user := res.Body["user"].(map[string]any)
	assert.Equal(t, "ali@nust.edu.pk", user["email"])
	assert.Equal(t, "customer", user["role"])
	assert.NotContains(t, user, "password_hash")

	res = a.json(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Ali", "email": "ali@nust.edu.pk", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, res.Code)

	res = a.json(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "ali@nust.edu.pk", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestRegisterCannotClaimAdmin(t *testing.T) {
	a := newAPI(t)
	res := a.json(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Eve", "email": "eve@nust.edu.pk", "password": "secret123", "role": "admin",
	})
	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "oneof=customer restaurant", res.Body["fields"].(map[string]any)["role"])
}

func TestAuthAndRoleGuards(t *testing.T) {
	a := newAPI(t)
	customer := a.register("Ali", "ali@nust.edu.pk", "customer")

	assert.Equal(t, http.StatusUnauthorized, a.json(http.MethodGet, "/api/customer/orders", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, a.json(http.MethodGet, "/api/customer/orders", "not-a-jwt", nil).Code)
	assert.Equal(t, http.StatusForbidden, a.json(http.MethodGet, "/api/admin/users", customer, nil).Code)
	assert.Equal(t, http.StatusOK, a.json(http.MethodGet, "/api/customer/orders", customer, nil).Code)
}

func TestUnverifiedRestaurantIsHidden(t *testing.T) {
	a := newAPI(t)
	owner := a.register("Sana", "sana@cdhaba.pk", "restaurant")
	res := a.json(http.MethodPost, "/api/restaurant", owner, map[string]any{
		"name": "C-Dhaba", "order_code": "CDB", "address": "Central Mall", "force_status": "online",
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Body)
	restaurantID := id(res.Body["restaurant"].(map[string]any)["id"])

	res = a.json(http.MethodGet, "/api/restaurants", "", nil)
	assert.Equal(t, float64(0), res.Body["count"])
	res = a.json(http.MethodGet, fmt.Sprintf("/api/restaurants/%d/menu", restaurantID), "", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = a.json(http.MethodGet, "/api/restaurant", owner, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, false, res.Body["restaurant"].(map[string]any)["is_online"])
}

func TestRestaurantValidation(t *testing.T) {
	a := newAPI(t)
	owner := a.register("Sana", "sana@cdhaba.pk", "restaurant")

	res := a.json(http.MethodPost, "/api/restaurant", owner, map[string]any{
		"name": "C-Dhaba", "order_code": "cd-1", "address": "Central Mall",
		"online_start": 1500, "online_end": 60, "force_status": "sometimes",
	})
	require.Equal(t, http.StatusBadRequest, res.Code)
	fields := res.Body["fields"].(map[string]any)
	assert.Equal(t, "order_code", fields["order_code"])
	assert.Equal(t, "minute_of_day", fields["online_start"])
	assert.Equal(t, "override", fields["force_status"])
}

func TestPublicCatalogShowsOnlineStatus(t *testing.T) {
	a := newAPI(t)
	owner, restaurantID, itemID := a.openRestaurant()

	res := a.json(http.MethodGet, "/api/restaurants", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, float64(1), res.Body["count"])
	listed := res.Body["restaurants"].([]any)[0].(map[string]any)
	assert.Equal(t, true, listed["is_online"])
	assert.Equal(t, "09:00-21:00", listed["hours"])

	res = a.json(http.MethodGet, fmt.Sprintf("/api/restaurants/%d/menu", restaurantID), "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	item := res.Body["menu"].([]any)[0].(map[string]any)
	assert.Equal(t, true, item["is_online"])
	assert.NotContains(t, item, "hours", "items without their own window follow the restaurant")
	assert.True(t, strings.HasPrefix(item["image_url"].(string), "/uploads/"))

	// The cached listing is dropped when the owner goes offline.
	res = a.json(http.MethodPut, "/api/restaurant", owner, map[string]any{"force_status": "offline"})
	require.Equal(t, http.StatusOK, res.Code, res.Body)
	res = a.json(http.MethodGet, "/api/restaurants", "", nil)
	assert.Equal(t, false, res.Body["restaurants"].([]any)[0].(map[string]any)["is_online"])
	res = a.json(http.MethodGet, fmt.Sprintf("/api/restaurants/%d/menu", restaurantID), "", nil)
	assert.Equal(t, false, res.Body["menu"].([]any)[0].(map[string]any)["is_online"])

	res = a.json(http.MethodPut, fmt.Sprintf("/api/restaurant/menu/%d", itemID), owner, map[string]any{"price": 260})
	require.Equal(t, http.StatusOK, res.Code, res.Body)
	assert.Equal(t, 260.0, res.Body["item"].(map[string]any)["price"])
}

func TestCheckoutFlow(t *testing.T) {
	a := newAPI(t)
	owner, restaurantID, itemID := a.openRestaurant()
	customer := a.register("Ali", "ali@nust.edu.pk", "customer")

	res := a.json(http.MethodPost, "/api/customer/cart/verify", customer, cart(restaurantID, itemID, 330))
	require.Equal(t, http.StatusOK, res.Code, res.Body)
	assert.Equal(t, true, res.Body["success"])
	assert.Equal(t, 660.0, res.Body["order_amount"])
	assert.Equal(t, 822.5, res.Body["total_amount"])
	fee := res.Body["delivery_fee_details"].(map[string]any)
	assert.Equal(t, 3.5, fee["distance_km"])
	assert.Equal(t, "route", fee["distance_source"])

	// A stale client price is refused at placement.
	res = a.json(http.MethodPost, "/api/customer/orders", customer, cart(restaurantID, itemID, 300))
	require.Equal(t, http.StatusConflict, res.Code, res.Body)
	assert.NotNil(t, res.Body["cart"])

	res = a.json(http.MethodPost, "/api/customer/orders", customer, cart(restaurantID, itemID, 330))
	require.Equal(t, http.StatusCreated, res.Code, res.Body)
	order := res.Body["order"].(map[string]any)
	assert.Equal(t, "CDB-1", order["order_code"])
	assert.Equal(t, "PENDING", order["status"])
	assert.Equal(t, 822.5, order["total_amount"])
	orderID := id(order["id"])

	res = a.json(http.MethodPut, fmt.Sprintf("/api/restaurant/orders/%d/status", orderID), owner, map[string]any{"status": "CONFIRMED"})
	require.Equal(t, http.StatusOK, res.Code, res.Body)
	assert.Equal(t, "PENDING", res.Body["previous_status"])

	res = a.json(http.MethodPut, fmt.Sprintf("/api/customer/orders/%d/cancel", orderID), customer, nil)
	require.Equal(t, http.StatusUnprocessableEntity, res.Code, res.Body)
	assert.Equal(t, "CONFIRMED", res.Body["current_status"])

	res = a.json(http.MethodPut, fmt.Sprintf("/api/restaurant/orders/%d/status", orderID), owner, map[string]any{"status": "DELIVERED"})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)

	res = a.json(http.MethodGet, fmt.Sprintf("/api/customer/orders/%d", orderID), customer, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Len(t, res.Body["order"].(map[string]any)["status_history"], 2)

	admin := a.login("admin@nust.edu.pk", "admin-pass")
	res = a.json(http.MethodPut, fmt.Sprintf("/api/admin/orders/%d/status", orderID), admin, map[string]any{"status": "DELIVERED", "note": "paid at counter"})
	require.Equal(t, http.StatusOK, res.Code, res.Body)
	assert.Equal(t, "PAID", res.Body["payment_status"])
}

func TestCheckoutRejectsClosedRestaurant(t *testing.T) {
	a := newAPI(t)
	owner, restaurantID, itemID := a.openRestaurant()
	customer := a.register("Ali", "ali@nust.edu.pk", "customer")

	res := a.json(http.MethodPut, "/api/restaurant", owner, map[string]any{"force_status": "offline"})
	require.Equal(t, http.StatusOK, res.Code)

	res = a.json(http.MethodPost, "/api/customer/cart/verify", customer, cart(restaurantID, itemID, 330))
	require.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Equal(t, false, res.Body["success"])
	assert.Len(t, res.Body["removed_items"], 1)

	res = a.json(http.MethodPost, "/api/customer/orders", customer, cart(restaurantID, itemID, 330))
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
}

func TestCheckoutUnknownRestaurant(t *testing.T) {
	a := newAPI(t)
	customer := a.register("Ali", "ali@nust.edu.pk", "customer")

	res := a.json(http.MethodPost, "/api/customer/cart/verify", customer, cart(999, 1, 330))
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestAdminSettingsDriveFees(t *testing.T) {
	a := newAPI(t)
	_, restaurantID, itemID := a.openRestaurant()
	customer := a.register("Ali", "ali@nust.edu.pk", "customer")
	admin := a.login("admin@nust.edu.pk", "admin-pass")

	res := a.json(http.MethodPut, "/api/admin/settings", admin, map[string]any{"base_delivery_fee": 50, "theme_color": "#123abc"})
	require.Equal(t, http.StatusOK, res.Code, res.Body)

	res = a.json(http.MethodGet, "/api/settings/public", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "#123abc", res.Body["settings"].(map[string]any)["theme_color"])

	res = a.json(http.MethodPost, "/api/customer/cart/verify", customer, cart(restaurantID, itemID, 330))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 137.5, res.Body["delivery_fee_details"].(map[string]any)["delivery_fee"])

	res = a.json(http.MethodPut, "/api/admin/settings", admin, map[string]any{"theme_color": "teal"})
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestOwnerCannotTouchAnotherMenu(t *testing.T) {
	a := newAPI(t)
	_, _, itemID := a.openRestaurant()

	rival := a.register("Bilal", "bilal@retro.pk", "restaurant")
	res := a.json(http.MethodPost, "/api/restaurant", rival, map[string]any{"name": "Retro", "order_code": "RET", "address": "Gate 1"})
	require.Equal(t, http.StatusCreated, res.Code)

	res = a.json(http.MethodDelete, fmt.Sprintf("/api/restaurant/menu/%d", itemID), rival, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestAdminDeletesRestaurant(t *testing.T) {
	a := newAPI(t)
	_, restaurantID, _ := a.openRestaurant()
	admin := a.login("admin@nust.edu.pk", "admin-pass")

	res := a.json(http.MethodDelete, fmt.Sprintf("/api/admin/restaurants/%d", restaurantID), admin, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body)

	res = a.json(http.MethodGet, fmt.Sprintf("/api/restaurants/%d", restaurantID), "", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	res = a.json(http.MethodDelete, fmt.Sprintf("/api/admin/restaurants/%d", restaurantID), admin, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}
