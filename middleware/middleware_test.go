package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nust-bites/config"
	"nust-bites/models"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/x", append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": GetUserID(c), "role": GetRole(c)})
	})...)
	return r
}

func get(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTokenRoundTrip(t *testing.T) {
	config.JWTSecret = []byte("test-secret")
	token, err := GenerateToken(&models.User{ID: 7, Email: "ali@nust.edu.pk", Role: models.RoleCustomer})
	require.NoError(t, err)

	w := get(newRouter(AuthRequired()), token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":7,"role":"customer"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestAuthRejectsBadTokens(t *testing.T) {
	config.JWTSecret = []byte("test-secret")
	r := newRouter(AuthRequired())

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "garbage").Code)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: 7,
		Role:   models.RoleCustomer,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString(config.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, signed).Code)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 7, Role: models.RoleAdmin}).
		SignedString([]byte("another-secret"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(r, forged).Code)
}

func TestRoleRequired(t *testing.T) {
	config.JWTSecret = []byte("test-secret")
	r := newRouter(AuthRequired(), RoleRequired(models.RoleRestaurant, models.RoleAdmin))

	customer, err := GenerateToken(&models.User{ID: 1, Role: models.RoleCustomer})
	require.NoError(t, err)
	owner, err := GenerateToken(&models.User{ID: 2, Role: models.RoleRestaurant})
	require.NoError(t, err)

	w := get(r, customer)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "restaurant, admin")
	assert.Equal(t, http.StatusOK, get(r, owner).Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

type windowRequest struct {
	Start *int   `json:"online_start" binding:"omitempty,minute_of_day"`
	Code  string `json:"order_code" binding:"required,order_code"`
	Force string `json:"force_status" binding:"omitempty,override"`
}

func TestCustomValidations(t *testing.T) {
	require.NoError(t, RegisterValidations())
	intp := func(v int) *int { return &v }

	cases := []struct {
		name string
		req  windowRequest
		ok   bool
	}{
		{"valid", windowRequest{Start: intp(0), Code: "KFC", Force: "online"}, true},
		{"last minute", windowRequest{Start: intp(1439), Code: "A1"}, true},
		{"minute overflow", windowRequest{Start: intp(1440), Code: "KFC"}, false},
		{"negative minute", windowRequest{Start: intp(-1), Code: "KFC"}, false},
		{"lowercase code", windowRequest{Code: "kfc"}, false},
		{"long code", windowRequest{Code: "ABCDEFG"}, false},
		{"bad override", windowRequest{Code: "KFC", Force: "maybe"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(&tc.req)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
