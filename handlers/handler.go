package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"nust-bites/cache"
	"nust-bites/logger"
	"nust-bites/models"
	"nust-bites/services"
	"nust-bites/storage"
	"nust-bites/timeutil"
)

// Handler serves every endpoint that needs more than the database.
type Handler struct {
	db          *gorm.DB
	clock       *timeutil.Clock
	cache       *cache.Cache
	orders      *services.OrderService
	restaurants *services.RestaurantService
	settings    *services.SettingsService
}

type Deps struct {
	DB          *gorm.DB
	Clock       *timeutil.Clock
	Cache       *cache.Cache
	Orders      *services.OrderService
	Restaurants *services.RestaurantService
	Settings    *services.SettingsService
}

func New(d Deps) *Handler {
	return &Handler{
		db:          d.DB,
		clock:       d.Clock,
		cache:       d.Cache,
		orders:      d.Orders,
		restaurants: d.Restaurants,
		settings:    d.Settings,
	}
}

// bindError reports a request that failed binding, with per-field detail
// when the validator produced it.
func bindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			msg := fe.Tag()
			if fe.Param() != "" {
				msg += "=" + fe.Param()
			}
			fields[fe.Field()] = msg
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "fields": fields})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// serverError logs err and answers with a generic message.
func serverError(c *gin.Context, err error, msg string) {
	logger.WithContext(c.Request.Context()).WithError(err).Error(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid %s", name)})
		return 0, false
	}
	return uint(id), true
}

func isMultipart(c *gin.Context) bool {
	return c.ContentType() == binding.MIMEMultipartPOSTForm
}

// optionalFile returns the uploaded file in field, or nil when the request
// has none.
func optionalFile(c *gin.Context, field string) (*multipart.FileHeader, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	file, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	return file, err
}

// formOptions decodes the JSON "options" field of a multipart request.
// Options are left untouched when the field is absent.
func formOptions(c *gin.Context, dst *[]models.OptionGroup) error {
	if !isMultipart(c) {
		return nil
	}
	raw, ok := c.GetPostForm("options")
	if !ok {
		return nil
	}
	var groups []models.OptionGroup
	if err := json.Unmarshal([]byte(raw), &groups); err != nil {
		return fmt.Errorf("options: %w", err)
	}
	if err := binding.Validator.ValidateStruct(groups); err != nil {
		return err
	}
	if groups == nil {
		groups = []models.OptionGroup{}
	}
	*dst = groups
	return nil
}

// restaurantError maps restaurant and menu write failures to responses.
func restaurantError(c *gin.Context, err error) {
	switch {
	case services.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, services.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "This item does not belong to your restaurant"})
	case errors.Is(err, services.ErrAlreadyHasRestaurant), errors.Is(err, services.ErrOrderCodeTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidWindow), errors.Is(err, services.ErrInvalidOptions):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrUnsupportedType):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
	default:
		serverError(c, err, "Failed to save changes")
	}
}
