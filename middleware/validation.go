package middleware

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"nust-bites/availability"
	"nust-bites/timeutil"
)

var orderCodePattern = regexp.MustCompile(`^[A-Z0-9]{2,6}$`)

// RegisterValidations adds the custom binding tags used by request structs
// and makes validation errors report JSON field names.
func RegisterValidations() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}
	v.RegisterTagNameFunc(jsonFieldName)
	for tag, fn := range map[string]validator.Func{
		"minute_of_day": validateMinuteOfDay,
		"order_code":    validateOrderCode,
		"override":      validateOverride,
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func validateMinuteOfDay(fl validator.FieldLevel) bool {
	m := fl.Field().Int()
	return m >= 0 && m < timeutil.MinutesPerDay
}

func validateOrderCode(fl validator.FieldLevel) bool {
	return orderCodePattern.MatchString(fl.Field().String())
}

func validateOverride(fl validator.FieldLevel) bool {
	return availability.Override(fl.Field().String()).Valid()
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	}
	return name
}
