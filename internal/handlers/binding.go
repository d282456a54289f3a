package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/upahan/upahan-api/internal/billing"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

var registerOnce sync.Once

// RegisterValidators adds the custom binding rules. "notpast" accepts a YYYY-MM-DD
// string or a time.Time that is not before today in loc.
func RegisterValidators(loc *time.Location, now func() time.Time) {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("notpast", func(fl validator.FieldLevel) bool {
			var day time.Time
			switch val := fl.Field().Interface().(type) {
			case string:
				if val == "" {
					return true
				}
				parsed, err := time.Parse(DateLayout, val)
				if err != nil {
					return false
				}
				day = parsed
			case time.Time:
				if val.IsZero() {
					return true
				}
				day = billing.CalendarDay(val, time.UTC)
			default:
				return false
			}
			return !day.Before(billing.CalendarDay(now(), loc))
		})
	})
}

// BindNestedOrFlat attempts to bind the request body to obj and validates it.
// It first checks if the body contains a nested object with the given key (e.g. {"bill": {...}}).
// If so, it binds that nested object to obj.
// If not, or if the key is missing, it attempts to bind the entire body to obj (e.g. {...}).
func BindNestedOrFlat(c *gin.Context, key string, obj interface{}) error {
	var bodyBytes []byte
	if c.Request.Body != nil {
		bodyBytes, _ = io.ReadAll(c.Request.Body)
	}
	// Restore body for future binding or subsequent reads
	c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	if err := unmarshalNestedOrFlat(bodyBytes, key, obj); err != nil {
		return err
	}
	return binding.Validator.ValidateStruct(obj)
}

func unmarshalNestedOrFlat(body []byte, key string, obj interface{}) error {
	var nestedMap map[string]json.RawMessage
	if err := json.Unmarshal(body, &nestedMap); err == nil {
		if val, ok := nestedMap[key]; ok {
			return json.Unmarshal(val, obj)
		}
	}
	return json.Unmarshal(body, obj)
}

// parseDate reads an optional YYYY-MM-DD value. Empty gives the zero time.
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(DateLayout, value)
}
