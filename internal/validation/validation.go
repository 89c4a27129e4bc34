// Package validation holds the process-wide validator instance. The
// validator caches struct metadata, so one instance is shared by the API
// layer and the services.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// Get returns the shared validator. Field errors report the `form` tag name,
// else the `json` tag name, else the Go field name.
func Get() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if name := fld.Tag.Get("form"); name != "" {
				return name
			}
			if name, _, _ := strings.Cut(fld.Tag.Get("json"), ","); name != "" && name != "-" {
				return name
			}
			return fld.Name
		})
	})
	return validate
}

// Describe renders field errors as "field 'ip' failed on the 'required' tag",
// joined by "; ". ok is false when err is not a validator.ValidationErrors.
func Describe(err error) (msg string, ok bool) {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return "", false
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("field '%s' failed on the '%s' tag", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; "), true
}
