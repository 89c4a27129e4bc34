package api

import (
	"fmt"

	app_errors "search-chat/backend/internal/errors"
	"search-chat/backend/internal/validation"
)

// validateRequest checks a given payload struct against the validation rules
// defined in its field tags. Failures come back as an
// app_errors.ValidationError whose message starts with "invalid request".
func validateRequest(payload interface{}) error {
	err := validation.Get().Struct(payload)
	if err == nil {
		return nil
	}

	msg, ok := validation.Describe(err)
	if !ok {
		return fmt.Errorf("%w: an unexpected error occurred during validation: %s", app_errors.ErrValidation, err.Error())
	}
	// Example output: "invalid request: field 'ip' failed on the 'required' tag"
	return app_errors.NewValidation("invalid request: " + msg)
}
