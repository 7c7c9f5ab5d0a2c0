package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/fscheck/pkg/harness"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// case_name accepts the name of a case in the battery
	_ = validate.RegisterValidation("case_name", func(fl validator.FieldLevel) bool {
		return slices.Contains(harness.CaseNames(), fl.Field().String())
	})
}

// Validate validates the configuration using struct tags and custom rules.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	h := cfg.Harness
	if h.MaxSize < h.MinSize {
		return fmt.Errorf("harness: max_size (%d) must not be smaller than min_size (%d)", h.MaxSize, h.MinSize)
	}
	if h.ReadBufferSize < 2 {
		return fmt.Errorf("harness: read_buffer_size must be at least 2, got %d", h.ReadBufferSize)
	}
	// read_byte_with_offset samples offsets in [0, size-2]
	if h.MinSize < 2 && !slices.Contains(h.Skip, harness.CaseReadByteWithOffset) {
		return fmt.Errorf("harness: min_size must be at least 2 unless %s is skipped", harness.CaseReadByteWithOffset)
	}

	return nil
}

// validateStruct validates a decoded backend configuration.
func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		// Return the first validation error with context
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
