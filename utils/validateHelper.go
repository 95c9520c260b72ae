package utils

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the process-wide validator; it caches struct metadata so it is shared.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("decimal", func(fl validator.FieldLevel) bool {
			_, err := ParseDecimal(fl.Field().String())
			return err == nil
		})
	})
	return validate
}

// ValidateStruct runs `validate` tags on s.
func ValidateStruct(s any) error {
	return Validator().Struct(s)
}
