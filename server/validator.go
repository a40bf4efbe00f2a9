package server

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// requestValidator plugs go-playground/validator into echo.
type requestValidator struct {
	validate *validator.Validate
}

func newValidator() *requestValidator {
	return &requestValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (v *requestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError reports the first failed field in a client-friendly form.
func formatValidationError(err error) error {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		e := errs[0]
		if e.Param() != "" {
			return fmt.Errorf("%s: failed on '%s=%s'", e.Field(), e.Tag(), e.Param())
		}
		return fmt.Errorf("%s: failed on '%s'", e.Field(), e.Tag())
	}
	return err
}
