package handlers

import (
	"errors"
	"fmt"
	"strings"

	"questrya/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

const minPasswordLength = 8

// newValidator panics when a rule cannot be registered so a bad tag fails at startup.
func newValidator() *validator.Validate {
	v := validator.New()
	mustRegister(v, "notblank", validators.NotBlank)
	mustRegister(v, "email_address", func(fl validator.FieldLevel) bool {
		_, err := domain.NewEmail(fl.Field().String())
		return err == nil
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("failed to register validation %q: %v", tag, err))
	}
}

// validate runs struct validation and turns the first failure into a user-facing message.
func validate(v *validator.Validate, req any) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	e := verrs[0]
	switch {
	case e.Tag() == "email_address":
		return fmt.Errorf("Invalid email address: %v", e.Value())
	case e.Field() == "Username":
		return errors.New("Username cannot be empty")
	case e.Field() == "Password":
		return fmt.Errorf("Password must be at least %d characters long", minPasswordLength)
	default:
		return fmt.Errorf("%s failed on the '%s' rule", strings.ToLower(e.Field()), e.Tag())
	}
}
