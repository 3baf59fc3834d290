package validation

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	tagIraqiPhone     = "iq_phone"
	tagStrongPassword = "strong_password"

	passwordSpecials = "@$!%*?&"
)

var iraqiPhoneRegex = regexp.MustCompile(`^07[3-9]\d{8}$`)

func registerRules(v *validator.Validate) error {
	if err := v.RegisterValidation(tagIraqiPhone, isIraqiPhone); err != nil {
		return err
	}
	if err := v.RegisterValidation(tagStrongPassword, isStrongPassword); err != nil {
		return err
	}
	return nil
}

func isIraqiPhone(fl validator.FieldLevel) bool {
	return iraqiPhoneRegex.MatchString(fl.Field().String())
}

// isStrongPassword wants a lower, an upper, a digit and one of @$!%*?&.
func isStrongPassword(fl validator.FieldLevel) bool {
	var lower, upper, digit, special bool
	for _, r := range fl.Field().String() {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	return lower && upper && digit && special
}
