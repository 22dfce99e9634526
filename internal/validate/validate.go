// Package validate holds the local form-validation predicates applied before
// any network or database round-trip. All functions are pure and total.
package validate

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

const minPasswordLength = 6

var (
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	// The canonical symbol set is the narrow one; the extras are accepted as
	// a superset, never required.
	passwordSymbols = "!@#$%^&*" + `()_-+={}[]:;"'<>?,./~`
)

// Email reports whether s looks like a deliverable address: a run of
// non-whitespace/non-@ characters, an @, another such run, a literal dot,
// then a further run.
func Email(s string) bool {
	return emailRegex.MatchString(s)
}

// Password reports whether s satisfies the password policy: at least 6
// characters, at least one uppercase ASCII letter and at least one symbol.
func Password(s string) bool {
	if len(s) < minPasswordLength {
		return false
	}
	if !strings.ContainsFunc(s, func(r rune) bool { return r >= 'A' && r <= 'Z' }) {
		return false
	}
	return strings.ContainsAny(s, passwordSymbols)
}

// PasswordsMatch reports whether both entries are exactly equal. No
// normalization: comparison is case-sensitive.
func PasswordsMatch(a, b string) bool {
	return a == b
}

// RegisterValidators registers the form rules as custom validator tags so
// request bindings can declare them alongside the built-in ones.
func RegisterValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("strongpwd", func(fl validator.FieldLevel) bool {
		return Password(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("formemail", func(fl validator.FieldLevel) bool {
		return Email(fl.Field().String())
	})
}
