// Package validate holds the input checks applied at the HTTP boundary.
//
// Email, Phone and Price are pure shape checks. Check and Struct run them
// declaratively through go-playground/validator `validate` struct tags. On
// top of the library's own rules (required, omitempty, min, max, oneof,
// eqfield, ...) these tags are registered:
//
//	notblank   non-empty after trimming whitespace
//	email      Email shape (replaces the library's RFC check)
//	phone      Phone shape (10 ASCII digits)
//	price      Price: a finite, non-negative decimal
//
// Field names in failures are the json names.
//
//	type cropRequest struct {
//	    Crop string `json:"crop" validate:"max=100"`
//	}
package validate

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	emailRE = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phoneRE = regexp.MustCompile(`^[0-9]{10}$`)

	engine = newEngine()
)

// Email reports whether s looks like local@domain.tld with no whitespace or
// line breaks anywhere. Shape only.
func Email(s string) bool { return emailRE.MatchString(s) }

// Phone reports whether s is exactly ten decimal digits with no separators.
func Phone(s string) bool { return phoneRE.MatchString(s) }

// Price parses a finite, non-negative decimal.
func Price(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func newEngine() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})

	stringRule := func(check func(string) bool) validator.Func {
		return func(fl validator.FieldLevel) bool { return check(fl.Field().String()) }
	}
	for tag, fn := range map[string]validator.Func{
		"notblank": stringRule(func(s string) bool { return strings.TrimSpace(s) != "" }),
		"email":    stringRule(Email),
		"phone":    stringRule(Phone),
		"price": stringRule(func(s string) bool {
			_, ok := Price(s)
			return ok
		}),
	} {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("validate: register %q: %v", tag, err))
		}
	}
	return v
}

// Failure is one field that broke one rule.
type Failure struct {
	Field string
	Rule  string
	Param string
}

// Check runs the `validate` tags on the struct v and returns the failures in
// field order, at most one per field. A non-struct v has no failures.
func Check(v interface{}) []Failure {
	err := engine.Struct(v)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return nil
	}

	out := make([]Failure, 0, len(fields))
	for _, fe := range fields {
		out = append(out, Failure{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
	}
	return out
}

// Struct is Check rendered as json-field-name → message.
func Struct(v interface{}) map[string]string {
	errs := make(map[string]string)
	for _, f := range Check(v) {
		errs[f.Field] = message(f)
	}
	return errs
}

// HasErrors reports whether errs is non-empty.
func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

func message(f Failure) string {
	switch f.Rule {
	case "required", "notblank":
		return fmt.Sprintf("The %s field is required.", f.Field)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", f.Field)
	case "phone":
		return fmt.Sprintf("The %s must be a 10-digit number.", f.Field)
	case "price":
		return fmt.Sprintf("The %s must be a non-negative number.", f.Field)
	case "min":
		return fmt.Sprintf("The %s must be at least %s characters.", f.Field, f.Param)
	case "max":
		return fmt.Sprintf("The %s must not exceed %s characters.", f.Field, f.Param)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", f.Field)
	case "eqfield":
		return fmt.Sprintf("The %s confirmation does not match.", strings.ToLower(f.Param))
	}
	return fmt.Sprintf("The %s field is invalid.", f.Field)
}
