// Package validate wraps the struct validator shared by request types and the
// settings loader, translating failures into field-level domain errors.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/alexanderramin/marketshift/internal/domain"
)

// Validate is the shared validator with the custom tags registered.
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	_ = v.RegisterValidation("timeofday", validateTimeOfDay)
	_ = v.RegisterValidation("tasktype", validateTaskType)
	_ = v.RegisterValidation("money", validateMoney)
	_ = v.RegisterValidation("date", validateDate)
	return v
}

// Struct validates s and returns the first failure as a domain validation
// error naming the offending field.
func Struct(s any) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.Validation("", err.Error())
	}
	fe := verrs[0]
	field := namespaceField(fe.Namespace())
	return domain.Validation(field, message(field, fe))
}

// fieldName reports yaml, then json, then the Go field name.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"yaml", "json"} {
		name := strings.Split(f.Tag.Get(tag), ",")[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// namespaceField drops the root struct name from a validator namespace.
func namespaceField(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "timeofday":
		return fmt.Sprintf("%s must be a time of day HH:MM", field)
	case "tasktype":
		return fmt.Sprintf("%s is not a known task type", field)
	case "money":
		return fmt.Sprintf("%s must be a positive amount with at most 2 decimal places", field)
	case "date":
		return fmt.Sprintf("%s must be a date YYYY-MM-DD", field)
	case "timezone":
		return fmt.Sprintf("%s must be an IANA timezone name", field)
	case "json":
		return fmt.Sprintf("%s must be valid JSON", field)
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

func validateTimeOfDay(fl validator.FieldLevel) bool {
	_, err := domain.ParseTimeOfDay(fl.Field().String())
	return err == nil
}

func validateTaskType(fl validator.FieldLevel) bool {
	_, err := domain.ParseTaskType(fl.Field().String())
	return err == nil
}

func validateDate(fl validator.FieldLevel) bool {
	_, err := domain.ParseDate(fl.Field().String())
	return err == nil
}

func validateMoney(fl validator.FieldLevel) bool {
	_, err := ParseMoney(fl.Field().String())
	return err == nil
}

// ParseMoney parses a positive amount with at most two fractional digits.
func ParseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, domain.Validation("amount", fmt.Sprintf("amount %q is not a number", s))
	}
	if !d.IsPositive() {
		return decimal.Zero, domain.Validation("amount", "amount must be greater than zero")
	}
	if !d.Equal(d.Round(2)) {
		return decimal.Zero, domain.Validation("amount", "amount must have at most 2 decimal places")
	}
	return d, nil
}
