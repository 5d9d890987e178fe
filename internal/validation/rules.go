// Package validation turns raw form input into typed records or field errors.
// Everything here is pure: no I/O, no clocks, no shared mutable state.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^\+\d{10,15}$`)

// Accepted date encodings, most specific first.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// validate is configured once at init and only read afterwards.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
	mustRegister(v, "date", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

// ValidPhone reports whether s is '+' followed by 10 to 15 digits.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// ParseDate coerces a date or date-time string into UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Messages that do not follow the generic "<Label> must be ..." pattern.
var fixedMessages = map[string]string{
	"email.email":                    "Invalid email address",
	"phone.phone":                    "Invalid phone number",
	"emergency_contact_number.phone": "Invalid phone number",
	"primary_physician.min":          "Select at least one doctor",
	"birth_date.required":            "Birth date is required",
	"birth_date.date":                "Invalid birth date",
	"schedule.required":              "Schedule is required",
	"schedule.date":                  "Invalid schedule date",
	"gender.oneof":                   "Gender must be male, female or other",
	"treatment_consent.eq":           "You must consent to treatment in order to proceed",
	"disclosure_consent.eq":          "You must consent to disclosure in order to proceed",
	"privacy_consent.eq":             "You must consent to privacy in order to proceed",
	"user_id.required":               "User reference is required",
}

var fieldLabels = map[string]string{
	"name":                    "Name",
	"address":                 "Address",
	"occupation":              "Occupation",
	"emergency_contact_name":  "Contact name",
	"insurance_provider":      "Insurance name",
	"insurance_policy_number": "Policy number",
	"reason":                  "Reason",
	"cancellation_reason":     "Reason",
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	if msg, ok := fixedMessages[field+"."+fe.Tag()]; ok {
		return msg
	}
	label, ok := fieldLabels[field]
	if !ok {
		label = field
	}
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "required":
		return label + " is required"
	default:
		return label + " is invalid"
	}
}

// check runs the validator over s and converts failures into *Error.
func check(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validation: %w", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = message(fe)
		}
	}
	return &Error{Fields: fields}
}
