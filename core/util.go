package core

import (
	"math"
	"strings"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Round2 rounds f to two decimal places.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// ContainsInt64 reports whether id is in ids.
func ContainsInt64(ids []int64, id int64) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}

// CleanStringPtr cleans the string `s` points to, if any.
func CleanStringPtr(s *string, lower ...bool) *string {
	if s == nil {
		return nil
	}
	cleaned := CleanString(*s, lower...)
	return &cleaned
}

// NotBlank returns a ValidationError if `s` is set but blank.
func NotBlank(field string, s *string) error {
	if s != nil && strings.TrimSpace(*s) == "" {
		return NewValidationError(nil, FieldError{Field: field, Error: "this field cannot be blank"})
	}
	return nil
}
