// Package validator wraps go-playground/validator with the rules the admin API needs
// and reports failures by JSON field name.
package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// MaxCacheKeyLength bounds keys accepted by the cachekey rule.
const MaxCacheKeyLength = 512

var instance = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("cachekey", isCacheKey)
	v.RegisterTagNameFunc(jsonFieldName)
	return v
})

// ValidationError is a single failed rule.
type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param,omitempty"`
}

// ValidationErrors collects every failed rule of one validation call.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(v))
	for i, failure := range v {
		parts[i] = failure.Field + " failed on " + failure.Tag
		if failure.Param != "" {
			parts[i] += "=" + failure.Param
		}
	}
	return strings.Join(parts, "; ")
}

// ValidateStruct runs the validate tags of s.
func ValidateStruct(s any) error {
	return convert(instance().Struct(s), "")
}

// ValidateVar validates one value against a tag expression such as "required,cachekey",
// reporting failures under field.
func ValidateVar(field string, value any, tag string) error {
	return convert(instance().Var(value, tag), field)
}

func convert(err error, field string) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	failures := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		name := field
		if name == "" {
			name = fe.Field()
		}
		failures = append(failures, ValidationError{Field: name, Tag: fe.Tag(), Param: fe.Param()})
	}
	return failures
}

// isCacheKey accepts printable keys without whitespace up to MaxCacheKeyLength bytes.
func isCacheKey(fl validator.FieldLevel) bool {
	key := fl.Field().String()
	if key == "" || len(key) > MaxCacheKeyLength {
		return false
	}
	return strings.IndexFunc(key, func(r rune) bool {
		return unicode.IsSpace(r) || !unicode.IsPrint(r)
	}) < 0
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}
