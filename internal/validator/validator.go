package validator

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once

	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// FieldError is one failed rule, keyed by the field's json name.
type FieldError struct {
	Field string
	Tag   string
}

func getInstance() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(jsonName)
		_ = validate.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = validate.RegisterValidation("vnphone", func(fl validator.FieldLevel) bool {
			return IsPhone(fl.Field().String())
		})
		_ = validate.RegisterValidation("simpleemail", func(fl validator.FieldLevel) bool {
			return IsEmail(fl.Field().String())
		})
	})
	return validate
}

// ValidateStruct runs the struct-tag rules on s.
func ValidateStruct(s any) error {
	return getInstance().Struct(s)
}

// Fields validates s and returns the first failing rule per field. A nil map
// means s is valid; a non-validation error is returned as is.
func Fields(s any) (map[string]FieldError, error) {
	err := ValidateStruct(s)
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}
	out := make(map[string]FieldError, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = FieldError{Field: fe.Field(), Tag: fe.Tag()}
	}
	return out, nil
}

// IsPhone accepts exactly ten digits once all whitespace is removed.
func IsPhone(s string) bool {
	return phonePattern.MatchString(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s))
}

func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}
