package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"aquora-api/internal/core/domain"

	"github.com/go-playground/validator/v10"
)

var mobilePattern = regexp.MustCompile(`^94\d{9}$`)

var (
	Validator = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()

	// report json field names instead of Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return mobilePattern.MatchString(fl.Field().String())
	})

	// maxbytes bounds the UTF-8 length where max only counts runes
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})

	return v
}

// IsMobileNumber reports whether s is a country-code-prefixed mobile number (94XXXXXXXXX)
func IsMobileNumber(s string) bool {
	return mobilePattern.MatchString(s)
}

// ValidateStruct validates s and converts failures into a domain validation
// error whose details map each field to the rule it broke.
func ValidateStruct(s interface{}) error {
	err := Validator.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.NewValidation("Invalid request body", nil)
	}

	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		details[fe.Field()] = rule
	}
	return domain.NewValidation("Invalid request body", details)
}
