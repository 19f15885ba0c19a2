package dto

import (
	"html"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var safeStringRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.@]+$`)

// Amounts are stored as NUMERIC(38,18).
const (
	maxAmountScale         = 18
	maxAmountIntegerDigits = 20
)

var amountCeiling = decimal.New(1, maxAmountIntegerDigits)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_id", validateSafeID)
		_ = v.RegisterValidation("decimal_positive", validateDecimalPositive)
	}
}

// validateSafeID allows alphanumeric, underscore, dash, dot and @.
func validateSafeID(fl validator.FieldLevel) bool {
	return safeStringRe.MatchString(fl.Field().String())
}

// validateDecimalPositive accepts a decimal string greater than zero that
// fits the storage column.
func validateDecimalPositive(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
	if err != nil {
		return false
	}
	return d.IsPositive() &&
		d.LessThan(amountCeiling) &&
		d.Equal(d.Truncate(maxAmountScale))
}

// ParseDecimal parses a validated decimal string.
func ParseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}

// ParseOptionalDecimal parses s when set.
func ParseOptionalDecimal(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := ParseDecimal(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// SanitizeStruct trims whitespace and HTML-escapes every exported string
// field (including *string) of a struct pointer.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(sanitize(f.String()))
		case reflect.Ptr:
			if f.IsNil() {
				continue
			}
			elem := f.Elem()
			if elem.Kind() == reflect.String {
				elem.SetString(sanitize(elem.String()))
			}
		}
	}
}

func sanitize(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}
