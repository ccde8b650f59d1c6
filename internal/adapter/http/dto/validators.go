package dto

import (
	"html"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	totpCodeRe = regexp.MustCompile(`^[0-9]{6}$`)
	safeKeyRe  = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("totp_code", validateTOTPCode)
	}
}

// validateTOTPCode requires exactly six digits.
func validateTOTPCode(fl validator.FieldLevel) bool {
	return totpCodeRe.MatchString(fl.Field().String())
}

// ValidIdempotencyKey bounds the Idempotency-Key header: 1..100 chars of
// alphanumeric, underscore, dash, and dot. Header values bypass gin binding
// so this is checked by hand in the handler.
func ValidIdempotencyKey(key string) bool {
	return len(key) <= 100 && safeKeyRe.MatchString(key)
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
				s := sanitize(elem.String())
				elem.SetString(s)
			}
		}
	}
}

func sanitize(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}
