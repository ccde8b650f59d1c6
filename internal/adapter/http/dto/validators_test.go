package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

func TestTOTPCodeValidation(t *testing.T) {
	type payload struct {
		Code string `binding:"required,totp_code"`
	}

	valid := []string{"000000", "123456", "999999"}
	for _, code := range valid {
		err := binding.Validator.ValidateStruct(&payload{Code: code})
		assert.NoError(t, err, "code %q", code)
	}

	invalid := []string{"12345", "1234567", "12345a", "abcdef", " 123456", ""}
	for _, code := range invalid {
		err := binding.Validator.ValidateStruct(&payload{Code: code})
		assert.Error(t, err, "code %q", code)
	}
}

func TestValidIdempotencyKey(t *testing.T) {
	assert.True(t, ValidIdempotencyKey("order-2024.01_retry1"))
	assert.True(t, ValidIdempotencyKey("a"))

	assert.False(t, ValidIdempotencyKey(""))
	assert.False(t, ValidIdempotencyKey("has spaces"))
	assert.False(t, ValidIdempotencyKey("semi;colon"))
	assert.False(t, ValidIdempotencyKey(string(make([]byte, 101))))
}

func TestSanitizeStruct(t *testing.T) {
	type form struct {
		Name  string
		Note  *string
		Count int
	}

	note := "  <b>hi</b>  "
	f := &form{Name: " <script>x</script> ", Note: &note, Count: 3}
	SanitizeStruct(f)

	assert.Equal(t, "&lt;script&gt;x&lt;/script&gt;", f.Name)
	assert.Equal(t, "&lt;b&gt;hi&lt;/b&gt;", *f.Note)
	assert.Equal(t, 3, f.Count)
}

func TestSanitizeStruct_NonStruct(t *testing.T) {
	// Must not panic on non-pointers or nil pointers.
	SanitizeStruct(42)
	SanitizeStruct(nil)
	var f *struct{ A string }
	SanitizeStruct(f)
}
