package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUserID(t *testing.T) {
	assert.NoError(t, ValidateUserID("123456"))

	// 带空白的输入不做规整，直接判为无效：校验通过的ID必须与落库的ID逐字节一致
	assert.ErrorIs(t, ValidateUserID(" 123456"), ErrInvalidUserIDFormat)
	assert.ErrorIs(t, ValidateUserID("123456 "), ErrInvalidUserIDFormat)
	assert.ErrorIs(t, ValidateUserID(""), ErrInvalidUserIDFormat)
	assert.ErrorIs(t, ValidateUserID("12345"), ErrInvalidUserIDFormat)
	assert.ErrorIs(t, ValidateUserID("1234567"), ErrInvalidUserIDFormat)
	assert.ErrorIs(t, ValidateUserID("12345a"), ErrInvalidUserIDFormat)
	assert.ErrorIs(t, ValidateUserID("12 456"), ErrInvalidUserIDFormat)
}

func TestIsNumeric(t *testing.T) {
	assert.True(t, IsNumeric("0123456789"))
	assert.False(t, IsNumeric(""))
	assert.False(t, IsNumeric("12a"))
	assert.False(t, IsNumeric("-12"))
}

func TestNormalizeNumber(t *testing.T) {
	assert.Equal(t, "+8613800138000", NormalizeNumber("  +8613800138000\t"))
	assert.Equal(t, "", NormalizeNumber("   "))
}

func TestStripPlusPrefix(t *testing.T) {
	assert.Equal(t, "8613800138000", StripPlusPrefix("+8613800138000"))
	assert.Equal(t, "13800138000", StripPlusPrefix("13800138000"))
}

func TestDedupeStrings(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, DedupeStrings([]string{"a", "b", "a", "c", "b"}))
	assert.Empty(t, DedupeStrings(nil))
}
