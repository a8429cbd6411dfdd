package utils

import (
	"errors"
	"strings"
	"unicode"
)

var (
	ErrInvalidUserIDFormat = errors.New("无效的用户ID格式，必须是6位数字")
)

// IsNumeric 检查字符串是否只包含数字
func IsNumeric(s string) bool {
	if s == "" {
		return false // 空字符串不视为数字
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// ValidateUserID 校验用户业务ID格式（6位纯数字）。
// 不做任何规整：带空白等杂质的输入直接判为无效，
// 保证校验通过的ID与落库、查询使用的ID是同一个字符串。
func ValidateUserID(userID string) error {
	if len(userID) != 6 {
		return ErrInvalidUserIDFormat
	}
	if !IsNumeric(userID) {
		return ErrInvalidUserIDFormat
	}
	return nil
}

// NormalizeNumber 规整号码字符串：去除首尾空白。
// 返回空字符串表示该条目无效，应被调用方丢弃。
func NormalizeNumber(number string) string {
	return strings.TrimSpace(number)
}

// StripPlusPrefix 去除号码中的 "+" 字符，用于对外展示
func StripPlusPrefix(number string) string {
	return strings.ReplaceAll(number, "+", "")
}

// DedupeStrings 对字符串切片做集合语义去重，保留首次出现的顺序
func DedupeStrings(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		result = append(result, item)
	}
	return result
}
