package common

import (
	"fmt"
	"regexp"
	"strings"
)

// MaskedValue replaces any value considered sensitive.
const MaskedValue = "***MASKED***"

// SensitivePattern describes a piece of sensitive information found either by
// attribute/header name (Keys) or inside free text (Regex).
type SensitivePattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
	Keys        []string // case-insensitive attribute or header names
}

// DefaultSensitivePatterns covers credentials that commonly show up in request
// and response dumps.
var DefaultSensitivePatterns = []SensitivePattern{
	{
		Name:        "password",
		Regex:       regexp.MustCompile(`(?i)(password|passwd|pwd)["'\s]*[:=]["'\s]*([^"',}\]\s]+)`),
		Replacement: `${1}":"` + MaskedValue + `"`,
		Keys:        []string{"password", "passwd", "pwd"},
	},
	{
		Name:        "api_key",
		Regex:       regexp.MustCompile(`(?i)(api[_-]?key|apikey)["'\s]*[:=]["'\s]*([^"',}\]\s]+)`),
		Replacement: `${1}":"` + MaskedValue + `"`,
		Keys:        []string{"api_key", "apikey", "api-key", "x-api-key"},
	},
	{
		Name:        "token",
		Regex:       regexp.MustCompile(`(?i)(access[_-]?token|auth[_-]?token|token)["'\s]*[:=]["'\s]*([^"',}\]\s]+)`),
		Replacement: `${1}":"` + MaskedValue + `"`,
		Keys:        []string{"token", "access_token", "auth_token", "x-auth-token"},
	},
	{
		Name: "authorization",
		Keys: []string{"authorization", "proxy-authorization"},
	},
	{
		Name: "cookie",
		Keys: []string{"cookie", "set-cookie"},
	},
	{
		Name:        "bearer_token",
		Regex:       regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-._~+/]+=*`),
		Replacement: "Bearer " + MaskedValue,
	},
	{
		Name:        "basic_auth",
		Regex:       regexp.MustCompile(`(?i)Basic\s+[A-Za-z0-9+/]+=*`),
		Replacement: "Basic " + MaskedValue,
	},
}

// Masker hides sensitive information in log output.
type Masker struct {
	patterns []SensitivePattern
	enabled  bool
}

// NewMasker creates a new masker with default patterns
func NewMasker() *Masker {
	return &Masker{patterns: append([]SensitivePattern(nil), DefaultSensitivePatterns...), enabled: true}
}

// SetEnabled enables or disables masking
func (m *Masker) SetEnabled(enabled bool) {
	m.enabled = enabled
}

// IsEnabled returns whether masking is enabled
func (m *Masker) IsEnabled() bool {
	return m.enabled
}

// AddPattern adds a pattern; a pattern with keys but no regex gets one built
// from its keys.
func (m *Masker) AddPattern(pattern SensitivePattern) {
	if pattern.Regex == nil && len(pattern.Keys) > 0 {
		quoted := make([]string, len(pattern.Keys))
		for i, k := range pattern.Keys {
			quoted[i] = regexp.QuoteMeta(k)
		}
		keyPattern := strings.Join(quoted, "|")
		pattern.Regex = regexp.MustCompile(fmt.Sprintf(`(?i)\b(%s)\s*[:=]\s*['"]?([^'",\s}\]]+)['"]?`, keyPattern))
		if pattern.Replacement == "" {
			pattern.Replacement = `$1:"` + MaskedValue + `"`
		}
	}
	m.patterns = append(m.patterns, pattern)
}

// MaskString masks sensitive information in a string
func (m *Masker) MaskString(input string) string {
	if !m.enabled {
		return input
	}
	result := input
	for _, pattern := range m.patterns {
		if pattern.Regex == nil {
			continue
		}
		result = pattern.Regex.ReplaceAllString(result, pattern.Replacement)
	}
	return result
}

func (m *Masker) isSensitiveKey(key string) bool {
	for _, pattern := range m.patterns {
		for _, k := range pattern.Keys {
			if strings.EqualFold(key, k) {
				return true
			}
		}
	}
	return false
}

// MaskValue masks value when key names a sensitive attribute, and otherwise
// scrubs recognizable credentials out of string values.
func (m *Masker) MaskValue(key string, value any) any {
	if !m.enabled {
		return value
	}
	if m.isSensitiveKey(key) {
		return MaskedValue
	}
	if s, ok := value.(string); ok {
		return m.MaskString(s)
	}
	return value
}

// MaskHeader returns the loggable form of a header value.
func (m *Masker) MaskHeader(name, value string) string {
	if !m.enabled {
		return value
	}
	if m.isSensitiveKey(name) {
		return MaskedValue
	}
	return m.MaskString(value)
}

// MaskKeyValuePairs masks sensitive information in slog-style key-value pairs
func (m *Masker) MaskKeyValuePairs(pairs ...any) []any {
	if !m.enabled {
		return pairs
	}
	result := make([]any, len(pairs))
	copy(result, pairs)
	for i := 0; i+1 < len(pairs); i += 2 {
		if key, ok := pairs[i].(string); ok {
			result[i+1] = m.MaskValue(key, pairs[i+1])
		}
	}
	return result
}

var globalMasker = NewMasker()

// GetGlobalMasker returns the global masker instance
func GetGlobalMasker() *Masker {
	return globalMasker
}

// MaskSensitiveData masks sensitive data using the global masker
func MaskSensitiveData(input string) string {
	return globalMasker.MaskString(input)
}

// EnableMasking enables/disables global masking
func EnableMasking(enabled bool) {
	globalMasker.SetEnabled(enabled)
}
