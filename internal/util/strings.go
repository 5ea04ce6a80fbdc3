package util

import "strings"

// TrimEmptyCheck trims whitespace and checks if non-empty
func TrimEmptyCheck(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	return trimmed, trimmed != ""
}

// TrimWithDefault trims whitespace and returns default if empty
func TrimWithDefault(s, defaultValue string) string {
	if trimmed := strings.TrimSpace(s); trimmed != "" {
		return trimmed
	}
	return defaultValue
}

// EnvKey converts a dotted or dashed key into an environment variable name
// under prefix, e.g. ("APICONTRACT", "db.user-name") -> "APICONTRACT_DB_USER_NAME".
func EnvKey(prefix, key string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	k := strings.ToUpper(r.Replace(strings.TrimSpace(key)))
	if prefix == "" {
		return k
	}
	return strings.ToUpper(prefix) + "_" + k
}
