package logging

import (
	"strings"
)

const (
	// MaskChar is the character used for masking.
	MaskChar = "*"
	// URLMaskLength is how many characters to show before masking URLs.
	URLMaskLength = 30
	// DefaultMaskLength is how many mask characters to show.
	DefaultMaskLength = 3
)

var sensitiveFields = []string{
	"password", "secret", "token", "api_key", "apikey", "authorization", "credential",
}

// MaskURL masks a URL, showing only the first URLMaskLength characters.
func MaskURL(url string) string {
	if len(url) <= URLMaskLength {
		return url
	}
	return url[:URLMaskLength] + strings.Repeat(MaskChar, DefaultMaskLength)
}

// MaskValue masks a sensitive value completely.
func MaskValue(value string) string {
	if value == "" {
		return ""
	}
	return strings.Repeat(MaskChar, min(len(value), 8))
}

// MaskEmail keeps the first character of the local part and the whole domain:
// "maria@example.com" becomes "m***@example.com".
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return MaskValue(email)
	}
	return email[:1] + strings.Repeat(MaskChar, DefaultMaskLength) + email[at:]
}

// IsSensitiveField checks if a field name indicates sensitive data.
func IsSensitiveField(fieldName string) bool {
	lower := strings.ToLower(fieldName)
	for _, keyword := range sensitiveFields {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// MaskArgs masks sensitive values in key-value logging arguments.
func MaskArgs(args []any) []any {
	result := make([]any, len(args))
	copy(result, args)

	for i := 0; i+1 < len(result); i += 2 {
		key, ok := result[i].(string)
		if !ok {
			continue
		}
		switch {
		case IsSensitiveField(key):
			if s, ok := result[i+1].(string); ok {
				result[i+1] = MaskValue(s)
			} else {
				result[i+1] = strings.Repeat(MaskChar, 8)
			}
		case key == KeyRecipient:
			if s, ok := result[i+1].(string); ok {
				result[i+1] = MaskEmail(s)
			}
		}
	}

	return result
}
