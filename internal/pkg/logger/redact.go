package logger

import (
	"regexp"
	"strings"
)

var (
	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phoneRegex = regexp.MustCompile(`\+?\d[\d\s().-]{8,}\d`)
)

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
// Short local parts (≤2 chars) are fully masked: "ab@example.com" → "***@example.com"
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

// RedactPhone keeps only the last two digits of a phone number.
// "+1 (555) 123-4567" → "***67"
func RedactPhone(phone string) string {
	digits := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		if phone[i] >= '0' && phone[i] <= '9' {
			digits = append(digits, phone[i])
		}
	}
	if len(digits) <= 2 {
		return "***"
	}
	return "***" + string(digits[len(digits)-2:])
}

func redactPIIValue(key, val string) string {
	key = strings.ToLower(key)
	switch {
	case strings.Contains(key, "email") || key == "to" || key == "recipient":
		return emailRegex.ReplaceAllStringFunc(val, RedactEmail)
	case strings.Contains(key, "phone"):
		return RedactPhone(val)
	}
	// Redact any embedded emails or phone numbers in generic fields
	val = emailRegex.ReplaceAllStringFunc(val, RedactEmail)
	return phoneRegex.ReplaceAllStringFunc(val, RedactPhone)
}
