package compliance

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?\d[\d\-.\s()]{8,}\d`)
)

// ScrubPII replaces e-mail addresses with [EMAIL] and phone numbers with
// [PHONE]. Applied to free text before it reaches the logs.
func ScrubPII(text string) string {
	text = emailRe.ReplaceAllString(text, "[EMAIL]")
	return phoneRe.ReplaceAllString(text, "[PHONE]")
}

// MaskEmail keeps the first character of the local part and the domain:
// jane@example.com becomes j***@example.com.
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || local == "" || domain == "" {
		return "[EMAIL]"
	}
	return local[:1] + "***@" + domain
}

// Fingerprint returns a stable SHA-256 hex digest so log lines about the same
// recipient can be correlated without storing the value itself.
func Fingerprint(value string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(value))))
	return hex.EncodeToString(sum[:])
}
