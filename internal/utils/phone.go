package utils

import "strings"

// whatsappSuffixes are JID suffixes stripped before any digit handling.
var whatsappSuffixes = []string{"@s.whatsapp.net", "@c.us"}

func stripSuffixes(phone string) string {
	for _, suffix := range whatsappSuffixes {
		phone = strings.ReplaceAll(phone, suffix, "")
	}
	return phone
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidatePhone reports whether the phone number has 10-15 digits after
// stripping WhatsApp suffixes and punctuation.
func ValidatePhone(phone string) bool {
	if phone == "" {
		return false
	}
	digits := digitsOnly(stripSuffixes(phone))
	return len(digits) >= 10 && len(digits) <= 15
}

// CleanPhone normalizes a phone number for the gateway: digits only, no
// JID suffix, with the Brazil country code prefixed onto bare local
// numbers (DDD + 8 or 9 digits).
func CleanPhone(phone string) string {
	digits := digitsOnly(stripSuffixes(phone))
	if len(digits) == 10 || len(digits) == 11 {
		digits = "55" + digits
	}
	return digits
}

// NormalizePhone converts a phone number to the WhatsApp JID format.
func NormalizePhone(phone string) string {
	if strings.Contains(phone, "@") {
		return phone
	}
	return digitsOnly(phone) + "@s.whatsapp.net"
}

// MaskPhone hides the middle of a phone number for notifications.
func MaskPhone(phone string) string {
	if len(phone) <= 8 {
		return phone
	}
	return phone[:4] + "****" + phone[len(phone)-4:]
}
