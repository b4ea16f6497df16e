package auth

import (
	"errors"
	"fmt"
	"html"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
)

var (
	// Patterns shared by user and card validation.
	emailPattern = regexp.MustCompile(`^([a-zA-Z0-9_\-.]+)@([a-zA-Z0-9_\-.]+)\.([a-zA-Z]{2,5})$`)
	phonePattern = regexp.MustCompile(`^0[0-9]{1,2}-?\s?[0-9]{3}\s?[0-9]{4}$`)
	urlPattern   = regexp.MustCompile(`(?i)^(https?://)?([\da-z.-]+)\.([a-z.]{2,6})([/\w .-]*)*/?(\?[^\s]*)?$`)
)

var disposableDomains = map[string]bool{
	"tempmail.com":      true,
	"10minutemail.com":  true,
	"guerrillamail.com": true,
	"mailinator.com":    true,
	"throwaway.email":   true,
}

const maxEmailLength = 254 // RFC 5321

var (
	errEmailRequired   = errors.New("email address is required")
	errEmailFormat     = errors.New("invalid email address format")
	errEmailDisposable = errors.New("disposable email addresses are not allowed")
)

// ValidateEmail checks format and length. strict applies the directory's
// narrower address pattern on top of RFC 5322 parsing.
func ValidateEmail(email string, strict bool, blockDisposable bool) error {
	if strings.TrimSpace(email) == "" {
		return errEmailRequired
	}
	if len(email) > maxEmailLength {
		return fmt.Errorf("email address is too long (max %d characters)", maxEmailLength)
	}

	normalized := NormalizeEmail(email)
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return errEmailFormat
	}
	if strict && !emailPattern.MatchString(normalized) {
		return errEmailFormat
	}
	if blockDisposable {
		if _, host, ok := strings.Cut(normalized, "@"); ok && disposableDomains[host] {
			return errEmailDisposable
		}
	}
	return nil
}

// NormalizeEmail lowercases and trims. It is also the lockout key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidatePhone(phone string) error {
	if !phonePattern.MatchString(strings.TrimSpace(phone)) {
		return errors.New("phone must be a valid phone number (e.g. 050-123 4567)")
	}
	return nil
}

func ValidateURL(u string) error {
	if !urlPattern.MatchString(strings.TrimSpace(u)) {
		return errors.New("must be a valid url")
	}
	return nil
}

// SanitizeName collapses whitespace, strips control characters and escapes HTML.
func SanitizeName(name string) string {
	return escapeHTML(strings.Join(strings.Fields(removeControlChars(name)), " "))
}

// SanitizeText is SanitizeName for multi-line fields; newlines and tabs survive.
func SanitizeText(s string) string {
	return escapeHTML(removeControlChars(strings.TrimSpace(s)))
}

// escapeHTML is idempotent so stored values can be sanitized again on update.
func escapeHTML(s string) string {
	return html.EscapeString(html.UnescapeString(s))
}

// ValidateStringLength counts runes, not bytes. A zero bound is ignored.
func ValidateStringLength(field, value string, min, max int) error {
	n := len([]rune(value))
	if min > 0 && n < min {
		return fmt.Errorf("%s must be at least %d characters long", field, min)
	}
	if max > 0 && n > max {
		return fmt.Errorf("%s must be at most %d characters long", field, max)
	}
	return nil
}

func removeControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
