package util

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

type Kind string

const (
	KindEmail    Kind = "email"
	KindPassword Kind = "password"
	KindString   Kind = "string"
	KindPhone    Kind = "phone"
)

const PasswordSymbols = "!@#$%^&*"

const minPasswordLength = 8

var (
	lowerPattern  = regexp.MustCompile(`[a-z]`)
	upperPattern  = regexp.MustCompile(`[A-Z]`)
	digitPattern  = regexp.MustCompile(`[0-9]`)
	symbolPattern = regexp.MustCompile(`[!@#$%^&*]`)
	phonePattern  = regexp.MustCompile(`^0[0-9]{10}$`)
)

// ValidationResult is the outcome of Validate. Message is set when Valid is false.
type ValidationResult struct {
	Valid   bool
	Message string
}

func valid() ValidationResult {
	return ValidationResult{Valid: true}
}

func invalid(message string) ValidationResult {
	return ValidationResult{Message: message}
}

// Validate classifies value against kind. The value is untyped so the string
// kind can reject non-string input the same way a decoded JSON body would.
func Validate(value any, kind Kind) ValidationResult {
	switch kind {
	case KindEmail:
		s, ok := value.(string)
		if !ok || !IsEmail(s) {
			return invalid("Invalid email format")
		}
		return valid()
	case KindPassword:
		s, ok := value.(string)
		if !ok || !IsStrongPassword(s) {
			return invalid("Password must be at least 8 characters and include uppercase, lowercase, numbers, and special characters (" + PasswordSymbols + ")")
		}
		return valid()
	case KindString:
		s, ok := value.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return invalid("Please check inputs, enter a string")
		}
		return valid()
	case KindPhone:
		s, ok := value.(string)
		if !ok || !phonePattern.MatchString(s) {
			return invalid("Phone must be 0 followed by 10 digits")
		}
		return valid()
	default:
		return invalid("unsupported validation kind: " + string(kind))
	}
}

// IsEmail accepts a bare address (no display name) whose domain has at least
// one dot-separated label after the host.
func IsEmail(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	if at <= 0 {
		return false
	}
	domain := s[at+1:]
	dot := strings.LastIndexByte(domain, '.')
	return dot > 0 && dot < len(domain)-1
}

// IsStrongPassword requires each character class to appear in any order
// before the first line break, and at least eight characters there.
func IsStrongPassword(s string) bool {
	if i := strings.IndexFunc(s, isLineBreak); i >= 0 {
		s = s[:i]
	}
	return utf8.RuneCountInString(s) >= minPasswordLength &&
		lowerPattern.MatchString(s) &&
		upperPattern.MatchString(s) &&
		digitPattern.MatchString(s) &&
		symbolPattern.MatchString(s)
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\u2028', '\u2029':
		return true
	}
	return false
}

// NormalizeEmail trims and lowercases an address before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
