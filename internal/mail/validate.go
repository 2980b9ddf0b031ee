package mail

import (
	"regexp"
	"unicode/utf8"
)

const maxSubjectChars = 200
const maxThreadIDLen = 128

// TruncateSubject truncates s to at most maxSubjectChars characters (not
// bytes), always leaving valid UTF-8 at the cut boundary — even for
// multi-byte runes like CJK characters.
func TruncateSubject(s string) string {
	if utf8.RuneCountInString(s) <= maxSubjectChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxSubjectChars])
}

var threadIDAllowed = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// IsValidThreadID reports whether id satisfies the thread-id grammar: ASCII
// alphanumeric first character, then any run of [A-Za-z0-9._-], length
// 1..128.
func IsValidThreadID(id string) bool {
	if id == "" || len(id) > maxThreadIDLen {
		return false
	}
	return threadIDAllowed.MatchString(id)
}

// SanitizeThreadID defensively sanitizes a value read from storage (which
// may predate strict validation) into something satisfying
// IsValidThreadID, falling back to fb if nothing usable remains.
// IsValidThreadID(x) implies SanitizeThreadID(x, fb) == x.
func SanitizeThreadID(raw, fallback string) string {
	if IsValidThreadID(raw) {
		return raw
	}

	var b []byte
	started := false
	for i := 0; i < len(raw) && len(b) < maxThreadIDLen; i++ {
		c := raw[i]
		isAlnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		isAllowedTail := isAlnum || c == '.' || c == '_' || c == '-'

		if !started {
			if isAlnum {
				started = true
				b = append(b, c)
			}
			continue
		}
		if isAllowedTail {
			b = append(b, c)
		}
	}

	if len(b) == 0 {
		return fallback
	}
	return string(b)
}

// ApplyPrefix prepends prefix (e.g. "Re:") to subject unless subject
// already starts with prefix case-insensitively, making repeated
// application idempotent.
func ApplyPrefix(subject, prefix string) string {
	if hasCaseInsensitivePrefix(subject, prefix) {
		return subject
	}
	return prefix + " " + subject
}

func hasCaseInsensitivePrefix(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	head := s[:len(prefix)]
	return equalFoldASCII(head, prefix)
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
