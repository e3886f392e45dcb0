// Package password implements the credential-strength policy and the
// one-way hashing used by the session service.
package password

import (
	"strings"
	"unicode"

	"github.com/subtrackr/subscription-tracker/internal/core/domain"
)

const minLength = 8

// symbols is the fixed punctuation set that satisfies RuleSymbol.
const symbols = "!@#$%^&*()-_=+[]{};:'\",.<>/?\\|`~"

// commonPasswords is a small denylist of passwords seen in every breach
// corpus. Matched case-insensitively against the full candidate.
var commonPasswords = map[string]struct{}{
	"password":    {},
	"password1":   {},
	"password123": {},
	"12345678":    {},
	"123456789":   {},
	"qwerty123":   {},
	"iloveyou":    {},
	"letmein1":    {},
	"admin123":    {},
	"welcome1":    {},
}

// Validate checks a candidate password against the strength policy and
// returns the violated rules in a fixed order. An empty slice means the
// candidate passes. Pure and locale-independent: class checks are ASCII
// only, so a password that validates on one machine validates everywhere.
func Validate(candidate string) []domain.PasswordRule {
	var violations []domain.PasswordRule

	if len(candidate) < minLength {
		violations = append(violations, domain.RuleMinLength)
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range candidate {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case unicode.IsDigit(r) && r < 128:
			hasDigit = true
		case strings.ContainsRune(symbols, r):
			hasSymbol = true
		}
	}
	if !hasUpper {
		violations = append(violations, domain.RuleUppercase)
	}
	if !hasLower {
		violations = append(violations, domain.RuleLowercase)
	}
	if !hasDigit {
		violations = append(violations, domain.RuleDigit)
	}
	if !hasSymbol {
		violations = append(violations, domain.RuleSymbol)
	}

	if _, denied := commonPasswords[strings.ToLower(candidate)]; denied {
		violations = append(violations, domain.RuleCommonPassword)
	}

	return violations
}
