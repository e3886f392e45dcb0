package password

import (
	"testing"

	"github.com/subtrackr/subscription-tracker/internal/core/domain"
)

func rulesEqual(got, want []domain.PasswordRule) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestValidate_StrongPassword(t *testing.T) {
	if v := Validate("Str0ng!Pass"); len(v) != 0 {
		t.Fatalf("expected no violations, got %v", v)
	}
}

func TestValidate_SingleRules(t *testing.T) {
	cases := []struct {
		name      string
		candidate string
		want      []domain.PasswordRule
	}{
		{"too short", "Ab1!x", []domain.PasswordRule{domain.RuleMinLength}},
		{"no uppercase", "weakpass1!", []domain.PasswordRule{domain.RuleUppercase}},
		{"no lowercase", "WEAKPASS1!", []domain.PasswordRule{domain.RuleLowercase}},
		{"no digit", "Weakpass!!", []domain.PasswordRule{domain.RuleDigit}},
		{"no symbol", "Weakpass11", []domain.PasswordRule{domain.RuleSymbol}},
	}
	for _, tc := range cases {
		if got := Validate(tc.candidate); !rulesEqual(got, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestValidate_ViolationOrder(t *testing.T) {
	// Every class rule at once: order must follow the declaration order.
	want := []domain.PasswordRule{
		domain.RuleMinLength,
		domain.RuleUppercase,
		domain.RuleLowercase,
		domain.RuleDigit,
		domain.RuleSymbol,
	}
	if got := Validate(""); !rulesEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestValidate_CommonPassword(t *testing.T) {
	got := Validate("password123")
	found := false
	for _, r := range got {
		if r == domain.RuleCommonPassword {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected common_password violation, got %v", got)
	}
}

func TestValidate_CommonPasswordCaseInsensitive(t *testing.T) {
	got := Validate("PASSWORD123")
	found := false
	for _, r := range got {
		if r == domain.RuleCommonPassword {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected common_password violation, got %v", got)
	}
}

func TestValidate_Deterministic(t *testing.T) {
	a := Validate("abc")
	b := Validate("abc")
	if !rulesEqual(a, b) {
		t.Fatalf("expected identical results, got %v and %v", a, b)
	}
}
