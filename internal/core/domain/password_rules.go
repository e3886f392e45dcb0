package domain

// PasswordRule identifies a single password-policy requirement. The policy
// validator returns violated rules in this declaration order.
type PasswordRule string

const (
	RuleMinLength      PasswordRule = "min_length"
	RuleUppercase      PasswordRule = "uppercase"
	RuleLowercase      PasswordRule = "lowercase"
	RuleDigit          PasswordRule = "digit"
	RuleSymbol         PasswordRule = "symbol"
	RuleCommonPassword PasswordRule = "common_password"
)
