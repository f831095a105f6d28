package security

import (
	"fmt"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// PasswordValidationError reports a single password policy violation.
type PasswordValidationError struct {
	Code    string
	Message string
}

func (e *PasswordValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordRule validates a password according to one policy rule.
type PasswordRule func(password string) error

// PasswordValidator applies rules in order and stops at the first violation.
type PasswordValidator struct {
	rules []PasswordRule
}

// NewPasswordValidator constructs a validator with the provided rules.
func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	return &PasswordValidator{rules: append([]PasswordRule(nil), rules...)}
}

// Validate implements port.PasswordPolicy.
func (v *PasswordValidator) Validate(password string) error {
	if v == nil {
		return fmt.Errorf("password validator not configured")
	}
	for _, rule := range v.rules {
		if rule == nil {
			continue
		}
		if err := rule(password); err != nil {
			return err
		}
	}
	return nil
}

// LengthRule bounds the password length in runes. The upper bound matches the
// login endpoint's input cap so a stored password can always be submitted.
func LengthRule(min, max int) PasswordRule {
	return func(password string) error {
		n := len([]rune(password))
		if n < min {
			return &PasswordValidationError{
				Code:    "min_length",
				Message: fmt.Sprintf("password must be at least %d characters long", min),
			}
		}
		if max > 0 && len(password) > max {
			return &PasswordValidationError{
				Code:    "max_length",
				Message: fmt.Sprintf("password must be at most %d bytes long", max),
			}
		}
		return nil
	}
}

// CharacterClassesRule requires characters from at least min of: upper, lower, digit, symbol.
func CharacterClassesRule(min int) PasswordRule {
	return func(password string) error {
		if min <= 0 {
			return nil
		}

		seen := map[string]bool{}
		for _, r := range password {
			switch {
			case unicode.IsUpper(r):
				seen["upper"] = true
			case unicode.IsLower(r):
				seen["lower"] = true
			case unicode.IsDigit(r):
				seen["digit"] = true
			case unicode.IsSymbol(r) || unicode.IsPunct(r):
				seen["symbol"] = true
			}
		}

		if len(seen) >= min {
			return nil
		}
		return &PasswordValidationError{
			Code:    "character_classes",
			Message: fmt.Sprintf("password must include at least %d character types", min),
		}
	}
}

// StrengthRule enforces a minimum zxcvbn score, penalising passwords derived from userInputs.
func StrengthRule(minScore int, userInputs ...string) PasswordRule {
	if minScore > 4 {
		minScore = 4
	}
	return func(password string) error {
		if minScore <= 0 {
			return nil
		}
		if zxcvbn.PasswordStrength(password, userInputs).Score >= minScore {
			return nil
		}
		return &PasswordValidationError{
			Code:    "weak_password",
			Message: "password is too weak; choose a more complex value",
		}
	}
}
