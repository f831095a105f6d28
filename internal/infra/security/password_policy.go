package security

const (
	minAdminPasswordLength   = 12
	maxAdminPasswordBytes    = 200
	minAdminCharacterClasses = 3
	minAdminZxcvbnScore      = 3
)

// AdminPasswordPolicy returns the policy applied when an operator provisions
// an identity. The email is passed to zxcvbn so passwords built from it score low.
func AdminPasswordPolicy(email string) *PasswordValidator {
	return NewPasswordValidator(
		LengthRule(minAdminPasswordLength, maxAdminPasswordBytes),
		CharacterClassesRule(minAdminCharacterClasses),
		StrengthRule(minAdminZxcvbnScore, email),
	)
}
