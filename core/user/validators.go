package user

import (
	"fmt"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
)

var (
	staffRoleTag  = "staffrole"
	staffRoleText = "role must be one of: teacher, administrator"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdMaxLen     = 72 // bcrypt input limit, in bytes
	pwdMaxLenTag  = "pwdmaxlen"
	pwdMaxLenText = fmt.Sprintf("password must not exceed %d bytes", pwdMaxLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdTexts = map[string]string{
		pwdMinLenTag:  pwdMinLenText,
		pwdMaxLenTag:  pwdMaxLenText,
		pwdNoSpaceTag: pwdNoSpaceText,
	}
)

// InitValidators registers the user validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(staffRoleTag, staffRoleValidation)
	core.RegisterCustomTranslation(validate, translator, staffRoleTag, staffRoleText)

	validate.RegisterStructValidation(registrationStructValidation, Registration{})
	for tag, text := range pwdTexts {
		core.RegisterCustomTranslation(validate, translator, tag, text)
	}
}

// ValidatePassword applies the password policy outside of struct validation.
func ValidatePassword(pwd string) error {
	if tag := passwordPolicyViolation(pwd); tag != "" {
		return core.NewValidationError(nil, core.FieldError{Field: "password", Error: pwdTexts[tag]})
	}
	return nil
}

// Custom Validators

func staffRoleValidation(fl validator.FieldLevel) bool {
	switch role := fl.Field().Interface().(type) {
	case Role:
		return role.IsStaff()
	case string:
		return Role(role).IsStaff()
	}
	return false
}

func registrationStructValidation(sl validator.StructLevel) {
	reg, ok := sl.Current().Interface().(Registration)
	if !ok || reg.Password == "" {
		return
	}
	if tag := passwordPolicyViolation(reg.Password); tag != "" {
		sl.ReportError(reg.Password, "password", "Password", tag, "")
	}
}

// passwordPolicyViolation returns the tag of the first rule pwd breaks:
// - minLen: 8 characters
// - maxLen: 72 bytes
// - no whitespace
func passwordPolicyViolation(pwd string) string {
	if len([]rune(pwd)) < pwdMinLen {
		return pwdMinLenTag
	}
	if len(pwd) > pwdMaxLen {
		return pwdMaxLenTag
	}
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			return pwdNoSpaceTag
		}
	}
	return ""
}
