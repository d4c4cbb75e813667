// Package form holds the synchronous field validators of the registration
// form. They are pure: no state, no clocks, no I/O.
package form

import (
	"regexp"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/oksasatya/go-form-playground/internal/domain/entity"
)

const (
	MinNameLength     = 2
	MinPasswordLength = 8
	MinPasswordScore  = 2

	// SpecialChars are the characters that satisfy the password "special" rule.
	SpecialChars = `!@#$%^&*(),.?":{}|<>`
)

var emailPattern = regexp.MustCompile(`(?i)^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Verdict is the result of validating one field value.
type Verdict struct {
	Valid   bool
	Kind    entity.ErrorKind
	Message string
}

func ok() Verdict { return Verdict{Valid: true} }

func fail(kind entity.ErrorKind, msg string) Verdict {
	return Verdict{Kind: kind, Message: msg}
}

func ValidateName(s string) Verdict {
	name := strings.TrimSpace(s)
	switch {
	case name == "":
		return fail(entity.ErrRequired, "Name is required")
	case utf8.RuneCountInString(name) < MinNameLength:
		return fail(entity.ErrTooShort, "Name must be at least 2 characters")
	}
	return ok()
}

// ValidateEmailSyntax checks the address shape only; availability is the
// uniqueness checker's job.
func ValidateEmailSyntax(s string) Verdict {
	email := strings.TrimSpace(s)
	switch {
	case email == "":
		return fail(entity.ErrRequired, "Email is required")
	case !emailPattern.MatchString(email):
		return fail(entity.ErrInvalidFormat, "Please enter a valid email")
	}
	return ok()
}

// ValidatePasswordStrength returns the strength breakdown whatever the
// verdict, so the meter can render while the password is still failing.
func ValidatePasswordStrength(s string) (Verdict, entity.PasswordStrength) {
	st := Strength(s)
	switch {
	case strings.TrimSpace(s) == "":
		return fail(entity.ErrRequired, "Password is required"), st
	case st.Score() < MinPasswordScore:
		return fail(entity.ErrTooWeak, "Password is too weak"), st
	}
	return ok(), st
}

// Strength evaluates the four password rules. Length is measured in UTF-16
// code units, the way browsers count input length.
func Strength(s string) entity.PasswordStrength {
	var st entity.PasswordStrength
	st.Length = utf16Len(s) >= MinPasswordLength
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			st.Digit = true
		case r >= 'A' && r <= 'Z':
			st.Uppercase = true
		case strings.ContainsRune(SpecialChars, r):
			st.Special = true
		}
	}
	return st
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

// Validate dispatches to the validator of f.
func Validate(f entity.Field, value string) Verdict {
	switch f {
	case entity.FieldName:
		return ValidateName(value)
	case entity.FieldEmail:
		return ValidateEmailSyntax(value)
	case entity.FieldPassword:
		v, _ := ValidatePasswordStrength(value)
		return v
	}
	return fail(entity.ErrInvalidFormat, "unknown field")
}

// NormalizeEmail is the form in which an address is checked and stored.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// TrimName is the form in which a display name is stored.
func TrimName(s string) string {
	return strings.TrimSpace(s)
}
