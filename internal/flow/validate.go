package flow

import "strings"

// Field error kinds surfaced inline under a form field.
const (
	ErrKindEmptyInput    = "empty_input"
	ErrKindInvalidFormat = "invalid_format"
)

// FieldError is a validation failure for a single form field. It is
// shown inline and never blocks other fields.
type FieldError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return e.Message
}

// ValidateEmail trims the input and checks it against a simple
// local@domain.tld shape: exactly one @, no whitespace in either part,
// and at least one dot in the domain. Returns the trimmed email and a
// nil error on success.
func ValidateEmail(raw string) (string, *FieldError) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", &FieldError{Kind: ErrKindEmptyInput, Message: "Email is required"}
	}

	at := strings.Count(email, "@")
	if at != 1 {
		return "", &FieldError{Kind: ErrKindInvalidFormat, Message: "Enter a valid email address"}
	}

	local, domain, _ := strings.Cut(email, "@")
	if local == "" || domain == "" ||
		strings.ContainsAny(local, " \t") ||
		strings.ContainsAny(domain, " \t") ||
		!strings.Contains(domain, ".") {
		return "", &FieldError{Kind: ErrKindInvalidFormat, Message: "Enter a valid email address"}
	}

	return email, nil
}

// ValidateCode trims the input and requires exactly six decimal digits.
func ValidateCode(raw string) (string, *FieldError) {
	code := strings.TrimSpace(raw)
	if code == "" {
		return "", &FieldError{Kind: ErrKindEmptyInput, Message: "Code is required"}
	}

	if len(code) != 6 {
		return "", &FieldError{Kind: ErrKindInvalidFormat, Message: "Enter the 6-digit code"}
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return "", &FieldError{Kind: ErrKindInvalidFormat, Message: "Enter the 6-digit code"}
		}
	}

	return code, nil
}
