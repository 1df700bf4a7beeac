package service

import (
	"strings"
	"unicode/utf8"
)

const (
	MinPasswordLength = 6
	// bcrypt solo admite hasta 72 bytes de entrada.
	MaxPasswordBytes = 72
)

const (
	msgUsernameRequired = "Username is required"
	msgPasswordTooShort = "Password must be at least 6 characters long"
	msgPasswordTooLong  = "Password must be at most 72 bytes long"
)

// FieldError describe una regla de validacion fallida sobre un campo.
type FieldError struct {
	Field   string
	Value   string
	Message string
}

// ValidationError agrupa todas las reglas que fallaron, no solo la primera.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// validateRegistration asume que username ya viene sin espacios alrededor.
func validateRegistration(username, password string) error {
	var fields []FieldError
	if username == "" {
		fields = append(fields, FieldError{Field: "username", Value: username, Message: msgUsernameRequired})
	}
	switch {
	case utf8.RuneCountInString(password) < MinPasswordLength:
		fields = append(fields, FieldError{Field: "password", Message: msgPasswordTooShort})
	case len(password) > MaxPasswordBytes:
		fields = append(fields, FieldError{Field: "password", Message: msgPasswordTooLong})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
