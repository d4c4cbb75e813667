package form

import (
	"fmt"
	"strings"

	"github.com/oksasatya/go-form-playground/internal/domain/entity"
)

// FieldFailure names one field that blocked a submit.
type FieldFailure struct {
	Field   entity.Field     `json:"field"`
	Kind    entity.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}

// ValidationError is returned by a rejected submit and carries every field
// that was failing at that moment.
type ValidationError struct {
	Failures []FieldFailure
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, string(f.Field))
	}
	return fmt.Sprintf("form has invalid fields: %s", strings.Join(names, ", "))
}

// Add records a failing field.
func (e *ValidationError) Add(field entity.Field, kind entity.ErrorKind, msg string) {
	e.Failures = append(e.Failures, FieldFailure{Field: field, Kind: kind, Message: msg})
}

// Empty reports whether no field failed.
func (e *ValidationError) Empty() bool { return len(e.Failures) == 0 }

// Has reports whether field is among the failures.
func (e *ValidationError) Has(field entity.Field) bool {
	for _, f := range e.Failures {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Details returns the failures as a field->message map, the same shape the
// HTTP layer uses for request binding errors.
func (e *ValidationError) Details() map[string]string {
	out := make(map[string]string, len(e.Failures))
	for _, f := range e.Failures {
		out[string(f.Field)] = f.Message
	}
	return out
}
