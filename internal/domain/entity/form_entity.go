package entity

// Field names one of the three registration inputs.
type Field string

const (
	FieldName     Field = "name"
	FieldEmail    Field = "email"
	FieldPassword Field = "password"
)

// Fields lists the form inputs in display order.
var Fields = []Field{FieldName, FieldEmail, FieldPassword}

// Valid reports whether f is one of the known form fields.
func (f Field) Valid() bool {
	switch f {
	case FieldName, FieldEmail, FieldPassword:
		return true
	}
	return false
}

// Availability is the outcome of an email uniqueness check.
type Availability int

const (
	AvailabilityUnknown Availability = iota
	AvailabilityAvailable
	AvailabilityTaken
)

func (a Availability) String() string {
	switch a {
	case AvailabilityAvailable:
		return "available"
	case AvailabilityTaken:
		return "taken"
	default:
		return "unknown"
	}
}

func (a Availability) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Availability) UnmarshalText(b []byte) error {
	switch string(b) {
	case "available":
		*a = AvailabilityAvailable
	case "taken":
		*a = AvailabilityTaken
	default:
		*a = AvailabilityUnknown
	}
	return nil
}

// ErrorKind classifies why a field is not acceptable.
type ErrorKind string

const (
	ErrNone          ErrorKind = ""
	ErrRequired      ErrorKind = "required"
	ErrTooShort      ErrorKind = "too_short"
	ErrInvalidFormat ErrorKind = "invalid_format"
	ErrTooWeak       ErrorKind = "too_weak"
	ErrAlreadyTaken  ErrorKind = "already_taken"
	ErrCheckPending  ErrorKind = "check_pending"
	ErrCheckFailed   ErrorKind = "check_failed"
)

// FieldState is the live validation state of one input.
// AsyncPending is only ever true for the email field, between the moment a
// syntactically valid address is typed and the moment its check resolves.
type FieldState struct {
	Value        string       `json:"value"`
	SyntaxValid  bool         `json:"syntax_valid"`
	AsyncPending bool         `json:"async_pending"`
	AsyncResult  Availability `json:"async_result"`
	ErrorKind    ErrorKind    `json:"error_kind,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Shaking      bool         `json:"shaking"`
}

// FormState holds the three fields of the registration form.
type FormState struct {
	Name     FieldState `json:"name"`
	Email    FieldState `json:"email"`
	Password FieldState `json:"password"`
}

// Get returns a copy of the state of f.
func (s FormState) Get(f Field) FieldState {
	if p := s.Ptr(f); p != nil {
		return *p
	}
	return FieldState{}
}

// Ptr returns a pointer to the state of f, or nil for an unknown field.
func (s *FormState) Ptr(f Field) *FieldState {
	switch f {
	case FieldName:
		return &s.Name
	case FieldEmail:
		return &s.Email
	case FieldPassword:
		return &s.Password
	}
	return nil
}

// Submittable reports whether every field is valid and the email has been
// confirmed available.
func (s FormState) Submittable() bool {
	return s.Name.SyntaxValid &&
		s.Email.SyntaxValid &&
		s.Password.SyntaxValid &&
		s.Email.AsyncResult == AvailabilityAvailable
}

// FormSnapshot is what the validation engine hands to its renderer.
type FormSnapshot struct {
	Fields      FormState        `json:"fields"`
	Strength    PasswordStrength `json:"strength"`
	Checking    bool             `json:"checking"`
	Submittable bool             `json:"submittable"`
}
