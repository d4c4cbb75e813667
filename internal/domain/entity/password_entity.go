package entity

import "encoding/json"

// PasswordStrength is derived from a password on every keystroke; it is never
// stored on its own.
type PasswordStrength struct {
	Length    bool `json:"length"`
	Digit     bool `json:"digit"`
	Special   bool `json:"special"`
	Uppercase bool `json:"uppercase"`
}

// Score counts the satisfied predicates, 0 to 4.
func (p PasswordStrength) Score() int {
	n := 0
	for _, ok := range []bool{p.Length, p.Digit, p.Special, p.Uppercase} {
		if ok {
			n++
		}
	}
	return n
}

func (p PasswordStrength) Label() string {
	switch p.Score() {
	case 2:
		return "Fair"
	case 3:
		return "Good"
	case 4:
		return "Strong"
	default:
		return "Weak"
	}
}

// Color is the meter colour for the current label.
func (p PasswordStrength) Color() string {
	switch p.Score() {
	case 2:
		return "#f77f00"
	case 3:
		return "#fcbf49"
	case 4:
		return "#4cc9f0"
	default:
		return "#ef233c"
	}
}

// Percent is the meter fill, 25 per satisfied predicate.
func (p PasswordStrength) Percent() int { return p.Score() * 25 }

func (p PasswordStrength) MarshalJSON() ([]byte, error) {
	type rules PasswordStrength
	return json.Marshal(struct {
		rules
		Score   int    `json:"score"`
		Label   string `json:"label"`
		Color   string `json:"color"`
		Percent int    `json:"percent"`
	}{rules(p), p.Score(), p.Label(), p.Color(), p.Percent()})
}
