package category

import "strings"

// Category classifies an expense for reporting purposes.
type Category string

const (
	Medical      Category = "Medical"
	Dental       Category = "Dental"
	Vision       Category = "Vision"
	Prescription Category = "Prescription"
	MentalHealth Category = "Mental Health"
	Other        Category = "Other"
)

// All returns every known category, in declaration order.
func All() []Category {
	return []Category{Medical, Dental, Vision, Prescription, MentalHealth, Other}
}

// Parse matches a string against the known categories, ignoring case and
// surrounding whitespace. It returns false for empty or unknown names.
func Parse(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range All() {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}
