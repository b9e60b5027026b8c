package rules

import (
	"strings"

	"github.com/gobeaver/formkit"
)

// FieldRules binds rules to a field name
type FieldRules struct {
	Name  string
	Rules []Rule
}

// Field returns the rules of the field named name. The name uses the same
// bracket notation as the form, a trailing "[]" is ignored.
func Field(name string, rules ...Rule) FieldRules {
	return FieldRules{Name: name, Rules: rules}
}

// Violation is one failed rule
type Violation struct {
	Field   string
	Message string
}

// ValidationErrors lists every violation of a record
type ValidationErrors []Violation

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Message
	}
	return strings.Join(msgs, "\n")
}

// Fields returns the names of the fields that failed
func (e ValidationErrors) Fields() []string {
	var names []string
	seen := make(map[string]bool)
	for _, v := range e {
		if !seen[v.Field] {
			seen[v.Field] = true
			names = append(names, v.Field)
		}
	}
	return names
}

// Validate checks rec against fields and returns ValidationErrors when any
// rule fails. Every rule is evaluated.
func Validate(rec *formkit.Record, fields ...FieldRules) error {
	var errs ValidationErrors
	for _, field := range fields {
		var (
			v       formkit.Value
			present bool
		)
		if rec != nil {
			v, present = rec.LookupField(field.Name)
		}
		label := strings.TrimSuffix(field.Name, "[]")
		for _, r := range field.Rules {
			if !r.Check(v, present) {
				errs = append(errs, Violation{Field: label, Message: r.Message(label)})
			}
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
