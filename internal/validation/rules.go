// Package validation holds the pure, stateless field rules used by every form
// in the application. Rules never panic; a schema always yields an error map.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// ErrInvalid is wrapped by *Error so callers can test with errors.Is.
var ErrInvalid = errors.New("validation failed")

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitsPattern = regexp.MustCompile(`^[0-9]+$`)
)

// Rule checks one text value. all carries the whole form so cross-field
// rules can look at sibling values. It returns "" when the value is valid.
type Rule func(value string, all map[string]string) string

// ListRule checks the length of a list-valued field.
type ListRule func(n int) string

// Required fails when the value is empty after trimming.
func Required(msg string) Rule {
	return func(v string, _ map[string]string) string {
		if strings.TrimSpace(v) == "" {
			return msg
		}
		return ""
	}
}

// DateRequired fails on an empty date. The format is owned by the input
// widget and is not re-checked here.
func DateRequired(msg string) Rule {
	return Required(msg)
}

// Email checks for a local part, an "@" and a dotted domain. Empty values
// pass; combine with Required.
func Email(msg string) Rule {
	return pattern(emailPattern, msg)
}

// Digits accepts digits only. Empty values pass.
func Digits(msg string) Rule {
	return pattern(digitsPattern, msg)
}

// DigitsLen accepts between min and max digits. Empty values pass.
func DigitsLen(min, max int, msg string) Rule {
	re := regexp.MustCompile(fmt.Sprintf(`^[0-9]{%d,%d}$`, min, max))
	return pattern(re, msg)
}

func pattern(re *regexp.Regexp, msg string) Rule {
	return func(v string, _ map[string]string) string {
		v = strings.TrimSpace(v)
		if v == "" || re.MatchString(v) {
			return ""
		}
		return msg
	}
}

// OneOf requires the value to be a member of the declared set. Empty values
// pass; combine with Required.
func OneOf(msg string, allowed ...string) Rule {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	return func(v string, _ map[string]string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return ""
		}
		if _, ok := set[v]; !ok {
			return msg
		}
		return ""
	}
}

// MinLen requires at least n characters. Empty values pass.
func MinLen(n int, msg string) Rule {
	return func(v string, _ map[string]string) string {
		if v == "" || utf8.RuneCountInString(v) >= n {
			return ""
		}
		return msg
	}
}

// MaxLen allows at most n characters.
func MaxLen(n int, msg string) Rule {
	return func(v string, _ map[string]string) string {
		if utf8.RuneCountInString(strings.TrimSpace(v)) > n {
			return msg
		}
		return ""
	}
}

// Equal requires the value to match the sibling field other.
func Equal(other, msg string) Rule {
	return func(v string, all map[string]string) string {
		if v != all[other] {
			return msg
		}
		return ""
	}
}

// ListBound requires between min and max entries. An empty list reports
// requiredMsg, an oversized one maxMsg.
func ListBound(min, max int, requiredMsg, maxMsg string) ListRule {
	return func(n int) string {
		if n < min {
			return requiredMsg
		}
		if n > max {
			return maxMsg
		}
		return ""
	}
}

// Field binds rules to a named form field.
type Field struct {
	Name      string
	Rules     []Rule
	ListRules []ListRule
}

// Text declares a text field.
func Text(name string, rules ...Rule) Field {
	return Field{Name: name, Rules: rules}
}

// List declares a list field validated on its length.
func List(name string, rules ...ListRule) Field {
	return Field{Name: name, ListRules: rules}
}

// IsList reports whether the field is list-valued.
func (f Field) IsList() bool {
	return len(f.ListRules) > 0
}

// Schema is an ordered set of fields validated together.
type Schema []Field

// Fields returns the field names in declaration order.
func (s Schema) Fields() []string {
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = f.Name
	}
	return out
}

// TextFields returns the names of the text-valued fields.
func (s Schema) TextFields() []string {
	out := make([]string, 0, len(s))
	for _, f := range s {
		if !f.IsList() {
			out = append(out, f.Name)
		}
	}
	return out
}

// Has reports whether the schema declares name.
func (s Schema) Has(name string) bool {
	for _, f := range s {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Validate runs every rule and returns the first failure per field.
// counts supplies list lengths keyed by field name.
func (s Schema) Validate(values map[string]string, counts map[string]int) Errors {
	errs := Errors{}
	for _, f := range s {
		if f.IsList() {
			n := counts[f.Name]
			for _, r := range f.ListRules {
				if msg := r(n); msg != "" {
					errs[f.Name] = msg
					break
				}
			}
			continue
		}
		v := values[f.Name]
		for _, r := range f.Rules {
			if msg := r(v, values); msg != "" {
				errs[f.Name] = msg
				break
			}
		}
	}
	return errs
}

// Check is Validate returning an *Error when any field fails.
func (s Schema) Check(values map[string]string, counts map[string]int) error {
	if errs := s.Validate(values, counts); !errs.Empty() {
		return &Error{Fields: errs}
	}
	return nil
}

// Errors maps a field name to its first failing message.
type Errors map[string]string

// Empty reports whether no field failed.
func (e Errors) Empty() bool {
	return len(e) == 0
}

// Error is returned when a submitted form does not validate.
type Error struct {
	Fields Errors
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *Error) Unwrap() error { return ErrInvalid }
