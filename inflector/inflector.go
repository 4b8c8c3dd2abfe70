package inflector

import (
	"strings"
	"unicode"
)

// Inflector converts names between wire and local conventions.
type Inflector interface {
	// Camelize converts a wire name to its local form.
	Camelize(name string) string
	// Underscore converts a local name to its wire form.
	Underscore(name string) string
	// Pluralize returns the plural form of a resource name.
	Pluralize(name string) string
}

// Default is the inflector used when none is configured.
var Default Inflector = rails{}

type rails struct{}

func (rails) Camelize(name string) string   { return Camelize(name) }
func (rails) Underscore(name string) string { return Underscore(name) }
func (rails) Pluralize(name string) string  { return Pluralize(name) }

// Camelize removes each underscore that is followed by a letter or digit and
// upper-cases that character. A leading underscore is left as is.
// Consecutive underscores collapse: "a__b" becomes "a_b", so names with a
// run of underscores do not survive a round trip through Underscore.
func Camelize(name string) string {
	if !strings.Contains(name, "_") {
		return name
	}
	runes := []rune(name)
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '_' && i+1 < len(runes) && isWord(runes[i+1]) {
			if i == 0 {
				b.WriteRune(r)
				b.WriteRune(runes[i+1])
			} else {
				b.WriteRune(unicode.ToUpper(runes[i+1]))
			}
			i++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Underscore inserts an underscore before every upper-case ASCII letter except
// a leading one and lower-cases it.
func Underscore(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i, r := range name {
		if r >= 'A' && r <= 'Z' && i > 0 {
			b.WriteByte('_')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Pluralize appends "s". Irregular plurals are not handled.
func Pluralize(name string) string {
	return name + "s"
}

// CamelizeKey camelizes strings and returns any other value unchanged.
func CamelizeKey(v any) any {
	if s, ok := v.(string); ok {
		return Camelize(s)
	}
	return v
}

// UnderscoreKey underscores strings and returns any other value unchanged.
func UnderscoreKey(v any) any {
	if s, ok := v.(string); ok {
		return Underscore(s)
	}
	return v
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
