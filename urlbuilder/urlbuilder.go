package urlbuilder

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kbukum/resourcekit/errors"
)

const (
	// DefaultStartSymbol opens a placeholder.
	DefaultStartSymbol = "{{"
	// DefaultEndSymbol closes a placeholder.
	DefaultEndSymbol = "}}"
	// DefaultIDAttribute is the id attribute used when none is configured.
	DefaultIDAttribute = "id"
)

// Func resolves a path from a context map.
type Func func(ctx map[string]any) string

// Options configures a URL builder.
type Options struct {
	// Template is the path template, e.g. "/authors/{{authorId}}/books".
	Template string
	// Func, when set, is returned unchanged and Template is ignored.
	Func Func
	// IDAttribute names the placeholder holding the record id.
	IDAttribute string
	// Singular disables the appended id segment.
	Singular bool
	// StartSymbol and EndSymbol delimit placeholders.
	StartSymbol string
	EndSymbol   string
}

func (o *Options) applyDefaults() {
	if o.IDAttribute == "" {
		o.IDAttribute = DefaultIDAttribute
	}
	if o.StartSymbol == "" {
		o.StartSymbol = DefaultStartSymbol
	}
	if o.EndSymbol == "" {
		o.EndSymbol = DefaultEndSymbol
	}
}

type segment struct {
	literal string
	path    []string
}

// New compiles opts into a Func.
func New(opts Options) (Func, error) {
	if opts.Func != nil {
		return opts.Func, nil
	}
	if opts.Template == "" {
		return nil, errors.InvalidConfig("url template is required")
	}
	opts.applyDefaults()

	segments := parse(opts.Template, opts.StartSymbol, opts.EndSymbol)
	if !opts.Singular && !names(segments, opts.IDAttribute) {
		segments = append(segments,
			segment{literal: "/"},
			segment{path: []string{opts.IDAttribute}},
		)
	}

	return func(ctx map[string]any) string {
		var b strings.Builder
		for _, s := range segments {
			if s.path == nil {
				b.WriteString(s.literal)
				continue
			}
			b.WriteString(Stringify(lookup(ctx, s.path)))
		}
		return strings.TrimSuffix(b.String(), "/")
	}, nil
}

// MustNew is like New but panics on error.
func MustNew(opts Options) Func {
	fn, err := New(opts)
	if err != nil {
		panic(err)
	}
	return fn
}

// parse splits a template into literal and placeholder segments. An opening
// symbol without a matching close is kept as literal text.
func parse(tmpl, start, end string) []segment {
	var out []segment
	rest := tmpl
	for {
		i := strings.Index(rest, start)
		if i < 0 {
			break
		}
		j := strings.Index(rest[i+len(start):], end)
		if j < 0 {
			break
		}
		if i > 0 {
			out = append(out, segment{literal: rest[:i]})
		}
		expr := strings.TrimSpace(rest[i+len(start) : i+len(start)+j])
		out = append(out, segment{path: strings.Split(expr, ".")})
		rest = rest[i+len(start)+j+len(end):]
	}
	if rest != "" {
		out = append(out, segment{literal: rest})
	}
	return out
}

func names(segments []segment, attr string) bool {
	for _, s := range segments {
		if len(s.path) == 1 && s.path[0] == attr {
			return true
		}
	}
	return false
}

func lookup(ctx map[string]any, path []string) any {
	var cur any = ctx
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}

// Stringify renders a placeholder value. Nil renders empty and integral
// floats render without a fractional part.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1e15 {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return Stringify(float64(val))
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
