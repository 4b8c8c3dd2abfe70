package resource

import (
	"net/url"
	"reflect"

	"github.com/gorilla/schema"

	"github.com/kbukum/resourcekit/errors"
)

var paramsEncoder = func() *schema.Encoder {
	enc := schema.NewEncoder()
	enc.SetAliasTag("url")
	return enc
}()

// Params merges call parameters over the descriptor's default parameters
// and converts the keys to wire form when UnderscoreParams is set. params
// is a map or a struct with `url` tags. The defaults are never modified.
func (d *Descriptor) Params(params any) (map[string]any, error) {
	out := make(map[string]any, len(d.DefaultParams))
	for k, v := range d.DefaultParams {
		out[k] = v
	}
	switch p := params.(type) {
	case nil:
	case map[string]any:
		for k, v := range p {
			out[k] = v
		}
	case map[string]string:
		for k, v := range p {
			out[k] = v
		}
	case url.Values:
		mergeValues(out, p)
	default:
		if !isStruct(params) {
			return nil, errors.InvalidInput("params", "must be a map or a struct")
		}
		values := map[string][]string{}
		if err := paramsEncoder.Encode(params, values); err != nil {
			return nil, errors.InvalidInput("params", err.Error()).WithCause(err)
		}
		mergeValues(out, values)
	}
	if !d.UnderscoreParams {
		return out, nil
	}
	wire := make(map[string]any, len(out))
	for k, v := range out {
		wire[d.Inflector.Underscore(k)] = v
	}
	return wire, nil
}

func mergeValues(out map[string]any, values map[string][]string) {
	for k, vs := range values {
		if len(vs) == 1 {
			out[k] = vs[0]
			continue
		}
		out[k] = append([]string(nil), vs...)
	}
}

func isStruct(v any) bool {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	return rv.Kind() == reflect.Struct
}
