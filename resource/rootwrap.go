package resource

import "reflect"

// RootWrapper nests outgoing bodies under the resource name and lifts
// incoming bodies out of it.
type RootWrapper interface {
	Wrap(data any, d *Descriptor) any
	// Unwrap lifts the body of resp. expectObject forbids unwrapping the
	// plural key.
	Unwrap(resp *Response, d *Descriptor, expectObject bool) *Response
}

// DefaultRootWrapper keys sequences by the plural name and everything else
// by the singular name. Bodies without a matching key are left untouched.
type DefaultRootWrapper struct{}

// Wrap implements RootWrapper.
func (DefaultRootWrapper) Wrap(data any, d *Descriptor) any {
	key := d.Name
	if isSequence(data) {
		key = d.PluralName
	}
	return map[string]any{key: data}
}

// Unwrap implements RootWrapper.
func (DefaultRootWrapper) Unwrap(resp *Response, d *Descriptor, expectObject bool) *Response {
	body, ok := resp.Data.(map[string]any)
	if !ok {
		return resp
	}
	if v, ok := body[d.Name]; ok {
		resp.Data = v
	} else if v, ok := body[d.PluralName]; ok && !expectObject {
		resp.Data = v
	}
	return resp
}

func isSequence(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	}
	return false
}
