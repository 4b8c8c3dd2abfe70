// Package serializer converts resource data between its local form and the
// JSON shape exchanged with the server.
//
// Local data uses camelCase keys, wire data uses snake_case keys. The
// default Rails serializer transcodes keys deeply and applies per-field
// rules given as options:
//
//	s := serializer.New(
//	    serializer.Exclude("computedTotal"),
//	    serializer.Rename("title", "name"),
//	    serializer.NestedAttribute("chapters"),
//	    serializer.Resource("author", "Author"),
//	)
//
// Field rules apply to the top-level object only. Nested plain objects are
// transcoded without rules, and associations use the serializer of the
// associated resource. Keys starting with "$" hold client bookkeeping and are
// never serialized.
package serializer
