// Package urlbuilder compiles resource URL templates into functions that
// resolve a concrete path from a context map.
//
// Templates use double-delimiter placeholders, {{name}} by default. Dotted
// names reach into nested maps ({{author.id}}). When the template does not
// name the id attribute and the resource is not singular, an id placeholder
// is appended as the last path segment:
//
//	build, _ := urlbuilder.New(urlbuilder.Options{Template: "/books"})
//	build(map[string]any{"id": 1}) // "/books/1"
//	build(nil)                     // "/books"
//
// Placeholders without a value resolve to an empty string, and a trailing
// slash left behind is trimmed. A template missing a required parent id
// therefore yields an incomplete path rather than an error.
package urlbuilder
