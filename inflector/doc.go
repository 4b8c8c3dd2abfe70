// Package inflector converts field and resource names between the wire
// convention (snake_case) and the local convention (camelCase).
//
// The rules are intentionally small: Pluralize appends "s" and does not know
// about irregular plurals such as "person" or "child". Resources with
// irregular names should set their plural name explicitly.
//
//	inflector.Camelize("author_id")   // "authorId"
//	inflector.Underscore("authorId")  // "author_id"
//	inflector.Pluralize("book")       // "books"
package inflector
