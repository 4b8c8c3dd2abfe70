// Package resourcetest provides an in-memory REST backend for exercising
// resources end to end over real HTTP.
//
//	srv := resourcetest.NewServer(t)
//	srv.Collection("book", map[string]any{"id": 1, "title": "Dune"})
//
//	transport, _ := httpclient.New(httpclient.Config{BaseURL: srv.URL()})
//	books, _ := resource.New(resource.Config{Name: "book", URL: "/books"},
//	    resource.WithTransport(transport))
//
// Records are served root wrapped: GET /books answers {"books": [...]} and
// GET /books/1 answers {"book": {...}}. FailNext injects error responses in
// the shape of errors.ErrorResponse.
package resourcetest
