// Package resource maps REST endpoints to resource types whose instances
// can be queried, fetched, created, updated and deleted.
//
// A Resource is built from a Config and a Transport:
//
//	transport, err := httpclient.New(httpclient.Config{BaseURL: "https://api.example.com"})
//	books, err := resource.New(resource.Config{
//	    Name: "book",
//	    URL:  "/authors/{{authorId}}/books",
//	}, resource.WithTransport(transport))
//
//	book, err := task.AwaitAs[*resource.Instance](ctx, books.Get(ctx, map[string]any{"authorId": 1, "id": 4}, nil))
//
// # Pipeline
//
// Every call runs through a fixed sequence of phases. Interceptors hook
// into any of them and see, in order:
//
//	beforeRequest              *HTTPConfig with unserialized data
//	  (serialize)
//	beforeRequestWrapping      *HTTPConfig with serialized data
//	  (root wrap)
//	request                    *HTTPConfig ready for dispatch
//	  (dispatch)
//	beforeResponse             *Response as received
//	  (root unwrap)
//	beforeResponseDeserialize  *Response with unwrapped wire data
//	  (deserialize)
//	response                   *Response with local data
//	  (merge into instance, assemble result)
//	afterResponse              the value the call resolves with
//	afterDeserialize           each *Instance populated by the call
//
// Each phase has an error counterpart. A rejection skips success hooks but
// visits every later error hook; an error hook that returns a nil error
// recovers the chain.
//
// Calls return a *task.Task. Abort on it, or on any task derived from it,
// cancels the context handed to the transport.
package resource
