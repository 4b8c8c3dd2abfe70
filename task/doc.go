// Package task provides a cancelable future.
//
// A Task settles exactly once with a value or an error. Then, Catch and
// Finally derive new tasks that carry the same abort handle, so Abort can be
// called on any task in a chain and reaches the operation that started it.
//
//	t := task.Go(ctx, func(ctx context.Context) (any, error) {
//	    return fetch(ctx)
//	})
//	names := t.Then(func(v any) (any, error) { return v.(*Book).Name, nil })
//	names.Abort() // cancels fetch's ctx
package task
