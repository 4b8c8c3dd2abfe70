package task

import (
	"context"
	"fmt"
	"sync"
)

// Awaitable is a value that settles later. Hooks may return one instead of
// an immediate value.
type Awaitable interface {
	Await(ctx context.Context) (any, error)
}

// Settle completes a task. Only the first call has an effect.
type Settle func(value any, err error)

// Task is a cancelable future.
type Task struct {
	done  chan struct{}
	once  sync.Once
	value any
	err   error
	abort *abortHandle
}

type abortHandle struct {
	mu        sync.Mutex
	fn        func()
	fired     bool
	nextID    int
	listeners map[int]func()
}

func (h *abortHandle) trigger() {
	h.mu.Lock()
	if h.fired {
		h.mu.Unlock()
		return
	}
	h.fired = true
	fn, listeners := h.fn, h.listeners
	h.listeners = nil
	h.mu.Unlock()
	if fn != nil {
		fn()
	}
	for _, l := range listeners {
		l()
	}
}

// onAbort registers fn to run when the handle fires, or runs it now if it
// already has. stop unregisters fn.
func (h *abortHandle) onAbort(fn func()) (stop func()) {
	h.mu.Lock()
	if h.fired {
		h.mu.Unlock()
		fn()
		return func() {}
	}
	id := h.nextID
	h.nextID++
	if h.listeners == nil {
		h.listeners = map[int]func(){}
	}
	h.listeners[id] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

// await resolves v like Resolve, under a context canceled when the handle
// fires. An Awaitable with an Abort method is aborted as well.
func (h *abortHandle) await(v any) (any, error) {
	a, ok := v.(Awaitable)
	if !ok {
		return v, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := h.onAbort(func() {
		if ab, ok := a.(interface{ Abort() }); ok {
			ab.Abort()
		}
		cancel()
	})
	defer stop()
	return a.Await(ctx)
}

// New returns a pending task and the function that settles it. abort is
// invoked at most once when Abort is called on the task or on any task
// derived from it; it may be nil.
func New(abort func()) (*Task, Settle) {
	t := &Task{
		done:  make(chan struct{}),
		abort: &abortHandle{fn: abort},
	}
	return t, t.settle
}

// Go runs fn on its own goroutine. The ctx passed to fn is canceled by Abort.
func Go(ctx context.Context, fn func(ctx context.Context) (any, error)) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t, settle := New(cancel)
	go func() {
		defer cancel()
		v, err := safeCall(func() (any, error) { return fn(ctx) })
		settle(v, err)
	}()
	return t
}

// Resolved returns a task already fulfilled with v.
func Resolved(v any) *Task {
	t, settle := New(nil)
	settle(v, nil)
	return t
}

// Rejected returns a task already rejected with err.
func Rejected(err error) *Task {
	t, settle := New(nil)
	settle(nil, err)
	return t
}

func (t *Task) settle(v any, err error) {
	t.once.Do(func() {
		t.value, t.err = v, err
		close(t.done)
	})
}

// Done is closed once the task settles.
func (t *Task) Done() <-chan struct{} { return t.done }

// Settled reports whether the task has settled.
func (t *Task) Settled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Await blocks until the task settles or ctx is done. A done ctx does not
// abort the task.
func (t *Task) Await(ctx context.Context) (any, error) {
	select {
	case <-t.done:
		return t.value, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result blocks until the task settles.
func (t *Task) Result() (any, error) {
	<-t.done
	return t.value, t.err
}

// Abort cancels the operation behind the task chain. It is safe to call more
// than once and after the task has settled.
func (t *Task) Abort() { t.abort.trigger() }

// Then derives a task that runs fn with the fulfilled value. A rejection
// passes through without calling fn. When fn returns an Awaitable, the
// derived task settles with its outcome, and Abort reaches it too.
func (t *Task) Then(fn func(v any) (any, error)) *Task {
	return t.derive(func(v any, err error) (any, error) {
		if err != nil {
			return nil, err
		}
		return fn(v)
	})
}

// Catch derives a task that runs fn with the rejection reason. A fulfilled
// value passes through without calling fn.
func (t *Task) Catch(fn func(err error) (any, error)) *Task {
	return t.derive(func(v any, err error) (any, error) {
		if err == nil {
			return v, nil
		}
		return fn(err)
	})
}

// Finally derives a task that runs fn once t settles and then settles with
// t's outcome.
func (t *Task) Finally(fn func()) *Task {
	return t.derive(func(v any, err error) (any, error) {
		fn()
		return v, err
	})
}

func (t *Task) derive(step func(any, error) (any, error)) *Task {
	next := &Task{done: make(chan struct{}), abort: t.abort}
	go func() {
		<-t.done
		v, err := safeCall(func() (any, error) { return step(t.value, t.err) })
		if err == nil {
			v, err = t.abort.await(v)
		}
		next.settle(v, err)
	}()
	return next
}

// Resolve awaits v when it is Awaitable and returns it unchanged otherwise.
func Resolve(ctx context.Context, v any) (any, error) {
	if a, ok := v.(Awaitable); ok {
		return a.Await(ctx)
	}
	return v, nil
}

// AwaitAs awaits t and asserts the value to T. A nil value yields the zero T.
func AwaitAs[T any](ctx context.Context, t *Task) (T, error) {
	var zero T
	v, err := t.Await(ctx)
	if err != nil || v == nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("task: value is %T, expected %T", v, zero)
	}
	return out, nil
}

func safeCall(fn func() (any, error)) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("task: panic: %w", e)
				return
			}
			err = fmt.Errorf("task: panic: %v", r)
		}
	}()
	return fn()
}
