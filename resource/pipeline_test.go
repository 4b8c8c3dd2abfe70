package resource

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/resourcekit/errors"
	"github.com/kbukum/resourcekit/logger"
	"github.com/kbukum/resourcekit/task"
)

func TestGet_UnwrapsBook(t *testing.T) {
	ft := &fakeTransport{handler: respondWith(http.StatusOK, map[string]any{
		"book": map[string]any{"id": float64(1), "name": "x"},
	})}
	books := newTestResource(t, Config{Name: "book", URL: "/books"}, ft)

	v := mustAwait(t, books.Get(context.Background(), 1, nil))
	inst, ok := v.(*Instance)
	if !ok {
		t.Fatalf("expected *Instance, got %T", v)
	}
	if diff := cmp.Diff(map[string]any{"id": float64(1), "name": "x"}, inst.Attributes()); diff != "" {
		t.Errorf("attributes mismatch (-want +got):\n%s", diff)
	}
	req := ft.last(t)
	if req.Method != http.MethodGet || req.URL != "/books/1" {
		t.Errorf("expected GET /books/1, got %s %s", req.Method, req.URL)
	}
	if req.Headers["Accept"] != "application/json" {
		t.Errorf("expected default Accept header, got %v", req.Headers)
	}
}

func TestQuery_ReturnsInstances(t *testing.T) {
	ft := &fakeTransport{handler: respondWith(http.StatusOK, map[string]any{
		"books": []any{
			map[string]any{"id": 1, "page_count": 10},
			map[string]any{"id": 2, "page_count": 20},
		},
	})}
	books := newTestResource(t, Config{Name: "book", URL: "/authors/{{authorId}}/books"}, ft)

	var populated []*Instance
	var mu sync.Mutex
	books.InterceptAfterDeserialize(func(v any, call *Call) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		populated = append(populated, v.(*Instance))
		return nil, nil
	})

	v := mustAwait(t, books.Query(context.Background(), map[string]any{"sortBy": "title"}, map[string]any{"authorId": 7}))
	list, ok := v.([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("expected two results, got %#v", v)
	}
	second := list[1].(*Instance)
	if second.Get("pageCount") != 20 {
		t.Errorf("expected pageCount 20, got %v", second.Get("pageCount"))
	}
	if len(populated) != 2 {
		t.Errorf("expected afterDeserialize per instance, got %d", len(populated))
	}
	req := ft.last(t)
	if req.URL != "/authors/7/books" {
		t.Errorf("expected /authors/7/books, got %s", req.URL)
	}
	if req.Params["sort_by"] != "title" {
		t.Errorf("expected underscored param, got %v", req.Params)
	}
}

func TestCreate_PhaseShapes(t *testing.T) {
	ft := &fakeTransport{handler: func(_ context.Context, cfg *HTTPConfig) (*Response, error) {
		return &Response{Status: http.StatusCreated, Data: map[string]any{
			"book": map[string]any{"id": 1, "book_title": "x", "created_at": "now"},
		}}, nil
	}}
	books := newTestResource(t, Config{Name: "book", URL: "/books"}, ft)

	var order []Phase
	var beforeRequestData, requestData any
	books.AddInterceptor(&Interceptor{
		BeforeRequest: func(v any, call *Call) (any, error) {
			order = append(order, PhaseBeforeRequest)
			beforeRequestData = v.(*HTTPConfig).Data
			return v, nil
		},
		BeforeRequestWrapping: func(v any, call *Call) (any, error) {
			order = append(order, PhaseBeforeRequestWrapping)
			return v, nil
		},
		Request: func(v any, call *Call) (any, error) {
			order = append(order, PhaseRequest)
			requestData = v.(*HTTPConfig).Data
			return v, nil
		},
		BeforeResponse: func(v any, call *Call) (any, error) {
			order = append(order, PhaseBeforeResponse)
			return v, nil
		},
		BeforeResponseDeserialize: func(v any, call *Call) (any, error) {
			order = append(order, PhaseBeforeResponseDeserialize)
			return v, nil
		},
		Response: func(v any, call *Call) (any, error) {
			order = append(order, PhaseResponse)
			return v, nil
		},
		AfterResponse: func(v any, call *Call) (any, error) {
			order = append(order, PhaseAfterResponse)
			return v, nil
		},
		AfterDeserialize: func(v any, call *Call) (any, error) {
			order = append(order, PhaseAfterDeserialize)
			return v, nil
		},
	})

	inst := books.NewWith(map[string]any{"id": 1, "bookTitle": "x"})
	v := mustAwait(t, inst.Create(context.Background()))

	if v != inst {
		t.Errorf("expected the task to resolve with the same instance")
	}
	if diff := cmp.Diff(Phases, order); diff != "" {
		t.Errorf("phase order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"id": 1, "bookTitle": "x"}, beforeRequestData); diff != "" {
		t.Errorf("beforeRequest data mismatch (-want +got):\n%s", diff)
	}
	wantWire := map[string]any{"book": map[string]any{"id": 1, "book_title": "x"}}
	if diff := cmp.Diff(wantWire, requestData); diff != "" {
		t.Errorf("request data mismatch (-want +got):\n%s", diff)
	}
	if inst.Get("createdAt") != "now" {
		t.Errorf("expected response merged into instance, got %v", inst.Attributes())
	}
	req := ft.last(t)
	if req.Method != http.MethodPost || req.URL != "/books/1" {
		t.Errorf("expected POST /books/1, got %s %s", req.Method, req.URL)
	}
}

func TestCreate_RequestPhasesDoNotMutateInstance(t *testing.T) {
	books := newTestResource(t, Config{Name: "book", URL: "/books"}, &fakeTransport{})
	books.InterceptBeforeRequest(func(v any, call *Call) (any, error) {
		v.(*HTTPConfig).Data.(map[string]any)["title"] = "mutated"
		return v, nil
	})
	inst := books.NewWith(map[string]any{"title": "original"})
	mustAwait(t, inst.Create(context.Background()))
	if inst.Get("title") != "original" {
		t.Errorf("expected instance untouched, got %v", inst.Get("title"))
	}
}

func TestWriteVerbs_RequestPhasesDoNotMutateCallerData(t *testing.T) {
	books := newTestResource(t, Config{Name: "book", URL: "/books"}, &fakeTransport{})
	books.InterceptBeforeRequest(func(v any, call *Call) (any, error) {
		data := v.(*HTTPConfig).Data.(map[string]any)
		data["injected"] = true
		data["tags"].([]any)[0] = "mutated"
		return v, nil
	})
	ctx := context.Background()
	verbs := map[string]func(data map[string]any) *task.Task{
		"post":  func(d map[string]any) *task.Task { return books.PostURL(ctx, "/books", d, nil) },
		"put":   func(d map[string]any) *task.Task { return books.PutURL(ctx, "/books/1", d, nil) },
		"patch": func(d map[string]any) *task.Task { return books.PatchURL(ctx, "/books/1", d, nil) },
	}
	for name, send := range verbs {
		t.Run(name, func(t *testing.T) {
			data := map[string]any{"title": "x", "tags": []any{"a"}}
			mustAwait(t, send(data))
			want := map[string]any{"title": "x", "tags": []any{"a"}}
			if diff := cmp.Diff(want, data); diff != "" {
				t.Errorf("caller data changed (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSave_ChoosesVerb(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		fields map[string]any
		method string
		url    string
	}{
		{"new record posts", Config{}, map[string]any{"title": "x"}, http.MethodPost, "/books"},
		{"existing record puts", Config{}, map[string]any{"id": 5}, http.MethodPut, "/books/5"},
		{"patch update method", Config{UpdateMethod: "patch"}, map[string]any{"id": 5}, http.MethodPatch, "/books/5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTransport{}
			tt.cfg.Name, tt.cfg.URL = "book", "/books"
			books := newTestResource(t, tt.cfg, ft)
			mustAwait(t, books.NewWith(tt.fields).Save(context.Background()))
			req := ft.last(t)
			if req.Method != tt.method || req.URL != tt.url {
				t.Errorf("expected %s %s, got %s %s", tt.method, tt.url, req.Method, req.URL)
			}
		})
	}
}

func TestRemove_KeepsInstanceOnEmptyBody(t *testing.T) {
	ft := &fakeTransport{handler: respondWith(http.StatusNoContent, nil)}
	books := newTestResource(t, Config{Name: "book", URL: "/books"}, ft)
	inst := books.NewWith(map[string]any{"id": 3, "title": "x"})

	v := mustAwait(t, inst.Remove(context.Background()))
	if v != inst {
		t.Error("expected task to resolve with the instance")
	}
	if inst.Get("title") != "x" {
		t.Errorf("expected fields untouched, got %v", inst.Attributes())
	}
	if req := ft.last(t); req.Method != http.MethodDelete || req.URL != "/books/3" {
		t.Errorf("expected DELETE /books/3, got %s %s", req.Method, req.URL)
	}
}

func TestResponseError_FlagAndReject(t *testing.T) {
	ft := &fakeTransport{handler: respondWith(http.StatusInternalServerError, map[string]any{"error": "boom"})}
	books := newTestResource(t, Config{Name: "book", URL: "/books"}, ft)

	var flagged bool
	var successRan bool
	books.AddInterceptor(&Interceptor{
		Response: func(v any, call *Call) (any, error) {
			successRan = true
			return v, nil
		},
		ResponseError: func(err error, call *Call) (any, error) {
			flagged = true
			return nil, err
		},
	})

	_, err := await(t, books.Get(context.Background(), 1, nil))
	var httpErr *HTTPError
	if !asHTTPError(err, &httpErr) || httpErr.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500 HTTPError, got %v", err)
	}
	if !flagged {
		t.Error("expected responseError hook to run")
	}
	if successRan {
		t.Error("expected response hook not to run")
	}
}

func asHTTPError(err error, target **HTTPError) bool {
	e, ok := err.(*HTTPError)
	if ok {
		*target = e
	}
	return ok
}

func TestErrorHook_RecoversChain(t *testing.T) {
	ft := &fakeTransport{handler: respondWith(http.StatusNotFound, nil)}
	books := newTestResource(t, Config{Name: "book", URL: "/books"}, ft)

	var laterErrorRan bool
	books.AddInterceptor(&Interceptor{
		BeforeResponseError: func(err error, call *Call) (any, error) {
			return &Response{Status: http.StatusOK, Data: map[string]any{"book": map[string]any{"id": 9}}}, nil
		},
		ResponseError: func(err error, call *Call) (any, error) {
			laterErrorRan = true
			return nil, err
		},
	})

	v := mustAwait(t, books.Get(context.Background(), 9, nil))
	inst, ok := v.(*Instance)
	if !ok || inst.Get("id") != 9 {
		t.Fatalf("expected recovered instance with id 9, got %#v", v)
	}
	if laterErrorRan {
		t.Error("expected later error hooks to be skipped after recovery")
	}
}

func TestHookError_SkipsLaterSuccessHooks(t *testing.T) {
	ft := &fakeTransport{}
	books := newTestResource(t, Config{Name: "book", URL: "/books"}, ft)

	var visited []string
	books.AddInterceptor(&Interceptor{
		BeforeRequest: func(v any, call *Call) (any, error) {
			return nil, errors.InvalidInput("title", "missing")
		},
		RequestError: func(err error, call *Call) (any, error) {
			visited = append(visited, "requestError")
			return nil, err
		},
		AfterResponse: func(v any, call *Call) (any, error) {
			visited = append(visited, "afterResponse")
			return v, nil
		},
		AfterResponseError: func(err error, call *Call) (any, error) {
			visited = append(visited, "afterResponseError")
			return nil, err
		},
	})

	_, err := await(t, books.Query(context.Background(), nil, nil))
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
	if diff := cmp.Diff([]string{"requestError", "afterResponseError"}, visited); diff != "" {
		t.Errorf("visited mismatch (-want +got):\n%s", diff)
	}
	if n := len(ft.requests()); n != 0 {
		t.Errorf("expected no dispatch, got %d", n)
	}
}

func TestHookPanic_BecomesRejection(t *testing.T) {
	books := newTestResource(t, Config{Name: "book", URL: "/books"}, &fakeTransport{})
	books.InterceptRequest(func(v any, call *Call) (any, error) {
		panic("bad hook")
	})
	_, err := await(t, books.Query(context.Background(), nil, nil))
	if !errors.HasCode(err, errors.ErrCodeInternal) {
		t.Errorf("expected INTERNAL_ERROR, got %v", err)
	}
}

func TestHooks_RunInRegistrationOrder(t *testing.T) {
	books := newTestResource(t, Config{Name: "book", URL: "/books"}, &fakeTransport{})
	for _, tag := range []string{"a", "b", "c"} {
		books.InterceptRequest(func(v any, call *Call) (any, error) {
			cfg := v.(*HTTPConfig)
			cfg.Headers["X-Order"] += tag
			return cfg, nil
		})
	}
	v := mustAwait(t, books.Query(context.Background(), nil, nil, WithFullResponse(true)))
	if got := v.(*Response).Config.Headers["X-Order"]; got != "abc" {
		t.Errorf("expected 'abc', got %q", got)
	}
}

func TestHooks_AwaitPendingTasks(t *testing.T) {
	ft := &fakeTransport{}
	books := newTestResource(t, Config{Name: "book", URL: "/books"}, ft)
	books.InterceptRequest(func(v any, call *Call) (any, error) {
		return task.Go(call.Context(), func(ctx context.Context) (any, error) {
			time.Sleep(10 * time.Millisecond)
			cfg := v.(*HTTPConfig)
			cfg.Headers["X-Async"] = "done"
			return cfg, nil
		}), nil
	})
	mustAwait(t, books.Query(context.Background(), nil, nil))
	if got := ft.last(t).Headers["X-Async"]; got != "done" {
		t.Errorf("expected async header, got %q", got)
	}
}

func TestCall_ValueBagSharedAcrossPhases(t *testing.T) {
	books := newTestResource(t, Config{Name: "book", URL: "/books"}, &fakeTransport{})
	var got any
	books.AddInterceptor(&Interceptor{
		BeforeRequest: func(v any, call *Call) (any, error) {
			call.Set("started", call.ID)
			return v, nil
		},
		AfterResponse: func(v any, call *Call) (any, error) {
			got = call.Value("started")
			if logger.CallIDFromContext(call.Context()) != call.ID {
				return nil, errors.Internal(nil)
			}
			return v, nil
		},
	})
	mustAwait(t, books.Query(context.Background(), nil, nil))
	if got == nil || got == "" {
		t.Error("expected value set in beforeRequest to be visible in afterResponse")
	}
}

func TestFullResponse(t *testing.T) {
	ft := &fakeTransport{handler: func(context.Context, *HTTPConfig) (*Response, error) {
		return &Response{
			Status:  http.StatusOK,
			Headers: map[string]string{"X-Total": "1"},
			Data:    map[string]any{"book": map[string]any{"id": 1}},
		}, nil
	}}
	books := newTestResource(t, Config{Name: "book", URL: "/books", FullResponse: Bool(true)}, ft)

	v := mustAwait(t, books.Get(context.Background(), 1, nil))
	resp, ok := v.(*Response)
	if !ok {
		t.Fatalf("expected *Response, got %T", v)
	}
	if resp.Status != http.StatusOK || resp.Headers["X-Total"] != "1" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if _, ok := resp.Data.(*Instance); !ok {
		t.Errorf("expected deserialized data, got %T", resp.Data)
	}
	if diff := cmp.Diff(map[string]any{"book": map[string]any{"id": 1}}, resp.OriginalData); diff != "" {
		t.Errorf("original data mismatch (-want +got):\n%s", diff)
	}
}

func TestSkipRequestProcessing(t *testing.T) {
	ft := &fakeTransport{}
	books := newTestResource(t, Config{Name: "book", URL: "/books"}, ft)
	var requestRan bool
	books.InterceptRequest(func(v any, call *Call) (any, error) {
		requestRan = true
		return v, nil
	})

	cfg := &HTTPConfig{Method: http.MethodPost, URL: "/books/import", Data: map[string]any{"rawKey": 1}}
	mustAwait(t, books.Do(context.Background(), cfg, nil, WithSkipRequestProcessing()))

	if requestRan {
		t.Error("expected request phase to be skipped")
	}
	if diff := cmp.Diff(map[string]any{"rawKey": 1}, ft.last(t).Data); diff != "" {
		t.Errorf("expected raw data (-want +got):\n%s", diff)
	}
}

func TestRootWrappingDisabled(t *testing.T) {
	ft := &fakeTransport{handler: respondWith(http.StatusOK, map[string]any{"id": 1, "book": "kept"})}
	books := newTestResource(t, Config{Name: "book", URL: "/books", RootWrapping: Bool(false)}, ft)

	v := mustAwait(t, books.PostURL(context.Background(), "/books", map[string]any{"title": "x"}, nil))
	if diff := cmp.Diff(map[string]any{"title": "x"}, ft.last(t).Data); diff != "" {
		t.Errorf("expected unwrapped request body (-want +got):\n%s", diff)
	}
	if v.(*Instance).Get("book") != "kept" {
		t.Errorf("expected response left unwrapped, got %v", v.(*Instance).Attributes())
	}
}

func TestAbort_AfterDispatch(t *testing.T) {
	dispatched := make(chan struct{})
	ft := &fakeTransport{handler: func(ctx context.Context, cfg *HTTPConfig) (*Response, error) {
		close(dispatched)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	books := newTestResource(t, Config{Name: "book", URL: "/books"}, ft)

	var successRan bool
	books.AddInterceptor(&Interceptor{
		BeforeResponse: func(v any, call *Call) (any, error) { successRan = true; return v, nil },
		Response:       func(v any, call *Call) (any, error) { successRan = true; return v, nil },
		AfterResponse:  func(v any, call *Call) (any, error) { successRan = true; return v, nil },
	})

	tk := books.Get(context.Background(), 1, nil)
	derived := tk.Then(func(v any) (any, error) { return v, nil }).Catch(func(err error) (any, error) { return nil, err })
	<-dispatched
	derived.Abort()

	_, err := await(t, derived)
	if !errors.HasCode(err, errors.ErrCodeAborted) {
		t.Fatalf("expected ABORTED, got %v", err)
	}
	if _, err := await(t, tk); !errors.HasCode(err, errors.ErrCodeAborted) {
		t.Errorf("expected original task ABORTED, got %v", err)
	}
	if successRan {
		t.Error("expected no success phase to run")
	}
}

func TestAbort_BeforeDispatch(t *testing.T) {
	ft := &fakeTransport{}
	books := newTestResource(t, Config{Name: "book", URL: "/books"}, ft)
	release := make(chan struct{})
	books.InterceptBeforeRequest(func(v any, call *Call) (any, error) {
		<-release
		return v, nil
	})

	tk := books.Query(context.Background(), nil, nil)
	tk.Abort()
	close(release)

	if _, err := await(t, tk); !errors.HasCode(err, errors.ErrCodeAborted) {
		t.Fatalf("expected ABORTED, got %v", err)
	}
	if n := len(ft.requests()); n != 0 {
		t.Errorf("expected nothing dispatched, got %d", n)
	}
}

func TestTimeout(t *testing.T) {
	ft := &fakeTransport{handler: func(ctx context.Context, cfg *HTTPConfig) (*Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	books := newTestResource(t, Config{Name: "book", URL: "/books", Timeout: 20 * time.Millisecond}, ft)

	var errorHookSaw error
	books.AddInterceptor(&Interceptor{BeforeResponseError: func(err error, call *Call) (any, error) {
		errorHookSaw = err
		return nil, err
	}})

	_, err := await(t, books.Get(context.Background(), 1, nil))
	if !errors.HasCode(err, errors.ErrCodeTimeout) {
		t.Fatalf("expected TIMEOUT, got %v", err)
	}
	if !errors.HasCode(errorHookSaw, errors.ErrCodeTimeout) {
		t.Errorf("expected beforeResponseError to see the timeout, got %v", errorHookSaw)
	}
}

func TestTimeout_StoppedAfterSettle(t *testing.T) {
	books := newTestResource(t, Config{Name: "book", URL: "/books"}, &fakeTransport{})
	var canceled bool
	books.InterceptAfterResponse(func(v any, call *Call) (any, error) {
		time.Sleep(40 * time.Millisecond)
		canceled = call.Context().Err() != nil
		return v, nil
	})
	mustAwait(t, books.Query(context.Background(), nil, nil, WithTimeout(10*time.Millisecond)))
	if canceled {
		t.Error("expected timer to be stopped once the transport settled")
	}
}

func TestCancelChannel(t *testing.T) {
	ft := &fakeTransport{handler: func(ctx context.Context, cfg *HTTPConfig) (*Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	books := newTestResource(t, Config{Name: "book", URL: "/books"}, ft)

	cancel := make(chan struct{})
	tk := books.Do(context.Background(), &HTTPConfig{Method: http.MethodGet, URL: "/books", Cancel: cancel}, nil)
	close(cancel)
	if _, err := await(t, tk); !errors.HasCode(err, errors.ErrCodeAborted) {
		t.Errorf("expected ABORTED, got %v", err)
	}
}

func TestCallerContextCanceled(t *testing.T) {
	ft := &fakeTransport{handler: func(ctx context.Context, cfg *HTTPConfig) (*Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	books := newTestResource(t, Config{Name: "book", URL: "/books"}, ft)

	ctx, cancel := context.WithCancel(context.Background())
	tk := books.Query(ctx, nil, nil)
	cancel()
	if _, err := await(t, tk); !errors.HasCode(err, errors.ErrCodeAborted) {
		t.Errorf("expected ABORTED, got %v", err)
	}
}

func TestLegacyShims(t *testing.T) {
	ft := &fakeTransport{handler: respondWith(http.StatusOK, map[string]any{"book": map[string]any{"id": 1}})}
	books := newTestResource(t, Config{Name: "book", URL: "/books"}, ft)

	var order []string
	books.BeforeRequest(func(data any, res *Resource) (any, error) {
		order = append(order, "transformer")
		m := data.(map[string]any)
		m["stamp"] = "legacy"
		return m, nil
	})
	books.InterceptBeforeRequestWrapping(func(v any, call *Call) (any, error) {
		order = append(order, "beforeRequestWrapping")
		return v, nil
	})
	books.BeforeResponse(func(data any, res *Resource, ctx *Instance) {
		order = append(order, "beforeResponse")
		if ctx == nil {
			t.Error("expected instance context")
		}
	})
	books.InterceptResponse(func(v any, call *Call) (any, error) {
		order = append(order, "response")
		return v, nil
	})
	var afterResult any
	books.AfterResponse(func(result any, res *Resource) {
		order = append(order, "afterResponse")
		afterResult = result
	})

	inst := books.NewWith(map[string]any{"title": "x"})
	mustAwait(t, inst.Create(context.Background()))

	want := []string{"transformer", "beforeRequestWrapping", "beforeResponse", "response", "afterResponse"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	body := ft.last(t).Data.(map[string]any)["book"].(map[string]any)
	if body["stamp"] != "legacy" {
		t.Errorf("expected transformer output to be sent, got %v", body)
	}
	if afterResult != inst {
		t.Errorf("expected afterResponse to receive the instance, got %v", afterResult)
	}
}

func TestLegacyResponseInterceptor_SeesRejection(t *testing.T) {
	ft := &fakeTransport{handler: respondWith(http.StatusBadGateway, nil)}
	var sawError bool
	books := newTestResource(t, Config{
		Name: "book",
		URL:  "/books",
		ResponseInterceptors: []any{ResponseInterceptor(func(tk *task.Task, call *Call) *task.Task {
			return tk.Catch(func(err error) (any, error) {
				sawError = true
				return nil, err
			})
		})},
	}, ft)

	if _, err := await(t, books.Query(context.Background(), nil, nil)); err == nil {
		t.Fatal("expected error, got nil")
	}
	if !sawError {
		t.Error("expected legacy interceptor to see the rejection")
	}
}

func TestUnresolvedDependency_Logged(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)
	books := newTestResource(t, Config{Name: "book", URL: "/books", RequestTransformers: []any{"gone"}},
		&fakeTransport{}, WithLogger(log), WithResolver(newMapResolver(nil)))

	if _, err := await(t, books.Query(context.Background(), nil, nil)); err == nil {
		t.Fatal("expected error, got nil")
	}
	out := buf.String()
	if !strings.Contains(out, `"level":"error"`) || !strings.Contains(out, "unable to resolve") {
		t.Errorf("expected error log, got %q", out)
	}
}

func TestAfterDeserialize_ErrorRejects(t *testing.T) {
	ft := &fakeTransport{handler: respondWith(http.StatusOK, map[string]any{"book": map[string]any{"id": 1}})}
	books := newTestResource(t, Config{Name: "book", URL: "/books"}, ft)
	books.InterceptAfterDeserialize(func(v any, call *Call) (any, error) {
		return nil, errors.InvalidResponse(nil)
	})
	if _, err := await(t, books.Get(context.Background(), 1, nil)); !errors.HasCode(err, errors.ErrCodeInvalidResponse) {
		t.Errorf("expected INVALID_RESPONSE, got %v", err)
	}
}

func TestAfterDeserialize_ReplacementIgnored(t *testing.T) {
	ft := &fakeTransport{handler: respondWith(http.StatusOK, map[string]any{"book": map[string]any{"id": 1}})}
	books := newTestResource(t, Config{Name: "book", URL: "/books"}, ft)
	books.InterceptAfterDeserialize(func(v any, call *Call) (any, error) {
		return "replacement", nil
	})
	inst, ok := mustAwait(t, books.Get(context.Background(), 1, nil)).(*Instance)
	if !ok {
		t.Fatal("expected call to resolve with an *Instance")
	}
	if inst.ID() != 1 {
		t.Errorf("expected id 1, got %v", inst.ID())
	}
}

func TestConcurrentCalls(t *testing.T) {
	ft := &fakeTransport{handler: respondWith(http.StatusOK, map[string]any{"book": map[string]any{"id": 1}})}
	books := newTestResource(t, Config{Name: "book", URL: "/books"}, ft)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%5 == 0 {
				books.InterceptRequest(func(v any, call *Call) (any, error) { return v, nil })
			}
			if _, err := books.Get(context.Background(), i, nil).Result(); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if n := len(ft.requests()); n != 20 {
		t.Errorf("expected 20 requests, got %d", n)
	}
}
