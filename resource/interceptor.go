package resource

import (
	"fmt"

	"github.com/kbukum/resourcekit/errors"
	"github.com/kbukum/resourcekit/task"
)

// Phase names a point in the request/response lifecycle.
type Phase string

const (
	PhaseBeforeRequest             Phase = "beforeRequest"
	PhaseBeforeRequestWrapping     Phase = "beforeRequestWrapping"
	PhaseRequest                   Phase = "request"
	PhaseBeforeResponse            Phase = "beforeResponse"
	PhaseBeforeResponseDeserialize Phase = "beforeResponseDeserialize"
	PhaseResponse                  Phase = "response"
	PhaseAfterResponse             Phase = "afterResponse"
	PhaseAfterDeserialize          Phase = "afterDeserialize"
)

// Phases lists every phase in execution order.
var Phases = []Phase{
	PhaseBeforeRequest,
	PhaseBeforeRequestWrapping,
	PhaseRequest,
	PhaseBeforeResponse,
	PhaseBeforeResponseDeserialize,
	PhaseResponse,
	PhaseAfterResponse,
	PhaseAfterDeserialize,
}

// Hook observes or replaces the value flowing through a phase. Request-side
// phases carry *HTTPConfig, response-side phases *Response, afterResponse the
// assembled result and afterDeserialize an *Instance. Returning a nil value
// keeps the input. A task.Awaitable result is awaited.
//
// afterDeserialize runs once per populated instance, so its success hooks
// only observe: a returned value is discarded and the call resolves with
// the result of afterResponse.
type Hook func(value any, call *Call) (any, error)

// ErrorHook handles a rejection reaching a phase. Returning a nil error
// recovers the chain with the returned value.
type ErrorHook func(err error, call *Call) (any, error)

// Interceptor is a set of phase hooks. Any hook may be nil.
type Interceptor struct {
	Name string

	BeforeRequest             Hook
	BeforeRequestWrapping     Hook
	Request                   Hook
	BeforeResponse            Hook
	BeforeResponseDeserialize Hook
	Response                  Hook
	AfterResponse             Hook
	AfterDeserialize          Hook

	BeforeRequestError             ErrorHook
	BeforeRequestWrappingError     ErrorHook
	RequestError                   ErrorHook
	BeforeResponseError            ErrorHook
	BeforeResponseDeserializeError ErrorHook
	ResponseError                  ErrorHook
	AfterResponseError             ErrorHook
	AfterDeserializeError          ErrorHook
}

func (i *Interceptor) hooks(p Phase) (Hook, ErrorHook) {
	switch p {
	case PhaseBeforeRequest:
		return i.BeforeRequest, i.BeforeRequestError
	case PhaseBeforeRequestWrapping:
		return i.BeforeRequestWrapping, i.BeforeRequestWrappingError
	case PhaseRequest:
		return i.Request, i.RequestError
	case PhaseBeforeResponse:
		return i.BeforeResponse, i.BeforeResponseError
	case PhaseBeforeResponseDeserialize:
		return i.BeforeResponseDeserialize, i.BeforeResponseDeserializeError
	case PhaseResponse:
		return i.Response, i.ResponseError
	case PhaseAfterResponse:
		return i.AfterResponse, i.AfterResponseError
	case PhaseAfterDeserialize:
		return i.AfterDeserialize, i.AfterDeserializeError
	}
	return nil, nil
}

func (i *Interceptor) setHook(p Phase, fn Hook) error {
	switch p {
	case PhaseBeforeRequest:
		i.BeforeRequest = fn
	case PhaseBeforeRequestWrapping:
		i.BeforeRequestWrapping = fn
	case PhaseRequest:
		i.Request = fn
	case PhaseBeforeResponse:
		i.BeforeResponse = fn
	case PhaseBeforeResponseDeserialize:
		i.BeforeResponseDeserialize = fn
	case PhaseResponse:
		i.Response = fn
	case PhaseAfterResponse:
		i.AfterResponse = fn
	case PhaseAfterDeserialize:
		i.AfterDeserialize = fn
	default:
		return errors.InvalidConfig(fmt.Sprintf("unknown phase %q", p))
	}
	return nil
}

// RequestTransformer rewrites serialized request data.
//
// Deprecated: use an Interceptor with a BeforeRequestWrapping hook.
type RequestTransformer func(data any, r *Resource) (any, error)

// ResponseInterceptor transforms the task carrying the response.
//
// Deprecated: use an Interceptor with a Response or AfterResponse hook.
type ResponseInterceptor func(t *task.Task, call *Call) *task.Task

// transformerInterceptor adapts a legacy request transformer to the
// beforeRequestWrapping phase.
func transformerInterceptor(fn RequestTransformer) *Interceptor {
	return &Interceptor{
		Name: "requestTransformer",
		BeforeRequestWrapping: func(v any, call *Call) (any, error) {
			cfg := v.(*HTTPConfig)
			data, err := fn(cfg.Data, call.Resource)
			if err != nil {
				return nil, err
			}
			cfg.Data = data
			return cfg, nil
		},
	}
}

// taskInterceptor adapts a legacy response interceptor to phase p. Both the
// fulfilled and the rejected path are handed to fn, as a settled task.
func taskInterceptor(p Phase, fn ResponseInterceptor) *Interceptor {
	i := &Interceptor{Name: "responseInterceptor"}
	ok := func(v any, call *Call) (any, error) {
		return fn(task.Resolved(v), call), nil
	}
	fail := func(err error, call *Call) (any, error) {
		return fn(task.Rejected(err), call), nil
	}
	switch p {
	case PhaseResponse:
		i.Response, i.ResponseError = ok, fail
	case PhaseAfterResponse:
		i.AfterResponse, i.AfterResponseError = ok, fail
	}
	return i
}
