package resource

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/kbukum/resourcekit/errors"
	"github.com/kbukum/resourcekit/logger"
	"github.com/kbukum/resourcekit/task"
)

// Do runs a request through the interceptor pipeline. inst, when non-nil,
// is the instance the response is merged into and the value the task
// resolves with. The returned task can be aborted at any point.
func (r *Resource) Do(ctx context.Context, cfg *HTTPConfig, inst *Instance, opts ...CallOption) *task.Task {
	if cfg == nil {
		return task.Rejected(errors.InvalidInput("config", "request config is required"))
	}
	return r.do(ctx, "request", cfg, cfg.Params, inst, opts)
}

// do runs cfg with its Params replaced by the merge of the default
// parameters and params.
func (r *Resource) do(ctx context.Context, op string, cfg *HTTPConfig, params any, inst *Instance, opts []CallOption) *task.Task {
	if cfg == nil {
		return task.Rejected(errors.InvalidInput("config", "request config is required"))
	}
	r.mu.RLock()
	log := r.log
	r.mu.RUnlock()

	d, chain, err := r.snapshot(opts)
	if err != nil {
		log.Error("unable to resolve resource dependencies", logger.Fields(
			logger.FieldOperation, op,
			logger.FieldMethod, cfg.Method,
			logger.FieldURL, cfg.URL,
			logger.FieldError, err.Error(),
		))
		return task.Rejected(err)
	}

	cfg = cfg.Clone()
	if cfg.Params, err = d.Params(params); err != nil {
		return task.Rejected(err)
	}
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	for k, v := range d.Headers {
		if _, ok := cfg.Headers[k]; !ok {
			cfg.Headers[k] = v
		}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = d.Timeout
	}

	ctx, cancel := context.WithCancelCause(ctx)
	call := newCall(ctx, r, d, op, inst)
	call.ctx = logger.ContextWithCallID(ctx, call.ID)
	p := &pipeline{
		call:      call,
		chain:     chain,
		transport: r.transport,
		wrapper:   r.wrapper,
		log:       log.WithFields(logger.Fields(logger.FieldCallID, call.ID, logger.FieldOperation, op)),
		cancel:    cancel,
	}
	t, settle := task.New(func() { cancel(errors.Aborted(op)) })
	go func() {
		defer cancel(nil)
		settle(p.run(cfg))
	}()
	return t
}

type pipeline struct {
	call      *Call
	chain     []*Interceptor
	transport Transport
	wrapper   RootWrapper
	log       *logger.Logger
	cancel    context.CancelCauseFunc
}

func (p *pipeline) run(cfg *HTTPConfig) (any, error) {
	d := p.call.Descriptor
	stop := p.watch(cfg)
	defer stop()

	var v any = cfg
	var err error
	if !d.SkipRequestProcessing {
		v, err = p.runPhase(PhaseBeforeRequest, v, err)
		v, err = p.step(v, err, p.serialize)
		v, err = p.runPhase(PhaseBeforeRequestWrapping, v, err)
		if d.RootWrapping {
			v, err = p.step(v, err, p.wrap)
		}
		v, err = p.runPhase(PhaseRequest, v, err)
	}
	v, err = p.step(v, err, p.dispatch)
	stop()

	v, err = p.runPhase(PhaseBeforeResponse, v, err)
	v, err = p.step(v, err, p.keepOriginal)
	if d.RootWrapping {
		v, err = p.step(v, err, p.unwrap)
	}
	v, err = p.runPhase(PhaseBeforeResponseDeserialize, v, err)
	v, err = p.step(v, err, p.deserialize)
	v, err = p.runPhase(PhaseResponse, v, err)
	v, err = p.step(v, err, p.assemble)
	v, err = p.runPhase(PhaseAfterResponse, v, err)
	return p.afterDeserialize(v, err)
}

// watch feeds the timeout and the cancel channel of cfg into the call's
// cancellation. The returned func stops both and may be called repeatedly.
func (p *pipeline) watch(cfg *HTTPConfig) func() {
	op := p.call.Operation
	var timer *time.Timer
	if cfg.Timeout > 0 {
		timer = time.AfterFunc(cfg.Timeout, func() { p.cancel(errors.Timeout(op)) })
	}
	done := make(chan struct{})
	if cfg.Cancel != nil {
		go func() {
			select {
			case <-cfg.Cancel:
				p.cancel(errors.Aborted(op))
			case <-done:
			case <-p.call.ctx.Done():
			}
		}()
	}
	stopped := false
	return func() {
		if stopped {
			return
		}
		stopped = true
		if timer != nil {
			timer.Stop()
		}
		close(done)
	}
}

// step runs a fixed pipeline step when the chain is fulfilled.
func (p *pipeline) step(v any, err error, fn func(any) (any, error)) (any, error) {
	if err != nil {
		return v, err
	}
	return guard(func() (any, error) { return fn(v) })
}

// runPhase passes the outcome through every interceptor hooked into phase.
// A fulfilled value visits success hooks, a rejection visits error hooks.
func (p *pipeline) runPhase(phase Phase, v any, err error) (any, error) {
	for _, ic := range p.chain {
		ok, fail := ic.hooks(phase)
		switch {
		case err == nil && ok != nil:
			in := v
			v, err = p.invoke(func() (any, error) { return ok(in, p.call) })
			if err == nil && v == nil {
				v = in
			}
		case err != nil && fail != nil:
			in := err
			v, err = p.invoke(func() (any, error) { return fail(in, p.call) })
		}
	}
	return v, err
}

// invoke runs a hook, awaiting a pending result. Abort interrupts the wait.
func (p *pipeline) invoke(fn func() (any, error)) (any, error) {
	v, err := guard(fn)
	if err != nil {
		return nil, err
	}
	if a, ok := v.(task.Awaitable); ok {
		v, err = a.Await(p.call.ctx)
		if err != nil && p.call.ctx.Err() != nil {
			err = p.canceled(err)
		}
	}
	return v, err
}

func guard(fn func() (any, error)) (v any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Internal(fmt.Errorf("panic: %v", rec))
		}
	}()
	return fn()
}

// canceled maps a failure caused by cancellation to the cause recorded
// when the call was canceled.
func (p *pipeline) canceled(err error) error {
	cause := context.Cause(p.call.ctx)
	var appErr *errors.AppError
	if stderrors.As(cause, &appErr) {
		out := *appErr
		out.Cause = err
		return &out
	}
	if stderrors.Is(cause, context.DeadlineExceeded) {
		return errors.Timeout(p.call.Operation).WithCause(err)
	}
	return errors.Aborted(p.call.Operation).WithCause(err)
}

func asConfig(v any) (*HTTPConfig, error) {
	cfg, ok := v.(*HTTPConfig)
	if !ok || cfg == nil {
		return nil, errors.Internal(fmt.Errorf("request phase produced %T, expected *HTTPConfig", v))
	}
	return cfg, nil
}

func asResponse(v any) (*Response, error) {
	resp, ok := v.(*Response)
	if !ok || resp == nil {
		return nil, errors.Internal(fmt.Errorf("response phase produced %T, expected *Response", v))
	}
	return resp, nil
}

func (p *pipeline) serialize(v any) (any, error) {
	cfg, err := asConfig(v)
	if err != nil {
		return nil, err
	}
	if cfg.Data == nil {
		return cfg, nil
	}
	data, err := p.call.Descriptor.Serializer.Serialize(cfg.Data)
	if err != nil {
		return nil, err
	}
	cfg.Data = data
	return cfg, nil
}

func (p *pipeline) wrap(v any) (any, error) {
	cfg, err := asConfig(v)
	if err != nil {
		return nil, err
	}
	if cfg.Data != nil {
		cfg.Data = p.wrapper.Wrap(cfg.Data, p.call.Descriptor)
	}
	return cfg, nil
}

func (p *pipeline) dispatch(v any) (any, error) {
	cfg, err := asConfig(v)
	if err != nil {
		return nil, err
	}
	ctx := p.call.ctx
	if ctx.Err() != nil {
		return nil, p.canceled(ctx.Err())
	}
	p.log.Debug("dispatching request", logger.Fields(
		logger.FieldMethod, cfg.Method,
		logger.FieldURL, cfg.URL,
		logger.FieldHeaders, logger.RedactHeaders(cfg.Headers),
	))
	start := time.Now()
	resp, err := p.transport.Do(ctx, cfg)
	elapsed := time.Since(start)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		if ctx.Err() != nil {
			err = p.canceled(err)
		}
		p.log.Debug("request failed", logger.Fields(
			logger.FieldMethod, cfg.Method, logger.FieldURL, cfg.URL,
			logger.FieldDuration, elapsed.Milliseconds(), logger.FieldError, err.Error(),
		))
		return nil, err
	}
	if resp == nil {
		resp = &Response{}
	}
	if resp.Config == nil {
		resp.Config = cfg
	}
	p.log.Debug("request settled", logger.Fields(
		logger.FieldMethod, cfg.Method, logger.FieldURL, cfg.URL,
		logger.FieldStatus, resp.Status, logger.FieldDuration, elapsed.Milliseconds(),
	))
	return resp, nil
}

func (p *pipeline) keepOriginal(v any) (any, error) {
	resp, err := asResponse(v)
	if err != nil {
		return nil, err
	}
	resp.OriginalData = resp.Data
	return resp, nil
}

func (p *pipeline) unwrap(v any) (any, error) {
	resp, err := asResponse(v)
	if err != nil {
		return nil, err
	}
	return p.wrapper.Unwrap(resp, p.call.Descriptor, false), nil
}

func (p *pipeline) deserialize(v any) (any, error) {
	resp, err := asResponse(v)
	if err != nil {
		return nil, err
	}
	data, err := p.call.Descriptor.Serializer.Deserialize(resp.Data, p.call)
	if err != nil {
		return nil, err
	}
	resp.Data = data
	return resp, nil
}

// assemble merges the response into the instance context and picks the
// value the call resolves with.
func (p *pipeline) assemble(v any) (any, error) {
	resp, err := asResponse(v)
	if err != nil {
		return nil, err
	}
	call := p.call
	if call.Instance != nil {
		switch data := resp.Data.(type) {
		case *Instance:
			call.Instance.Merge(data.Attributes())
			call.mu.Lock()
			call.merged = data
			call.mu.Unlock()
		case map[string]any:
			call.Instance.Merge(data)
			call.mu.Lock()
			call.merged = call.Instance
			call.mu.Unlock()
		}
	}
	switch {
	case call.Descriptor.FullResponse:
		return resp, nil
	case call.Instance != nil:
		return call.Instance, nil
	default:
		return resp.Data, nil
	}
}

// afterDeserialize runs the last phase. A fulfilled call visits every
// populated instance and keeps its result; a rejected call visits the
// error hooks once.
func (p *pipeline) afterDeserialize(v any, err error) (any, error) {
	if err != nil {
		return p.runPhase(PhaseAfterDeserialize, nil, err)
	}
	for _, inst := range p.call.populated() {
		if _, err := p.runPhase(PhaseAfterDeserialize, inst, nil); err != nil {
			return nil, err
		}
	}
	return v, nil
}
