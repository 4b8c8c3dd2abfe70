package resource

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Call is one in-flight operation. Hooks receive it in every phase and may
// use Set and Value to share state across phases.
type Call struct {
	ID         string
	Operation  string
	Resource   *Resource
	Descriptor *Descriptor
	// Instance is the context the result is merged into. Nil for
	// class-level calls.
	Instance *Instance
	Started  time.Time

	ctx context.Context

	mu          sync.Mutex
	values      map[string]any
	constructed []*Instance
	merged      *Instance
}

func newCall(ctx context.Context, r *Resource, d *Descriptor, op string, inst *Instance) *Call {
	return &Call{
		ID:         uuid.NewString(),
		Operation:  op,
		Resource:   r,
		Descriptor: d,
		Instance:   inst,
		Started:    time.Now(),
		ctx:        ctx,
	}
}

// Context is canceled when the call is aborted or times out.
func (c *Call) Context() context.Context { return c.ctx }

// Set stores a value for later phases of the same call.
func (c *Call) Set(key string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = map[string]any{}
	}
	c.values[key] = v
}

// Value returns a value stored with Set.
func (c *Call) Value(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key]
}

// Construct builds an instance for a deserialized object. Instances built
// here receive afterDeserialize once the call reaches that phase.
func (c *Call) Construct(fields map[string]any) (any, error) {
	inst := c.Resource.newInstance(fields)
	c.mu.Lock()
	c.constructed = append(c.constructed, inst)
	c.mu.Unlock()
	return inst, nil
}

// populated returns the instances afterDeserialize runs for: the context
// first, then every constructed instance except the one merged into it.
func (c *Call) populated() []*Instance {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*Instance
	if c.Instance != nil && c.merged != nil {
		out = append(out, c.Instance)
	}
	for _, inst := range c.constructed {
		if inst == c.merged {
			continue
		}
		out = append(out, inst)
	}
	return out
}
