// Package engine implements the reconciliation state machine. Each call
// takes a resource instance, performs at most one remote mutation, and
// returns the updated instance together with what the caller should do
// next. The engine holds no state of its own; everything it needs to
// resume lives on the instance.
package engine

import (
	"strings"
	"time"

	"github.com/spacelift-io/flows-app-aws-resources/internal/remote"
	"github.com/spacelift-io/flows-app-aws-resources/internal/resource"
	"github.com/spacelift-io/flows-app-aws-resources/internal/schema"
)

// DefaultPollInterval is how long callers wait before re-invoking a step
// that left an asynchronous remote operation in flight.
const DefaultPollInterval = 10 * time.Second

// Engine drives resource instances of any type; per-type behavior comes
// entirely from the schema resolver and the remote's own validation.
type Engine struct {
	remote  remote.API
	schemas *schema.Resolver

	// PollInterval overrides DefaultPollInterval, mainly for tests.
	PollInterval time.Duration
}

// New builds an Engine over the given remote and schema resolver.
func New(api remote.API, schemas *schema.Resolver) *Engine {
	return &Engine{
		remote:       api,
		schemas:      schemas,
		PollInterval: DefaultPollInterval,
	}
}

// Result is the outcome of one state-machine step.
type Result struct {
	// Status the instance ended the step in.
	Status resource.Status
	// Description is a short human-readable summary. Failure descriptions
	// name the failing operation and carry the remote's message; full
	// transport errors are logged rather than persisted here.
	Description string
	// RequeueAfter asks the caller to re-invoke after this delay. Zero
	// means the step reached a settled status and no re-invocation is
	// requested.
	RequeueAfter time.Duration
	// Event is the change notification to deliver to subscribers, if any.
	Event *resource.Event
}

// fail moves the instance to the terminal failed status. The description
// names the operation and, when the remote supplied one, its message.
func fail(inst resource.Instance, operation, message string) (resource.Instance, Result, error) {
	inst.Status = resource.StatusFailed
	description := operation + " failed"
	if message != "" {
		description += ": " + message
	}
	return inst, Result{Status: resource.StatusFailed, Description: description}, nil
}

func operationName(op string) string {
	if op == "" {
		return "operation"
	}
	return strings.ToLower(op)
}
