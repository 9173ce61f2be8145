// Package fake provides an in-memory remote for tests and offline runs. It
// keeps the behaviors the engine is sensitive to: mutations are
// asynchronous, identifiers are assigned server-side, read-only properties
// appear when a resource materializes, tokens can rotate between polls, and
// property documents come back JSON-typed.
package fake

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/spacelift-io/flows-app-aws-resources/internal/patch"
	"github.com/spacelift-io/flows-app-aws-resources/internal/remote"
)

type operation struct {
	kind       string
	identifier string
	remaining  int
	done       bool
	apply      func()
}

// Calls counts how many times each API method ran.
type Calls struct {
	Creates, Reads, Updates, Deletes, Polls, Describes int
}

// Remote implements both the resource API and the type registry.
type Remote struct {
	mu sync.Mutex

	resources  map[string]map[string]any
	operations map[string]*operation
	types      map[string]remote.TypeDescription
	calls      Calls

	nextID    int
	nextToken int

	// PendingPolls is how many polls report still-pending before an
	// operation lands. At zero, deletes complete inside the Delete call
	// itself; creates and updates still require one poll.
	PendingPolls int
	// RotateTokens hands out a fresh token on every pending poll.
	RotateTokens bool
	// FailCreate, FailUpdate and FailDelete make the corresponding call
	// report a FAILED progress with the given message.
	FailCreate string
	FailUpdate string
	FailDelete string
}

// New returns an empty fake with one pending poll per operation.
func New() *Remote {
	return &Remote{
		resources:    make(map[string]map[string]any),
		operations:   make(map[string]*operation),
		types:        make(map[string]remote.TypeDescription),
		PendingPolls: 1,
	}
}

// RegisterType declares the schema metadata DescribeType serves for
// typeName.
func (r *Remote) RegisterType(typeName string, desc remote.TypeDescription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[typeName] = desc
}

// Resource returns a copy of the live property document for identifier.
func (r *Remote) Resource(identifier string) (map[string]any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	props, ok := r.resources[identifier]
	if !ok {
		return nil, false
	}
	out, err := cloneProperties(props)
	if err != nil {
		return nil, false
	}
	return out, true
}

// SetResource plants or mutates a live resource out-of-band, the way a
// human with console access would.
func (r *Remote) SetResource(identifier string, props map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resources[identifier] = props
}

// Calls returns a snapshot of the per-method call counters.
func (r *Remote) Calls() Calls {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *Remote) Create(_ context.Context, typeName string, desired map[string]any) (remote.Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls.Creates++

	if r.FailCreate != "" {
		return remote.Progress{Operation: "CREATE", Status: remote.StatusFailed, Message: r.FailCreate}, nil
	}

	props, err := cloneProperties(desired)
	if err != nil {
		return remote.Progress{}, fmt.Errorf("encoding desired state: %w", err)
	}

	r.nextID++
	identifier := fmt.Sprintf("%s-%04d", shortName(typeName), r.nextID)
	props["Arn"] = "arn:fake:" + typeName + "/" + identifier

	token := r.register(&operation{
		kind:       "CREATE",
		identifier: identifier,
		remaining:  r.PendingPolls,
		apply:      func() { r.resources[identifier] = props },
	})
	return remote.Progress{Token: token, Operation: "CREATE", Status: remote.StatusPending}, nil
}

func (r *Remote) Read(_ context.Context, _ string, identifier string) (map[string]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls.Reads++

	props, ok := r.resources[identifier]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return cloneProperties(props)
}

func (r *Remote) Update(_ context.Context, _ string, identifier string, ops []patch.Operation) (remote.Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls.Updates++

	if r.FailUpdate != "" {
		return remote.Progress{Operation: "UPDATE", Status: remote.StatusFailed, Message: r.FailUpdate}, nil
	}
	current, ok := r.resources[identifier]
	if !ok {
		return remote.Progress{Operation: "UPDATE", Status: remote.StatusFailed, Message: "resource not found"}, nil
	}

	// Values inside ops may carry config-typed numbers; round-trip them so
	// reads keep returning JSON-typed documents.
	patched, err := cloneProperties(patch.Apply(current, ops))
	if err != nil {
		return remote.Progress{}, fmt.Errorf("encoding patched state: %w", err)
	}

	token := r.register(&operation{
		kind:       "UPDATE",
		identifier: identifier,
		remaining:  r.PendingPolls,
		apply:      func() { r.resources[identifier] = patched },
	})
	return remote.Progress{Token: token, Operation: "UPDATE", Status: remote.StatusPending, Identifier: identifier}, nil
}

func (r *Remote) Delete(_ context.Context, _ string, identifier string) (remote.Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls.Deletes++

	if r.FailDelete != "" {
		return remote.Progress{Operation: "DELETE", Status: remote.StatusFailed, Message: r.FailDelete}, nil
	}
	if _, ok := r.resources[identifier]; !ok {
		return remote.Progress{Operation: "DELETE", Status: remote.StatusFailed, Message: "resource not found"}, nil
	}

	if r.PendingPolls == 0 {
		delete(r.resources, identifier)
		return remote.Progress{Operation: "DELETE", Status: remote.StatusSuccess, Identifier: identifier}, nil
	}

	token := r.register(&operation{
		kind:       "DELETE",
		identifier: identifier,
		remaining:  r.PendingPolls,
		apply:      func() { delete(r.resources, identifier) },
	})
	return remote.Progress{Token: token, Operation: "DELETE", Status: remote.StatusPending, Identifier: identifier}, nil
}

func (r *Remote) Poll(_ context.Context, token string) (remote.Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls.Polls++

	op, ok := r.operations[token]
	if !ok {
		return remote.Progress{}, fmt.Errorf("unknown request token %q", token)
	}

	if op.remaining > 0 {
		op.remaining--
		next := token
		if r.RotateTokens {
			delete(r.operations, token)
			next = r.register(op)
		}
		return remote.Progress{Token: next, Operation: op.kind, Status: remote.OperationStatus("IN_PROGRESS")}, nil
	}

	// Completed operations keep answering SUCCESS so a caller that lost
	// the race between poll and read can come back.
	if !op.done {
		op.done = true
		op.apply()
	}
	return remote.Progress{Token: token, Operation: op.kind, Status: remote.StatusSuccess, Identifier: op.identifier}, nil
}

func (r *Remote) DescribeType(_ context.Context, typeName string) (remote.TypeDescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls.Describes++

	desc, ok := r.types[typeName]
	if !ok {
		return remote.TypeDescription{}, fmt.Errorf("type %q not registered", typeName)
	}
	return desc, nil
}

// register must be called with the mutex held.
func (r *Remote) register(op *operation) string {
	r.nextToken++
	token := fmt.Sprintf("op-%04d", r.nextToken)
	r.operations[token] = op
	return token
}

// cloneProperties deep-copies a document through JSON, which also converts
// config-typed values into the types a real remote would return.
func cloneProperties(props map[string]any) (map[string]any, error) {
	data, err := json.Marshal(props)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = make(map[string]any)
	}
	return out, nil
}

func shortName(typeName string) string {
	if i := strings.LastIndex(typeName, "::"); i >= 0 {
		return strings.ToLower(typeName[i+2:])
	}
	return strings.ToLower(typeName)
}
