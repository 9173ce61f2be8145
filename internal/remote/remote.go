// Package remote defines the boundary to the system that hosts resources
// and to the registry that describes their types. Implementations live
// under providers/.
package remote

import (
	"context"
	"errors"

	"github.com/spacelift-io/flows-app-aws-resources/internal/patch"
)

// ErrNotFound is returned by Read when the identifier no longer resolves to
// a live resource.
var ErrNotFound = errors.New("remote resource not found")

// OperationStatus is the remote's verdict on an asynchronous mutation.
// Anything outside SUCCESS and FAILED counts as still pending.
type OperationStatus string

const (
	StatusSuccess OperationStatus = "SUCCESS"
	StatusFailed  OperationStatus = "FAILED"
	StatusPending OperationStatus = "PENDING"
)

// Succeeded reports a terminal successful operation.
func (s OperationStatus) Succeeded() bool { return s == StatusSuccess }

// Failed reports a terminal failed operation.
func (s OperationStatus) Failed() bool { return s == StatusFailed }

// Progress reports where an asynchronous remote operation stands. Mutating
// calls return one immediately and Poll returns a fresh one on every call.
type Progress struct {
	// Token is the handle for the next poll. The remote may rotate it
	// between polls; callers persist whatever the latest Progress carried.
	Token string
	// Operation is the mutation kind the remote reports: CREATE, UPDATE or
	// DELETE.
	Operation string
	// Status is the operation's current verdict.
	Status OperationStatus
	// Identifier is the resource's primary identifier, once assigned.
	Identifier string
	// Message carries human-readable detail, populated on failure.
	Message string
}

// API is the resource-hosting side of the remote system. All mutations are
// asynchronous: they return a Progress holding a token to poll with, and a
// FAILED Progress rather than an error when the remote itself rejects the
// operation. Go errors signal transport or encoding trouble only.
type API interface {
	// Create starts provisioning a resource from the desired property
	// document.
	Create(ctx context.Context, typeName string, desired map[string]any) (Progress, error)
	// Read fetches the live property document of an existing resource. It
	// returns ErrNotFound when the identifier is gone.
	Read(ctx context.Context, typeName, identifier string) (map[string]any, error)
	// Update starts applying a patch document to an existing resource.
	Update(ctx context.Context, typeName, identifier string, ops []patch.Operation) (Progress, error)
	// Delete starts tearing down an existing resource.
	Delete(ctx context.Context, typeName, identifier string) (Progress, error)
	// Poll reports the current state of an in-flight operation.
	Poll(ctx context.Context, token string) (Progress, error)
}

// TypeDescription is the schema-declared property metadata of one resource
// type. Paths keep their schema form, marker prefixes included, e.g.
// "/properties/Arn".
type TypeDescription struct {
	ReadOnlyProperties   []string
	CreateOnlyProperties []string
}

// Registry describes resource types.
type Registry interface {
	DescribeType(ctx context.Context, typeName string) (TypeDescription, error)
}
