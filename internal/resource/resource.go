// Package resource defines the persistent model for a managed remote
// resource instance and the notifications it produces.
package resource

// Status describes where an instance sits in its lifecycle.
type Status string

const (
	// StatusPending means the instance exists only as configuration; no
	// remote call has been made yet.
	StatusPending Status = "pending"
	// StatusInProgress means an asynchronous create or update is in flight.
	StatusInProgress Status = "in_progress"
	// StatusReady means the remote resource matches the desired config.
	StatusReady Status = "ready"
	// StatusDriftedReported means out-of-band drift was detected and
	// reported, and automatic reconciliation is disabled for the instance.
	StatusDriftedReported Status = "drifted-reported"
	// StatusDraining means an asynchronous delete is in flight.
	StatusDraining Status = "draining"
	// StatusDrained means the remote resource is gone and the record can be
	// discarded.
	StatusDrained Status = "drained"
	// StatusFailed means a remote operation failed; the engine will not
	// retry on its own.
	StatusFailed Status = "failed"
)

// Terminal reports whether the engine will never move the instance out of
// this status without fresh caller intent.
func (s Status) Terminal() bool {
	return s == StatusFailed || s == StatusDrained
}

// Instance is the full record of one managed remote resource. The engine
// takes an Instance in, returns a modified copy out, and never holds hidden
// state of its own; whatever comes back is what the caller persists.
type Instance struct {
	// TypeName identifies the resource type, e.g. "AWS::S3::Bucket".
	TypeName string `json:"typeName"`
	// Region scopes remote calls for this instance, when set.
	Region string `json:"region,omitempty"`
	// DesiredConfig is the caller's intent: the property document the
	// remote resource should converge to.
	DesiredConfig map[string]any `json:"desiredConfig,omitempty"`
	// ConfigFingerprint is the hash of the desired config as of the last
	// accepted remote mutation.
	ConfigFingerprint string `json:"configFingerprint,omitempty"`
	// OperationToken is the handle of the in-flight asynchronous remote
	// operation, empty when nothing is in flight.
	OperationToken string `json:"operationToken,omitempty"`
	// Identifier is the remote's primary identifier for the resource, empty
	// until the create completes.
	Identifier string `json:"resourceIdentifier,omitempty"`
	// ObservedState is the last remote property document accepted as the
	// reconciliation baseline.
	ObservedState map[string]any `json:"observedState,omitempty"`
	// Drifted records whether the remote state diverged from the baseline
	// without a matching change in desired config.
	Drifted bool `json:"drifted,omitempty"`
	// Status is the lifecycle position as of the last engine step.
	Status Status `json:"status,omitempty"`
	// ReconcileOnDrift makes the engine correct out-of-band changes instead
	// of only reporting them.
	ReconcileOnDrift bool `json:"reconcileOnDrift,omitempty"`
}

// Event is a fire-and-forget notification that an instance's remote state
// changed. It is returned from engine steps rather than pushed from inside
// them, so callers decide how to deliver it.
type Event struct {
	// State is the property document the remote reported.
	State map[string]any `json:"state,omitempty"`
	// Identifier is the remote identifier of the resource, when known.
	Identifier string `json:"resourceIdentifier,omitempty"`
	// Drifted is true when the change was out-of-band rather than the
	// result of an engine-issued operation.
	Drifted bool `json:"drifted"`
}
