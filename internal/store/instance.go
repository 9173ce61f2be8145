package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spacelift-io/flows-app-aws-resources/internal/resource"
)

// Each engine-owned instance field persists under its own key in the
// instance's bucket.
const (
	keyStatus         = "status"
	keyDrifted        = "drifted"
	keyOperationToken = "operationToken"
	keyFingerprint    = "configFingerprint"
	keyIdentifier     = "resourceIdentifier"
	keyObservedState  = "observedState"
)

var instanceKeys = []string{
	keyStatus,
	keyDrifted,
	keyOperationToken,
	keyFingerprint,
	keyIdentifier,
	keyObservedState,
}

// SaveInstance writes the engine-owned fields of inst into b as one batch.
// Caller-owned fields such as type name, region and desired config live in
// configuration and are never persisted.
func SaveInstance(ctx context.Context, b Bucket, inst resource.Instance) error {
	observed := ""
	if inst.ObservedState != nil {
		data, err := json.Marshal(inst.ObservedState)
		if err != nil {
			return fmt.Errorf("encoding observed state: %w", err)
		}
		observed = string(data)
	}

	return b.SetMany(ctx, map[string]string{
		keyStatus:         string(inst.Status),
		keyDrifted:        strconv.FormatBool(inst.Drifted),
		keyOperationToken: inst.OperationToken,
		keyFingerprint:    inst.ConfigFingerprint,
		keyIdentifier:     inst.Identifier,
		keyObservedState:  observed,
	})
}

// LoadInstance fills the engine-owned fields of inst from b. A bucket that
// was never written leaves the instance pending with everything empty.
func LoadInstance(ctx context.Context, b Bucket, inst *resource.Instance) error {
	values := make(map[string]string, len(instanceKeys))
	for _, key := range instanceKeys {
		v, ok, err := b.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("loading %s: %w", key, err)
		}
		if ok {
			values[key] = v
		}
	}

	if status, ok := values[keyStatus]; ok && status != "" {
		inst.Status = resource.Status(status)
	} else {
		inst.Status = resource.StatusPending
	}
	inst.Drifted = values[keyDrifted] == "true"
	inst.OperationToken = values[keyOperationToken]
	inst.ConfigFingerprint = values[keyFingerprint]
	inst.Identifier = values[keyIdentifier]

	inst.ObservedState = nil
	if observed := values[keyObservedState]; observed != "" {
		var state map[string]any
		if err := json.Unmarshal([]byte(observed), &state); err != nil {
			return fmt.Errorf("decoding observed state: %w", err)
		}
		inst.ObservedState = state
	}
	return nil
}

// DiscardInstance removes every persisted field of the instance from b.
// Callers run it once an instance reaches drained.
func DiscardInstance(ctx context.Context, b Bucket) error {
	return b.Delete(ctx, instanceKeys...)
}
