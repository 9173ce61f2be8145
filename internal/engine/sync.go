package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/spacelift-io/flows-app-aws-resources/internal/deepdiff"
	"github.com/spacelift-io/flows-app-aws-resources/internal/fingerprint"
	"github.com/spacelift-io/flows-app-aws-resources/internal/patch"
	"github.com/spacelift-io/flows-app-aws-resources/internal/remote"
	"github.com/spacelift-io/flows-app-aws-resources/internal/resource"
)

// Sync advances inst one step toward its desired configuration. The caller
// persists the returned instance and, when RequeueAfter is set, invokes
// Sync again after that delay. A non-nil error means the step had no remote
// effect worth recording; the caller keeps the prior snapshot and retries.
//
// Remote rejections never surface as errors: they land the instance in the
// terminal failed status with the remote's message in the description.
func (e *Engine) Sync(ctx context.Context, inst resource.Instance) (resource.Instance, Result, error) {
	switch {
	case inst.OperationToken != "":
		return e.pollSync(ctx, inst)
	case inst.Identifier != "":
		return e.reconcile(ctx, inst)
	default:
		return e.create(ctx, inst)
	}
}

func (e *Engine) create(ctx context.Context, inst resource.Instance) (resource.Instance, Result, error) {
	fp, err := fingerprint.Of(inst.DesiredConfig)
	if err != nil {
		return inst, Result{}, err
	}

	progress, err := e.remote.Create(ctx, inst.TypeName, inst.DesiredConfig)
	if err != nil {
		log.Error().Err(err).Str("type", inst.TypeName).Msg("Create request failed")
		return fail(inst, "create", "")
	}
	if progress.Status.Failed() {
		return fail(inst, "create", progress.Message)
	}

	inst.OperationToken = progress.Token
	inst.ConfigFingerprint = fp
	if progress.Identifier != "" {
		inst.Identifier = progress.Identifier
	}
	inst.Status = resource.StatusInProgress
	inst.Drifted = false
	return inst, Result{
		Status:       resource.StatusInProgress,
		Description:  "creating " + inst.TypeName,
		RequeueAfter: e.PollInterval,
	}, nil
}

func (e *Engine) pollSync(ctx context.Context, inst resource.Instance) (resource.Instance, Result, error) {
	progress, err := e.remote.Poll(ctx, inst.OperationToken)
	if err != nil {
		// The token is still good; retry the poll next invocation rather
		// than giving up on an operation that may well be succeeding.
		return inst, Result{}, fmt.Errorf("polling operation: %w", err)
	}

	if progress.Status.Failed() {
		inst.OperationToken = ""
		return fail(inst, operationName(progress.Operation), progress.Message)
	}

	if !progress.Status.Succeeded() {
		// Still running. The remote may rotate the token between polls and
		// may reveal the identifier before completion.
		if progress.Token != "" {
			inst.OperationToken = progress.Token
		}
		if progress.Identifier != "" {
			inst.Identifier = progress.Identifier
		}
		inst.Status = resource.StatusInProgress
		return inst, Result{
			Status:       resource.StatusInProgress,
			Description:  "operation in progress",
			RequeueAfter: e.PollInterval,
		}, nil
	}

	identifier := progress.Identifier
	if identifier == "" {
		identifier = inst.Identifier
	}
	observed, err := e.remote.Read(ctx, inst.TypeName, identifier)
	if err != nil {
		// Token intact: the next invocation re-polls the completed
		// operation and retries this read.
		return inst, Result{}, fmt.Errorf("reading %s %q after completion: %w", inst.TypeName, identifier, err)
	}

	previous := inst.ObservedState
	inst.OperationToken = ""
	inst.Identifier = identifier
	inst.ObservedState = observed
	inst.Status = resource.StatusReady
	inst.Drifted = false

	result := Result{Status: resource.StatusReady, Description: "ready"}
	immutable := e.schemas.Resolve(ctx, inst.TypeName)
	if !deepdiff.Equal(observed, previous, immutable) {
		result.Event = &resource.Event{State: observed, Identifier: identifier}
	}
	return inst, result, nil
}

// reconcile handles an instance with a live resource and no operation in
// flight: detect drift and config changes, then decide between reporting,
// updating and leaving things be.
func (e *Engine) reconcile(ctx context.Context, inst resource.Instance) (resource.Instance, Result, error) {
	actual, err := e.remote.Read(ctx, inst.TypeName, inst.Identifier)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			log.Warn().Str("type", inst.TypeName).Str("identifier", inst.Identifier).
				Msg("Remote resource is gone")
			return fail(inst, "read", "resource no longer exists")
		}
		return inst, Result{}, fmt.Errorf("reading %s %q: %w", inst.TypeName, inst.Identifier, err)
	}

	desiredFingerprint, err := fingerprint.Of(inst.DesiredConfig)
	if err != nil {
		return inst, Result{}, err
	}

	immutable := e.schemas.Resolve(ctx, inst.TypeName)
	driftDetected := !deepdiff.Equal(actual, inst.ObservedState, immutable)
	configChanged := desiredFingerprint != inst.ConfigFingerprint

	if !driftDetected && !configChanged {
		inst.Status = resource.StatusReady
		inst.Drifted = false
		result := Result{Status: resource.StatusReady, Description: "ready"}
		if !deepdiff.Equal(actual, inst.ObservedState, nil) {
			// Only fields outside the drift comparison moved, such as a
			// server-refreshed timestamp. Take the new baseline and let
			// subscribers know.
			inst.ObservedState = actual
			result.Event = &resource.Event{State: actual, Identifier: inst.Identifier}
		}
		return inst, result, nil
	}

	if driftDetected && !configChanged && !inst.ReconcileOnDrift {
		fields := deepdiff.DiffKeys(actual, inst.ObservedState, immutable)
		inst.Status = resource.StatusDriftedReported
		inst.Drifted = true
		// The stored baseline stays put: future invocations keep comparing
		// against the last state this engine converged, not the drifted one.
		return inst, Result{
			Status:      resource.StatusDriftedReported,
			Description: "drift detected in " + strings.Join(fields, ", "),
			Event:       &resource.Event{State: actual, Identifier: inst.Identifier, Drifted: true},
		}, nil
	}

	// Reconciliation is wanted, either because the caller changed the
	// config or because drift correction is enabled.
	explicit := make(map[string]struct{}, len(inst.DesiredConfig))
	for k := range inst.DesiredConfig {
		explicit[k] = struct{}{}
	}
	ops := patch.Generate(actual, inst.DesiredConfig, immutable, explicit)

	if len(ops) == 0 {
		// Nothing patchable differs; accept reality as the new baseline.
		inst.ConfigFingerprint = desiredFingerprint
		changed := !deepdiff.Equal(actual, inst.ObservedState, nil)
		inst.ObservedState = actual
		inst.Status = resource.StatusReady
		inst.Drifted = false
		result := Result{Status: resource.StatusReady, Description: "ready"}
		if changed {
			result.Event = &resource.Event{State: actual, Identifier: inst.Identifier}
		}
		return inst, result, nil
	}

	progress, err := e.remote.Update(ctx, inst.TypeName, inst.Identifier, ops)
	if err != nil {
		log.Error().Err(err).Str("type", inst.TypeName).Str("identifier", inst.Identifier).
			Msg("Update request failed")
		return fail(inst, "update", "")
	}
	if progress.Status.Failed() {
		return fail(inst, "update", progress.Message)
	}

	inst.OperationToken = progress.Token
	inst.ConfigFingerprint = desiredFingerprint
	inst.Status = resource.StatusInProgress
	return inst, Result{
		Status:       resource.StatusInProgress,
		Description:  fmt.Sprintf("updating %d properties", len(ops)),
		RequeueAfter: e.PollInterval,
	}, nil
}
