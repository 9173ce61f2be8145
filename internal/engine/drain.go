package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/spacelift-io/flows-app-aws-resources/internal/resource"
)

// Drain tears the remote resource down. It works from any prior status,
// including failed, and mirrors Sync's step-at-a-time contract: persist the
// returned instance, re-invoke after RequeueAfter when set. Once the
// instance reaches drained the caller discards its record.
func (e *Engine) Drain(ctx context.Context, inst resource.Instance) (resource.Instance, Result, error) {
	if inst.OperationToken != "" {
		return e.pollDrain(ctx, inst)
	}

	if inst.Identifier == "" {
		// Never created, or already torn down.
		inst.Status = resource.StatusDrained
		inst.Drifted = false
		return inst, Result{Status: resource.StatusDrained, Description: "nothing to delete"}, nil
	}

	progress, err := e.remote.Delete(ctx, inst.TypeName, inst.Identifier)
	if err != nil {
		log.Error().Err(err).Str("type", inst.TypeName).Str("identifier", inst.Identifier).
			Msg("Delete request failed")
		return fail(inst, "delete", "")
	}
	if progress.Status.Failed() {
		return fail(inst, "delete", progress.Message)
	}
	if progress.Status.Succeeded() {
		inst.OperationToken = ""
		inst.Status = resource.StatusDrained
		return inst, Result{Status: resource.StatusDrained, Description: "deleted"}, nil
	}

	inst.OperationToken = progress.Token
	inst.Status = resource.StatusDraining
	return inst, Result{
		Status:       resource.StatusDraining,
		Description:  "deleting " + inst.TypeName,
		RequeueAfter: e.PollInterval,
	}, nil
}

func (e *Engine) pollDrain(ctx context.Context, inst resource.Instance) (resource.Instance, Result, error) {
	progress, err := e.remote.Poll(ctx, inst.OperationToken)
	if err != nil {
		return inst, Result{}, fmt.Errorf("polling delete operation: %w", err)
	}

	if progress.Status.Failed() {
		inst.OperationToken = ""
		return fail(inst, operationName(progress.Operation), progress.Message)
	}
	if progress.Status.Succeeded() {
		inst.OperationToken = ""
		inst.Status = resource.StatusDrained
		return inst, Result{Status: resource.StatusDrained, Description: "deleted"}, nil
	}

	if progress.Token != "" {
		inst.OperationToken = progress.Token
	}
	inst.Status = resource.StatusDraining
	return inst, Result{
		Status:       resource.StatusDraining,
		Description:  "delete in progress",
		RequeueAfter: e.PollInterval,
	}, nil
}
