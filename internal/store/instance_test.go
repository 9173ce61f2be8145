package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacelift-io/flows-app-aws-resources/internal/resource"
)

func TestInstanceRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryStore().Bucket("web")

	saved := resource.Instance{
		TypeName:          "AWS::S3::Bucket",
		Region:            "eu-west-1",
		DesiredConfig:     map[string]any{"BucketName": "logs"},
		ConfigFingerprint: "abc123",
		OperationToken:    "tok-7",
		Identifier:        "logs",
		ObservedState:     map[string]any{"BucketName": "logs", "Arn": "arn:aws:s3:::logs"},
		Drifted:           true,
		Status:            resource.StatusDriftedReported,
		ReconcileOnDrift:  true,
	}
	require.NoError(t, SaveInstance(ctx, b, saved))

	// The caller rebuilds type, region and config from its own
	// configuration; the store contributes only the engine-owned fields.
	loaded := resource.Instance{
		TypeName:         "AWS::S3::Bucket",
		Region:           "eu-west-1",
		DesiredConfig:    map[string]any{"BucketName": "logs"},
		ReconcileOnDrift: true,
	}
	require.NoError(t, LoadInstance(ctx, b, &loaded))

	assert.Equal(t, saved.ConfigFingerprint, loaded.ConfigFingerprint)
	assert.Equal(t, saved.OperationToken, loaded.OperationToken)
	assert.Equal(t, saved.Identifier, loaded.Identifier)
	assert.Equal(t, saved.ObservedState, loaded.ObservedState)
	assert.Equal(t, saved.Drifted, loaded.Drifted)
	assert.Equal(t, saved.Status, loaded.Status)
}

func TestLoadInstanceFreshBucket(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryStore().Bucket("new")

	inst := resource.Instance{TypeName: "AWS::S3::Bucket"}
	require.NoError(t, LoadInstance(ctx, b, &inst))

	assert.Equal(t, resource.StatusPending, inst.Status)
	assert.Empty(t, inst.OperationToken)
	assert.Empty(t, inst.Identifier)
	assert.Nil(t, inst.ObservedState)
	assert.False(t, inst.Drifted)
}

func TestSaveInstanceClearsStaleValues(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryStore().Bucket("web")

	require.NoError(t, SaveInstance(ctx, b, resource.Instance{
		Status:         resource.StatusInProgress,
		OperationToken: "tok-1",
	}))
	// Token cleared after the operation completed.
	require.NoError(t, SaveInstance(ctx, b, resource.Instance{
		Status:        resource.StatusReady,
		Identifier:    "i-1",
		ObservedState: map[string]any{"Id": "i-1"},
	}))

	var inst resource.Instance
	require.NoError(t, LoadInstance(ctx, b, &inst))
	assert.Empty(t, inst.OperationToken)
	assert.Equal(t, resource.StatusReady, inst.Status)
	assert.Equal(t, "i-1", inst.Identifier)
}

func TestDiscardInstance(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	b := st.Bucket("web")

	require.NoError(t, SaveInstance(ctx, b, resource.Instance{Status: resource.StatusDrained}))
	require.NoError(t, DiscardInstance(ctx, b))

	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	var inst resource.Instance
	require.NoError(t, LoadInstance(ctx, b, &inst))
	assert.Equal(t, resource.StatusPending, inst.Status)
}
