package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacelift-io/flows-app-aws-resources/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Resources: []config.ResourceConfig{
			{Name: "logs", Type: "AWS::S3::Bucket"},
			{Name: "queue", Type: "AWS::SQS::Queue"},
			{Name: "topic", Type: "AWS::SNS::Topic"},
		},
	}
}

func TestSelectResourcesDefaultsToAll(t *testing.T) {
	selected, err := selectResources(testConfig(), nil)
	require.NoError(t, err)
	require.Len(t, selected, 3)
	assert.Equal(t, "logs", selected[0].Name)
}

func TestSelectResourcesByName(t *testing.T) {
	selected, err := selectResources(testConfig(), []string{"topic", "logs"})
	require.NoError(t, err)
	require.Len(t, selected, 2)

	// Argument order wins over declaration order.
	assert.Equal(t, "topic", selected[0].Name)
	assert.Equal(t, "logs", selected[1].Name)
}

func TestSelectResourcesUnknownName(t *testing.T) {
	_, err := selectResources(testConfig(), []string{"missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}
