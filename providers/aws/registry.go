package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"

	"github.com/spacelift-io/flows-app-aws-resources/internal/remote"
)

type typeSchema struct {
	ReadOnlyProperties   []string `json:"readOnlyProperties"`
	CreateOnlyProperties []string `json:"createOnlyProperties"`
}

// DescribeType fetches the registry schema for a resource type and
// extracts the property classifications the engine cares about.
func (c *Client) DescribeType(ctx context.Context, typeName string) (remote.TypeDescription, error) {
	var out *cloudformation.DescribeTypeOutput
	err := RetryWithBackoff(ctx, c.retry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var callErr error
		out, callErr = c.cf.DescribeType(ctx, &cloudformation.DescribeTypeInput{
			Type:     cftypes.RegistryTypeResource,
			TypeName: strPtr(typeName),
		})
		return callErr
	}, IsTransientError)
	if err != nil {
		return remote.TypeDescription{}, fmt.Errorf("describing type %s: %w", typeName, err)
	}
	if out.Schema == nil {
		return remote.TypeDescription{}, nil
	}
	return ParseTypeSchema(*out.Schema)
}

// ParseTypeSchema decodes the raw registry schema document. Only the
// readOnlyProperties and createOnlyProperties sections are used; the
// rest of the schema describes validation we leave to the service.
func ParseTypeSchema(doc string) (remote.TypeDescription, error) {
	var s typeSchema
	if err := json.Unmarshal([]byte(doc), &s); err != nil {
		return remote.TypeDescription{}, fmt.Errorf("decoding type schema: %w", err)
	}
	return remote.TypeDescription{
		ReadOnlyProperties:   s.ReadOnlyProperties,
		CreateOnlyProperties: s.CreateOnlyProperties,
	}, nil
}
