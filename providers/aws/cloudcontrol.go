// Package aws adapts the AWS Cloud Control API to the resource
// lifecycle the engine drives. Every resource type in the
// CloudFormation registry is reachable through the same five calls,
// so a single client covers the whole catalogue.
package aws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudcontrol"
	cctypes "github.com/aws/aws-sdk-go-v2/service/cloudcontrol/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/spacelift-io/flows-app-aws-resources/internal/patch"
	"github.com/spacelift-io/flows-app-aws-resources/internal/remote"
)

// DefaultRateLimitRPS is the request budget applied when the caller
// does not set one. Cloud Control throttles per account and region.
const DefaultRateLimitRPS = 5

// Options configures the client.
type Options struct {
	Region       string
	Profile      string
	RateLimitRPS float64
}

// Client implements both the resource API and the type registry on
// top of Cloud Control and the CloudFormation registry. All calls
// share one rate limiter so polling cannot starve mutations.
type Client struct {
	cc      *cloudcontrol.Client
	cf      *cloudformation.Client
	limiter *rate.Limiter
	retry   *RetryPolicy
}

// New loads AWS credentials from the default chain and builds a
// client for the given region.
func New(ctx context.Context, opts Options) (*Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(opts.Profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	rps := opts.RateLimitRPS
	if rps <= 0 {
		rps = DefaultRateLimitRPS
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		cc:      cloudcontrol.NewFromConfig(cfg),
		cf:      cloudformation.NewFromConfig(cfg),
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		retry:   DefaultRetryPolicy(),
	}, nil
}

// Create starts provisioning a resource. The returned progress always
// carries a request token; Cloud Control creates are never
// synchronous.
func (c *Client) Create(ctx context.Context, typeName string, desired map[string]any) (remote.Progress, error) {
	doc, err := json.Marshal(desired)
	if err != nil {
		return remote.Progress{}, fmt.Errorf("encoding desired state: %w", err)
	}

	// The client token makes retried submissions idempotent, so it has
	// to stay stable across attempts.
	clientToken := uuid.NewString()

	var out *cloudcontrol.CreateResourceOutput
	err = RetryWithBackoff(ctx, c.retry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var callErr error
		out, callErr = c.cc.CreateResource(ctx, &cloudcontrol.CreateResourceInput{
			TypeName:     strPtr(typeName),
			DesiredState: strPtr(string(doc)),
			ClientToken:  strPtr(clientToken),
		})
		return callErr
	}, IsTransientError)
	if err != nil {
		return remote.Progress{}, fmt.Errorf("creating %s: %w", typeName, err)
	}
	return progressFromEvent(out.ProgressEvent), nil
}

// Read returns the live properties of a resource, decoded from the
// JSON document Cloud Control hands back.
func (c *Client) Read(ctx context.Context, typeName, identifier string) (map[string]any, error) {
	var out *cloudcontrol.GetResourceOutput
	err := RetryWithBackoff(ctx, c.retry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var callErr error
		out, callErr = c.cc.GetResource(ctx, &cloudcontrol.GetResourceInput{
			TypeName:   strPtr(typeName),
			Identifier: strPtr(identifier),
		})
		return callErr
	}, IsTransientError)
	if err != nil {
		var notFound *cctypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, remote.ErrNotFound
		}
		return nil, fmt.Errorf("reading %s %q: %w", typeName, identifier, err)
	}

	props := map[string]any{}
	if out.ResourceDescription != nil && out.ResourceDescription.Properties != nil {
		if err := json.Unmarshal([]byte(*out.ResourceDescription.Properties), &props); err != nil {
			return nil, fmt.Errorf("decoding %s %q properties: %w", typeName, identifier, err)
		}
	}
	return props, nil
}

// Update submits a JSON patch against the resource.
func (c *Client) Update(ctx context.Context, typeName, identifier string, ops []patch.Operation) (remote.Progress, error) {
	doc, err := json.Marshal(ops)
	if err != nil {
		return remote.Progress{}, fmt.Errorf("encoding patch document: %w", err)
	}

	clientToken := uuid.NewString()

	var out *cloudcontrol.UpdateResourceOutput
	err = RetryWithBackoff(ctx, c.retry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var callErr error
		out, callErr = c.cc.UpdateResource(ctx, &cloudcontrol.UpdateResourceInput{
			TypeName:      strPtr(typeName),
			Identifier:    strPtr(identifier),
			PatchDocument: strPtr(string(doc)),
			ClientToken:   strPtr(clientToken),
		})
		return callErr
	}, IsTransientError)
	if err != nil {
		return remote.Progress{}, fmt.Errorf("updating %s %q: %w", typeName, identifier, err)
	}
	return progressFromEvent(out.ProgressEvent), nil
}

// Delete starts removing the resource.
func (c *Client) Delete(ctx context.Context, typeName, identifier string) (remote.Progress, error) {
	clientToken := uuid.NewString()

	var out *cloudcontrol.DeleteResourceOutput
	err := RetryWithBackoff(ctx, c.retry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var callErr error
		out, callErr = c.cc.DeleteResource(ctx, &cloudcontrol.DeleteResourceInput{
			TypeName:    strPtr(typeName),
			Identifier:  strPtr(identifier),
			ClientToken: strPtr(clientToken),
		})
		return callErr
	}, IsTransientError)
	if err != nil {
		return remote.Progress{}, fmt.Errorf("deleting %s %q: %w", typeName, identifier, err)
	}
	return progressFromEvent(out.ProgressEvent), nil
}

// Poll reports the state of an in-flight operation.
func (c *Client) Poll(ctx context.Context, token string) (remote.Progress, error) {
	var out *cloudcontrol.GetResourceRequestStatusOutput
	err := RetryWithBackoff(ctx, c.retry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var callErr error
		out, callErr = c.cc.GetResourceRequestStatus(ctx, &cloudcontrol.GetResourceRequestStatusInput{
			RequestToken: strPtr(token),
		})
		return callErr
	}, IsTransientError)
	if err != nil {
		return remote.Progress{}, fmt.Errorf("polling request %q: %w", token, err)
	}
	return progressFromEvent(out.ProgressEvent), nil
}

func progressFromEvent(event *cctypes.ProgressEvent) remote.Progress {
	if event == nil {
		return remote.Progress{}
	}
	p := remote.Progress{
		Operation: string(event.Operation),
		Status:    remote.OperationStatus(event.OperationStatus),
	}
	if event.RequestToken != nil {
		p.Token = *event.RequestToken
	}
	if event.Identifier != nil {
		p.Identifier = *event.Identifier
	}
	if event.StatusMessage != nil {
		p.Message = *event.StatusMessage
	}
	if p.Message == "" && event.ErrorCode != "" {
		p.Message = string(event.ErrorCode)
	}
	return p
}

func strPtr(s string) *string {
	return &s
}
