package aws

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(maxRetries int) *RetryPolicy {
	return &RetryPolicy{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   time.Millisecond,
	}
}

func TestRetryWithBackoffEventualSuccess(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), fastPolicy(3), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset by peer")
		}
		return nil
	}, IsTransientError)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoffPermanentError(t *testing.T) {
	permanent := errors.New("invalid property Foo")
	attempts := 0
	err := RetryWithBackoff(context.Background(), fastPolicy(3), func() error {
		attempts++
		return permanent
	}, IsTransientError)

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoffExhausted(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), fastPolicy(2), func() error {
		attempts++
		return errors.New("request was throttled")
	}, IsTransientError)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries")
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoffRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, &RetryPolicy{MaxRetries: 3, BaseDelay: time.Minute, MaxDelay: time.Minute}, func() error {
		return errors.New("request was throttled")
	}, IsTransientError)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsTransientError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"throttling code", &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"}, true},
		{"wrapped throttling code", fmt.Errorf("creating AWS::S3::Bucket: %w", &smithy.GenericAPIError{Code: "ThrottlingException"}), true},
		{"denied code", &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "not authorized"}, false},
		{"connection reset", errors.New("read tcp 10.0.0.1:443: connection reset by peer"), true},
		{"io timeout", errors.New("dial tcp: i/o timeout"), true},
		{"validation", errors.New("model validation failed"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransientError(tc.err))
		})
	}
}
