package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store keeps each bucket key as one object under
// s3://<bucket>/<prefix>/<bucketName>/<key>. It trades latency for zero
// local state, which suits short-lived runners that share a backing bucket.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store builds an S3-backed store from config, using the default AWS
// credential chain.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "state"
	}

	return &S3Store{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: strings.Trim(prefix, "/"),
	}, nil
}

func (s *S3Store) Bucket(name string) Bucket {
	return &s3Bucket{store: s, name: name}
}

// Close is a no-op; the underlying HTTP client needs no teardown.
func (s *S3Store) Close() error { return nil }

type s3Bucket struct {
	store *S3Store
	name  string
}

func (b *s3Bucket) objectKey(key string) string {
	return path.Join(b.store.prefix, b.name, key)
}

func (b *s3Bucket) objectPrefix() string {
	return path.Join(b.store.prefix, b.name) + "/"
}

func (b *s3Bucket) Get(ctx context.Context, key string) (string, bool, error) {
	result, err := b.store.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.store.bucket),
		Key:    aws.String(b.objectKey(key)),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return "", false, nil
		}
		// Some S3-compatible endpoints report the miss differently.
		if strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "404") {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading s3://%s/%s: %w", b.store.bucket, b.objectKey(key), err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return "", false, fmt.Errorf("reading S3 object body: %w", err)
	}
	return string(data), true, nil
}

func (b *s3Bucket) Set(ctx context.Context, key, value string) error {
	_, err := b.store.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.store.bucket),
		Key:    aws.String(b.objectKey(key)),
		Body:   bytes.NewReader([]byte(value)),
	})
	if err != nil {
		return fmt.Errorf("writing s3://%s/%s: %w", b.store.bucket, b.objectKey(key), err)
	}
	return nil
}

// SetMany writes each key as its own object. S3 has no multi-object atomic
// write, so a failure can leave a partial batch; callers recover by
// re-running the step that produced it.
func (b *s3Bucket) SetMany(ctx context.Context, values map[string]string) error {
	for k, v := range values {
		if err := b.Set(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}

func (b *s3Bucket) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	objects := make([]s3types.ObjectIdentifier, 0, len(keys))
	for _, k := range keys {
		objects = append(objects, s3types.ObjectIdentifier{Key: aws.String(b.objectKey(k))})
	}
	_, err := b.store.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(b.store.bucket),
		Delete: &s3types.Delete{Objects: objects, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("deleting from s3://%s: %w", b.store.bucket, err)
	}
	return nil
}

func (b *s3Bucket) Keys(ctx context.Context) ([]string, error) {
	prefix := b.objectPrefix()
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(b.store.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.store.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing s3://%s/%s: %w", b.store.bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			keys = append(keys, strings.TrimPrefix(*obj.Key, prefix))
		}
	}
	return keys, nil
}

func (b *s3Bucket) Clear(ctx context.Context) error {
	keys, err := b.Keys(ctx)
	if err != nil {
		return err
	}
	return b.Delete(ctx, keys...)
}
