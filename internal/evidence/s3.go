package evidence

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"lofo/internal/platform/config"
	dErrors "lofo/pkg/domain-errors"
)

// S3Verifier checks refs against an S3-compatible blob store with a
// HeadObject call. The object body is never fetched.
type S3Verifier struct {
	client        *s3.Client
	defaultBucket string
}

// NewS3Verifier builds a verifier from the configured blob store settings.
func NewS3Verifier(ctx context.Context, cfg config.S3) (*S3Verifier, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Verifier{client: client, defaultBucket: cfg.Bucket}, nil
}

// Verify resolves the ref and confirms the object exists.
func (v *S3Verifier) Verify(ctx context.Context, ref string) error {
	bucket, key, err := ParseRef(ref, v.defaultBucket)
	if err != nil {
		return err
	}

	_, err = v.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return dErrors.New(dErrors.CodeValidation, "evidence ref does not resolve to stored content")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "evidence store check failed")
	}
	return nil
}
