package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client the store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Options configures NewS3Client and NewS3Store.
type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string // S3-compatible providers; implies path-style addressing
	AccessKey string
	SecretKey string
	PublicURL string
}

// NewS3Client builds an S3 client. Static credentials are used when both keys
// are set, otherwise the default AWS credential chain applies.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	loaders := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3Store keeps documents in one bucket.
type S3Store struct {
	client    S3API
	bucket    string
	publicURL string
	now       func() time.Time
}

func NewS3Store(client S3API, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required for the s3 storage backend")
	}
	publicURL := opts.PublicURL
	switch {
	case publicURL != "":
	case opts.Endpoint != "":
		publicURL = joinURL(opts.Endpoint, opts.Bucket)
	default:
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
	}
	return &S3Store{
		client:    client,
		bucket:    opts.Bucket,
		publicURL: publicURL,
		now:       time.Now,
	}, nil
}

func (s *S3Store) Store(ctx context.Context, data []byte, fileName, mimeType string) (DocumentRef, error) {
	key := BuildKey(s.now(), fileName)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(mimeType),
		Metadata: map[string]string{
			"original-name": url.QueryEscape(fileName),
		},
	})
	if err != nil {
		return DocumentRef{}, fmt.Errorf("put object %s: %w", key, err)
	}
	return DocumentRef{
		URL:  joinURL(s.publicURL, key),
		Name: fileName,
		Key:  key,
	}, nil
}

func (s *S3Store) Delete(ctx context.Context, ref DocumentRef) error {
	if ref.Key == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref.Key),
	})
	return err
}
