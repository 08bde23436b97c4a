package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter is the part of *s3.Client the outbox needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Outbox drops every message as a JSON object into a bucket, from where a
// mail relay collects it. Keys look like <prefix>/2026/01/31/<id>.json.
type S3Outbox struct {
	client ObjectPutter
	bucket string
	prefix string
}

type S3Options struct {
	AccessKey    string
	SecretKey    string
	Region       string
	BaseEndpoint string
	Bucket       string
	Prefix       string
}

// NewS3Outbox builds an S3 client with static credentials. BaseEndpoint
// points it at an S3-compatible store such as MinIO.
func NewS3Outbox(ctx context.Context, opts S3Options) (*S3Outbox, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3OutboxWithClient(client, opts.Bucket, opts.Prefix), nil
}

func NewS3OutboxWithClient(client ObjectPutter, bucket, prefix string) *S3Outbox {
	return &S3Outbox{client: client, bucket: bucket, prefix: prefix}
}

func (o *S3Outbox) Deliver(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	_, err = o.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(o.bucket),
		Key:         aws.String(o.key(msg)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	return err
}

func (o *S3Outbox) key(msg Message) string {
	return path.Join(o.prefix, msg.CreatedAt.UTC().Format("2006/01/02"), msg.ID+".json")
}
