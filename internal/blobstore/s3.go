package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"recogni/internal/config"
)

// S3 maps a container onto an S3 bucket or a prefix inside one.
type S3 struct {
	client   s3iface.S3API
	uploader *s3manager.Uploader
	bucket   string
	prefix   string
}

// NewS3 builds a client from the default AWS credential chain. account_name
// and account_key, when set, are used as a static access key pair.
func NewS3(cfg config.Blob, container string) (*S3, error) {
	awsCfg := &aws.Config{}
	if cfg.Region != "" {
		awsCfg.Region = aws.String(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccountName != "" && cfg.AccountKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccountName, cfg.AccountKey, "")
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return newS3WithClient(s3.New(sess), cfg.Bucket, container), nil
}

func newS3WithClient(client s3iface.S3API, bucket, container string) *S3 {
	bucket, prefix := bucketLayout(bucket, container)
	return &S3{
		client:   client,
		uploader: s3manager.NewUploaderWithClient(client),
		bucket:   bucket,
		prefix:   prefix,
	}
}

func (s *S3) Location() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, strings.TrimSuffix(s.prefix, "/"))
}

func (s *S3) key(name string) string {
	return s.prefix + name
}

func (s *S3) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.key(prefix)),
	}
	err := s.client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.StringValue(obj.Key), s.prefix)
			if name == "" || strings.HasSuffix(name, "/") {
				continue
			}
			objects = append(objects, Object{
				Name:         name,
				Size:         aws.Int64Value(obj.Size),
				LastModified: aws.TimeValue(obj.LastModified),
			})
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.Location(), err)
	}
	return objects, nil
}

func (s *S3) Exists(ctx context.Context, name string) (bool, error) {
	if err := validName(name); err != nil {
		return false, err
	}
	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err == nil {
		return true, nil
	}
	if s3NotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s/%s: %w", s.Location(), name, err)
}

func (s *S3) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if s3NotFound(err) {
			return nil, fmt.Errorf("%s/%s: %w", s.Location(), name, ErrNotFound)
		}
		return nil, fmt.Errorf("download %s/%s: %w", s.Location(), name, err)
	}
	return out.Body, nil
}

func (s *S3) Upload(ctx context.Context, name string, r io.Reader, _ int64) error {
	if err := validName(name); err != nil {
		return err
	}
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", s.Location(), name, err)
	}
	return nil
}

// Delete removes name. S3 deletes are idempotent, so a missing key is
// reported through a HEAD first.
func (s *S3) Delete(ctx context.Context, name string) error {
	exists, err := s.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s/%s: %w", s.Location(), name, ErrNotFound)
	}
	_, err = s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", s.Location(), name, err)
	}
	return nil
}

func s3NotFound(err error) bool {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	var awsErr awserr.Error
	if errors.As(err, &awsErr) {
		switch awsErr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
