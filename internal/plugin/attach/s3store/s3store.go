// Package s3store keeps attachment files in an S3 bucket. Uploads are
// buffered to a temp file first because S3 needs a known content length and
// the size cap has to be enforced before any bytes leave the process.
package s3store

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/firedesk/records-service/internal/config"
	registryattach "github.com/firedesk/records-service/internal/registry/attach"
)

func init() {
	registryattach.Register(registryattach.Plugin{
		Name:   "s3",
		Loader: load,
	})
}

func load(ctx context.Context) (registryattach.FileStore, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3store: S3 bucket is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRequestChecksumCalculation(aws.RequestChecksumCalculationWhenRequired),
	)
	if err != nil {
		return nil, fmt.Errorf("s3store: load AWS config: %w", err)
	}
	usePathStyle := cfg.S3UsePathStyle
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = usePathStyle
	})
	return &S3FileStore{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.S3Bucket,
		prefix:    strings.Trim(strings.TrimSpace(cfg.S3Prefix), "/"),
	}, nil
}

// S3FileStore implements FileStore against an S3 bucket.
type S3FileStore struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	prefix    string
}

// s3Key returns the object key for a stored filename. The filename is what
// gets persisted on the record; the prefix is applied at access time only.
func (s *S3FileStore) s3Key(filename string) string {
	if s.prefix != "" {
		return s.prefix + "/" + filename
	}
	return filename
}

func (s *S3FileStore) Store(ctx context.Context, originalName string, data io.Reader, maxSize int64) (*registryattach.StoredFile, error) {
	filename := registryattach.StorageName(originalName, time.Now())

	tmp, err := os.CreateTemp("", "records-s3-upload-*")
	if err != nil {
		return nil, fmt.Errorf("s3store: create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	n, err := io.Copy(tmp, io.LimitReader(data, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("s3store: buffer upload stream: %w", err)
	}
	if n > maxSize {
		return nil, fmt.Errorf("file exceeds maximum size of %d bytes", maxSize)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("s3store: rewind temp file: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := s.s3Key(filename)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          tmp,
		ContentLength: aws.Int64(n),
		ContentType:   &contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("s3store: put object: %w", err)
	}
	return &registryattach.StoredFile{Filename: filename, Size: n}, nil
}

func (s *S3FileStore) Retrieve(ctx context.Context, filename string) (io.ReadCloser, error) {
	key := s.s3Key(filename)
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("s3store: get object: %w", err)
	}
	return resp.Body, nil
}

func (s *S3FileStore) Delete(ctx context.Context, filename string) error {
	key := s.s3Key(filename)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("s3store: delete object: %w", err)
	}
	return nil
}

func (s *S3FileStore) SignedURL(ctx context.Context, filename string, expiry time.Duration) (*url.URL, error) {
	key := s.s3Key(filename)
	resp, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return nil, fmt.Errorf("s3store: presign get object: %w", err)
	}
	return url.Parse(resp.URL)
}
