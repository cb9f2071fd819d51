package filestore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3 stores files in a bucket under {prefix}/{entity}/{filename}.
type S3 struct {
	Bucket string
	Prefix string
	client *s3.Client
}

// NewS3 loads the default AWS configuration and returns an S3 store.
func NewS3(ctx context.Context, bucket, prefix string) (*S3, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return &S3{Bucket: bucket, Prefix: prefix, client: s3.NewFromConfig(cfg)}, nil
}

func (s *S3) key(entity, name string) (string, error) {
	ent, err := cleanName(entity)
	if err != nil {
		return "", err
	}
	n, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return path.Join(s.Prefix, ent, n), nil
}

func (s *S3) exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.Bucket), Key: aws.String(key)})
	if err == nil {
		return true, nil
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return false, nil
	}
	return false, err
}

// Save uploads r. A taken name gets a timestamp prefix.
func (s *S3) Save(ctx context.Context, entity, filename string, r io.Reader) (string, error) {
	name, err := cleanName(filename)
	if err != nil {
		return "", err
	}
	key, err := s.key(entity, name)
	if err != nil {
		return "", err
	}
	taken, err := s.exists(ctx, key)
	if err != nil {
		return "", err
	}
	if taken {
		name = prefixed(time.Now(), name)
		key = path.Join(path.Dir(key), name)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

// Open streams a stored object.
func (s *S3) Open(ctx context.Context, entity, filename string) (io.ReadCloser, error) {
	key, err := s.key(entity, filename)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.Bucket), Key: aws.String(key)})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

// Delete removes a stored object.
func (s *S3) Delete(ctx context.Context, entity, filename string) error {
	key, err := s.key(entity, filename)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.Bucket), Key: aws.String(key)})
	return err
}
