// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package storage uploads profile images to S3-compatible object storage
// (AWS S3, MinIO, Cloudflare R2) and returns their public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/taibuivan/vidora/pkg/uuid"
)

// keyPrefix groups every uploaded profile image under one folder.
const keyPrefix = "images"

// sniffLen is how many bytes content-type detection looks at.
const sniffLen = 512

// ErrEmptyFile is returned when the staged file has no content.
var ErrEmptyFile = errors.New("storage: file is empty")

// ObjectPutter is the subset of the S3 client the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config holds object storage settings.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// PublicURL is the base under which uploaded keys are publicly readable.
	// Falls back to Endpoint/Bucket, then to the AWS virtual-hosted URL.
	PublicURL string
}

// NewS3Client builds an S3 client. Static credentials are used when both keys
// are set; otherwise the default AWS credential chain applies.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	options := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		options = append(options, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3Uploader stores local files as public objects.
type S3Uploader struct {
	client  ObjectPutter
	bucket  string
	baseURL string
	now     func() time.Time
}

// NewS3Uploader creates an uploader writing into cfg.Bucket through client.
func NewS3Uploader(client ObjectPutter, cfg S3Config) *S3Uploader {
	return &S3Uploader{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: publicBase(cfg),
		now:     time.Now,
	}
}

// Upload puts the file at localPath under a fresh date-partitioned key and
// returns the object's public URL.
func (uploader *S3Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("storage: open %s: %w", filepath.Base(localPath), err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("storage: stat: %w", err)
	}
	if info.Size() == 0 {
		return "", ErrEmptyFile
	}

	contentType, err := detectContentType(file)
	if err != nil {
		return "", err
	}

	key := uploader.objectKey(filepath.Ext(localPath))
	_, err = uploader.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(uploader.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("storage: put object %s: %w", key, err)
	}

	return uploader.baseURL + "/" + key, nil
}

// objectKey returns images/yyyy/mm/dd/<uuidv7><ext>.
func (uploader *S3Uploader) objectKey(extension string) string {
	date := uploader.now().UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s%s",
		keyPrefix, date.Year(), int(date.Month()), date.Day(), uuid.New(), strings.ToLower(extension))
}

// detectContentType sniffs the leading bytes and rewinds the file.
func detectContentType(file io.ReadSeeker) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("storage: read header: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("storage: rewind: %w", err)
	}
	return http.DetectContentType(head[:n]), nil
}

func publicBase(cfg S3Config) string {
	switch {
	case cfg.PublicURL != "":
		return strings.TrimRight(cfg.PublicURL, "/")
	case cfg.Endpoint != "":
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}
