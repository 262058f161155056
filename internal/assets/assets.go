package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
)

// Names of the assets the scoreboard needs
const (
	BACKGROUND = "scoreboard_template.png"
	FONT       = "font.ttf"
)

var ErrAssetNotFound = errors.New("asset not found")

// Source provides the static files used to draw the scoreboard
type Source interface {
	Load(ctx context.Context, name string) ([]byte, error)
}

// Dir reads assets from a local directory
type Dir string

func (d Dir) Load(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(string(d), filepath.Base(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", name, err)
	}
	return data, nil
}

type BucketConfig struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Bucket reads assets from an S3 compatible bucket
type Bucket struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewBucket(ctx context.Context, cfg BucketConfig) (*Bucket, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("asset bucket name is required")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	options := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		options = append(options, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	sdkConfig, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Bucket{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (b *Bucket) Load(ctx context.Context, name string) ([]byte, error) {
	key := b.prefix + name
	output, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return nil, fmt.Errorf("%w: s3://%s/%s", ErrAssetNotFound, b.bucket, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", b.bucket, key, err)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", b.bucket, key, err)
	}
	log.Debug().Str("key", key).Int("bytes", len(data)).Msg("Loaded asset from bucket")
	return data, nil
}

// LoadOptional is Load where a missing asset gives nil data
func LoadOptional(ctx context.Context, source Source, name string) ([]byte, error) {
	data, err := source.Load(ctx, name)
	if errors.Is(err, ErrAssetNotFound) {
		log.Info().Str("asset", name).Msg("Optional asset not found, using default")
		return nil, nil
	}
	return data, err
}
