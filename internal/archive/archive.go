package archive

import (
	"context"
	"fmt"
	"path"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/pratik-mahalle/jobtrail/internal/config"
	"github.com/pratik-mahalle/jobtrail/internal/domain/billing"
)

const payloadContentType = "application/json"

// New returns the archiver for the configured backend, or a no-op archiver
// when no bucket is set
func New(ctx context.Context, cfg config.ArchiveConfig) (billing.Archiver, error) {
	if !cfg.Enabled() {
		return Noop{}, nil
	}

	switch cfg.Backend {
	case "", "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOptions(cfg)...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return NewS3Archiver(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), nil
	case "gcs":
		client, err := newGCSClient(ctx, cfg.GCPCredentialsJSON)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		return NewGCSArchiver(client, cfg.Bucket, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("unsupported archive backend: %s", cfg.Backend)
	}
}

func awsOptions(cfg config.ArchiveConfig) []func(*awsconfig.LoadOptions) error {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}
	return opts
}

// objectKey returns <prefix>/yyyy/mm/dd/<eventId>.json
func objectKey(prefix, eventID string, receivedAt time.Time) string {
	if eventID == "" {
		eventID = "unknown-" + uuid.NewString()
	}
	t := receivedAt.UTC()
	return path.Join(prefix, t.Format("2006"), t.Format("01"), t.Format("02"), eventID+".json")
}

// Noop discards payloads
type Noop struct{}

// Archive does nothing
func (Noop) Archive(context.Context, string, time.Time, []byte) error {
	return nil
}
