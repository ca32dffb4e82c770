package archive

import (
	"errors"
	"fmt"
	"time"

	"github.com/focusdiff/focusdiff/internal/pkg/env"
)

// Config holds artifact archive configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	Enabled         bool
}

// LoadConfig loads archive configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-west-001"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		Enabled:         env.GetEnv("S3_ARCHIVE_ENABLED", "false") == "true",
	}

	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when the artifact archive is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when the artifact archive is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when the artifact archive is enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true if the artifact archive is enabled
func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// ObjectKey generates a standardized object key for a generation artifact.
// Format: generations/YYYY/MM/UUID.ext
func (c *Config) ObjectKey(generationUUID, fileExtension string, t time.Time) string {
	return fmt.Sprintf("generations/%04d/%02d/%s%s", t.Year(), int(t.Month()), generationUUID, fileExtension)
}

// ThumbnailKey generates the object key for an image artifact's thumbnail
func (c *Config) ThumbnailKey(generationUUID string, t time.Time) string {
	return fmt.Sprintf("generations/%04d/%02d/%s_thumb.jpg", t.Year(), int(t.Month()), generationUUID)
}
