package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2/log"

	"github.com/focusdiff/focusdiff/app/models"
	"github.com/focusdiff/focusdiff/app/repository"
)

const (
	thumbnailWidth  = 512
	maxArtifactSize = 256 << 20 // provider-hosted videos stay well below this
)

// Archiver copies finished artifacts from the provider's short-lived URLs
// into the app's own bucket, and renders a thumbnail for images. Everything
// here is best effort and runs off the request path.
type Archiver struct {
	s3Client *s3.Client
	config   *Config
	gens     repository.GenerationRepository

	httpClient *http.Client
}

// NewArchiver creates an archive client and verifies bucket access
func NewArchiver(cfg *Config, gens repository.GenerationRepository) (*Archiver, error) {
	if !cfg.IsEnabled() {
		return nil, fmt.Errorf("artifact archive is disabled")
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	a := &Archiver{
		s3Client: s3Client,
		config:   cfg,
		gens:     gens,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}

	if err := a.testConnection(); err != nil {
		return nil, fmt.Errorf("failed to connect to S3: %w", err)
	}

	log.Infof("[Archive] Successfully initialized S3 client for bucket: %s", cfg.BucketName)
	return a, nil
}

func (a *Archiver) testConnection() error {
	_, err := a.s3Client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(a.config.BucketName),
	})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", a.config.BucketName, err)
	}
	return nil
}

// Archive fetches the generation's result and stores a durable copy. For
// images a JPEG thumbnail is stored alongside. Failures are logged and
// swallowed; the generation row keeps the provider URL either way.
func (a *Archiver) Archive(gen *models.Generation) {
	if gen == nil || gen.ResultURL == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	data, err := a.fetch(ctx, gen.ResultURL)
	if err != nil {
		log.Errorf("[Archive] fetch failed for generation %s: %v", gen.UUID, err)
		return
	}

	key := a.config.ObjectKey(gen.UUID, artifactExtension(gen), gen.CreatedAt)
	if err := a.put(ctx, key, data, contentTypeFor(gen)); err != nil {
		log.Errorf("[Archive] upload failed for generation %s: %v", gen.UUID, err)
		return
	}
	gen.ArchiveKey = key

	if gen.Kind == models.GenerationKindImage {
		if thumbKey, err := a.storeThumbnail(ctx, gen, data); err != nil {
			log.Warnf("[Archive] thumbnail failed for generation %s: %v", gen.UUID, err)
		} else {
			gen.ThumbnailURL = thumbKey
		}
	}

	if err := a.gens.Update(gen); err != nil {
		log.Errorf("[Archive] failed to record archive key for generation %s: %v", gen.UUID, err)
		return
	}

	log.Infof("[Archive] archived generation %s as s3://%s/%s (%d bytes)",
		gen.UUID, a.config.BucketName, key, len(data))
}

func (a *Archiver) fetch(ctx context.Context, artifactURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artifactURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artifact download failed: status=%d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtifactSize))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("artifact download returned empty body")
	}
	return data, nil
}

func (a *Archiver) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := a.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.config.BucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata: map[string]string{
			"upload-source": "focusdiff-archive",
		},
	})
	return err
}

func (a *Archiver) storeThumbnail(ctx context.Context, gen *models.Generation, data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	thumb := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}

	key := a.config.ThumbnailKey(gen.UUID, gen.CreatedAt)
	if err := a.put(ctx, key, buf.Bytes(), "image/jpeg"); err != nil {
		return "", err
	}
	return key, nil
}

// artifactExtension picks the stored extension from the provider URL,
// falling back to a sensible default per artifact kind.
func artifactExtension(gen *models.Generation) string {
	if u, err := url.Parse(gen.ResultURL); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); ext != "" {
			return ext
		}
	}
	if gen.Kind == models.GenerationKindVideo {
		return ".mp4"
	}
	return ".png"
}

func contentTypeFor(gen *models.Generation) string {
	switch artifactExtension(gen) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}
