package mirror

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Kamal2131/stock-etl-airflow/pkg/config"
	"github.com/Kamal2131/stock-etl-airflow/pkg/logger"
)

// Mirror uploads processed partitions to an S3-compatible bucket. The
// mirror is optional: when the bucket or credentials are absent, every
// call short-circuits and the pipeline runs local-only.
type Mirror struct {
	cfg    config.S3Config
	logger *logger.Logger
	client *minio.Client
}

func New(cfg config.S3Config, log *logger.Logger) *Mirror {
	return &Mirror{
		cfg:    cfg,
		logger: log.WithField("component", "mirror"),
	}
}

// IsConfigured reports whether enough configuration is present to mirror.
func (m *Mirror) IsConfigured() bool {
	return m.cfg.Bucket != "" && m.cfg.AccessKeyID != "" && m.cfg.SecretAccessKey != ""
}

// conn returns the S3 client, constructing it on first use.
func (m *Mirror) conn() (*minio.Client, error) {
	if m.client != nil {
		return m.client, nil
	}

	client, err := minio.New(m.cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(m.cfg.AccessKeyID, m.cfg.SecretAccessKey, ""),
		Secure: true,
		Region: m.cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}
	m.client = client
	return client, nil
}

// EquityKey builds the object key for an equity partition file.
func EquityKey(date time.Time, filename string) string {
	return fmt.Sprintf("nifty500/date=%s/%s", date.Format("2006-01-02"), filename)
}

const (
	uploadAttempts = 3
	uploadBackoff  = 2 * time.Second
)

// Upload copies a local file to the bucket under key, retrying transient
// failures. Calling Upload on an unconfigured mirror is an error; gate on
// IsConfigured first.
func (m *Mirror) Upload(ctx context.Context, localPath, key string) error {
	if !m.IsConfigured() {
		return fmt.Errorf("S3 mirror is not configured")
	}

	client, err := m.conn()
	if err != nil {
		return err
	}

	delay := uploadBackoff
	var lastErr error
	for attempt := 1; attempt <= uploadAttempts; attempt++ {
		info, err := client.FPutObject(ctx, m.cfg.Bucket, key, localPath, minio.PutObjectOptions{
			ContentType: "application/octet-stream",
		})
		if err == nil {
			m.logger.WithFields(map[string]interface{}{
				"bucket": m.cfg.Bucket,
				"key":    key,
				"size":   info.Size,
			}).Info("Uploaded partition to S3")
			return nil
		}
		lastErr = err

		if attempt == uploadAttempts {
			break
		}
		m.logger.WithError(err).WithFields(map[string]interface{}{
			"key":     key,
			"attempt": attempt,
		}).Warn("S3 upload failed, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}

	return fmt.Errorf("upload %s after %d attempts: %w", filepath.Base(localPath), uploadAttempts, lastErr)
}

// Exists reports whether an object is already present in the bucket.
func (m *Mirror) Exists(ctx context.Context, key string) (bool, error) {
	if !m.IsConfigured() {
		return false, fmt.Errorf("S3 mirror is not configured")
	}

	client, err := m.conn()
	if err != nil {
		return false, err
	}

	_, err = client.StatObject(ctx, m.cfg.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("stat object %s: %w", key, err)
	}
	return true, nil
}

// List returns the object keys under a prefix.
func (m *Mirror) List(ctx context.Context, prefix string) ([]string, error) {
	if !m.IsConfigured() {
		return nil, fmt.Errorf("S3 mirror is not configured")
	}

	client, err := m.conn()
	if err != nil {
		return nil, err
	}

	var keys []string
	for object := range client.ListObjects(ctx, m.cfg.Bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("list objects: %w", object.Err)
		}
		keys = append(keys, object.Key)
	}
	return keys, nil
}
