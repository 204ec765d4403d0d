package backup

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"

	awsinternal "costscope/internal/aws"
	"costscope/internal/logging"
)

const keyPrefix = "raw-cost-data"

// Writer copies raw billing payloads to S3 for audit. Writes are
// best-effort from the pipeline's viewpoint; callers log and continue on
// failure.
type Writer struct {
	uploader s3manageriface.UploaderAPI
	bucket   string
}

// NewWriter creates a backup writer for the given bucket. region overrides
// the session region when the bucket lives elsewhere.
func NewWriter(sess *session.Session, bucket, region string) (*Writer, error) {
	if bucket == "" {
		return nil, fmt.Errorf("backup bucket not configured")
	}

	bucketSess, err := awsinternal.GetSessionInRegion(sess, region)
	if err != nil {
		return nil, fmt.Errorf("failed to create session for backup bucket: %w", err)
	}

	return &Writer{
		uploader: s3manager.NewUploader(bucketSess),
		bucket:   bucket,
	}, nil
}

// NewWriterWithUploader creates a writer with an injected uploader
func NewWriterWithUploader(uploader s3manageriface.UploaderAPI, bucket string) *Writer {
	return &Writer{uploader: uploader, bucket: bucket}
}

// objectKey returns the object key in the form
// raw-cost-data/YYYY/MM/DD/<accountID>/HH-MM-SS.json.gz
func objectKey(accountID string, t time.Time) string {
	return path.Join(keyPrefix, t.Format("2006/01/02"), accountID, t.Format("15-04-05")+".json.gz")
}

// compress gzips the payload
func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)

	if _, err := gz.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write to gzip writer: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}

	return buf.Bytes(), nil
}

// Write uploads the payload and returns the object key
func (w *Writer) Write(ctx context.Context, accountID string, payload []byte) (string, error) {
	compressed, err := compress(payload)
	if err != nil {
		return "", err
	}

	key := objectKey(accountID, time.Now().UTC())
	_, err = w.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:          aws.String(w.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(compressed),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload backup to s3://%s/%s: %w", w.bucket, key, err)
	}

	logging.Debug("Wrote raw payload backup", map[string]interface{}{
		"bucket": w.bucket,
		"key":    key,
		"bytes":  len(compressed),
	})
	return key, nil
}
