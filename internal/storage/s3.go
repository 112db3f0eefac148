package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/telemetry"
)

// S3Uploader publishes render outputs and fetches source assets from
// object storage. It is the spec's Publisher transport and, via
// PresignGet, part of the Asset Fetcher's S3 presigning path.
type S3Uploader struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	region        string
	baseURL       string
}

// UploadResult contains the result of an S3 upload
type UploadResult struct {
	Key    string `json:"key"`
	URL    string `json:"url"`
	Bucket string `json:"bucket"`
	Region string `json:"region"`
	Size   int64  `json:"size"`
}

// NewS3Uploader creates a new S3 uploader
func NewS3Uploader(region, bucket, baseURL string) (*S3Uploader, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)

	return &S3Uploader{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        bucket,
		region:        region,
		baseURL:       baseURL,
	}, nil
}

// UploadRender uploads the finished MP4 to renders/<projectId>/<uuid>.mp4.
func (u *S3Uploader) UploadRender(ctx context.Context, data []byte, projectID string) (*UploadResult, error) {
	key := fmt.Sprintf("renders/%s/%s.mp4", projectID, uuid.New().String())
	return u.put(ctx, key, data, "video/mp4", map[string]string{
		"project-id": projectID,
		"file-type":  "render",
	})
}

// UploadThumbnail uploads a render's thumbnail under the same key stem,
// suffixed _thumb.jpg as specified for the output layout.
func (u *S3Uploader) UploadThumbnail(ctx context.Context, data []byte, projectID, renderKey string) (*UploadResult, error) {
	key := strings.TrimSuffix(renderKey, ".mp4") + "_thumb.jpg"
	return u.put(ctx, key, data, "image/jpeg", map[string]string{
		"project-id": projectID,
		"file-type":  "thumbnail",
	})
}

// UploadClipRendition uploads a transcoded derivative under
// clips/<clipId>/<resolution>.mp4.
func (u *S3Uploader) UploadClipRendition(ctx context.Context, data []byte, clipID, resolution string) (*UploadResult, error) {
	key := fmt.Sprintf("clips/%s/%s.mp4", clipID, resolution)
	return u.put(ctx, key, data, "video/mp4", map[string]string{
		"clip-id":    clipID,
		"resolution": resolution,
		"file-type":  "clip_rendition",
	})
}

func (u *S3Uploader) put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) (*UploadResult, error) {
	metadata["upload-timestamp"] = time.Now().UTC().Format(time.RFC3339)

	ctx, span := telemetry.TraceExternalCall(ctx, telemetry.ExternalServiceCallAttrs{
		Service:    "s3",
		Operation:  "put_object",
		ResourceID: key,
	})
	defer span.End()

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(u.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("max-age=31536000"),
		Metadata:     metadata,
	})
	if err != nil {
		telemetry.RecordExternalCallError(span, err, 0, false)
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}
	telemetry.RecordExternalCallSuccess(span, 200, int64(len(data)))

	publicURL := fmt.Sprintf("%s/%s", strings.TrimSuffix(u.baseURL, "/"), key)

	return &UploadResult{
		Key:    key,
		URL:    publicURL,
		Bucket: u.bucket,
		Region: u.region,
		Size:   int64(len(data)),
	}, nil
}

// PresignGet returns a time-bounded presigned GET URL for an object-store
// asset referenced by a timeline (spec §4.3 S3 presigning path). Default
// expiry is one hour.
func (u *S3Uploader) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = time.Hour
	}

	req, err := u.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign S3 object %s: %w", key, err)
	}

	return req.URL, nil
}

// DeleteFile deletes a file from S3
func (u *S3Uploader) DeleteFile(ctx context.Context, key string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}

	return nil
}

// CheckBucketAccess verifies that we can access the S3 bucket
func (u *S3Uploader) CheckBucketAccess(ctx context.Context) error {
	_, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(u.bucket),
	})
	if err != nil {
		return fmt.Errorf("cannot access S3 bucket %s: %w", u.bucket, err)
	}

	return nil
}
