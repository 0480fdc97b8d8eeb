package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"acropolis/internal/app/dto"
	"acropolis/internal/app/policies"
)

// Config locates the receipts bucket.
type Config struct {
	Endpoint      string
	UseSSL        bool
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
}

// ReceiptArchive writes booking receipts as JSON objects to an S3-compatible
// bucket.
type ReceiptArchive struct {
	bucket         string
	publicBaseURL  string
	client         *minio.Client
	logger         *slog.Logger
	bucketInitOnce sync.Once
	bucketInitErr  error
}

func NewReceiptArchive(cfg Config, logger *slog.Logger) (*ReceiptArchive, error) {
	cleanEndpoint := strings.TrimSpace(cfg.Endpoint)
	if cleanEndpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	minioClient, err := minio.New(parseEndpoint(cleanEndpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey), ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	base := strings.TrimSpace(cfg.PublicBaseURL)
	if base == "" {
		base = cleanEndpoint
	}
	return &ReceiptArchive{
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(base, "/"),
		client:        minioClient,
		logger:        logger,
	}, nil
}

// ArchiveReceipt stores receipts/<reference>.json and returns its URL.
// Confirming the same booking twice overwrites the object.
func (a *ReceiptArchive) ArchiveReceipt(ctx context.Context, receipt dto.Receipt) (string, error) {
	key := ReceiptKey(receipt)
	if key == "" {
		return "", errors.New("s3: receipt reference is required")
	}
	if err := a.ensureBucket(ctx); err != nil {
		return "", err
	}
	body, err := json.Marshal(receipt)
	if err != nil {
		return "", fmt.Errorf("s3: encode receipt: %w", err)
	}
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
		UserMetadata: map[string]string{
			"booking-id": receipt.BookingID,
			"listing-id": receipt.ListingID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("s3: put object: %w", err)
	}
	publicURL := a.objectURL(key)
	if a.logger != nil {
		a.logger.InfoContext(ctx, "receipt archived", "bucket", a.bucket, "key", key, "booking_id", receipt.BookingID)
	}
	return publicURL, nil
}

func ReceiptKey(receipt dto.Receipt) string {
	ref := strings.TrimSpace(receipt.Reference)
	if ref == "" {
		return ""
	}
	return "receipts/" + ref + ".json"
}

func (a *ReceiptArchive) ensureBucket(ctx context.Context) error {
	a.bucketInitOnce.Do(func() {
		exists, err := a.client.BucketExists(ctx, a.bucket)
		if err != nil {
			a.bucketInitErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			a.bucketInitErr = fmt.Errorf("s3: create bucket: %w", err)
		}
	})
	return a.bucketInitErr
}

func (a *ReceiptArchive) objectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", a.publicBaseURL, a.bucket, strings.TrimLeft(key, "/"))
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

var _ policies.ReceiptArchive = (*ReceiptArchive)(nil)
