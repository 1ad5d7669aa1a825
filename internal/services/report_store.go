package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"time"

	"fleetledger/internal/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ReportStore archives reconciliation reports in object storage.
type ReportStore interface {
	EnsureBucket(ctx context.Context) error
	PutReport(ctx context.Context, report *models.ReconciliationReport) (string, error)
	PresignedURL(ctx context.Context, key string) (string, error)
	Ping(ctx context.Context) error
}

// objectClient is the subset of *minio.Client the store uses.
type objectClient interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

type minioReportStore struct {
	client objectClient
	bucket string
	expiry time.Duration
}

func NewMinioReportStore(endpoint, accessKey, secretKey string, useSSL bool, bucket string, expiry time.Duration) (ReportStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return newReportStore(client, bucket, expiry), nil
}

func newReportStore(client objectClient, bucket string, expiry time.Duration) *minioReportStore {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &minioReportStore{client: client, bucket: bucket, expiry: expiry}
}

func reportKey(report *models.ReconciliationReport) string {
	return fmt.Sprintf("reports/reconciliation/%s/%s.json", report.ItemID.String(), report.GeneratedAt.UTC().Format("20060102T150405Z"))
}

func (m *minioReportStore) EnsureBucket(ctx context.Context) error {
	found, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if !found {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", m.bucket, err)
		}
	}
	return nil
}

func (m *minioReportStore) PutReport(ctx context.Context, report *models.ReconciliationReport) (string, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return "", err
	}
	key := reportKey(report)
	_, err = m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("upload report %s: %w", key, err)
	}
	return key, nil
}

func (m *minioReportStore) PresignedURL(ctx context.Context, key string) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, m.expiry, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (m *minioReportStore) Ping(ctx context.Context) error {
	_, err := m.client.BucketExists(ctx, m.bucket)
	return err
}
