package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"

	"github.com/duckask/duckask/internal/storage"
)

func TestPutUsesPrefixAndNormalizedKey(t *testing.T) {
	fake := &fakeClient{}
	store, err := NewWithClient("bucket-a", "duckask/prod", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}

	_, err = store.Put(context.Background(), "/date=2026-02-19/report-090506.parquet", bytes.NewBufferString("abc"), 3, storage.PutOptions{ContentType: "application/octet-stream"})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if fake.lastPutBucket != "bucket-a" {
		t.Fatalf("bucket = %q", fake.lastPutBucket)
	}
	if fake.lastPutKey != "duckask/prod/date=2026-02-19/report-090506.parquet" {
		t.Fatalf("key = %q", fake.lastPutKey)
	}
}

func TestPutRejectsPathTraversal(t *testing.T) {
	fake := &fakeClient{}
	store, err := NewWithClient("bucket-a", "", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	_, err = store.Put(context.Background(), "../secrets.txt", bytes.NewBufferString("x"), 1, storage.PutOptions{})
	if err == nil {
		t.Fatal("expected path traversal validation error")
	}
}

func TestEnsureBucketCreatesWhenMissing(t *testing.T) {
	fake := &fakeClient{bucketExists: false}
	store, err := NewWithClient("bucket-a", "", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}

	if err := store.ensureBucket(context.Background(), "us-east-1"); err != nil {
		t.Fatalf("ensureBucket() error = %v", err)
	}
	if !fake.createBucketCalled {
		t.Fatal("expected CreateBucket to be called")
	}
}

func TestPutReportsMissingBucket(t *testing.T) {
	fake := &fakeClient{putErr: mapMinioErr(minio.ErrorResponse{Code: "NoSuchBucket", BucketName: "exports"})}
	store, err := NewWithClient("exports", "", fake)
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	_, err = store.Put(context.Background(), "r.csv", bytes.NewBufferString("x"), 1, storage.PutOptions{})
	if !errors.Is(err, ErrBucketNotFound) {
		t.Fatalf("Put() error = %v, want %v", err, ErrBucketNotFound)
	}
	if !strings.Contains(err.Error(), "exports") {
		t.Fatalf("error does not name the bucket: %v", err)
	}
}

func TestMapMinioErrPassesOtherErrors(t *testing.T) {
	denied := minio.ErrorResponse{Code: "AccessDenied"}
	if err := mapMinioErr(denied); errors.Is(err, ErrBucketNotFound) {
		t.Fatalf("mapMinioErr(AccessDenied) = %v", err)
	}
	if err := mapMinioErr(nil); err != nil {
		t.Fatalf("mapMinioErr(nil) = %v", err)
	}
}

func TestLocationIncludesBucketAndPrefix(t *testing.T) {
	store, err := NewWithClient("exports", "/team-a/", &fakeClient{})
	if err != nil {
		t.Fatalf("NewWithClient() error = %v", err)
	}
	if got := store.Location("date=2026-01-01/r.json"); got != "s3://exports/team-a/date=2026-01-01/r.json" {
		t.Fatalf("Location() = %q", got)
	}
	if got := store.Location("../escape"); got != "../escape" {
		t.Fatalf("Location(invalid) = %q", got)
	}
}

func TestParseEndpoint(t *testing.T) {
	endpoint, secure, err := parseEndpoint("https://minio.example.com", false)
	if err != nil {
		t.Fatalf("parseEndpoint() error = %v", err)
	}
	if endpoint != "minio.example.com" || !secure {
		t.Fatalf("endpoint/secure = %q/%v", endpoint, secure)
	}
}

type fakeClient struct {
	lastPutBucket      string
	lastPutKey         string
	bucketExists       bool
	createBucketCalled bool
	putErr             error
}

func (f *fakeClient) Put(_ context.Context, bucket, key string, reader io.Reader, size int64, _ string) (storage.ObjectInfo, error) {
	f.lastPutBucket = bucket
	f.lastPutKey = key
	_, _ = io.Copy(io.Discard, reader)
	if f.putErr != nil {
		return storage.ObjectInfo{}, f.putErr
	}
	return storage.ObjectInfo{Key: key, Size: size, ETag: "etag-1"}, nil
}

func (f *fakeClient) BucketExists(_ context.Context, _ string) (bool, error) {
	return f.bucketExists, nil
}

func (f *fakeClient) CreateBucket(_ context.Context, _, _ string) error {
	f.createBucketCalled = true
	return nil
}
