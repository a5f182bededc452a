package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

func newMockS3(t *testing.T, handler http.HandlerFunc) (*S3Storage, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	storage, err := NewS3Storage(context.Background(), filepath.Join(t.TempDir(), "tmp"), S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        server.URL,
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	})
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}
	return storage, server
}

func TestNewS3Storage(t *testing.T) {
	storage, err := NewS3Storage(context.Background(), t.TempDir(), S3Config{
		Bucket:          "test-bucket",
		Region:          "eu-west-3",
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	})
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}

	if storage.bucket != "test-bucket" {
		t.Errorf("bucket = %v, want test-bucket", storage.bucket)
	}
	if got := storage.objectURL("a/b.mp3"); got != "https://test-bucket.s3.eu-west-3.amazonaws.com/a/b.mp3" {
		t.Errorf("objectURL() = %v", got)
	}
}

func TestS3Storage_InheritsLocalTempFiles(t *testing.T) {
	storage, _ := newMockS3(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx := context.Background()

	path, err := storage.SaveTemp(ctx, "test", bytes.NewReader([]byte("test data")))
	if err != nil {
		t.Fatalf("SaveTemp() error = %v", err)
	}
	reader, err := storage.LoadTemp(ctx, path)
	if err != nil {
		t.Fatalf("LoadTemp() error = %v", err)
	}
	content, _ := io.ReadAll(reader)
	_ = reader.Close()
	if string(content) != "test data" {
		t.Errorf("got %q, want %q", string(content), "test data")
	}
	if err := storage.CleanupTemp(ctx, []string{path}); err != nil {
		t.Fatalf("CleanupTemp() error = %v", err)
	}
}

func TestS3Storage_Archive_MockServer(t *testing.T) {
	var gotPath, gotBody, gotRetention, gotType string
	storage, server := newMockS3(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT method, got %s", r.Method)
		}
		gotPath = r.URL.Path
		gotRetention = r.Header.Get("X-Amz-Meta-Retention")
		gotType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	})

	got, err := storage.Archive(context.Background(), ArchiveRequest{
		Dir:         "/var/www/broadcasts/",
		Name:        "show_07-03.mp3",
		Body:        bytes.NewReader([]byte("test content")),
		ContentType: "audio/mpeg",
		Metadata:    map[string]string{"retention": "1m"},
	})
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}

	if gotPath != "/test-bucket/var/www/broadcasts/show_07-03.mp3" {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if gotBody != "test content" {
		t.Errorf("unexpected body: %s", gotBody)
	}
	if gotRetention != "1m" {
		t.Errorf("retention metadata = %q, want 1m", gotRetention)
	}
	if gotType != "audio/mpeg" {
		t.Errorf("content type = %q", gotType)
	}
	if want := server.URL + "/test-bucket/var/www/broadcasts/show_07-03.mp3"; got.Location != want {
		t.Errorf("Location = %v, want %v", got.Location, want)
	}
	if got.Size != int64(len("test content")) {
		t.Errorf("Size = %d", got.Size)
	}
}

func TestS3Storage_Archive_ServerError(t *testing.T) {
	storage, _ := newMockS3(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<Error><Code>AccessDenied</Code><Message>denied</Message></Error>`))
	})

	_, err := storage.Archive(context.Background(), ArchiveRequest{
		Name: "a.mp3",
		Body: bytes.NewReader([]byte("x")),
	})
	if err == nil || !strings.Contains(err.Error(), "upload to S3") {
		t.Fatalf("Archive() error = %v, want upload failure", err)
	}
}

func TestS3Storage_Archive_InvalidName(t *testing.T) {
	storage, _ := newMockS3(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	if _, err := storage.Archive(context.Background(), ArchiveRequest{Name: "a/b", Body: bytes.NewReader(nil)}); err == nil {
		t.Fatal("expected error")
	}
}
