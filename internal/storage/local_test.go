package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	root := t.TempDir()
	storage, err := NewLocalStorage(filepath.Join(root, "tmp"), filepath.Join(root, "archive"))
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	return storage
}

func TestNewLocalStorage(t *testing.T) {
	t.Run("creates directories if not exist", func(t *testing.T) {
		root := t.TempDir()
		tempDir := filepath.Join(root, "spool")

		storage, err := NewLocalStorage(tempDir, "")
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}

		if storage.TempDir() != tempDir {
			t.Errorf("TempDir() = %v, want %v", storage.TempDir(), tempDir)
		}
		if want := filepath.Join(tempDir, "archive"); storage.ArchiveDir() != want {
			t.Errorf("ArchiveDir() = %v, want %v", storage.ArchiveDir(), want)
		}
		for _, dir := range []string{storage.TempDir(), storage.ArchiveDir()} {
			info, err := os.Stat(dir)
			if err != nil {
				t.Fatalf("directory not created: %v", err)
			}
			if !info.IsDir() {
				t.Errorf("%s: expected directory, got file", dir)
			}
		}
	})

	t.Run("uses default directory when empty", func(t *testing.T) {
		storage, err := NewLocalStorage("", "")
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}

		expected := filepath.Join(os.TempDir(), "audio-nuit")
		if storage.TempDir() != expected {
			t.Errorf("TempDir() = %v, want %v", storage.TempDir(), expected)
		}
	})
}

func TestLocalStorage_TempRoundTrip(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	path, err := storage.SaveTemp(ctx, "upload.wav", bytes.NewReader([]byte("test data")))
	if err != nil {
		t.Fatalf("SaveTemp() error = %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "upload.wav_") {
		t.Errorf("unexpected temp file name %q", filepath.Base(path))
	}

	reader, err := storage.LoadTemp(ctx, path)
	if err != nil {
		t.Fatalf("LoadTemp() error = %v", err)
	}
	content, err := io.ReadAll(reader)
	_ = reader.Close()
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if string(content) != "test data" {
		t.Errorf("got %q, want %q", string(content), "test data")
	}

	if err := storage.CleanupTemp(ctx, []string{path, filepath.Join(storage.TempDir(), "missing")}); err != nil {
		t.Fatalf("CleanupTemp() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected temp file to be removed")
	}
}

func TestLocalStorage_SaveTemp_PathHintIsFlattened(t *testing.T) {
	storage := setupTestStorage(t)

	path, err := storage.SaveTemp(context.Background(), "../../etc/passwd", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("SaveTemp() error = %v", err)
	}
	if filepath.Dir(path) != storage.TempDir() {
		t.Errorf("temp file escaped temp dir: %s", path)
	}
}

func TestLocalStorage_ContextCancelled(t *testing.T) {
	storage := setupTestStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := storage.SaveTemp(ctx, "a", strings.NewReader("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("SaveTemp() error = %v, want context.Canceled", err)
	}
	if _, err := storage.LoadTemp(ctx, "a"); !errors.Is(err, context.Canceled) {
		t.Errorf("LoadTemp() error = %v, want context.Canceled", err)
	}
	if err := storage.CleanupTemp(ctx, []string{"a"}); !errors.Is(err, context.Canceled) {
		t.Errorf("CleanupTemp() error = %v, want context.Canceled", err)
	}
	if _, err := storage.Archive(ctx, ArchiveRequest{Name: "a.mp3", Body: strings.NewReader("x")}); !errors.Is(err, context.Canceled) {
		t.Errorf("Archive() error = %v, want context.Canceled", err)
	}
}

func TestLocalStorage_Archive(t *testing.T) {
	storage := setupTestStorage(t)

	got, err := storage.Archive(context.Background(), ArchiveRequest{
		Dir:  "/var/www/broadcasts/",
		Name: "Matinale_07-03_14h05.mp3",
		Body: strings.NewReader("audio bytes"),
	})
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}

	wantKey := "var/www/broadcasts/Matinale_07-03_14h05.mp3"
	if got.Key != wantKey {
		t.Errorf("Key = %q, want %q", got.Key, wantKey)
	}
	if want := filepath.Join(storage.ArchiveDir(), filepath.FromSlash(wantKey)); got.Location != want {
		t.Errorf("Location = %q, want %q", got.Location, want)
	}
	if got.Size != int64(len("audio bytes")) {
		t.Errorf("Size = %d, want %d", got.Size, len("audio bytes"))
	}

	content, err := os.ReadFile(got.Location)
	if err != nil {
		t.Fatalf("read archived file: %v", err)
	}
	if string(content) != "audio bytes" {
		t.Errorf("content = %q", string(content))
	}

	entries, _ := os.ReadDir(filepath.Dir(got.Location))
	if len(entries) != 1 {
		t.Errorf("expected only the archived file, found %d entries", len(entries))
	}
}

func TestLocalStorage_Archive_StaysInsideRoot(t *testing.T) {
	storage := setupTestStorage(t)

	got, err := storage.Archive(context.Background(), ArchiveRequest{
		Dir:  "../../outside",
		Name: "x.mp3",
		Body: strings.NewReader("x"),
	})
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if !strings.HasPrefix(got.Location, storage.ArchiveDir()) {
		t.Errorf("archive escaped root: %s", got.Location)
	}
	if got.Key != "outside/x.mp3" {
		t.Errorf("Key = %q", got.Key)
	}
}

func TestArchiveKey_RejectsInvalidNames(t *testing.T) {
	for _, name := range []string{"", ".", "..", "a/b.mp3", `a\b.mp3`} {
		if _, err := archiveKey("dir", name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("archiveKey(%q) error = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestArchiveKey(t *testing.T) {
	tests := []struct {
		dir, name, want string
	}{
		{"", "a.mp3", "a.mp3"},
		{"/", "a.mp3", "a.mp3"},
		{"shows/night", "a.mp3", "shows/night/a.mp3"},
		{`C:\broadcasts`, "a.mp3", "C:/broadcasts/a.mp3"},
	}
	for _, tt := range tests {
		got, err := archiveKey(tt.dir, tt.name)
		if err != nil {
			t.Fatalf("archiveKey(%q, %q) error = %v", tt.dir, tt.name, err)
		}
		if got != tt.want {
			t.Errorf("archiveKey(%q, %q) = %q, want %q", tt.dir, tt.name, got, tt.want)
		}
	}
}
