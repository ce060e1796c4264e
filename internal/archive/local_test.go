package archive

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
)

func newLocal(t *testing.T) *LocalStorage {
	t.Helper()
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}
	return storage
}

func writeLocalFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "src.db")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLocalUploadDownload(t *testing.T) {
	ctx := context.Background()
	storage := newLocal(t)
	src := writeLocalFile(t, "snapshot contents")

	if err := storage.Upload(ctx, src, "snapshots/abc.db"); err != nil {
		t.Fatalf("upload: %v", err)
	}

	exists, err := storage.Exists(ctx, "snapshots/abc.db")
	if err != nil || !exists {
		t.Fatalf("expected object to exist, got (%v, %v)", exists, err)
	}

	dest := filepath.Join(t.TempDir(), "out.db")
	if err := storage.Download(ctx, "snapshots/abc.db", dest); err != nil {
		t.Fatalf("download: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "snapshot contents" {
		t.Errorf("unexpected downloaded content %q", data)
	}
}

func TestLocalDownloadMissing(t *testing.T) {
	ctx := context.Background()
	storage := newLocal(t)

	err := storage.Download(ctx, "snapshots/missing.db", filepath.Join(t.TempDir(), "out.db"))
	if !stderrors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestLocalExistsMissing(t *testing.T) {
	ctx := context.Background()
	storage := newLocal(t)

	exists, err := storage.Exists(ctx, "snapshots/missing.db")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("expected missing object")
	}
}

func TestLocalDelete(t *testing.T) {
	ctx := context.Background()
	storage := newLocal(t)
	src := writeLocalFile(t, "x")

	if err := storage.Upload(ctx, src, "snapshots/abc.db"); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := storage.Delete(ctx, "snapshots/abc.db"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	exists, _ := storage.Exists(ctx, "snapshots/abc.db")
	if exists {
		t.Error("object still exists after delete")
	}

	// Deleting a missing object is not an error.
	if err := storage.Delete(ctx, "snapshots/abc.db"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestLocalListObjects(t *testing.T) {
	ctx := context.Background()
	storage := newLocal(t)
	src := writeLocalFile(t, "x")

	for _, obj := range []string{"snapshots/a.db", "snapshots/b.db", "other/c.db"} {
		if err := storage.Upload(ctx, src, obj); err != nil {
			t.Fatalf("upload %s: %v", obj, err)
		}
	}

	objects, err := storage.ListObjects(ctx, "snapshots")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("expected 2 objects, got %v", objects)
	}
	want := map[string]bool{"snapshots/a.db": true, "snapshots/b.db": true}
	for _, obj := range objects {
		if !want[obj] {
			t.Errorf("unexpected object %s", obj)
		}
	}

	// Listing a missing prefix returns an empty set.
	objects, err = storage.ListObjects(ctx, "nope")
	if err != nil {
		t.Fatalf("list missing prefix: %v", err)
	}
	if len(objects) != 0 {
		t.Errorf("expected no objects, got %v", objects)
	}
}
