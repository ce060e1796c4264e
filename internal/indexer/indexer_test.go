package indexer

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/golang/snappy"

	"github.com/datadex/datadex/internal/errors"
	"github.com/datadex/datadex/pkg/types"
)

// recordingSink collects appended rows in memory.
type recordingSink struct {
	rows []types.Row
}

func (s *recordingSink) Append(ctx context.Context, row types.Row) error {
	s.rows = append(s.rows, row)
	return nil
}

func (s *recordingSink) HasFingerprint(ctx context.Context, datasetPath string, fingerprint uint64) (bool, error) {
	for _, row := range s.rows {
		if row.DatasetPath == datasetPath && row.Fingerprint == fingerprint {
			return true, nil
		}
	}
	return false, nil
}

// columnProjector shapes parameter sets onto a fixed column list.
type columnProjector []string

func (p columnProjector) Project(ps types.ParameterSet) []types.Value {
	values := make([]types.Value, len(p))
	for i, col := range p {
		if v, ok := ps[col]; ok {
			values[i] = v
		} else {
			values[i] = types.Null()
		}
	}
	return values
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestIndexerWalk(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/params.txt", "theta: 1\n")
	writeFile(t, root, "b/params.txt", "theta: 2\ntheta: 3\n")
	// No parameter file: recursed into, not indexed.
	writeFile(t, root, "c/notes.txt", "nothing here\n")
	writeFile(t, root, "c/nested/params.txt", "theta: 4\n")

	sink := &recordingSink{}
	ix := New(sink, columnProjector{"theta"}, Options{})

	report, err := ix.Index(context.Background(), root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Found != 3 || report.Indexed != 3 || report.Rows != 4 || report.Failed != 0 {
		t.Errorf("unexpected report: %+v", report)
	}

	wantPaths := []string{
		filepath.Join(root, "a"),
		filepath.Join(root, "b"),
		filepath.Join(root, "b"),
		filepath.Join(root, "c", "nested"),
	}
	if len(sink.rows) != len(wantPaths) {
		t.Fatalf("expected %d rows, got %d", len(wantPaths), len(sink.rows))
	}
	for i, row := range sink.rows {
		if row.DatasetPath != wantPaths[i] {
			t.Errorf("row %d: expected path %s, got %s", i, wantPaths[i], row.DatasetPath)
		}
		if row.ID == "" {
			t.Errorf("row %d: missing ID", i)
		}
	}
}

func TestIndexerLeafDataset(t *testing.T) {
	// A dataset directory is a leaf: nested parameter files below it are
	// not visited.
	root := t.TempDir()
	writeFile(t, root, "a/params.txt", "theta: 1\n")
	writeFile(t, root, "a/sub/params.txt", "theta: 99\n")

	sink := &recordingSink{}
	ix := New(sink, columnProjector{"theta"}, Options{})

	report, err := ix.Index(context.Background(), root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Found != 1 || report.Rows != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestIndexerRootIsNotADataset(t *testing.T) {
	// A parameter file directly in the root does not make the root a
	// dataset.
	root := t.TempDir()
	writeFile(t, root, "params.txt", "theta: 1\n")
	writeFile(t, root, "a/params.txt", "theta: 2\n")

	sink := &recordingSink{}
	ix := New(sink, columnProjector{"theta"}, Options{})

	report, err := ix.Index(context.Background(), root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Found != 1 || report.Rows != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
	if sink.rows[0].DatasetPath != filepath.Join(root, "a") {
		t.Errorf("unexpected dataset path %s", sink.rows[0].DatasetPath)
	}
}

func TestIndexerCustomParamsFilename(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/run.conf", "theta: 1\n")
	writeFile(t, root, "b/params.txt", "theta: 2\n")

	sink := &recordingSink{}
	ix := New(sink, columnProjector{"theta"}, Options{ParamsFilename: "run.conf"})

	report, err := ix.Index(context.Background(), root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Found != 1 || report.Rows != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
	if sink.rows[0].DatasetPath != filepath.Join(root, "a") {
		t.Errorf("unexpected dataset path %s", sink.rows[0].DatasetPath)
	}
}

func TestIndexerEmptyParamsFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/params.txt", "\n\n")

	sink := &recordingSink{}
	ix := New(sink, columnProjector{"theta"}, Options{})

	report, err := ix.Index(context.Background(), root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Found != 1 || report.Skipped != 1 || report.Rows != 0 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestIndexerHashDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/params.txt", "theta: 1\n")

	sink := &recordingSink{}
	ix := New(sink, columnProjector{"theta"}, Options{HashDir: true})

	report, err := ix.Index(context.Background(), root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Rows != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	// The dataset was renamed to its content digest and the row carries
	// the renamed path.
	base := filepath.Base(sink.rows[0].DatasetPath)
	if !regexp.MustCompile(`^[0-9a-f]{64}$`).MatchString(base) {
		t.Errorf("dataset path %s is not content-addressed", sink.rows[0].DatasetPath)
	}
	if _, err := os.Stat(sink.rows[0].DatasetPath); err != nil {
		t.Errorf("renamed dataset missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "a")); !os.IsNotExist(err) {
		t.Error("original dataset name still present")
	}
}

func TestIndexerSkipDuplicates(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/params.txt", "theta: 1\ntheta: 2\n")

	sink := &recordingSink{}
	ix := New(sink, columnProjector{"theta"}, Options{SkipDuplicates: true})

	ctx := context.Background()
	if _, err := ix.Index(ctx, root); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(sink.rows))
	}

	report, err := ix.Index(ctx, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Rows != 0 || report.Skipped != 1 {
		t.Errorf("unexpected report on re-index: %+v", report)
	}
	if len(sink.rows) != 2 {
		t.Errorf("expected no new rows, got %d", len(sink.rows))
	}

	// A new block in the same dataset is still picked up.
	writeFile(t, root, "a/params.txt", "theta: 1\ntheta: 2\ntheta: 3\n")
	report, err = ix.Index(ctx, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Rows != 1 {
		t.Errorf("expected 1 new row, got %+v", report)
	}
}

func TestIndexerRawProvenance(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/params.txt", "theta: 1\nphi: 2.5\n")

	sink := &recordingSink{}
	ix := New(sink, columnProjector{"theta", "phi"}, Options{})

	if _, err := ix.Index(context.Background(), root); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(sink.rows))
	}

	raw, err := snappy.Decode(nil, sink.rows[0].Raw)
	if err != nil {
		t.Fatalf("raw block does not decode: %v", err)
	}
	if string(raw) != "theta: 1\nphi: 2.5" {
		t.Errorf("unexpected raw block %q", raw)
	}
	if sink.rows[0].Fingerprint == 0 {
		t.Error("expected a nonzero fingerprint")
	}
}

func TestIndexerMissingRoot(t *testing.T) {
	sink := &recordingSink{}
	ix := New(sink, columnProjector{"theta"}, Options{})

	_, err := ix.Index(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if errors.GetCode(err) != errors.CodeRootNotFound {
		t.Errorf("expected %s, got %v", errors.CodeRootNotFound, err)
	}
}
