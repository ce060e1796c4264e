package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datadex/datadex/internal/archive"
	"github.com/datadex/datadex/internal/config"
	"github.com/datadex/datadex/internal/errors"
	"github.com/datadex/datadex/pkg/types"
)

// newTestDex opens a Dex over a fresh SQLite database in a temp dir.
func newTestDex(t *testing.T) *Dex {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DexPath = filepath.Join(t.TempDir(), "dex.db")
	dex, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { dex.Close() })
	return dex
}

// writeDatasets materializes the standard three-dataset fixture:
//
//	dataset1: theta=5, phi=1.3
//	dataset2: two blocks, theta=5 phi=1.3 and theta=3
//	dataset3: theta=3
func writeDatasets(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"dataset1/params.txt": "theta: 5\nphi: 1.3\n",
		"dataset2/params.txt": "theta: 5\nphi: 1.3\ntheta: 3\n",
		"dataset3/params.txt": "theta: 3\n",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestDexIndexAndLookup(t *testing.T) {
	ctx := context.Background()
	dex := newTestDex(t)
	root := writeDatasets(t)

	require.NoError(t, dex.CreateLibrary(ctx, "theta", "phi"))

	report, err := dex.Index(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Found)
	assert.Equal(t, 3, report.Indexed)
	assert.Equal(t, 4, report.Rows)
	assert.Equal(t, 0, report.Failed)

	rows, err := dex.Lookup(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	// Rows come back in indexing order: dataset directories are visited
	// lexicographically, blocks in file order.
	assert.Equal(t, filepath.Join(root, "dataset1"), rows[0].DatasetPath)
	assert.Equal(t, []types.Value{types.IntValue(5), types.FloatValue(1.3)}, rows[0].Values)

	assert.Equal(t, filepath.Join(root, "dataset2"), rows[1].DatasetPath)
	assert.Equal(t, []types.Value{types.IntValue(5), types.FloatValue(1.3)}, rows[1].Values)

	assert.Equal(t, filepath.Join(root, "dataset2"), rows[2].DatasetPath)
	assert.Equal(t, []types.Value{types.IntValue(3), types.Null()}, rows[2].Values)

	assert.Equal(t, filepath.Join(root, "dataset3"), rows[3].DatasetPath)
	assert.Equal(t, []types.Value{types.IntValue(3), types.Null()}, rows[3].Values)
}

func TestDexSearch(t *testing.T) {
	ctx := context.Background()
	dex := newTestDex(t)
	root := writeDatasets(t)

	require.NoError(t, dex.CreateLibrary(ctx, "theta", "phi"))
	_, err := dex.Index(ctx, root)
	require.NoError(t, err)

	d1 := filepath.Join(root, "dataset1")
	d2 := filepath.Join(root, "dataset2")
	d3 := filepath.Join(root, "dataset3")

	tests := []struct {
		name    string
		clauses []string
		want    []string
	}{
		{"equality", []string{"theta = 5"}, []string{d1, d2}},
		{"equality other", []string{"theta = 3"}, []string{d2, d3}},
		{"between", []string{"phi between 1 and 2"}, []string{d1, d2}},
		{"conjunction empty", []string{"phi between 1 and 2", "theta = 3"}, nil},
		{"conjunction", []string{"theta = 5", "phi >= 1.3"}, []string{d1, d2}},
		{"null check", []string{"phi is null"}, []string{d2, d3}},
		{"not null", []string{"phi is not null"}, []string{d1, d2}},
		{"not equal skips null", []string{"phi != 1.3"}, nil},
		{"ordering", []string{"theta < 4"}, []string{d2, d3}},
		{"no match", []string{"theta = 99"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths, err := dex.Search(ctx, tt.clauses...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, paths)
		})
	}
}

func TestDexSearchErrors(t *testing.T) {
	ctx := context.Background()
	dex := newTestDex(t)
	root := writeDatasets(t)

	require.NoError(t, dex.CreateLibrary(ctx, "theta", "phi"))
	_, err := dex.Index(ctx, root)
	require.NoError(t, err)

	_, err = dex.Search(ctx, "gamma = 1")
	assert.Equal(t, errors.CodeUnknownColumn, errors.GetCode(err))

	_, err = dex.Search(ctx, "theta = 5", "phi between")
	assert.Equal(t, errors.CodeBadClause, errors.GetCode(err))

	// A bad clause anywhere aborts the search with no partial result.
	paths, err := dex.Search(ctx, "theta = 5", "nope !")
	assert.Error(t, err)
	assert.Nil(t, paths)
}

func TestDexCreateLibraryGuards(t *testing.T) {
	ctx := context.Background()
	dex := newTestDex(t)
	root := writeDatasets(t)

	require.NoError(t, dex.CreateLibrary(ctx, "theta", "phi"))

	// Redefining an empty library is allowed.
	require.NoError(t, dex.CreateLibrary(ctx, "theta", "phi", "gamma"))
	require.NoError(t, dex.CreateLibrary(ctx, "theta", "phi"))

	_, err := dex.Index(ctx, root)
	require.NoError(t, err)

	// Once rows exist, redefinition is refused.
	err = dex.CreateLibrary(ctx, "theta")
	assert.Equal(t, errors.CodeLibraryNotEmpty, errors.GetCode(err))

	// After a reset the library can be redefined again.
	require.NoError(t, dex.ResetLibrary(ctx))
	require.NoError(t, dex.CreateLibrary(ctx, "theta"))
}

func TestDexRequiresLibrary(t *testing.T) {
	ctx := context.Background()
	dex := newTestDex(t)

	_, err := dex.Lookup(ctx)
	assert.Equal(t, errors.CodeNoLibrary, errors.GetCode(err))

	_, err = dex.Search(ctx, "theta = 1")
	assert.Equal(t, errors.CodeNoLibrary, errors.GetCode(err))

	_, err = dex.Index(ctx, t.TempDir())
	assert.Equal(t, errors.CodeNoLibrary, errors.GetCode(err))

	err = dex.ResetLibrary(ctx)
	assert.Equal(t, errors.CodeNoLibrary, errors.GetCode(err))
}

func TestDexReindexAndAppend(t *testing.T) {
	ctx := context.Background()
	dex := newTestDex(t)
	root := writeDatasets(t)

	require.NoError(t, dex.CreateLibrary(ctx, "theta", "phi"))

	_, err := dex.Index(ctx, root)
	require.NoError(t, err)

	// Plain re-index appends: every block shows up again.
	_, err = dex.Index(ctx, root)
	require.NoError(t, err)
	rows, err := dex.Lookup(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 8)

	// Reindex rebuilds from scratch.
	report, err := dex.Reindex(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Rows)
	rows, err = dex.Lookup(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestDexSkipDuplicates(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.DexPath = filepath.Join(t.TempDir(), "dex.db")
	cfg.SkipDuplicates = true
	dex, err := Open(cfg)
	require.NoError(t, err)
	defer dex.Close()

	root := writeDatasets(t)
	require.NoError(t, dex.CreateLibrary(ctx, "theta", "phi"))

	_, err = dex.Index(ctx, root)
	require.NoError(t, err)

	report, err := dex.Index(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Rows)
	assert.Equal(t, 3, report.Skipped)

	rows, err := dex.Lookup(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestDexIndexMissingRoot(t *testing.T) {
	ctx := context.Background()
	dex := newTestDex(t)

	require.NoError(t, dex.CreateLibrary(ctx, "theta"))
	_, err := dex.Index(ctx, filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, errors.CodeRootNotFound, errors.GetCode(err))
}

func TestDexPrune(t *testing.T) {
	ctx := context.Background()
	dex := newTestDex(t)
	root := writeDatasets(t)

	require.NoError(t, dex.CreateLibrary(ctx, "theta", "phi"))
	_, err := dex.Index(ctx, root)
	require.NoError(t, err)

	// Nothing missing yet.
	n, err := dex.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	// dataset2 disappears; its two rows go with it.
	require.NoError(t, os.RemoveAll(filepath.Join(root, "dataset2")))
	n, err = dex.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rows, err := dex.Lookup(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestDexDropLibrary(t *testing.T) {
	ctx := context.Background()
	dex := newTestDex(t)
	root := writeDatasets(t)

	require.NoError(t, dex.CreateLibrary(ctx, "theta", "phi"))
	_, err := dex.Index(ctx, root)
	require.NoError(t, err)

	require.NoError(t, dex.DropLibrary(ctx))
	_, err = dex.Lookup(ctx)
	assert.Equal(t, errors.CodeNoLibrary, errors.GetCode(err))
}

func TestDexArchive(t *testing.T) {
	ctx := context.Background()
	dex := newTestDex(t)
	root := writeDatasets(t)

	require.NoError(t, dex.CreateLibrary(ctx, "theta", "phi"))
	_, err := dex.Index(ctx, root)
	require.NoError(t, err)

	dest, err := archive.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	objectPath, err := dex.Archive(ctx, dest)
	require.NoError(t, err)
	assert.Regexp(t, `^snapshots/[0-9a-f]{64}\.db$`, objectPath)

	exists, err := dest.Exists(ctx, objectPath)
	require.NoError(t, err)
	assert.True(t, exists)

	// Archiving an unchanged library is a no-op re-upload of the same
	// content-addressed object.
	again, err := dex.Archive(ctx, dest)
	require.NoError(t, err)
	assert.Equal(t, objectPath, again)
}

func TestDexSearchStats(t *testing.T) {
	ctx := context.Background()
	dex := newTestDex(t)
	root := writeDatasets(t)

	require.NoError(t, dex.CreateLibrary(ctx, "theta", "phi"))
	_, err := dex.Index(ctx, root)
	require.NoError(t, err)

	_, err = dex.Search(ctx, "theta = 5", "phi between 1 and 2")
	require.NoError(t, err)
	_, err = dex.Search(ctx, "theta = 3")
	require.NoError(t, err)

	top := dex.Stats().TopPredicates(1)
	require.Len(t, top, 1)
	assert.Equal(t, "theta", top[0].Column)
	assert.Equal(t, int64(2), top[0].Frequency)
}
