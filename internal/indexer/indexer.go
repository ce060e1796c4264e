// Package indexer discovers dataset directories under a root path and
// turns their parameter blocks into library rows.
package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"

	"github.com/datadex/datadex/internal/errors"
	"github.com/datadex/datadex/internal/hashdir"
	"github.com/datadex/datadex/internal/params"
	"github.com/datadex/datadex/pkg/types"
)

// RowSink receives the rows produced by an indexing run. The library
// store satisfies this interface.
type RowSink interface {
	Append(ctx context.Context, row types.Row) error
	HasFingerprint(ctx context.Context, datasetPath string, fingerprint uint64) (bool, error)
}

// Options control one indexing run.
type Options struct {
	// ParamsFilename is the parameter descriptor name to look for in
	// each directory (default params.DefaultFilename).
	ParamsFilename string

	// HashDir enables content hashing: each dataset directory is
	// renamed to its content digest before its rows are written.
	HashDir bool

	// SkipDuplicates suppresses rows whose (path, fingerprint) pair is
	// already indexed. Off by default: re-indexing appends.
	SkipDuplicates bool

	// Verbose logs a status line per visited dataset directory.
	Verbose bool
}

// Report summarizes an indexing run. A run can partially fail: broken
// datasets are recorded here while the walk continues.
type Report struct {
	Found    int // Directories holding a parameter file
	Indexed  int // Datasets that produced at least one row
	Skipped  int // Datasets skipped as duplicates
	Failed   int // Datasets that errored (parse, hash, rename)
	Rows     int // Rows appended
	Failures []DatasetFailure
}

// DatasetFailure records a per-dataset error.
type DatasetFailure struct {
	Path string
	Err  error
}

// Indexer walks a directory tree and writes discovered rows to a sink.
type Indexer struct {
	sink   RowSink
	schema projector
	opts   Options
}

// projector shapes a parameter set onto the library schema.
type projector interface {
	Project(ps types.ParameterSet) []types.Value
}

// New creates an Indexer writing to sink, shaping rows with schema.
func New(sink RowSink, schema projector, opts Options) *Indexer {
	if opts.ParamsFilename == "" {
		opts.ParamsFilename = params.DefaultFilename
	}
	return &Indexer{sink: sink, schema: schema, opts: opts}
}

// Index walks the tree rooted at root. Every directory below root that
// contains a parameter file is a leaf dataset: its blocks become rows
// and the walk does not descend into it. Directories without a
// parameter file are recursed into. Per-dataset failures are recorded
// in the report; only a failure of the walk itself is an error.
func (ix *Indexer) Index(ctx context.Context, root string) (*Report, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.NewStorageError(errors.CodeRootNotFound,
			fmt.Sprintf("root path %s does not exist", root), err)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrCategoryStorage, errors.CodeRootNotFound,
			fmt.Sprintf("root path %s is not a directory", root))
	}

	report := &Report{}
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.IsDir() || path == filepath.Clean(root) {
			return nil
		}

		paramFile := filepath.Join(path, ix.opts.ParamsFilename)
		if fi, err := os.Stat(paramFile); err != nil || fi.IsDir() {
			// Not a dataset; keep descending.
			return nil
		}

		report.Found++
		ix.indexDataset(ctx, path, paramFile, report)

		// A directory holding a parameter file is a leaf dataset.
		return fs.SkipDir
	})
	if walkErr != nil {
		return report, errors.NewStorageError(errors.CodeStoreFailed,
			fmt.Sprintf("walk of %s failed", root), walkErr)
	}
	return report, nil
}

// indexDataset parses one dataset directory and appends its rows.
// Failures are recorded on the report and do not stop the walk.
func (ix *Indexer) indexDataset(ctx context.Context, dir, paramFile string, report *Report) {
	blocks, err := params.ParseFile(paramFile)
	if err != nil {
		ix.fail(report, dir, err)
		return
	}
	if len(blocks) == 0 {
		report.Skipped++
		ix.logStatus(dir, "skipped (empty parameter file)")
		return
	}

	datasetPath := dir
	if ix.opts.HashDir {
		renamed, err := hashdir.RenameToHash(dir)
		if err != nil {
			ix.fail(report, dir, err)
			return
		}
		datasetPath = renamed
	}

	appended := 0
	for _, block := range blocks {
		fingerprint := murmur3.Sum64([]byte(block.Raw))

		if ix.opts.SkipDuplicates {
			exists, err := ix.sink.HasFingerprint(ctx, datasetPath, fingerprint)
			if err != nil {
				ix.fail(report, dir, err)
				return
			}
			if exists {
				continue
			}
		}

		row := types.Row{
			ID:          uuid.NewString(),
			Values:      ix.schema.Project(block.Params),
			DatasetPath: datasetPath,
			Fingerprint: fingerprint,
			Raw:         snappy.Encode(nil, []byte(block.Raw)),
		}
		if err := ix.sink.Append(ctx, row); err != nil {
			ix.fail(report, dir, err)
			return
		}
		appended++
	}

	report.Rows += appended
	if appended > 0 {
		report.Indexed++
		ix.logStatus(datasetPath, "indexed")
	} else {
		report.Skipped++
		ix.logStatus(datasetPath, "already indexed")
	}
}

// fail records a per-dataset failure.
func (ix *Indexer) fail(report *Report, dir string, err error) {
	report.Failed++
	report.Failures = append(report.Failures, DatasetFailure{Path: dir, Err: err})
	ix.logStatus(dir, fmt.Sprintf("failed: %v", err))
}

// logStatus prints a per-dataset status line in verbose mode.
func (ix *Indexer) logStatus(dir, status string) {
	if ix.opts.Verbose {
		log.Printf("* directory %s %s", dir, status)
	}
}
