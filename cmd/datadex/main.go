// Package main implements the datadex command line tool: a searchable
// index over scientific dataset directories and their parameter files.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/datadex/datadex/internal/archive"
	"github.com/datadex/datadex/internal/config"
	"github.com/datadex/datadex/internal/indexer"
	"github.com/datadex/datadex/internal/library"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	// .env is optional; ignore a missing file.
	_ = godotenv.Load()

	var (
		configFile     string
		dexPath        string
		paramsFilename string
		hashDir        bool
		skipDuplicates bool
		verbose        bool
		showVersion    bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dexPath, "dex", "", "Path to the library database file")
	flag.StringVar(&paramsFilename, "params-name", "", "Parameter file name to look for in dataset directories")
	flag.BoolVar(&hashDir, "hash-dir", false, "Rename dataset directories to their content hash while indexing")
	flag.BoolVar(&skipDuplicates, "skip-duplicates", false, "Skip parameter blocks already indexed for the same dataset")
	flag.BoolVar(&verbose, "verbose", false, "Log a status line per visited dataset directory")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "datadex - an index mapping dataset parameters to directories\n\n")
		fmt.Fprintf(os.Stderr, "Usage: datadex [options] <command> [args]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  create COLUMN...     Create a library with the given parameter columns\n")
		fmt.Fprintf(os.Stderr, "  reset                Clear all rows, keeping the schema\n")
		fmt.Fprintf(os.Stderr, "  drop                 Drop the library schema and rows\n")
		fmt.Fprintf(os.Stderr, "  index ROOT           Index dataset directories under ROOT\n")
		fmt.Fprintf(os.Stderr, "  reindex ROOT         Reset, then index ROOT from scratch\n")
		fmt.Fprintf(os.Stderr, "  lookup               Print every indexed row\n")
		fmt.Fprintf(os.Stderr, "  search CLAUSE...     Print dataset paths matching all clauses\n")
		fmt.Fprintf(os.Stderr, "  prune                Remove rows whose dataset no longer exists\n")
		fmt.Fprintf(os.Stderr, "  archive              Upload a snapshot of the library database\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  datadex -dex dex.db create theta phi\n")
		fmt.Fprintf(os.Stderr, "  datadex -dex dex.db index ./experiments\n")
		fmt.Fprintf(os.Stderr, "  datadex -dex dex.db search 'phi between 1 and 2' 'theta = 3'\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  DATADEX_DEX_PATH         Library database path\n")
		fmt.Fprintf(os.Stderr, "  DATADEX_PARAMS_FILENAME  Parameter file name\n")
		fmt.Fprintf(os.Stderr, "  DATADEX_HASH_DIR         Enable content-hash renaming\n")
		fmt.Fprintf(os.Stderr, "  DATADEX_ARCHIVE_TYPE     Archive backend (local, s3)\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("datadex version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(configFile, dexPath, paramsFilename, hashDir, skipDuplicates, verbose)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	dex, err := library.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open library: %v", err)
	}
	defer dex.Close()

	ctx := context.Background()
	if err := run(ctx, dex, cfg, args[0], args[1:]); err != nil {
		log.Fatalf("%v", err)
	}
}

// run dispatches a single CLI command.
func run(ctx context.Context, dex *library.Dex, cfg *config.Config, command string, args []string) error {
	switch command {
	case "create":
		if len(args) == 0 {
			return fmt.Errorf("create requires at least one column name")
		}
		if err := dex.CreateLibrary(ctx, args...); err != nil {
			return err
		}
		log.Printf("Created library with columns: %s", strings.Join(args, ", "))
		return nil

	case "reset":
		return dex.ResetLibrary(ctx)

	case "drop":
		return dex.DropLibrary(ctx)

	case "index", "reindex":
		if len(args) != 1 {
			return fmt.Errorf("%s requires exactly one root path", command)
		}
		var (
			report *indexer.Report
			err    error
		)
		if command == "index" {
			report, err = dex.Index(ctx, args[0])
		} else {
			report, err = dex.Reindex(ctx, args[0])
		}
		if err != nil {
			return err
		}
		log.Printf("Indexed %d datasets (%d rows, %d skipped, %d failed)",
			report.Indexed, report.Rows, report.Skipped, report.Failed)
		for _, f := range report.Failures {
			log.Printf("  failed %s: %v", f.Path, f.Err)
		}
		return nil

	case "lookup":
		rows, err := dex.Lookup(ctx)
		if err != nil {
			return err
		}
		for _, row := range rows {
			parts := make([]string, 0, len(row.Values)+1)
			for _, v := range row.Values {
				parts = append(parts, v.String())
			}
			parts = append(parts, row.DatasetPath)
			fmt.Println(strings.Join(parts, "\t"))
		}
		return nil

	case "search":
		if len(args) == 0 {
			return fmt.Errorf("search requires at least one clause")
		}
		paths, err := dex.Search(ctx, args...)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Println(p)
		}
		return nil

	case "prune":
		n, err := dex.Prune(ctx)
		if err != nil {
			return err
		}
		log.Printf("Pruned %d rows", n)
		return nil

	case "archive":
		dest, err := openArchive(ctx, cfg)
		if err != nil {
			return err
		}
		objectPath, err := dex.Archive(ctx, dest)
		if err != nil {
			return err
		}
		log.Printf("Archived snapshot to %s", objectPath)
		return nil

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// loadConfig loads configuration from file, environment, and flags.
func loadConfig(configFile, dexPath, paramsFilename string, hashDir, skipDuplicates, verbose bool) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.DefaultConfig()
	}

	config.LoadFromEnv(cfg)

	// Command line flags take highest priority.
	if dexPath != "" {
		cfg.DexPath = dexPath
	}
	if paramsFilename != "" {
		cfg.ParamsFilename = paramsFilename
	}
	if hashDir {
		cfg.HashDir = true
	}
	if skipDuplicates {
		cfg.SkipDuplicates = true
	}
	if verbose {
		cfg.Verbose = true
	}

	cfg.Resolve()
	return cfg, cfg.Validate()
}

// openArchive constructs the configured archive backend.
func openArchive(ctx context.Context, cfg *config.Config) (archive.ObjectStorage, error) {
	switch cfg.Archive.Type {
	case "s3":
		return archive.NewS3Storage(ctx, cfg.Archive.S3.Bucket, archive.S3Config{
			Region:   cfg.Archive.S3.Region,
			Endpoint: cfg.Archive.S3.Endpoint,
		})
	default:
		return archive.NewLocalStorage(cfg.Archive.Path)
	}
}
