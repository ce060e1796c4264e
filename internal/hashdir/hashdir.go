// Package hashdir computes content hashes of directory subtrees for
// content-addressed dataset naming.
package hashdir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/datadex/datadex/internal/errors"
)

// Hash returns the hex-encoded sha256 digest of the directory subtree
// rooted at dir. The digest depends only on the relative structure and
// the byte content of regular files: every file contributes its
// slash-separated relative path followed by its full content, visited
// in lexicographic path order. File metadata and the absolute location
// of dir do not influence the digest, so an unchanged tree hashes to
// the same value on any machine.
func Hash(dir string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", errors.NewStorageError(errors.CodeRootNotFound,
			fmt.Sprintf("cannot hash %s", dir), err)
	}
	if !info.IsDir() {
		return "", errors.New(errors.ErrCategoryStorage, errors.CodeRootNotFound,
			fmt.Sprintf("%s is not a directory", dir))
	}

	hasher := sha256.New()

	// filepath.WalkDir visits entries in lexical order, which makes the
	// digest deterministic.
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		hasher.Write([]byte(filepath.ToSlash(rel)))

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(hasher, f)
		f.Close()
		return err
	})
	if err != nil {
		return "", errors.NewStorageError(errors.CodeStoreFailed,
			fmt.Sprintf("failed to hash directory %s", dir), err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// RenameToHash hashes dir and renames it in place to the digest,
// keeping the parent directory. It returns the renamed path. When the
// target name already exists the rename is refused and the directory
// keeps its original name.
func RenameToHash(dir string) (string, error) {
	digest, err := Hash(dir)
	if err != nil {
		return "", err
	}

	target := filepath.Join(filepath.Dir(filepath.Clean(dir)), digest)
	if target == filepath.Clean(dir) {
		// Already content-addressed.
		return target, nil
	}
	if _, err := os.Stat(target); err == nil {
		return "", errors.New(errors.ErrCategoryStorage, errors.CodeRenameCollision,
			fmt.Sprintf("rename target %s already exists", target))
	} else if !os.IsNotExist(err) {
		return "", errors.NewStorageError(errors.CodeStoreFailed,
			fmt.Sprintf("cannot stat rename target %s", target), err)
	}

	if err := os.Rename(dir, target); err != nil {
		return "", errors.NewStorageError(errors.CodeStoreFailed,
			fmt.Sprintf("failed to rename %s to %s", dir, target), err)
	}
	return target, nil
}

// HashFile returns the hex-encoded sha256 digest of a single file.
// Used to content-address index snapshots before archiving.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.NewStorageError(errors.CodeStoreFailed,
			fmt.Sprintf("cannot open %s", path), err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", errors.NewStorageError(errors.CodeStoreFailed,
			fmt.Sprintf("failed to hash %s", path), err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
