// Package objectstore downloads scene assets by object key.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Fetcher stores the object at key in the local file dst.
type Fetcher interface {
	Fetch(ctx context.Context, key, dst string) error
}

// FetchError reports an object that could not be downloaded. NotFound is set
// when the key does not exist, which is the normal case for dates without a
// capture.
type FetchError struct {
	Key      string
	NotFound bool
	Err      error
}

func (e *FetchError) Error() string {
	if e.NotFound {
		return fmt.Sprintf("object %s not found", e.Key)
	}
	return fmt.Sprintf("failed to fetch %s: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// writeAtomically creates dst through a temporary file so a failed download
// never leaves a truncated asset behind.
func writeAtomically(dst string, write func(f *os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dst, err)
	}

	tmp := dst + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename %s: %w", tmp, err)
	}
	return nil
}

// DirFetcher serves keys from a local mirror of the bucket.
type DirFetcher struct {
	Root string
}

func (d DirFetcher) Fetch(ctx context.Context, key, dst string) error {
	if err := ctx.Err(); err != nil {
		return &FetchError{Key: key, Err: err}
	}

	src, err := os.Open(filepath.Join(d.Root, filepath.FromSlash(key)))
	if err != nil {
		return &FetchError{Key: key, NotFound: os.IsNotExist(err), Err: err}
	}
	defer src.Close()

	err = writeAtomically(dst, func(f *os.File) error {
		_, err := io.Copy(f, src)
		return err
	})
	if err != nil {
		return &FetchError{Key: key, Err: err}
	}
	return nil
}
