// Package atomicfile publishes files so readers never observe a partial
// write: content goes to a temporary file in the destination directory,
// which is fsynced and renamed over the final name.
package atomicfile

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const tmpPattern = ".tmp-*"

// WriteWith creates an empty temporary file next to dest, calls fill with
// its path, then syncs and renames it to dest. fill may truncate and
// rewrite the file. On any error the temporary file is removed and dest is
// left untouched.
func WriteWith(dest string, fill func(tmpPath string) error) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, tmpPattern+filepath.Ext(dest))
	if err != nil {
		return fmt.Errorf("atomicfile: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("atomicfile: %w", err)
	}

	if err := fill(tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := syncFile(tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("atomicfile: rename: %w", err)
	}
	// Best effort: persist the directory entry.
	_ = syncDir(dir)
	return nil
}

// Write copies r to dest atomically, checking ctx before every read.
func Write(ctx context.Context, dest string, r io.Reader) error {
	return WriteWith(dest, func(tmpPath string) error {
		f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("atomicfile: %w", err)
		}
		bw := bufio.NewWriterSize(f, 64*1024)
		if _, err := io.Copy(bw, readerWithCtx(ctx, r)); err != nil {
			_ = f.Close()
			return fmt.Errorf("atomicfile: copy: %w", err)
		}
		if err := bw.Flush(); err != nil {
			_ = f.Close()
			return fmt.Errorf("atomicfile: flush: %w", err)
		}
		return f.Close()
	})
}

func syncFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("atomicfile: reopen: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("atomicfile: sync: %w", err)
	}
	if err := f.Chmod(0o644); err != nil {
		_ = f.Close()
		return fmt.Errorf("atomicfile: chmod: %w", err)
	}
	return f.Close()
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

// readerWithCtx fails reads once ctx is done.
func readerWithCtx(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	select {
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	default:
	}
	return cr.r.Read(p)
}
