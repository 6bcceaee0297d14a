// Package materialize writes uploaded content into a project directory.
//
// Folder uploads are best effort: a file that cannot be written is logged
// and skipped. Archive uploads are all or nothing: any extraction error
// fails the whole upload. Neither rolls back what was already written.
package materialize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync/atomic"

	securejoin "github.com/cyphar/filepath-securejoin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MalithGihan/sitehost-service/internal/sanitize"
	"github.com/MalithGihan/sitehost-service/pkg/types"
)

var errEmptyPath = errors.New("empty path inside project")

// Report counts the outcome of a folder upload.
type Report struct {
	Written int
	Failed  int
}

// Tree rebuilds a folder upload on disk.
type Tree struct {
	Workers int
	Logger  *zap.Logger
}

func NewTree(workers int, logger *zap.Logger) *Tree {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tree{Workers: workers, Logger: logger}
}

// Materialize writes every file to root/<name minus its first segment>.
// When several files map to the same path the last one in upload order
// wins and the earlier ones are skipped. The returned error is only ever
// the context's.
func (t *Tree) Materialize(ctx context.Context, files []types.UploadedFile, root string) (Report, error) {
	var written, failed atomic.Int64

	rels := make([]string, len(files))
	last := make(map[string]int, len(files))
	for i, f := range files {
		rels[i] = sanitize.InProjectPath(f.Name)
		last[destKey(rels[i])] = i
	}

	g := new(errgroup.Group)
	g.SetLimit(t.Workers)
	for i, f := range files {
		if ctx.Err() != nil {
			break
		}
		rel := rels[i]
		if last[destKey(rel)] != i {
			t.Logger.Debug("file superseded by a later upload",
				zap.String("file", f.Name),
				zap.String("path", rel),
			)
			continue
		}
		g.Go(func() error {
			if err := writeFile(ctx, root, rel, f); err != nil {
				failed.Add(1)
				t.Logger.Error("error processing file",
					zap.String("file", f.Name),
					zap.Error(err),
				)
				return nil
			}
			written.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	rep := Report{Written: int(written.Load()), Failed: int(failed.Load())}
	return rep, ctx.Err()
}

// destKey is the lexical destination of rel inside the project, so that
// "a/./b" and "a/b" collide.
func destKey(rel string) string {
	return path.Clean("/" + rel)
}

// Single stores one non-archive file inside root under its full uploaded
// name. Unlike Materialize a failure here is returned.
func Single(ctx context.Context, f types.UploadedFile, root string) error {
	return writeFile(ctx, root, f.Name, f)
}

func writeFile(ctx context.Context, root, rel string, f types.UploadedFile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rel == "" {
		return errEmptyPath
	}
	dest, err := securejoin.SecureJoin(root, rel)
	if err != nil {
		return fmt.Errorf("join %s: %w", rel, err)
	}
	if dest == filepath.Clean(root) {
		return errEmptyPath
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	return copyTo(dest, src, 0o644)
}

func copyTo(dest string, src io.Reader, perm os.FileMode) error {
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(dest), err)
	}
	return out.Close()
}
