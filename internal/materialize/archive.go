package materialize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/google/uuid"
	"github.com/mholt/archives"
	"go.uber.org/zap"
)

// ErrUnsafeEntry is returned for archive entries that point outside the project.
var ErrUnsafeEntry = errors.New("archive entry escapes project directory")

// Archive extracts zip uploads.
type Archive struct {
	Logger *zap.Logger
}

func NewArchive(logger *zap.Logger) *Archive {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archive{Logger: logger}
}

// Materialize spools src to a temporary .zip inside root, extracts every
// entry into root keeping the archive's own layout, and removes the
// temporary file whether or not extraction succeeded. It returns the
// number of files extracted.
func (a *Archive) Materialize(ctx context.Context, src io.Reader, root string) (int, error) {
	tmpPath := filepath.Join(root, ".upload-"+uuid.NewString()+".zip")
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_RDWR|os.O_EXCL, 0o600)
	if err != nil {
		return 0, fmt.Errorf("create temp archive: %w", err)
	}
	defer func() {
		tmp.Close()
		if err := os.Remove(tmpPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			a.Logger.Warn("failed to remove temp archive", zap.String("path", tmpPath), zap.Error(err))
		}
	}()

	if _, err := io.Copy(tmp, src); err != nil {
		return 0, fmt.Errorf("store archive: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	var extracted int
	handler := func(ctx context.Context, f archives.FileInfo) error {
		n, err := a.extractEntry(root, f)
		extracted += n
		return err
	}
	if err := (archives.Zip{}).Extract(ctx, tmp, handler); err != nil {
		return extracted, fmt.Errorf("extract archive: %w", err)
	}
	return extracted, nil
}

func (a *Archive) extractEntry(root string, f archives.FileInfo) (int, error) {
	name, err := entryPath(f.NameInArchive)
	if err != nil {
		return 0, err
	}
	if name == "" {
		return 0, nil
	}
	dest, err := securejoin.SecureJoin(root, name)
	if err != nil {
		return 0, fmt.Errorf("join %s: %w", name, err)
	}

	switch {
	case f.IsDir():
		return 0, os.MkdirAll(dest, 0o755)
	case f.Mode()&fs.ModeSymlink != 0 || f.LinkTarget != "":
		a.Logger.Debug("skipping link entry", zap.String("entry", f.NameInArchive))
		return 0, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("create directory: %w", err)
	}
	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("open entry %s: %w", f.NameInArchive, err)
	}
	defer rc.Close()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}
	if err := copyTo(dest, rc, perm|0o200); err != nil {
		return 0, fmt.Errorf("extract %s: %w", f.NameInArchive, err)
	}
	return 1, nil
}

// entryPath cleans an in-archive name and rejects absolute or parent paths.
func entryPath(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(name, "/") || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeEntry, name)
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %s", ErrUnsafeEntry, name)
	}
	if clean == "." {
		return "", nil
	}
	return clean, nil
}
