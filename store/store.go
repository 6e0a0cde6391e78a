package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/siteharvester/gateway/log"
	"github.com/siteharvester/gateway/util"
)

// maxDuplicates bounds the "name (n).ext" probing for a free filename.
const maxDuplicates = 1000

// FileStore saves downloaded artifacts into a directory, the way a browser saves into
// its download folder: existing files are never overwritten, and a partially written
// download never appears under its final name.
type FileStore struct {
	log     zerolog.Logger
	dataDir string
}

func NewFileStore(dataDir string) *FileStore {
	return &FileStore{
		log:     log.NewLogger("store"),
		dataDir: dataDir,
	}
}

// Contains reports whether a file with the given name exists in the store.
func (fs *FileStore) Contains(name string) (bool, error) {
	_, err := os.Stat(filepath.Join(fs.dataDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Save streams content into the store under filename (or the first free "name (n)"
// variant) and returns the path written. Only the base name of filename is used.
func (fs *FileStore) Save(ctx context.Context, content io.Reader, filename, mediaType string) (string, error) {
	if err := os.MkdirAll(fs.dataDir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create download directory")
	}

	tmp, err := os.CreateTemp(fs.dataDir, ".download-*")
	if err != nil {
		return "", errors.Wrap(err, "failed to create temporary file")
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, readerWithContext(ctx, content))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to write download")
	}

	name, err := fs.freeName(filepath.Base(filename))
	if err != nil {
		return "", err
	}

	path := filepath.Join(fs.dataDir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", errors.Wrap(err, "failed to move download into place")
	}

	fs.log.Info().Str("path", path).Str("type", mediaType).Str("size", util.FormatBytes(n)).Msg("Download saved")

	return path, nil
}

func (fs *FileStore) freeName(name string) (string, error) {
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "download"
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := name
	for i := 1; i <= maxDuplicates; i++ {
		exists, err := fs.Contains(candidate)
		if err != nil {
			return "", errors.Wrap(err, "failed to check download name")
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
	}

	return "", errors.Errorf("no free filename for %s", name)
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
