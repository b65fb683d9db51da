package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"webcamupload/internal/logging"
	"webcamupload/internal/model"
)

const (
	// ImagesFolder is the directory under the storage root that is served to viewers.
	ImagesFolder = "images"
	// CollectionName is the fixed subdirectory for webcam uploads.
	CollectionName = "webcamupload"

	pngExt      = ".png"
	tempPattern = ".upload-*.tmp"
	fileMode    = 0o644
)

// Local stores images under <root>/images/webcamupload. The directory must already exist.
type Local struct {
	root string
	dir  string
	log  *logging.Logger
}

var _ ImageStore = (*Local)(nil)

// NewLocal returns a Local store rooted at root.
func NewLocal(root string, log *logging.Logger) *Local {
	if log == nil {
		log = logging.Nop()
	}
	return &Local{
		root: root,
		dir:  filepath.Join(root, ImagesFolder, CollectionName),
		log:  log.With("storage"),
	}
}

// Dir returns the directory images are written to.
func (s *Local) Dir() string { return s.dir }

// FileName formats ts as yyyy-MM-dd-HH-mm-ss-fff.png. Fixed-width fields keep
// lexicographic order equal to chronological order.
func FileName(ts time.Time) string {
	return fmt.Sprintf("%s-%03d%s", ts.Format("2006-01-02-15-04-05"), ts.Nanosecond()/int(time.Millisecond), pngExt)
}

// URLPath returns the path of name relative to the storage root.
func URLPath(name string) string {
	return "/" + path.Join(ImagesFolder, CollectionName, name)
}

// Store writes data to a temp file in the target directory and renames it into place.
// An existing file with the same name is replaced.
func (s *Local) Store(ctx context.Context, data []byte, ts time.Time) (model.Capture, error) {
	if err := ctx.Err(); err != nil {
		return model.Capture{}, err
	}

	name := FileName(ts)
	final := filepath.Join(s.dir, name)

	if err := s.writeAtomic(final, data); err != nil {
		s.log.Error("image_write_failed", logging.Fields{"path": final, "error": err})
		return model.Capture{}, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	s.log.Debug("image_written", logging.Fields{"path": final, "size": len(data)})
	return model.Capture{
		Filename:    name,
		StoragePath: URLPath(name),
		Size:        int64(len(data)),
		CapturedAt:  ts,
	}, nil
}

func (s *Local) writeAtomic(final string, data []byte) (err error) {
	tmp, err := os.CreateTemp(s.dir, tempPattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Chmod(fileMode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmpPath, final); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// Latest returns the URL path of the lexicographically greatest .png file.
// It returns ErrNotFound when the directory is empty or missing.
func (s *Local) Latest(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: read dir: %w", ErrIOFailure, err)
	}

	latest := ""
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), pngExt) {
			continue
		}
		if name > latest {
			latest = name
		}
	}
	if latest == "" {
		return "", ErrNotFound
	}
	return URLPath(latest), nil
}

// Check reports an error unless the image directory exists and is a directory.
func (s *Local) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fi, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrIOFailure, s.dir)
	}
	return nil
}
