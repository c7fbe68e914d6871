// Package artifact writes changed frames to disk as lossless PNG files.
package artifact

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/glimpse/glimpse/pkg/screen"

	"github.com/pkg/errors"
)

// maxSuffix bounds the collision search within one second
const maxSuffix = 1000

// Writer stores artifacts under a single directory as {unix}.png, or
// {unix}-{n}.png when that name is already taken.
type Writer struct {
	dir string
}

// NewWriter creates dir if needed
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		return nil, errors.New("artifact directory is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create artifact directory %s", dir)
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the artifact directory
func (w *Writer) Dir() string {
	return w.dir
}

// Write encodes frame and returns the path of the new file
func (w *Writer) Write(frame screen.Frame) (string, error) {
	ts := frame.CapturedAt.Unix()

	f, path, err := w.create(ts)
	if err != nil {
		return "", err
	}

	if err := png.Encode(f, frame.Image()); err != nil {
		f.Close()
		os.Remove(path)
		return "", errors.Wrapf(err, "failed to encode %s", path)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", errors.Wrapf(err, "failed to close %s", path)
	}
	return path, nil
}

func (w *Writer) create(ts int64) (*os.File, string, error) {
	for n := 0; n < maxSuffix; n++ {
		name := fmt.Sprintf("%d.png", ts)
		if n > 0 {
			name = fmt.Sprintf("%d-%d.png", ts, n)
		}
		path := filepath.Join(w.dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, path, nil
		}
		if !os.IsExist(err) {
			return nil, "", errors.Wrapf(err, "failed to create %s", path)
		}
	}
	return nil, "", errors.Errorf("too many artifacts for timestamp %d", ts)
}

// Remove deletes an artifact written by w. A missing file is not an error.
func (w *Writer) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to remove %s", path)
	}
	return nil
}
