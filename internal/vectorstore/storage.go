// Package vectorstore defines the persisted index artifact and the Storage
// codecs that write it to and read it from a single file.
package vectorstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ragchat/internal/domain"
)

// ArtifactVersion is bumped whenever a codec's on-disk layout changes.
const ArtifactVersion = 1

// Artifact is the serialisable form of a vector index. It carries no passage
// text: the corpus file stays the source of truth and is re-read on load.
type Artifact struct {
	Version     int
	Metric      domain.Metric
	Dimension   int
	Model       string
	Fingerprint string
	BuiltAt     time.Time
	Vectors     [][]float32
}

// Validate reports ErrCorruptArtifact if the artifact is internally inconsistent.
func (a *Artifact) Validate() error {
	if a.Version != ArtifactVersion {
		return fmt.Errorf("%w: unsupported version %d", domain.ErrCorruptArtifact, a.Version)
	}
	if a.Metric != domain.MetricInnerProduct {
		return fmt.Errorf("%w: unsupported metric %q", domain.ErrCorruptArtifact, a.Metric)
	}
	if a.Dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrCorruptArtifact, a.Dimension)
	}
	for i, v := range a.Vectors {
		if len(v) != a.Dimension {
			return fmt.Errorf("%w: vector %d has %d values, want %d", domain.ErrCorruptArtifact, i, len(v), a.Dimension)
		}
	}
	return nil
}

// Storage writes and reads artifacts. Save overwrites any existing file.
type Storage interface {
	Name() string
	Save(path string, a *Artifact) error
	Load(path string) (*Artifact, error)
}

// Exists reports whether an artifact file is present at path.
func Exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return false, fmt.Errorf("%w: %s is a directory", domain.ErrIO, path)
		}
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("%w: stat %s: %v", domain.ErrIO, path, err)
}

// WriteAtomic creates a temp file next to path, lets write fill it, and renames
// it over path. A failed write leaves any previous artifact untouched.
func WriteAtomic(path string, write func(tmpPath string) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", domain.ErrIO, dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %v", domain.ErrIO, err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	if err := write(tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: renaming into %s: %v", domain.ErrIO, path, err)
	}
	return nil
}
