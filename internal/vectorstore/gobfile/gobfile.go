// Package gobfile stores index artifacts as a single encoding/gob stream.
package gobfile

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"

	"ragchat/internal/domain"
	"ragchat/internal/vectorstore"
)

// Storage is the default artifact codec.
type Storage struct{}

// NewStorage returns a gob artifact codec.
func NewStorage() *Storage { return &Storage{} }

// Name returns the format identifier used in configuration.
func (s *Storage) Name() string { return "gob" }

// Save writes a to path, replacing any existing file.
func (s *Storage) Save(path string, a *vectorstore.Artifact) error {
	return vectorstore.WriteAtomic(path, func(tmpPath string) error {
		f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("%w: opening %s: %v", domain.ErrIO, tmpPath, err)
		}
		w := bufio.NewWriter(f)
		if err := gob.NewEncoder(w).Encode(a); err != nil {
			f.Close()
			return fmt.Errorf("%w: encoding artifact: %v", domain.ErrIO, err)
		}
		if err := w.Flush(); err != nil {
			f.Close()
			return fmt.Errorf("%w: writing artifact: %v", domain.ErrIO, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("%w: closing artifact: %v", domain.ErrIO, err)
		}
		return nil
	})
}

// Load reads an artifact from path.
func (s *Storage) Load(path string) (*vectorstore.Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening artifact %s: %v", domain.ErrIO, path, err)
	}
	defer f.Close()

	var a vectorstore.Artifact
	if err := gob.NewDecoder(bufio.NewReader(f)).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", domain.ErrCorruptArtifact, path, err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

var _ vectorstore.Storage = (*Storage)(nil)
