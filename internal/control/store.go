package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Store reads and writes control.json. Reads never fail: any problem yields
// Default(). Writes replace the file atomically so a concurrent reader sees
// either the old or the new content.
type Store struct {
	path string
	log  *zap.Logger
}

func NewStore(path string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: path, log: log}
}

func (s *Store) Path() string {
	return s.path
}

// Ensure writes the default record when the file does not exist.
func (s *Store) Ensure() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return s.Save(Default())
}

func (s *Store) Load() Record {
	rec, err := s.read()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("control record unreadable, using defaults", zap.String("path", s.path), zap.Error(err))
		}
		return Default()
	}
	return rec
}

func (s *Store) read() (Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Record{}, err
	}
	rec := Default()
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode control record: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return Record{}, fmt.Errorf("invalid control record: %w", err)
	}
	return rec, nil
}

func (s *Store) Save(rec Record) error {
	payload, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, payload)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
