package roulette

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileDocumentStore keeps the document as indented JSON in one file
type FileDocumentStore struct {
	mu     sync.Mutex
	path   string
	logger Logger
}

// NewFileDocumentStore creates a store for dir/name
func NewFileDocumentStore(dir, name string, logger Logger) *FileDocumentStore {
	if name == "" {
		name = DefaultDocumentFile
	}
	return &FileDocumentStore{path: filepath.Join(dir, name), logger: orDefaultLogger(logger)}
}

// Path returns the document file path
func (s *FileDocumentStore) Path() string { return s.path }

// Load reads the document. A missing file is created with the default document; an unreadable
// or corrupt file is logged and replaced by the default document in memory only.
func (s *FileDocumentStore) Load(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		doc := DefaultDocument()
		if err := s.writeLocked(doc); err != nil {
			s.logger.Error("failed to create %s: %v", s.path, err)
			return doc, nil
		}
		s.logger.Info("created %s with the default document", s.path)
		return doc, nil
	}
	if err != nil {
		s.logger.Error("failed to read %s, using the default document: %v", s.path, err)
		return DefaultDocument(), nil
	}

	doc, err := DecodeDocument(data)
	if err != nil {
		s.logger.Error("failed to parse %s, using the default document: %v", s.path, err)
		return DefaultDocument(), nil
	}
	return doc, nil
}

// Save validates and writes the document atomically
func (s *FileDocumentStore) Save(ctx context.Context, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentInvalid.WithDetails("nil document")
	}
	if err := doc.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(doc)
}

func (s *FileDocumentStore) writeLocked(doc *Document) error {
	data, err := EncodeDocument(doc)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return ErrStateSaveFailure.WithDetails(s.path).WithCause(err)
	}
	return nil
}

// writeFileAtomic writes through a temp file in the same directory and renames it into place
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
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", tmpName, err)
	}
	return nil
}

// FileResultSink overwrites a text file with the latest winner name, for overlays that watch it
type FileResultSink struct {
	mu   sync.Mutex
	path string
}

// NewFileResultSink creates a sink writing dir/name
func NewFileResultSink(dir, name string) *FileResultSink {
	if name == "" {
		name = DefaultResultFile
	}
	return &FileResultSink{path: filepath.Join(dir, name)}
}

// Path returns the result file path
func (s *FileResultSink) Path() string { return s.path }

// SaveResult writes the winner name
func (s *FileResultSink) SaveResult(ctx context.Context, record ResultRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeFileAtomic(s.path, []byte(record.Winner)); err != nil {
		return ErrStateSaveFailure.WithDetails(s.path).WithCause(err)
	}
	return nil
}
