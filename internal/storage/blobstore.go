package storage

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/peterbourgon/diskv/v3"
)

// BlobStore is a minimal key/value byte store.
type BlobStore interface {
	Read(key string) ([]byte, error)
	Write(key string, val []byte) error
	Has(key string) bool
}

type diskvStore struct {
	d *diskv.Diskv
}

// NewDiskv keeps each key as a file under basePath.
func NewDiskv(basePath string) BlobStore {
	return diskvStore{d: diskv.New(diskv.Options{
		BasePath:     basePath,
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 1024 * 1024, // 1MB
	})}
}

func (s diskvStore) Read(key string) ([]byte, error) {
	b, err := s.d.Read(key)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("blob %s: %w", key, ErrNotFound)
	}
	return b, err
}

func (s diskvStore) Write(key string, val []byte) error {
	return s.d.Write(key, val)
}

func (s diskvStore) Has(key string) bool {
	return s.d.Has(key)
}

type memoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemory returns an in-process BlobStore; contents are lost on exit.
func NewMemory() BlobStore {
	return &memoryStore{data: map[string][]byte{}}
}

func (s *memoryStore) Read(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", key, ErrNotFound)
	}
	return append([]byte(nil), b...), nil
}

func (s *memoryStore) Write(key string, val []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), val...)
	return nil
}

func (s *memoryStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}
