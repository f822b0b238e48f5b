package storage

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	BackendSQLite = "sqlite"
	BackendDiskv  = "diskv"
	BackendMemory = "memory"
)

// Open builds the adapter for backend with its files under dir. The adapter still needs
// Initialize before use.
func Open(backend, dir string) (Adapter, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendSQLite, "":
		return NewSQLite(filepath.Join(dir, "daylist.db")), nil
	case BackendDiskv:
		return NewBlob(NewDiskv(filepath.Join(dir, "blobs"))), nil
	case BackendMemory:
		return NewBlob(NewMemory()), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q (expected sqlite, diskv or memory)", backend)
	}
}
