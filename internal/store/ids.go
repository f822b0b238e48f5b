package store

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns prefix-<uuid>. Prefixes keep ids readable in logs: todo-..., ws-...
func NewID(prefix string) string {
	id := uuid.NewString()
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}
