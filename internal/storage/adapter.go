// Package storage persists workspaces, pages and todos behind one Adapter contract.
//
// Two backends satisfy it: SQLite keeps one row per todo keyed by id and tied to its
// workspace and page date, and Blob keeps the whole state as a single JSON document under
// one key of a BlobStore (diskv on disk, or memory).
package storage

import (
	"context"
	"errors"

	"daylist-cli/internal/model"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// Adapter is the storage contract consumed by the persistence bridge and session loader.
// Implementations return errors instead of panicking and wrap ErrNotFound / ErrDuplicate
// where those apply.
type Adapter interface {
	Initialize(ctx context.Context) error

	// GetWorkspaces returns every workspace with its pages and todos.
	GetWorkspaces(ctx context.Context) ([]*model.Workspace, error)
	GetWorkspace(ctx context.Context, id string) (*model.Workspace, error)
	CreateWorkspace(ctx context.Context, ws *model.Workspace) (*model.Workspace, error)
	UpdateWorkspace(ctx context.Context, id string, patch model.WorkspacePatch) (*model.Workspace, error)
	DeleteWorkspace(ctx context.Context, id string) error

	GetPage(ctx context.Context, wsID, date string) (*model.Page, error)
	CreatePage(ctx context.Context, wsID string, p *model.Page) (*model.Page, error)
	UpdatePage(ctx context.Context, wsID, date string, patch model.PagePatch) (*model.Page, error)

	GetTodos(ctx context.Context, wsID, date string) ([]*model.Todo, error)
	CreateTodo(ctx context.Context, wsID, date string, t *model.Todo) (*model.Todo, error)
	UpdateTodo(ctx context.Context, id string, patch model.TodoPatch) (*model.Todo, error)
	DeleteTodo(ctx context.Context, id string) error

	// SavePage upserts the page row, deletes stored todos absent from p.Todos and upserts
	// the rest.
	SavePage(ctx context.Context, wsID string, p *model.Page) error

	Close() error
}

// ApplyWorkspacePatch writes the patched fields onto ws.
func ApplyWorkspacePatch(ws *model.Workspace, patch model.WorkspacePatch) {
	if patch.Name != nil {
		ws.Name = *patch.Name
	}
	if patch.CurrentDate != nil {
		ws.CurrentDate = *patch.CurrentDate
	}
	if patch.UpdatedAt != nil {
		ws.UpdatedAt = *patch.UpdatedAt
	}
}

// ApplyPagePatch writes the patched fields onto p.
func ApplyPagePatch(p *model.Page, patch model.PagePatch) {
	if patch.Notes != nil {
		p.Notes = *patch.Notes
	}
	if patch.UpdatedAt != nil {
		p.UpdatedAt = *patch.UpdatedAt
	}
}
