package store

import (
	"sort"
	"strings"
	"time"

	"daylist-cli/internal/model"
)

// DB is the authoritative in-memory state: every workspace, its pages and their todos.
// It is not safe for concurrent use; callers own it from a single goroutine or behind a lock.
type DB struct {
	CurrentWorkspaceID string
	Workspaces         []*model.Workspace
}

func (db *DB) FindWorkspace(id string) (*model.Workspace, bool) {
	if db == nil {
		return nil, false
	}
	id = strings.TrimSpace(id)
	for _, ws := range db.Workspaces {
		if ws != nil && ws.ID == id {
			return ws, true
		}
	}
	return nil, false
}

// CurrentWorkspace returns the selected workspace, falling back to the first one.
func (db *DB) CurrentWorkspace() (*model.Workspace, bool) {
	if ws, ok := db.FindWorkspace(db.CurrentWorkspaceID); ok {
		return ws, true
	}
	if db != nil && len(db.Workspaces) > 0 {
		return db.Workspaces[0], true
	}
	return nil, false
}

// Page returns the page for date, or false if it has not been created yet.
func (db *DB) Page(wsID, date string) (*model.Page, bool) {
	ws, ok := db.FindWorkspace(wsID)
	if !ok {
		return nil, false
	}
	p, ok := ws.Pages[strings.TrimSpace(date)]
	if !ok || p == nil {
		return nil, false
	}
	return p, true
}

// EnsurePage returns the page for date, creating an empty one if needed.
// created reports whether the page was created by this call.
func (db *DB) EnsurePage(ws *model.Workspace, date string, now time.Time) (p *model.Page, created bool) {
	date = strings.TrimSpace(date)
	if ws.Pages == nil {
		ws.Pages = map[string]*model.Page{}
	}
	if p, ok := ws.Pages[date]; ok && p != nil {
		return p, false
	}
	p = &model.Page{
		Date:      date,
		Todos:     []*model.Todo{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	ws.Pages[date] = p
	return p, true
}

// FindTodo searches every page of the workspace.
func (db *DB) FindTodo(wsID, todoID string) (*model.Todo, *model.Page, bool) {
	ws, ok := db.FindWorkspace(wsID)
	if !ok {
		return nil, nil, false
	}
	todoID = strings.TrimSpace(todoID)
	for _, p := range ws.Pages {
		if p == nil {
			continue
		}
		for _, t := range p.Todos {
			if t != nil && t.ID == todoID {
				return t, p, true
			}
		}
	}
	return nil, nil, false
}

// PageDates returns the workspace's page dates, ascending.
func PageDates(ws *model.Workspace) []string {
	out := make([]string, 0, len(ws.Pages))
	for d := range ws.Pages {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func (db *DB) AddWorkspace(ws *model.Workspace) {
	db.Workspaces = append(db.Workspaces, ws)
}

func (db *DB) RemoveWorkspace(id string) bool {
	for i, ws := range db.Workspaces {
		if ws != nil && ws.ID == id {
			db.Workspaces = append(db.Workspaces[:i], db.Workspaces[i+1:]...)
			if db.CurrentWorkspaceID == id {
				db.CurrentWorkspaceID = ""
			}
			return true
		}
	}
	return false
}
