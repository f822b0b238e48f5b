// Package session is the public mutation surface: it owns the in-memory container behind a
// single-writer lock and hands every resulting diff to the persistence bridge.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"daylist-cli/internal/bridge"
	"daylist-cli/internal/logging"
	"daylist-cli/internal/model"
	"daylist-cli/internal/mutate"
	"daylist-cli/internal/store"
	"daylist-cli/internal/storage"
)

var ErrNoWorkspace = errors.New("no workspace selected")

type Options struct {
	// Workspace selects the initial workspace; unknown ids fall back to the first one.
	Workspace string
	Logger    *logging.Logger
	Now       func() time.Time
}

type Session struct {
	mu      sync.Mutex
	db      *store.DB
	adapter storage.Adapter
	bridge  *bridge.Bridge
	log     *logging.Logger
	now     func() time.Time
}

// Open loads every workspace from the adapter, repairs malformed pages, bootstraps the
// default workspace into an empty store and waits until those writes have landed.
func Open(ctx context.Context, adapter storage.Adapter, br *bridge.Bridge, opts Options) (*Session, error) {
	if adapter == nil || br == nil {
		return nil, errors.New("session: adapter and bridge are required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if err := adapter.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize storage: %w", err)
	}
	wss, err := adapter.GetWorkspaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("load workspaces: %w", err)
	}

	s := &Session{
		db:      &store.DB{Workspaces: wss, CurrentWorkspaceID: opts.Workspace},
		adapter: adapter,
		bridge:  br,
		log:     opts.Logger.WithComponent("session"),
		now:     opts.Now,
	}

	now := s.now()
	var boot model.Diff
	for _, ws := range wss {
		for _, date := range store.PageDates(ws) {
			d, err := mutate.RepairPage(ws, ws.Pages[date], now)
			if err != nil {
				return nil, fmt.Errorf("repair page %s/%s: %w", ws.ID, date, err)
			}
			if !d.Empty() {
				s.log.WithWorkspace(ws.ID).Infow("repaired page", "date", date, "changes", len(d.Changes))
			}
			boot.Merge(d)
		}
	}
	d, err := mutate.EnsureDefaultWorkspace(s.db, now)
	if err != nil {
		return nil, err
	}
	boot.Merge(d)

	if !boot.Empty() {
		br.Submit(boot)
		br.Wait()
	}
	return s, nil
}

// Wait drains every submitted change.
func (s *Session) Wait() {
	s.bridge.Wait()
}

// Close drains the bridge and closes the adapter.
func (s *Session) Close() error {
	s.bridge.Wait()
	return s.adapter.Close()
}

// Today is the current calendar day in local time.
func (s *Session) Today() string {
	return s.now().Format(model.DateLayout)
}

// submit hands a diff to the bridge. Callers hold s.mu.
func (s *Session) submit(d model.Diff) {
	if d.Empty() {
		return
	}
	s.bridge.Submit(d)
}

func (s *Session) current() (*model.Workspace, error) {
	ws, ok := s.db.CurrentWorkspace()
	if !ok {
		return nil, ErrNoWorkspace
	}
	return ws, nil
}

// do runs fn against the current workspace under the lock and submits its diff.
func (s *Session) do(fn func(wsID string, now time.Time) (model.Diff, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, err := s.current()
	if err != nil {
		return err
	}
	d, err := fn(ws.ID, s.now())
	if err != nil {
		return err
	}
	s.submit(d)
	return nil
}

func (s *Session) AddTodo(date, text, afterID string, level int) (model.Todo, error) {
	var out model.Todo
	err := s.do(func(wsID string, now time.Time) (model.Diff, error) {
		res, err := mutate.AddTodo(s.db, wsID, date, text, afterID, level, now)
		if err != nil {
			return model.Diff{}, err
		}
		out = res.Todo.Clone()
		return res.Diff, nil
	})
	return out, err
}

func (s *Session) UpdateTodoText(id, text string) error {
	return s.do(func(wsID string, now time.Time) (model.Diff, error) {
		return mutate.UpdateTodoText(s.db, wsID, id, text, now)
	})
}

// UpdateTodoLevel sets an absolute level; date may be empty when unknown.
func (s *Session) UpdateTodoLevel(date, id string, level int) error {
	return s.do(func(wsID string, now time.Time) (model.Diff, error) {
		return mutate.SetLevel(s.db, wsID, date, id, level, now)
	})
}

func (s *Session) ToggleTodo(id string) (model.Todo, error) {
	var out model.Todo
	err := s.do(func(wsID string, now time.Time) (model.Diff, error) {
		res, err := mutate.ToggleTodo(s.db, wsID, id, now)
		if err != nil {
			return model.Diff{}, err
		}
		out = res.Todo.Clone()
		return res.Diff, nil
	})
	return out, err
}

func (s *Session) DeleteTodo(date, id string) error {
	return s.do(func(wsID string, now time.Time) (model.Diff, error) {
		return mutate.DeleteTodo(s.db, wsID, date, id, now)
	})
}

// MergeTodo folds a todo into its previous sibling and returns that sibling's id with the
// caret offset at the join.
func (s *Session) MergeTodo(date, id string) (string, int, error) {
	var res mutate.MergeResult
	err := s.do(func(wsID string, now time.Time) (model.Diff, error) {
		var err error
		res, err = mutate.MergeIntoPrevious(s.db, wsID, date, id, now)
		return res.Diff, err
	})
	return res.IntoID, res.Caret, err
}

func (s *Session) MoveTodo(date, id string, dir mutate.Direction) error {
	return s.do(func(wsID string, now time.Time) (model.Diff, error) {
		return mutate.Move(s.db, wsID, date, id, dir, now)
	})
}

// ReorderTodos moves the block of activeID after beforeID, or before afterID, or to the end
// of the page. A negative level keeps the current one.
func (s *Session) ReorderTodos(date, activeID, beforeID, afterID string, level int) error {
	return s.do(func(wsID string, now time.Time) (model.Diff, error) {
		return mutate.Reorder(s.db, wsID, date, activeID, beforeID, afterID, level, now)
	})
}

func (s *Session) Indent(date, id string) error {
	return s.do(func(wsID string, now time.Time) (model.Diff, error) {
		return mutate.Reindent(s.db, wsID, date, id, mutate.IndentIn, now)
	})
}

func (s *Session) Outdent(date, id string) error {
	return s.do(func(wsID string, now time.Time) (model.Diff, error) {
		return mutate.Reindent(s.db, wsID, date, id, mutate.IndentOut, now)
	})
}

// GetTodo returns a copy of the todo and the date of its page.
func (s *Session) GetTodo(id string) (model.Todo, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, err := s.current()
	if err != nil {
		return model.Todo{}, "", err
	}
	return mutate.GetTodo(s.db, ws.ID, id)
}

// RollOverTodosToToday carries unfinished todos from earlier pages onto today's page.
func (s *Session) RollOverTodosToToday() (int, error) {
	moved := 0
	var ws string
	err := s.do(func(wsID string, now time.Time) (model.Diff, error) {
		res, err := mutate.RollOver(s.db, wsID, now.Format(model.DateLayout), now)
		moved, ws = res.Moved, wsID
		return res.Diff, err
	})
	if err == nil && moved > 0 {
		s.log.WithWorkspace(ws).Infow("rolled over todos", "moved", moved)
	}
	return moved, err
}
