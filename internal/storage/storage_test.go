package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"

	"daylist-cli/internal/model"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type backend struct {
	name string
	open func(t *testing.T) Adapter
}

func backends() []backend {
	return []backend{
		{name: "sqlite", open: func(t *testing.T) Adapter {
			return NewSQLite(filepath.Join(t.TempDir(), "daylist.db"))
		}},
		{name: "diskv", open: func(t *testing.T) Adapter {
			return NewBlob(NewDiskv(t.TempDir()))
		}},
		{name: "memory", open: func(t *testing.T) Adapter {
			return NewBlob(NewMemory())
		}},
	}
}

func seedTodo(id, order string, level int, parent *string) *model.Todo {
	return &model.Todo{
		ID:        id,
		Text:      id + " #x",
		Status:    model.StatusTodo,
		Tags:      []string{"x"},
		Order:     order,
		Level:     level,
		ParentID:  parent,
		CreatedAt: t0,
		UpdatedAt: t0,
	}
}

func parentID(id string) *string { return &id }

func TestAdapterContract(t *testing.T) {
	for _, b := range backends() {
		b := b
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()
			is := is.New(t)
			ctx := context.Background()

			a := b.open(t)
			is.NoErr(a.Initialize(ctx))
			defer a.Close()

			all, err := a.GetWorkspaces(ctx)
			is.NoErr(err)
			is.Equal(len(all), 0)

			ws := &model.Workspace{ID: "ws-1", Name: "Home", CurrentDate: "2026-03-02", CreatedAt: t0, UpdatedAt: t0}
			_, err = a.CreateWorkspace(ctx, ws)
			is.NoErr(err)
			_, err = a.CreateWorkspace(ctx, ws)
			is.True(errors.Is(err, ErrDuplicate))

			_, err = a.GetPage(ctx, "ws-1", "2026-03-02")
			is.True(errors.Is(err, ErrNotFound))

			pg := &model.Page{Date: "2026-03-02", CreatedAt: t0, UpdatedAt: t0}
			_, err = a.CreatePage(ctx, "ws-1", pg)
			is.NoErr(err)
			_, err = a.CreatePage(ctx, "ws-1", pg)
			is.True(errors.Is(err, ErrDuplicate))

			_, err = a.CreateTodo(ctx, "ws-1", "2026-03-02", seedTodo("a", "i", 0, nil))
			is.NoErr(err)
			_, err = a.CreateTodo(ctx, "ws-1", "2026-03-02", seedTodo("b", "r", 1, parentID("a")))
			is.NoErr(err)
			_, err = a.CreateTodo(ctx, "ws-1", "2026-03-02", seedTodo("a", "z", 0, nil))
			is.True(errors.Is(err, ErrDuplicate))

			todos, err := a.GetTodos(ctx, "ws-1", "2026-03-02")
			is.NoErr(err)
			is.Equal(len(todos), 2)
			is.Equal(todos[0].ID, "a")
			is.Equal(todos[1].ID, "b")
			is.Equal(*todos[1].ParentID, "a")
			is.Equal(todos[1].Tags, []string{"x"})
			is.True(todos[0].CreatedAt.Equal(t0))

			later := t0.Add(time.Minute)
			text, lvl, clear := "b edited", 0, ""
			got, err := a.UpdateTodo(ctx, "b", model.TodoPatch{Text: &text, Level: &lvl, ParentID: &clear, UpdatedAt: &later})
			is.NoErr(err)
			is.Equal(got.Text, "b edited")
			is.Equal(got.Level, 0)
			is.True(got.ParentID == nil)
			is.True(got.UpdatedAt.Equal(later))
			is.Equal(got.Order, "r") // untouched fields survive

			_, err = a.UpdateTodo(ctx, "nope", model.TodoPatch{Text: &text})
			is.True(errors.Is(err, ErrNotFound))

			notes := "standup"
			p, err := a.UpdatePage(ctx, "ws-1", "2026-03-02", model.PagePatch{Notes: &notes})
			is.NoErr(err)
			is.Equal(p.Notes, "standup")

			name := "Office"
			w, err := a.UpdateWorkspace(ctx, "ws-1", model.WorkspacePatch{Name: &name})
			is.NoErr(err)
			is.Equal(w.Name, "Office")
			is.Equal(w.CurrentDate, "2026-03-02")

			is.NoErr(a.DeleteTodo(ctx, "a"))
			is.True(errors.Is(a.DeleteTodo(ctx, "a"), ErrNotFound))

			full, err := a.GetWorkspace(ctx, "ws-1")
			is.NoErr(err)
			is.Equal(len(full.Pages), 1)
			is.Equal(len(full.Pages["2026-03-02"].Todos), 1)

			is.NoErr(a.DeleteWorkspace(ctx, "ws-1"))
			_, err = a.GetWorkspace(ctx, "ws-1")
			is.True(errors.Is(err, ErrNotFound))
			is.True(errors.Is(a.DeleteWorkspace(ctx, "ws-1"), ErrNotFound))
		})
	}
}

func TestAdapterSavePage(t *testing.T) {
	for _, b := range backends() {
		b := b
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()
			is := is.New(t)
			ctx := context.Background()

			a := b.open(t)
			is.NoErr(a.Initialize(ctx))
			defer a.Close()

			_, err := a.CreateWorkspace(ctx, &model.Workspace{ID: "ws-1", Name: "Home", CreatedAt: t0, UpdatedAt: t0})
			is.NoErr(err)

			// SavePage creates the page when it is missing.
			pg := &model.Page{Date: "2026-03-02", Notes: "v1", CreatedAt: t0, UpdatedAt: t0, Todos: []*model.Todo{
				seedTodo("a", "i", 0, nil),
				seedTodo("b", "r", 0, nil),
			}}
			is.NoErr(a.SavePage(ctx, "ws-1", pg))

			edited := seedTodo("b", "k", 0, nil)
			edited.Text = "b2"
			pg2 := &model.Page{Date: "2026-03-02", Notes: "v2", CreatedAt: t0, UpdatedAt: t0, Todos: []*model.Todo{
				edited,
				seedTodo("c", "u", 0, nil),
			}}
			is.NoErr(a.SavePage(ctx, "ws-1", pg2))

			got, err := a.GetPage(ctx, "ws-1", "2026-03-02")
			is.NoErr(err)
			is.Equal(got.Notes, "v2")
			ids := map[string]string{}
			for _, td := range got.Todos {
				ids[td.ID] = td.Text
			}
			is.Equal(ids, map[string]string{"b": "b2", "c": "c #x"})
		})
	}
}

func TestAdapterSavePageMovesTodosBetweenPages(t *testing.T) {
	for _, b := range backends() {
		b := b
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()
			is := is.New(t)
			ctx := context.Background()

			a := b.open(t)
			is.NoErr(a.Initialize(ctx))
			defer a.Close()

			_, err := a.CreateWorkspace(ctx, &model.Workspace{ID: "ws-1", Name: "Home", CreatedAt: t0, UpdatedAt: t0})
			is.NoErr(err)
			is.NoErr(a.SavePage(ctx, "ws-1", &model.Page{Date: "2026-03-01", CreatedAt: t0, UpdatedAt: t0, Todos: []*model.Todo{
				seedTodo("a", "i", 0, nil),
				seedTodo("b", "r", 0, nil),
			}}))
			is.NoErr(a.SavePage(ctx, "ws-1", &model.Page{Date: "2026-03-02", CreatedAt: t0, UpdatedAt: t0, Todos: []*model.Todo{
				seedTodo("b", "i", 0, nil),
			}}))

			old, err := a.GetTodos(ctx, "ws-1", "2026-03-01")
			is.NoErr(err)
			is.Equal(len(old), 1)
			is.Equal(old[0].ID, "a")
			moved, err := a.GetTodos(ctx, "ws-1", "2026-03-02")
			is.NoErr(err)
			is.Equal(len(moved), 1)
			is.Equal(moved[0].ID, "b")
		})
	}
}

func TestAdapterReopenKeepsData(t *testing.T) {
	t.Parallel()
	is := is.New(t)
	ctx := context.Background()

	dir := t.TempDir()
	for _, open := range []func() Adapter{
		func() Adapter { return NewSQLite(filepath.Join(dir, "daylist.db")) },
		func() Adapter { return NewBlob(NewDiskv(filepath.Join(dir, "blobs"))) },
	} {
		a := open()
		is.NoErr(a.Initialize(ctx))
		_, err := a.CreateWorkspace(ctx, &model.Workspace{ID: "ws-1", Name: "Home", CreatedAt: t0, UpdatedAt: t0})
		is.NoErr(err)
		is.NoErr(a.Close())

		again := open()
		is.NoErr(again.Initialize(ctx))
		all, err := again.GetWorkspaces(ctx)
		is.NoErr(err)
		is.Equal(len(all), 1)
		is.Equal(all[0].Name, "Home")
		is.NoErr(again.Close())
	}
}

func TestSQLiteDegradesMalformedRows(t *testing.T) {
	t.Parallel()
	is := is.New(t)
	ctx := context.Background()

	s := NewSQLite(filepath.Join(t.TempDir(), "daylist.db"))
	fixed := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	is.NoErr(s.Initialize(ctx))
	defer s.Close()

	_, err := s.db.ExecContext(ctx, `INSERT INTO workspaces (id, name) VALUES ('ws-1', 'Home')`)
	is.NoErr(err)
	_, err = s.db.ExecContext(ctx, `INSERT INTO pages (workspace_id, date) VALUES ('ws-1', '2026-03-02')`)
	is.NoErr(err)
	_, err = s.db.ExecContext(ctx, `INSERT INTO todos (id, workspace_id, page_date, text, status, tags_json, ord)
		VALUES ('t1', 'ws-1', '2026-03-02', 'call #Bob', 'WAITING', 'not json', 'i')`)
	is.NoErr(err)

	todos, err := s.GetTodos(ctx, "ws-1", "2026-03-02")
	is.NoErr(err)
	is.Equal(len(todos), 1)
	is.Equal(todos[0].Status, model.StatusUnknown)
	is.Equal(todos[0].Tags, []string{"bob"})
	is.True(todos[0].CreatedAt.Equal(fixed))
}

func TestBlobDegradesMalformedValues(t *testing.T) {
	t.Parallel()
	is := is.New(t)
	ctx := context.Background()

	store := NewMemory()
	is.NoErr(store.Write(BlobKey, []byte(`{"version":1,"workspaces":[{"id":"ws-1","name":"Home","createdAt":"yesterday",
		"pages":[{"date":"2026-03-02","todos":[{"id":"t1","text":"x","status":"Done","order":"i","level":0}]}]}]}`)))
	b := NewBlob(store)
	fixed := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return fixed }
	is.NoErr(b.Initialize(ctx))

	ws, err := b.GetWorkspace(ctx, "ws-1")
	is.NoErr(err)
	is.True(ws.CreatedAt.Equal(fixed))
	td := ws.Pages["2026-03-02"].Todos[0]
	is.Equal(td.Status, model.StatusDone)
	is.Equal(td.Tags, []string{})
}

func TestBlobRejectsInvalidDocument(t *testing.T) {
	t.Parallel()
	is := is.New(t)

	store := NewMemory()
	is.NoErr(store.Write(BlobKey, []byte(`{"version":1,"workspaces":"nope"}`)))
	err := NewBlob(store).Initialize(context.Background())
	is.True(err != nil)
}

func TestOpen(t *testing.T) {
	t.Parallel()
	is := is.New(t)

	for _, backend := range []string{"sqlite", "diskv", "memory"} {
		a, err := Open(backend, t.TempDir())
		is.NoErr(err)
		is.True(a != nil)
	}
	_, err := Open("postgres", t.TempDir())
	is.True(err != nil)
}
