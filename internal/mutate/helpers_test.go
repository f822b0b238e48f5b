package mutate

import (
	"reflect"
	"testing"
	"time"

	"daylist-cli/internal/model"
	"daylist-cli/internal/outline"
	"daylist-cli/internal/store"
)

const (
	testWS    = "ws-1"
	testDate  = "2026-03-02"
	testToday = "2026-03-03"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type row struct {
	id     string
	level  int
	status model.Status
}

func open(id string, level int) row { return row{id: id, level: level, status: model.StatusTodo} }
func done(id string, level int) row { return row{id: id, level: level, status: model.StatusDone} }

// newDB builds a single-workspace store with one page per date. Todo text equals its id.
func newDB(t *testing.T, pages map[string][]row) *store.DB {
	t.Helper()
	ws := &model.Workspace{ID: testWS, Name: "Test", Pages: map[string]*model.Page{}, CreatedAt: t0, UpdatedAt: t0}
	for date, rows := range pages {
		keys, err := store.KeysBetween("", "", len(rows))
		if err != nil {
			t.Fatalf("KeysBetween: %v", err)
		}
		p := &model.Page{Date: date, CreatedAt: t0, UpdatedAt: t0}
		for i, r := range rows {
			p.Todos = append(p.Todos, &model.Todo{
				ID:        r.id,
				Text:      r.id,
				Status:    r.status,
				Tags:      []string{},
				Order:     keys[i],
				Level:     r.level,
				CreatedAt: t0,
				UpdatedAt: t0,
			})
		}
		outline.AssignParentIDs(p.Todos)
		if err := outline.Validate(p.Todos); err != nil {
			t.Fatalf("fixture page %s invalid: %v", date, err)
		}
		ws.Pages[date] = p
	}
	return &store.DB{CurrentWorkspaceID: testWS, Workspaces: []*model.Workspace{ws}}
}

func sortedPage(t *testing.T, db *store.DB, date string) []*model.Todo {
	t.Helper()
	p, ok := db.Page(testWS, date)
	if !ok {
		t.Fatalf("page %s missing", date)
	}
	todos := append([]*model.Todo(nil), p.Todos...)
	store.SortTodos(todos)
	return todos
}

func ids(t *testing.T, db *store.DB, date string) []string {
	t.Helper()
	var out []string
	for _, td := range sortedPage(t, db, date) {
		out = append(out, td.ID)
	}
	return out
}

func levels(t *testing.T, db *store.DB, date string) []int {
	t.Helper()
	var out []int
	for _, td := range sortedPage(t, db, date) {
		out = append(out, td.Level)
	}
	return out
}

func parentOf(t *testing.T, db *store.DB, id string) string {
	t.Helper()
	td, _, ok := db.FindTodo(testWS, id)
	if !ok {
		t.Fatalf("todo %s missing", id)
	}
	if td.ParentID == nil {
		return ""
	}
	return *td.ParentID
}

// mustValid checks the order and depth-parent invariants plus stored parent ids.
func mustValid(t *testing.T, db *store.DB, date string) {
	t.Helper()
	todos := sortedPage(t, db, date)
	if err := outline.Validate(todos); err != nil {
		t.Fatalf("page %s invalid: %v", date, err)
	}
	parents := outline.Parents(todos)
	for i, td := range todos {
		want := ""
		if parents[i] >= 0 {
			want = todos[parents[i]].ID
		}
		got := ""
		if td.ParentID != nil {
			got = *td.ParentID
		}
		if got != want {
			t.Fatalf("%s parent = %q, want %q", td.ID, got, want)
		}
	}
}

func kinds(d model.Diff) []model.ChangeKind {
	var out []model.ChangeKind
	for _, c := range d.Changes {
		out = append(out, c.Kind)
	}
	return out
}

func wantIDs(t *testing.T, db *store.DB, date string, want ...string) {
	t.Helper()
	if got := ids(t, db, date); !reflect.DeepEqual(got, want) {
		t.Fatalf("page %s = %v, want %v", date, got, want)
	}
}
