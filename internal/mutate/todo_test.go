package mutate

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"daylist-cli/internal/model"
)

func TestAddTodo_EmptyPageClampsToRoot(t *testing.T) {
	t.Parallel()

	db := newDB(t, nil)
	res, err := AddTodo(db, testWS, testDate, "hello", "", 2, t0)
	if err != nil {
		t.Fatalf("AddTodo: %v", err)
	}
	if res.Todo.Level != 0 {
		t.Fatalf("level = %d, want 0", res.Todo.Level)
	}
	if res.Todo.ParentID != nil {
		t.Fatalf("expected root todo")
	}
	want := []model.ChangeKind{model.ChangeCreatePage, model.ChangeCreateTodo}
	if got := kinds(res.Diff); !reflect.DeepEqual(got, want) {
		t.Fatalf("diff kinds = %v, want %v", got, want)
	}
	if !strings.HasPrefix(res.Todo.ID, "todo-") {
		t.Fatalf("unexpected id %q", res.Todo.ID)
	}
	mustValid(t, db, testDate)
}

func TestAddTodo_LevelClamp(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		afterID string
		level   int
		want    int
	}{
		{name: "capped by prev+1", afterID: "b", level: 3, want: 2},
		{name: "raised to next level", afterID: "a", level: 0, want: 1},
		{name: "negative", afterID: "c", level: -4, want: 0},
		{name: "append when unknown", afterID: "nope", level: 1, want: 1},
		{name: "append when empty", afterID: "", level: 0, want: 0},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			db := newDB(t, map[string][]row{testDate: {open("a", 0), open("b", 1), open("c", 0)}})
			res, err := AddTodo(db, testWS, testDate, "new #Tag", tc.afterID, tc.level, t0)
			if err != nil {
				t.Fatalf("AddTodo: %v", err)
			}
			if res.Todo.Level != tc.want {
				t.Fatalf("level = %d, want %d", res.Todo.Level, tc.want)
			}
			if !reflect.DeepEqual(res.Todo.Tags, []string{"tag"}) {
				t.Fatalf("tags = %v", res.Todo.Tags)
			}
			got := ids(t, db, testDate)
			pos := -1
			for i, id := range got {
				if id == res.Todo.ID {
					pos = i
				}
			}
			switch tc.afterID {
			case "a":
				if pos != 1 {
					t.Fatalf("position = %d in %v", pos, got)
				}
			case "b":
				if pos != 2 {
					t.Fatalf("position = %d in %v", pos, got)
				}
			default:
				if pos != len(got)-1 {
					t.Fatalf("expected append; got position %d in %v", pos, got)
				}
			}
			mustValid(t, db, testDate)
		})
	}
}

func TestAddTodo_NestsAtMaxDepth(t *testing.T) {
	t.Parallel()

	db := newDB(t, map[string][]row{testDate: {open("a", 0), open("b", 1), open("c", 2), open("d", 0)}})
	res, err := AddTodo(db, testWS, testDate, "x", "c", 3, t0)
	if err != nil {
		t.Fatalf("AddTodo: %v", err)
	}
	if res.Todo.Level != 3 {
		t.Fatalf("level = %d, want 3", res.Todo.Level)
	}
	if parentOf(t, db, res.Todo.ID) != "c" {
		t.Fatalf("expected parent c")
	}
	mustValid(t, db, testDate)

	deeper, err := AddTodo(db, testWS, testDate, "y", res.Todo.ID, 9, t0)
	if err != nil {
		t.Fatalf("AddTodo: %v", err)
	}
	if deeper.Todo.Level != model.MaxDepth {
		t.Fatalf("level = %d, want %d", deeper.Todo.Level, model.MaxDepth)
	}
	mustValid(t, db, testDate)
}

func TestAddTodo_Errors(t *testing.T) {
	t.Parallel()

	db := newDB(t, nil)
	if _, err := AddTodo(db, "ws-missing", testDate, "x", "", 0, t0); !IsNotFound(err) {
		t.Fatalf("expected not found; got %v", err)
	}
	if _, err := AddTodo(db, testWS, "03/02/2026", "x", "", 0, t0); err == nil {
		t.Fatalf("expected invalid date error")
	}
}

func TestToggleTodo_ParentGateAndIdempotence(t *testing.T) {
	t.Parallel()

	db := newDB(t, map[string][]row{testDate: {open("p", 0), open("c", 1), open("g", 2), open("q", 0)}})

	if _, err := ToggleTodo(db, testWS, "p", t0); !errors.Is(err, ErrChildrenOpen) {
		t.Fatalf("expected ErrChildrenOpen; got %v", err)
	}
	if _, err := ToggleTodo(db, testWS, "c", t0); !errors.Is(err, ErrChildrenOpen) {
		t.Fatalf("expected ErrChildrenOpen for c; got %v", err)
	}
	for _, id := range []string{"g", "c", "p"} {
		res, err := ToggleTodo(db, testWS, id, t0)
		if err != nil {
			t.Fatalf("toggle %s: %v", id, err)
		}
		if res.Todo.Status != model.StatusDone {
			t.Fatalf("%s status = %q", id, res.Todo.Status)
		}
		if len(res.Diff.Changes) != 1 || res.Diff.Changes[0].TodoPatch.Status == nil {
			t.Fatalf("expected a single status patch; got %+v", res.Diff.Changes)
		}
	}

	// Twice returns to the original status.
	for i := 0; i < 2; i++ {
		if _, err := ToggleTodo(db, testWS, "q", t0); err != nil {
			t.Fatalf("toggle q: %v", err)
		}
	}
	q, _, _ := db.FindTodo(testWS, "q")
	if q.Status != model.StatusTodo {
		t.Fatalf("q status = %q after two toggles", q.Status)
	}

	// Reopening a parent is always allowed.
	if res, err := ToggleTodo(db, testWS, "p", t0); err != nil || res.Todo.Status != model.StatusTodo {
		t.Fatalf("reopen p: %v %+v", err, res.Todo)
	}
}

func TestToggleTodo_UnknownStatusBecomesDone(t *testing.T) {
	t.Parallel()

	db := newDB(t, map[string][]row{testDate: {{id: "x", status: model.StatusUnknown}}})
	res, err := ToggleTodo(db, testWS, "x", t0)
	if err != nil {
		t.Fatalf("ToggleTodo: %v", err)
	}
	if res.Todo.Status != model.StatusDone {
		t.Fatalf("status = %q", res.Todo.Status)
	}
}

func TestToggleTodo_UnknownChildDoesNotBlock(t *testing.T) {
	t.Parallel()

	db := newDB(t, map[string][]row{testDate: {
		open("p", 0), {id: "u", level: 1, status: model.StatusUnknown}, done("c", 1),
	}})
	res, err := ToggleTodo(db, testWS, "p", t0)
	if err != nil {
		t.Fatalf("ToggleTodo: %v", err)
	}
	if res.Todo.Status != model.StatusDone {
		t.Fatalf("status = %q", res.Todo.Status)
	}
	u, _, _ := db.FindTodo(testWS, "u")
	if u.Status != model.StatusUnknown {
		t.Fatalf("unknown child status changed to %q", u.Status)
	}
}

func TestUpdateTodoText_RederivesTags(t *testing.T) {
	t.Parallel()

	db := newDB(t, map[string][]row{testDate: {open("a", 0)}})
	d, err := UpdateTodoText(db, testWS, "a", "call #Bob about #work #bob", t0.Add(1))
	if err != nil {
		t.Fatalf("UpdateTodoText: %v", err)
	}
	got, date, err := GetTodo(db, testWS, "a")
	if err != nil || date != testDate {
		t.Fatalf("GetTodo: %v %q", err, date)
	}
	if !reflect.DeepEqual(got.Tags, []string{"bob", "work"}) {
		t.Fatalf("tags = %v", got.Tags)
	}
	if len(d.Changes) != 1 {
		t.Fatalf("expected one change; got %d", len(d.Changes))
	}
	patch := d.Changes[0].TodoPatch
	if patch.Text == nil || patch.Tags == nil || patch.Level != nil || patch.Order != nil {
		t.Fatalf("patch should only carry text and tags: %+v", patch)
	}
	if !got.UpdatedAt.Equal(t0.Add(1)) {
		t.Fatalf("UpdatedAt not stamped")
	}

	if _, err := UpdateTodoText(db, testWS, "missing", "x", t0); !IsNotFound(err) {
		t.Fatalf("expected not found; got %v", err)
	}
}

func TestGetTodo_ReturnsCopy(t *testing.T) {
	t.Parallel()

	db := newDB(t, map[string][]row{testDate: {open("a", 0)}})
	got, _, err := GetTodo(db, testWS, "a")
	if err != nil {
		t.Fatalf("GetTodo: %v", err)
	}
	got.Text = "changed"
	orig, _, _ := db.FindTodo(testWS, "a")
	if orig.Text != "a" {
		t.Fatalf("GetTodo leaked a reference")
	}
}
