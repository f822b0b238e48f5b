package mutate

import (
	"errors"
	"reflect"
	"testing"

	"daylist-cli/internal/model"
)

func TestReorder_BeforeAnchor(t *testing.T) {
	t.Parallel()

	db := newDB(t, nil)
	var added []string
	for _, text := range []string{"t1", "t2", "t3"} {
		res, err := AddTodo(db, testWS, testDate, text, "", 0, t0)
		if err != nil {
			t.Fatalf("AddTodo: %v", err)
		}
		added = append(added, res.Todo.ID)
	}
	t1, t2, t3 := added[0], added[1], added[2]

	if _, err := Reorder(db, testWS, testDate, t3, "", t1, 0, t0); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	wantIDs(t, db, testDate, t3, t1, t2)
	mustValid(t, db, testDate)
}

func TestReorder_CarriesBlock(t *testing.T) {
	t.Parallel()

	db := newDB(t, map[string][]row{testDate: {open("p1", 0), open("c1", 1), open("p2", 0)}})
	d, err := Reorder(db, testWS, testDate, "p1", "p2", "", 0, t0)
	if err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	wantIDs(t, db, testDate, "p2", "p1", "c1")
	if got := parentOf(t, db, "c1"); got != "p1" {
		t.Fatalf("c1 parent = %q", got)
	}
	if got := levels(t, db, testDate); !reflect.DeepEqual(got, []int{0, 0, 1}) {
		t.Fatalf("levels = %v", got)
	}
	for _, c := range d.Changes {
		if c.Kind != model.ChangeUpdateTodo {
			t.Fatalf("unexpected change %s", c.Kind)
		}
		if c.TodoID == "p2" {
			t.Fatalf("p2 should keep its key")
		}
	}
	mustValid(t, db, testDate)
}

func TestReorder_ShiftsBlockLevels(t *testing.T) {
	t.Parallel()

	db := newDB(t, map[string][]row{testDate: {open("a", 0), open("b", 0), open("c", 1), open("d", 2)}})
	// Drop b's block under a: the whole block shifts by one.
	if _, err := Reorder(db, testWS, testDate, "b", "a", "", 1, t0); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	wantIDs(t, db, testDate, "a", "b", "c", "d")
	if got := levels(t, db, testDate); !reflect.DeepEqual(got, []int{0, 1, 2, 3}) {
		t.Fatalf("levels = %v", got)
	}
	mustValid(t, db, testDate)

	// The block is already at MaxDepth; asking for deeper keeps it where it is.
	d, err := Reorder(db, testWS, testDate, "b", "a", "", 3, t0)
	if err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	if !d.Empty() {
		t.Fatalf("expected empty diff; got %v", kinds(d))
	}
}

func TestReorder_Rejections(t *testing.T) {
	t.Parallel()

	db := newDB(t, map[string][]row{testDate: {open("a", 0), open("b", 1), open("c", 0)}})
	before := ids(t, db, testDate)

	if _, err := Reorder(db, testWS, testDate, "a", "b", "", 0, t0); !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("expected ErrInvalidMove; got %v", err)
	}
	if _, err := Reorder(db, testWS, testDate, "a", "", "zzz", 0, t0); !IsNotFound(err) {
		t.Fatalf("expected not found; got %v", err)
	}
	if _, err := Reorder(db, testWS, testDate, "zzz", "", "", 0, t0); !IsNotFound(err) {
		t.Fatalf("expected not found; got %v", err)
	}
	if got := ids(t, db, testDate); !reflect.DeepEqual(got, before) {
		t.Fatalf("rejected reorder changed the page: %v", got)
	}
	mustValid(t, db, testDate)
}

func TestReorder_KeepsFollowingTodoParent(t *testing.T) {
	t.Parallel()

	db := newDB(t, map[string][]row{testDate: {
		open("a", 0), open("b", 1), open("x", 0), open("y", 1), open("z", 2), open("w", 3),
	}})
	before := ids(t, db, testDate)

	// x's block is three levels deep, so it can only land at root; b after a sits at
	// level 1 and would be adopted by x.
	if _, err := Reorder(db, testWS, testDate, "x", "a", "", 0, t0); !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("expected ErrInvalidMove; got %v", err)
	}
	if got := ids(t, db, testDate); !reflect.DeepEqual(got, before) {
		t.Fatalf("rejected reorder changed the page: %v", got)
	}
	if got := parentOf(t, db, "b"); got != "a" {
		t.Fatalf("b parent = %q", got)
	}

	// A shallower block fits at b's level and leaves b under a.
	if _, err := Reorder(db, testWS, testDate, "z", "a", "", 0, t0); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	wantIDs(t, db, testDate, "a", "z", "w", "b", "x", "y")
	if got := levels(t, db, testDate); !reflect.DeepEqual(got, []int{0, 1, 2, 1, 0, 1}) {
		t.Fatalf("levels = %v", got)
	}
	if got := parentOf(t, db, "b"); got != "a" {
		t.Fatalf("b parent = %q", got)
	}
	mustValid(t, db, testDate)
}

func TestReorder_FallsBackOnLegacyKeys(t *testing.T) {
	t.Parallel()

	db := newDB(t, map[string][]row{testDate: {open("a", 0), open("b", 0), open("c", 0)}})
	p, _ := db.Page(testWS, testDate)
	// Prefix-adjacent keys leave no room between a and b.
	p.Todos[0].Order, p.Todos[1].Order, p.Todos[2].Order = "y", "y0", "z"

	if _, err := Reorder(db, testWS, testDate, "c", "a", "", 0, t0); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	wantIDs(t, db, testDate, "a", "c", "b")
	mustValid(t, db, testDate)
}

func TestReindent_OutdentStopsAtRoot(t *testing.T) {
	t.Parallel()

	db := newDB(t, map[string][]row{testDate: {open("p1", 0), open("c1", 1), open("p2", 0)}})
	if _, err := Reindent(db, testWS, testDate, "c1", IndentOut, t0); err != nil {
		t.Fatalf("outdent: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := Reindent(db, testWS, testDate, "c1", IndentOut, t0); !errors.Is(err, ErrNoop) {
			t.Fatalf("expected ErrNoop; got %v", err)
		}
	}
	if got := levels(t, db, testDate); !reflect.DeepEqual(got, []int{0, 0, 0}) {
		t.Fatalf("levels = %v", got)
	}
	if parentOf(t, db, "c1") != "" {
		t.Fatalf("c1 should be a root")
	}
	mustValid(t, db, testDate)
}

func TestReindent_IndentMovesBlock(t *testing.T) {
	t.Parallel()

	db := newDB(t, map[string][]row{testDate: {open("a", 0), open("b", 0), open("c", 1), open("d", 2), open("e", 0)}})
	d, err := Reindent(db, testWS, testDate, "b", IndentIn, t0)
	if err != nil {
		t.Fatalf("indent: %v", err)
	}
	if got := levels(t, db, testDate); !reflect.DeepEqual(got, []int{0, 1, 2, 3, 0}) {
		t.Fatalf("levels = %v", got)
	}
	if got := d.TodoIDs(); !reflect.DeepEqual(got, []string{"b", "c", "d"}) {
		t.Fatalf("touched = %v", got)
	}
	mustValid(t, db, testDate)

	// Already as deep as the block allows.
	if _, err := Reindent(db, testWS, testDate, "b", IndentIn, t0); !errors.Is(err, ErrNoop) {
		t.Fatalf("expected ErrNoop; got %v", err)
	}
	// First todo has nothing to nest under.
	if _, err := Reindent(db, testWS, testDate, "a", IndentIn, t0); !errors.Is(err, ErrNoop) {
		t.Fatalf("expected ErrNoop; got %v", err)
	}
}

func TestReindent_OutdentAdoptsFollowingSiblings(t *testing.T) {
	t.Parallel()

	db := newDB(t, map[string][]row{testDate: {open("a", 0), open("b", 1), open("c", 1)}})
	if _, err := Reindent(db, testWS, testDate, "b", IndentOut, t0); err != nil {
		t.Fatalf("outdent: %v", err)
	}
	if got := parentOf(t, db, "c"); got != "b" {
		t.Fatalf("c parent = %q, want b", got)
	}
	mustValid(t, db, testDate)
}

func TestSetLevel(t *testing.T) {
	t.Parallel()

	db := newDB(t, map[string][]row{testDate: {open("a", 0), open("b", 1), open("c", 0), open("d", 1)}})
	if _, err := SetLevel(db, testWS, "", "c", 3, t0); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	if got := levels(t, db, testDate); !reflect.DeepEqual(got, []int{0, 1, 2, 3}) {
		t.Fatalf("levels = %v", got)
	}
	if _, err := SetLevel(db, testWS, "", "c", 2, t0); !errors.Is(err, ErrNoop) {
		t.Fatalf("expected ErrNoop; got %v", err)
	}
	if _, err := SetLevel(db, testWS, "", "c", 0, t0); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	if got := levels(t, db, testDate); !reflect.DeepEqual(got, []int{0, 1, 0, 1}) {
		t.Fatalf("levels = %v", got)
	}
	mustValid(t, db, testDate)
}

func TestMove_SwapsSiblingBlocks(t *testing.T) {
	t.Parallel()

	db := newDB(t, map[string][]row{testDate: {open("a", 0), open("a1", 1), open("b", 0), open("c", 0)}})

	if _, err := Move(db, testWS, testDate, "b", MoveUp, t0); err != nil {
		t.Fatalf("move up: %v", err)
	}
	wantIDs(t, db, testDate, "b", "a", "a1", "c")

	if _, err := Move(db, testWS, testDate, "a", MoveDown, t0); err != nil {
		t.Fatalf("move down: %v", err)
	}
	wantIDs(t, db, testDate, "b", "c", "a", "a1")
	mustValid(t, db, testDate)

	for _, tc := range []struct {
		id  string
		dir Direction
	}{{"a", MoveDown}, {"b", MoveUp}, {"a1", MoveUp}, {"a1", MoveDown}} {
		if _, err := Move(db, testWS, testDate, tc.id, tc.dir, t0); !errors.Is(err, ErrNoop) {
			t.Fatalf("Move(%s, %d): expected ErrNoop; got %v", tc.id, tc.dir, err)
		}
	}
}

func TestDeleteTodo_PromotesDescendants(t *testing.T) {
	t.Parallel()

	db := newDB(t, map[string][]row{testDate: {open("a", 0), open("b", 1), open("c", 2), open("d", 3), open("e", 1)}})
	d, err := DeleteTodo(db, testWS, testDate, "b", t0)
	if err != nil {
		t.Fatalf("DeleteTodo: %v", err)
	}
	wantIDs(t, db, testDate, "a", "c", "d", "e")
	if got := levels(t, db, testDate); !reflect.DeepEqual(got, []int{0, 1, 2, 1}) {
		t.Fatalf("levels = %v", got)
	}
	if got := parentOf(t, db, "c"); got != "a" {
		t.Fatalf("c parent = %q", got)
	}
	var deleted []string
	for _, c := range d.Changes {
		if c.Kind == model.ChangeDeleteTodo {
			deleted = append(deleted, c.TodoID)
		}
	}
	if !reflect.DeepEqual(deleted, []string{"b"}) {
		t.Fatalf("deleted = %v", deleted)
	}
	mustValid(t, db, testDate)
}

func TestDeleteTodo_LastLeavesPlaceholder(t *testing.T) {
	t.Parallel()

	db := newDB(t, map[string][]row{testDate: {open("a", 0)}})
	d, err := DeleteTodo(db, testWS, "", "a", t0)
	if err != nil {
		t.Fatalf("DeleteTodo: %v", err)
	}
	todos := sortedPage(t, db, testDate)
	if len(todos) != 1 || !todos[0].Blank() || todos[0].Level != 0 {
		t.Fatalf("expected one blank placeholder; got %+v", todos)
	}
	want := []model.ChangeKind{model.ChangeCreateTodo, model.ChangeDeleteTodo}
	if got := kinds(d); !reflect.DeepEqual(got, want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
}

func TestMergeIntoPrevious(t *testing.T) {
	t.Parallel()

	db := newDB(t, map[string][]row{testDate: {open("a", 0), open("b", 1), open("c", 0), open("d", 1)}})
	a, _, _ := db.FindTodo(testWS, "a")
	a.Text = "héllo "
	c, _, _ := db.FindTodo(testWS, "c")
	c.Text = "#World"

	res, err := MergeIntoPrevious(db, testWS, testDate, "c", t0)
	if err != nil {
		t.Fatalf("MergeIntoPrevious: %v", err)
	}
	if res.IntoID != "a" || res.Caret != 6 {
		t.Fatalf("result = %+v", res)
	}
	if a.Text != "héllo #World" || !reflect.DeepEqual(a.Tags, []string{"world"}) {
		t.Fatalf("merged todo = %q %v", a.Text, a.Tags)
	}
	wantIDs(t, db, testDate, "a", "b", "d")
	if got := parentOf(t, db, "d"); got != "a" {
		t.Fatalf("d parent = %q", got)
	}
	mustValid(t, db, testDate)

	for _, id := range []string{"a", "b"} {
		if _, err := MergeIntoPrevious(db, testWS, testDate, id, t0); !errors.Is(err, ErrNoop) {
			t.Fatalf("merge %s: expected ErrNoop; got %v", id, err)
		}
	}
}

func TestMergeIntoPrevious_AcrossParents(t *testing.T) {
	t.Parallel()

	db := newDB(t, map[string][]row{testDate: {open("a", 0), open("b", 1), open("c", 0), open("d", 1), open("e", 2)}})

	res, err := MergeIntoPrevious(db, testWS, testDate, "d", t0)
	if err != nil {
		t.Fatalf("MergeIntoPrevious: %v", err)
	}
	if res.IntoID != "b" || res.Caret != 1 {
		t.Fatalf("result = %+v", res)
	}
	b, _, _ := db.FindTodo(testWS, "b")
	if b.Text != "bd" {
		t.Fatalf("merged text = %q", b.Text)
	}
	wantIDs(t, db, testDate, "a", "b", "c", "e")
	if got := levels(t, db, testDate); !reflect.DeepEqual(got, []int{0, 1, 0, 1}) {
		t.Fatalf("levels = %v", got)
	}
	if got := parentOf(t, db, "e"); got != "c" {
		t.Fatalf("e parent = %q", got)
	}
	mustValid(t, db, testDate)
}

func TestRoundTrip_InsertReorderDelete(t *testing.T) {
	t.Parallel()

	db := newDB(t, map[string][]row{testDate: {open("a", 0), open("b", 0), open("c", 0)}})
	res, err := AddTodo(db, testWS, testDate, "x", "a", 1, t0)
	if err != nil {
		t.Fatalf("AddTodo: %v", err)
	}
	x := res.Todo.ID
	wantIDs(t, db, testDate, "a", x, "b", "c")

	if _, err := Reorder(db, testWS, testDate, "a", "c", "", 0, t0); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	wantIDs(t, db, testDate, "b", "c", "a", x)

	if _, err := DeleteTodo(db, testWS, testDate, "c", t0); err != nil {
		t.Fatalf("DeleteTodo: %v", err)
	}
	wantIDs(t, db, testDate, "b", "a", x)
	if got := parentOf(t, db, x); got != "a" {
		t.Fatalf("x parent = %q", got)
	}
	mustValid(t, db, testDate)
}
