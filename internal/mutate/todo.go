package mutate

import (
	"strings"
	"time"

	"daylist-cli/internal/model"
	"daylist-cli/internal/outline"
	"daylist-cli/internal/store"
)

type AddResult struct {
	Todo *model.Todo
	Diff model.Diff
}

// AddTodo inserts a todo after afterID (or at the end of the page when afterID is empty or
// unknown). The requested level is clamped so the outline stays valid. The page is created
// on first use.
func AddTodo(db *store.DB, wsID, date, text, afterID string, level int, now time.Time) (AddResult, error) {
	e, err := beginEdit(db, wsID, date, true, now)
	if err != nil {
		return AddResult{}, err
	}
	todos := e.sorted()

	at := len(todos)
	if afterID = strings.TrimSpace(afterID); afterID != "" {
		if k := outline.IndexOf(todos, afterID); k >= 0 {
			at = k + 1
		}
	}

	t := newTodo(text, clampLevel(todos, at, level, 0), now)
	final := spliced(todos, at, []*model.Todo{t})
	plan, err := store.PlanBlockKeys(final, at, 1)
	if err != nil {
		return AddResult{}, err
	}
	applyKeys(plan, final)
	e.set(final)

	return AddResult{Todo: t, Diff: e.commit()}, nil
}

// UpdateTodoText replaces the text and re-derives tags.
func UpdateTodoText(db *store.DB, wsID, todoID, text string, now time.Time) (model.Diff, error) {
	t, p, ok := db.FindTodo(wsID, todoID)
	if !ok {
		return model.Diff{}, NotFoundError{Kind: "todo", ID: todoID}
	}
	ws, _ := db.FindWorkspace(wsID)
	e := editPage(ws, p, false, now)
	t.Text = text
	t.Tags = model.ParseTags(text)
	return e.commit(), nil
}

type ToggleResult struct {
	Todo *model.Todo
	Diff model.Diff
}

// ToggleTodo flips todo<->done. Completing is rejected with ErrChildrenOpen while any todo
// in the block below is still open; descendants with an unknown status do not count.
// Unknown statuses toggle to done.
func ToggleTodo(db *store.DB, wsID, todoID string, now time.Time) (ToggleResult, error) {
	_, p, ok := db.FindTodo(wsID, todoID)
	if !ok {
		return ToggleResult{}, NotFoundError{Kind: "todo", ID: todoID}
	}
	ws, _ := db.FindWorkspace(wsID)
	e := editPage(ws, p, false, now)
	todos := e.sorted()
	i := outline.IndexOf(todos, todoID)
	t := todos[i]

	if t.Status == model.StatusDone {
		t.Status = model.StatusTodo
		return ToggleResult{Todo: t, Diff: e.commit()}, nil
	}
	end := outline.BlockEnd(todos, i)
	for k := i + 1; k <= end; k++ {
		if todos[k].Status == model.StatusTodo {
			return ToggleResult{}, ErrChildrenOpen
		}
	}
	t.Status = model.StatusDone
	return ToggleResult{Todo: t, Diff: e.commit()}, nil
}

// GetTodo returns a copy of the todo and the date of its page.
func GetTodo(db *store.DB, wsID, todoID string) (model.Todo, string, error) {
	t, p, ok := db.FindTodo(wsID, todoID)
	if !ok {
		return model.Todo{}, "", NotFoundError{Kind: "todo", ID: todoID}
	}
	return t.Clone(), p.Date, nil
}
