package mutate

import (
	"time"
	"unicode/utf8"

	"daylist-cli/internal/model"
	"daylist-cli/internal/outline"
	"daylist-cli/internal/store"
)

// DeleteTodo removes a todo. Its descendants move up one level so they are adopted by the
// deleted todo's parent. A page emptied by the delete gets a blank placeholder.
func DeleteTodo(db *store.DB, wsID, date, todoID string, now time.Time) (model.Diff, error) {
	e, todos, i, err := beginTodoEdit(db, wsID, date, todoID, now)
	if err != nil {
		return model.Diff{}, err
	}
	end := outline.BlockEnd(todos, i)
	shiftBlock(todos, i+1, end, -1)

	final := without(todos, i, i)
	if len(final) == 0 {
		final = append(final, placeholder(now))
	}
	e.set(final)
	return e.commit(), nil
}

type MergeResult struct {
	IntoID string
	// Caret is the rune offset in the merged text where the removed todo's text starts.
	Caret int
	Diff  model.Diff
}

// MergeIntoPrevious appends a todo's text to the nearest preceding todo at the same level
// and removes it. When that todo shares its parent the removed todo's children keep their
// level and are adopted by it; otherwise they move up one level, as on delete.
func MergeIntoPrevious(db *store.DB, wsID, date, todoID string, now time.Time) (MergeResult, error) {
	e, todos, i, err := beginTodoEdit(db, wsID, date, todoID, now)
	if err != nil {
		return MergeResult{}, err
	}
	prev, crossed := previousAtLevel(todos, i)
	if prev < 0 {
		return MergeResult{}, ErrNoop
	}
	into := todos[prev]
	caret := utf8.RuneCountInString(into.Text)
	into.Text += todos[i].Text
	into.Tags = model.ParseTags(into.Text)
	if crossed {
		shiftBlock(todos, i+1, outline.BlockEnd(todos, i), -1)
	}

	e.set(without(todos, i, i))
	return MergeResult{IntoID: into.ID, Caret: caret, Diff: e.commit()}, nil
}

// previousAtLevel returns the nearest preceding todo at the same level, or -1. crossed
// reports whether a shallower todo lies between them.
func previousAtLevel(todos []*model.Todo, i int) (j int, crossed bool) {
	lvl := todos[i].Level
	for j = i - 1; j >= 0; j-- {
		switch {
		case todos[j].Level == lvl:
			return j, crossed
		case todos[j].Level < lvl:
			crossed = true
		}
	}
	return -1, crossed
}
