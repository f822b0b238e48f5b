package mutate

import (
	"strings"
	"time"

	"daylist-cli/internal/model"
	"daylist-cli/internal/outline"
	"daylist-cli/internal/store"
)

type RollOverResult struct {
	Moved int
	Diff  model.Diff
}

// RollOver carries unfinished todos from every page dated before today onto today's page.
//
// Open, non-blank todos move together with their ancestors so the carried outline keeps its
// shape; each carried tree is rebased to start at level 0 and gets fresh ids. Todos with an
// unknown status or blank text stay behind. Origin pages are repaired and receive a
// placeholder when emptied. Today's page is only created when something moves.
func RollOver(db *store.DB, wsID, today string, now time.Time) (RollOverResult, error) {
	ws, ok := db.FindWorkspace(wsID)
	if !ok {
		return RollOverResult{}, NotFoundError{Kind: "workspace", ID: wsID}
	}
	today = strings.TrimSpace(today)
	if err := model.ValidateDate(today); err != nil {
		return RollOverResult{}, err
	}

	var (
		carried []*model.Todo
		origins model.Diff
	)
	for _, date := range store.PageDates(ws) {
		if date >= today {
			break
		}
		e := editPage(ws, ws.Pages[date], false, now)
		todos := e.sorted()
		moved, kept := carryFrom(todos, now)
		if len(moved) == 0 {
			continue
		}
		carried = append(carried, moved...)

		outline.Repair(kept)
		if len(kept) == 0 {
			kept = append(kept, placeholder(now))
		}
		e.set(kept)
		origins.Merge(e.commit())
	}
	if len(carried) == 0 {
		return RollOverResult{}, nil
	}

	e, err := beginEdit(db, wsID, today, true, now)
	if err != nil {
		return RollOverResult{}, err
	}
	dest := e.sorted()
	if onlyBlank(dest) {
		dest = dest[:0]
	}
	keys, err := store.AppendKeys(dest, len(carried))
	if err != nil {
		return RollOverResult{}, err
	}
	for k, t := range carried {
		t.Order = keys[k]
	}
	e.set(append(dest, carried...))

	d := e.commit()
	d.Merge(origins)
	return RollOverResult{Moved: len(carried), Diff: d}, nil
}

// carryFrom splits a sorted page into fresh copies of the todos to carry and the todos that
// stay. A todo is carried when it is open and non-blank, or when it is a non-blank ancestor
// with a known status of such a todo.
func carryFrom(todos []*model.Todo, now time.Time) (moved, kept []*model.Todo) {
	parents := outline.Parents(todos)
	selected := make([]bool, len(todos))
	for k, t := range todos {
		if t.Status != model.StatusTodo || t.Blank() {
			continue
		}
		selected[k] = true
		for p := parents[k]; p >= 0; p = parents[p] {
			if todos[p].Status.Valid() && !todos[p].Blank() {
				selected[p] = true
			}
		}
	}

	levels := make([]int, len(todos))
	for k, t := range todos {
		if !selected[k] {
			kept = append(kept, t)
			continue
		}
		levels[k] = 0
		for p := parents[k]; p >= 0; p = parents[p] {
			if selected[p] {
				levels[k] = levels[p] + 1
				break
			}
		}
		c := t.Clone()
		c.ID = store.NewID("todo")
		c.Level = levels[k]
		c.ParentID = nil
		c.UpdatedAt = now
		moved = append(moved, &c)
	}
	return moved, kept
}

func onlyBlank(todos []*model.Todo) bool {
	for _, t := range todos {
		if !t.Blank() {
			return false
		}
	}
	return true
}
