package mutate

import (
	"fmt"
	"time"

	"daylist-cli/internal/model"
	"daylist-cli/internal/outline"
	"daylist-cli/internal/store"
)

type Direction int

const (
	MoveUp Direction = iota + 1
	MoveDown
)

// Reorder moves activeID and its block to a new position on the same page.
//
// The block lands just after beforeID when set, otherwise just before afterID, otherwise at
// the end of the page. desiredLevel < 0 keeps the current level. The level is clamped as for
// AddTodo and further capped by the block's own depth; every block member shifts by the same
// delta. A move that would land the block above the following todo's level, or that breaks
// the outline, is rejected with ErrInvalidMove and leaves the page untouched.
func Reorder(db *store.DB, wsID, date, activeID, beforeID, afterID string, desiredLevel int, now time.Time) (model.Diff, error) {
	e, todos, i, err := beginTodoEdit(db, wsID, date, activeID, now)
	if err != nil {
		return model.Diff{}, err
	}
	end := outline.BlockEnd(todos, i)
	rest := without(todos, i, end)

	at := len(rest)
	switch {
	case beforeID != "":
		k, err := anchorIndex(todos, rest, i, end, beforeID)
		if err != nil {
			return model.Diff{}, err
		}
		at = k + 1
	case afterID != "":
		k, err := anchorIndex(todos, rest, i, end, afterID)
		if err != nil {
			return model.Diff{}, err
		}
		at = k
	}

	desired := desiredLevel
	if desired < 0 {
		desired = todos[i].Level
	}
	lvl := clampLevel(rest, at, desired, outline.MaxRelativeDepth(todos, i, end))
	if at < len(rest) && lvl < rest[at].Level {
		// The block is too deep to sit at the following todo's level; landing shallower would
		// adopt that todo.
		return model.Diff{}, fmt.Errorf("%w: %s cannot nest at level %d", ErrInvalidMove, activeID, rest[at].Level)
	}
	delta := lvl - todos[i].Level
	if at == i && delta == 0 {
		return model.Diff{}, nil
	}
	return placeBlock(e, todos, i, end, rest, at, delta)
}

// Move swaps a todo's block with its previous (up) or next (down) sibling's block.
// The level is kept; ErrNoop is returned when no sibling exists in that direction.
func Move(db *store.DB, wsID, date, todoID string, dir Direction, now time.Time) (model.Diff, error) {
	e, todos, i, err := beginTodoEdit(db, wsID, date, todoID, now)
	if err != nil {
		return model.Diff{}, err
	}
	sibs := outline.Siblings(todos, i)
	pos := -1
	for k, s := range sibs {
		if s == i {
			pos = k
			break
		}
	}
	end := outline.BlockEnd(todos, i)
	rest := without(todos, i, end)

	var at int
	switch dir {
	case MoveUp:
		if pos <= 0 {
			return model.Diff{}, ErrNoop
		}
		at = outline.IndexOf(rest, todos[sibs[pos-1]].ID)
	case MoveDown:
		if pos < 0 || pos >= len(sibs)-1 {
			return model.Diff{}, ErrNoop
		}
		next := sibs[pos+1]
		at = outline.IndexOf(rest, todos[outline.BlockEnd(todos, next)].ID) + 1
	default:
		return model.Diff{}, ErrInvalidInput
	}
	return placeBlock(e, todos, i, end, rest, at, 0)
}

// anchorIndex resolves id to its index in rest. Anchoring on a member of the moving block
// is rejected.
func anchorIndex(todos, rest []*model.Todo, i, end int, id string) (int, error) {
	for k := i; k <= end; k++ {
		if todos[k].ID == id {
			return 0, fmt.Errorf("%w: %s is inside the moved block", ErrInvalidMove, id)
		}
	}
	k := outline.IndexOf(rest, id)
	if k < 0 {
		return 0, NotFoundError{Kind: "todo", ID: id}
	}
	return k, nil
}

// placeBlock splices todos[i:end+1] into rest at index at, shifts its levels by delta and
// assigns keys. On an invalid result every todo is restored and ErrInvalidMove returned.
func placeBlock(e *pageEdit, todos []*model.Todo, i, end int, rest []*model.Todo, at, delta int) (model.Diff, error) {
	block := append([]*model.Todo(nil), todos[i:end+1]...)
	saved := saveLayout(todos)

	shiftBlock(block, 0, len(block)-1, delta)
	final := spliced(rest, at, block)
	plan, err := store.PlanBlockKeys(final, at, len(block))
	if err != nil {
		saved.restore()
		return model.Diff{}, fmt.Errorf("%w: %v", ErrInvalidMove, err)
	}
	applyKeys(plan, final)
	if err := outline.Validate(final); err != nil {
		saved.restore()
		return model.Diff{}, fmt.Errorf("%w: %v", ErrInvalidMove, err)
	}
	e.set(final)
	return e.commit(), nil
}

type layout []struct {
	t     *model.Todo
	order string
	level int
}

func saveLayout(todos []*model.Todo) layout {
	out := make(layout, len(todos))
	for k, t := range todos {
		out[k].t, out[k].order, out[k].level = t, t.Order, t.Level
	}
	return out
}

func (l layout) restore() {
	for _, s := range l {
		s.t.Order, s.t.Level = s.order, s.level
	}
}
