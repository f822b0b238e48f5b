package mutate

import (
	"time"

	"daylist-cli/internal/model"
	"daylist-cli/internal/outline"
	"daylist-cli/internal/store"
)

type Indent int

const (
	IndentIn Indent = iota + 1
	IndentOut
)

func (d Indent) String() string {
	switch d {
	case IndentIn:
		return "indent"
	case IndentOut:
		return "outdent"
	default:
		return "unknown"
	}
}

// Reindent moves a todo and its whole block one level in or out.
//
// Indent lands at min(cur+1, prev.Level+1, MaxDepth-maxChildOffset) and is a no-op when
// that is not deeper than the current level. Outdent is a no-op at level 0; following
// siblings become children of the outdented todo.
func Reindent(db *store.DB, wsID, date, todoID string, dir Indent, now time.Time) (model.Diff, error) {
	e, todos, i, err := beginTodoEdit(db, wsID, date, todoID, now)
	if err != nil {
		return model.Diff{}, err
	}
	end := outline.BlockEnd(todos, i)
	cur := todos[i].Level

	var target int
	switch dir {
	case IndentIn:
		if i == 0 {
			return model.Diff{}, ErrNoop
		}
		target = cur + 1
		if p := todos[i-1].Level + 1; p < target {
			target = p
		}
		if m := model.MaxDepth - outline.MaxRelativeDepth(todos, i, end); m < target {
			target = m
		}
		if target <= cur {
			return model.Diff{}, ErrNoop
		}
	case IndentOut:
		if cur == 0 {
			return model.Diff{}, ErrNoop
		}
		target = cur - 1
	default:
		return model.Diff{}, ErrInvalidInput
	}

	shiftBlock(todos, i, end, target-cur)
	return e.commit(), nil
}

// SetLevel applies an absolute level to a todo's block, clamped to
// [0, min(prev.Level+1, MaxDepth-maxChildOffset)].
func SetLevel(db *store.DB, wsID, date, todoID string, level int, now time.Time) (model.Diff, error) {
	e, todos, i, err := beginTodoEdit(db, wsID, date, todoID, now)
	if err != nil {
		return model.Diff{}, err
	}
	end := outline.BlockEnd(todos, i)

	max := model.MaxDepth - outline.MaxRelativeDepth(todos, i, end)
	if i == 0 {
		max = 0
	} else if p := todos[i-1].Level + 1; p < max {
		max = p
	}
	target := level
	if target > max {
		target = max
	}
	if target < 0 {
		target = 0
	}
	if target == todos[i].Level {
		return model.Diff{}, ErrNoop
	}

	shiftBlock(todos, i, end, target-todos[i].Level)
	return e.commit(), nil
}

// beginTodoEdit opens an edit on the page holding todoID. When date is empty the page is
// looked up from the todo itself.
func beginTodoEdit(db *store.DB, wsID, date, todoID string, now time.Time) (*pageEdit, []*model.Todo, int, error) {
	if date == "" {
		_, p, ok := db.FindTodo(wsID, todoID)
		if !ok {
			if _, wsOK := db.FindWorkspace(wsID); !wsOK {
				return nil, nil, 0, NotFoundError{Kind: "workspace", ID: wsID}
			}
			return nil, nil, 0, NotFoundError{Kind: "todo", ID: todoID}
		}
		date = p.Date
	}
	e, err := beginEdit(db, wsID, date, false, now)
	if err != nil {
		return nil, nil, 0, err
	}
	todos := e.sorted()
	i := outline.IndexOf(todos, todoID)
	if i < 0 {
		return nil, nil, 0, NotFoundError{Kind: "todo", ID: todoID}
	}
	return e, todos, i, nil
}

func shiftBlock(todos []*model.Todo, i, end, delta int) {
	if delta == 0 {
		return
	}
	for k := i; k <= end; k++ {
		todos[k].Level += delta
	}
}
