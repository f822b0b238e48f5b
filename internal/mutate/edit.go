package mutate

import (
	"strings"
	"time"

	"daylist-cli/internal/model"
	"daylist-cli/internal/outline"
	"daylist-cli/internal/store"
)

// pageEdit snapshots a page before a mutation so commit can emit only what changed.
type pageEdit struct {
	ws      *model.Workspace
	page    *model.Page
	before  map[string]model.Todo
	created bool
	now     time.Time
}

func beginEdit(db *store.DB, wsID, date string, create bool, now time.Time) (*pageEdit, error) {
	ws, ok := db.FindWorkspace(wsID)
	if !ok {
		return nil, NotFoundError{Kind: "workspace", ID: wsID}
	}
	date = strings.TrimSpace(date)
	if err := model.ValidateDate(date); err != nil {
		return nil, err
	}
	var (
		p       *model.Page
		created bool
	)
	if create {
		p, created = db.EnsurePage(ws, date, now)
	} else {
		p, ok = ws.Pages[date]
		if !ok || p == nil {
			return nil, NotFoundError{Kind: "page", ID: date}
		}
	}
	return editPage(ws, p, created, now), nil
}

func editPage(ws *model.Workspace, p *model.Page, created bool, now time.Time) *pageEdit {
	before := make(map[string]model.Todo, len(p.Todos))
	for _, t := range p.Todos {
		if t != nil {
			before[t.ID] = t.Clone()
		}
	}
	return &pageEdit{ws: ws, page: p, before: before, created: created, now: now}
}

// sorted sorts the page in place and returns its todos.
func (e *pageEdit) sorted() []*model.Todo {
	todos := e.page.Todos[:0]
	for _, t := range e.page.Todos {
		if t != nil {
			todos = append(todos, t)
		}
	}
	store.SortTodos(todos)
	e.page.Todos = todos
	return todos
}

func (e *pageEdit) set(todos []*model.Todo) {
	e.page.Todos = todos
}

// commit recomputes parents, stamps UpdatedAt on touched todos and returns the diff.
func (e *pageEdit) commit() model.Diff {
	todos := e.sorted()
	outline.AssignParentIDs(todos)

	var d model.Diff
	if e.created {
		meta := *e.page
		meta.Todos = nil
		d.Add(model.Change{Kind: model.ChangeCreatePage, WorkspaceID: e.ws.ID, Date: e.page.Date, Page: &meta})
	}

	present := make(map[string]bool, len(todos))
	for _, t := range todos {
		present[t.ID] = true
		prev, existed := e.before[t.ID]
		if !existed {
			c := t.Clone()
			d.Add(model.Change{Kind: model.ChangeCreateTodo, WorkspaceID: e.ws.ID, Date: e.page.Date, TodoID: t.ID, Todo: &c})
			continue
		}
		patch := diffTodo(prev, t)
		if patch.Empty() {
			continue
		}
		now := e.now
		t.UpdatedAt = now
		patch.UpdatedAt = &now
		d.Add(model.Change{Kind: model.ChangeUpdateTodo, WorkspaceID: e.ws.ID, Date: e.page.Date, TodoID: t.ID, TodoPatch: &patch})
	}
	// Deletions in the page's previous order keep logs readable.
	prevOrder := make([]*model.Todo, 0, len(e.before))
	for id := range e.before {
		if !present[id] {
			c := e.before[id]
			prevOrder = append(prevOrder, &c)
		}
	}
	store.SortTodos(prevOrder)
	for _, t := range prevOrder {
		d.Add(model.Change{Kind: model.ChangeDeleteTodo, WorkspaceID: e.ws.ID, Date: e.page.Date, TodoID: t.ID})
	}

	// Rebase the snapshot so a second commit on the same edit reports nothing new.
	e.before = make(map[string]model.Todo, len(todos))
	for _, t := range todos {
		e.before[t.ID] = t.Clone()
	}
	e.created = false
	return d
}

// diffTodo returns a patch holding only the fields that differ between prev and cur.
func diffTodo(prev model.Todo, cur *model.Todo) model.TodoPatch {
	var p model.TodoPatch
	if prev.Text != cur.Text {
		v := cur.Text
		p.Text = &v
	}
	if prev.Status != cur.Status {
		v := cur.Status
		p.Status = &v
	}
	if !model.SameTags(prev.Tags, cur.Tags) {
		v := append([]string{}, cur.Tags...)
		p.Tags = &v
	}
	if prev.Order != cur.Order {
		v := cur.Order
		p.Order = &v
	}
	if prev.Level != cur.Level {
		v := cur.Level
		p.Level = &v
	}
	prevParent, curParent := "", ""
	if prev.ParentID != nil {
		prevParent = *prev.ParentID
	}
	if cur.ParentID != nil {
		curParent = *cur.ParentID
	}
	if prevParent != curParent {
		p.ParentID = &curParent
	}
	return p
}

func newTodo(text string, level int, now time.Time) *model.Todo {
	return &model.Todo{
		ID:        store.NewID("todo"),
		Text:      text,
		Status:    model.StatusTodo,
		Tags:      model.ParseTags(text),
		Level:     level,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// placeholder returns the blank root row that keeps a page from being structurally empty.
func placeholder(now time.Time) *model.Todo {
	t := newTodo("", 0, now)
	t.Order, _ = store.KeyInitial()
	return t
}

// spliced returns rest with run inserted at index at, as a new slice.
func spliced(rest []*model.Todo, at int, run []*model.Todo) []*model.Todo {
	out := make([]*model.Todo, 0, len(rest)+len(run))
	out = append(out, rest[:at]...)
	out = append(out, run...)
	out = append(out, rest[at:]...)
	return out
}

// without returns todos minus the index range [i, j], as a new slice.
func without(todos []*model.Todo, i, j int) []*model.Todo {
	out := make([]*model.Todo, 0, len(todos)-(j-i+1))
	out = append(out, todos[:i]...)
	out = append(out, todos[j+1:]...)
	return out
}

// hasParentAt reports whether a todo at level lvl inserted at index at of rest would find
// a parent: the first shallower todo walking backward must sit at lvl-1.
func hasParentAt(rest []*model.Todo, at, lvl int) bool {
	if lvl == 0 {
		return true
	}
	for j := at - 1; j >= 0; j-- {
		if rest[j].Level < lvl {
			return rest[j].Level == lvl-1
		}
	}
	return false
}

// clampLevel picks the effective level for a run placed at index at of rest.
//
// The level never exceeds prev.Level+1 or MaxDepth-offset (offset = the run's deepest
// relative depth), never drops below next.Level so the following todo keeps its parent,
// and is decremented until an ancestor exists at level-1.
func clampLevel(rest []*model.Todo, at, desired, offset int) int {
	max := model.MaxDepth - offset
	if at == 0 {
		max = 0
	} else if p := rest[at-1].Level + 1; p < max {
		max = p
	}
	lvl := desired
	if at < len(rest) && lvl < rest[at].Level {
		lvl = rest[at].Level
	}
	if lvl > max {
		lvl = max
	}
	if lvl < 0 {
		lvl = 0
	}
	for lvl > 0 && !hasParentAt(rest, at, lvl) {
		lvl--
	}
	return lvl
}

// applyKeys writes planned order keys onto todos.
func applyKeys(plan store.KeyPlan, todos []*model.Todo) {
	for _, t := range todos {
		if k, ok := plan.OrderByID[t.ID]; ok {
			t.Order = k
		}
	}
}
