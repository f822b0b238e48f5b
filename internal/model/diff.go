package model

type ChangeKind string

const (
	ChangeCreateWorkspace ChangeKind = "workspace.create"
	ChangeUpdateWorkspace ChangeKind = "workspace.update"
	ChangeDeleteWorkspace ChangeKind = "workspace.delete"
	ChangeCreatePage      ChangeKind = "page.create"
	ChangeUpdatePage      ChangeKind = "page.update"
	ChangeCreateTodo      ChangeKind = "todo.create"
	ChangeUpdateTodo      ChangeKind = "todo.update"
	ChangeDeleteTodo      ChangeKind = "todo.delete"
)

// Change is one storage call derived from an in-memory mutation.
// Only the payload matching Kind is set.
type Change struct {
	Kind        ChangeKind
	WorkspaceID string
	Date        string
	TodoID      string

	Workspace      *Workspace
	WorkspacePatch *WorkspacePatch
	Page           *Page
	PagePatch      *PagePatch
	Todo           *Todo
	TodoPatch      *TodoPatch
}

// Diff is the ordered list of changes produced by a single mutation.
type Diff struct {
	Changes []Change
}

func (d *Diff) Add(c Change) {
	d.Changes = append(d.Changes, c)
}

func (d *Diff) Merge(other Diff) {
	d.Changes = append(d.Changes, other.Changes...)
}

func (d Diff) Empty() bool { return len(d.Changes) == 0 }

// TodoIDs returns the ids of todos touched by the diff, in order, without duplicates.
func (d Diff) TodoIDs() []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range d.Changes {
		if c.TodoID == "" || seen[c.TodoID] {
			continue
		}
		seen[c.TodoID] = true
		out = append(out, c.TodoID)
	}
	return out
}
