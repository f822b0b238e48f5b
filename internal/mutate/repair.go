package mutate

import (
	"time"

	"daylist-cli/internal/model"
	"daylist-cli/internal/outline"
	"daylist-cli/internal/store"
)

// RepairPage brings a loaded page back within the outline invariants: levels are clamped,
// missing or duplicate order keys cause the whole page to be re-keyed, and parent ids are
// recomputed. Pages that are already valid produce an empty diff.
func RepairPage(ws *model.Workspace, p *model.Page, now time.Time) (model.Diff, error) {
	e := editPage(ws, p, false, now)
	todos := e.sorted()
	for _, t := range todos {
		if !t.Status.Valid() {
			t.Status = model.StatusUnknown
		}
	}
	outline.Repair(todos)
	if needsRekey(todos) {
		keys, err := store.KeysBetween("", "", len(todos))
		if err != nil {
			return model.Diff{}, err
		}
		for k, t := range todos {
			t.Order = keys[k]
		}
	}
	return e.commit(), nil
}

func needsRekey(todos []*model.Todo) bool {
	seen := make(map[string]bool, len(todos))
	for _, t := range todos {
		if t.Order == "" || seen[t.Order] || store.CheckKey(t.Order) != nil {
			return true
		}
		seen[t.Order] = true
	}
	return false
}
