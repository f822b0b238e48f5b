package mutate

import (
	"strings"
	"time"

	"daylist-cli/internal/model"
	"daylist-cli/internal/store"
)

// DefaultWorkspaceName names the workspace bootstrapped into an empty store.
const DefaultWorkspaceName = "Personal"

func CreateWorkspace(db *store.DB, name string, now time.Time) (*model.Workspace, model.Diff, error) {
	ws := &model.Workspace{
		ID:          store.NewID("ws"),
		Name:        strings.TrimSpace(name),
		Pages:       map[string]*model.Page{},
		CurrentDate: now.Format(model.DateLayout),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := model.ValidateWorkspace(*ws); err != nil {
		return nil, model.Diff{}, err
	}
	db.AddWorkspace(ws)
	if db.CurrentWorkspaceID == "" {
		db.CurrentWorkspaceID = ws.ID
	}

	meta := ws.Meta()
	var d model.Diff
	d.Add(model.Change{Kind: model.ChangeCreateWorkspace, WorkspaceID: ws.ID, Workspace: &meta})
	return ws, d, nil
}

// EnsureDefaultWorkspace creates DefaultWorkspaceName when the store holds no workspace.
func EnsureDefaultWorkspace(db *store.DB, now time.Time) (model.Diff, error) {
	if len(db.Workspaces) > 0 {
		if _, ok := db.FindWorkspace(db.CurrentWorkspaceID); !ok {
			db.CurrentWorkspaceID = db.Workspaces[0].ID
		}
		return model.Diff{}, nil
	}
	_, d, err := CreateWorkspace(db, DefaultWorkspaceName, now)
	return d, err
}

func RenameWorkspace(db *store.DB, wsID, name string, now time.Time) (model.Diff, error) {
	ws, ok := db.FindWorkspace(wsID)
	if !ok {
		return model.Diff{}, NotFoundError{Kind: "workspace", ID: wsID}
	}
	name = strings.TrimSpace(name)
	candidate := ws.Meta()
	candidate.Name = name
	if err := model.ValidateWorkspace(candidate); err != nil {
		return model.Diff{}, err
	}
	if ws.Name == name {
		return model.Diff{}, nil
	}
	ws.Name = name
	ws.UpdatedAt = now

	var d model.Diff
	d.Add(model.Change{
		Kind:           model.ChangeUpdateWorkspace,
		WorkspaceID:    ws.ID,
		WorkspacePatch: &model.WorkspacePatch{Name: &name, UpdatedAt: &now},
	})
	return d, nil
}

// DeleteWorkspace drops a workspace with all its pages. The current selection falls back to
// the first remaining workspace.
func DeleteWorkspace(db *store.DB, wsID string) (model.Diff, error) {
	if !db.RemoveWorkspace(wsID) {
		return model.Diff{}, NotFoundError{Kind: "workspace", ID: wsID}
	}
	if db.CurrentWorkspaceID == "" && len(db.Workspaces) > 0 {
		db.CurrentWorkspaceID = db.Workspaces[0].ID
	}
	var d model.Diff
	d.Add(model.Change{Kind: model.ChangeDeleteWorkspace, WorkspaceID: wsID})
	return d, nil
}

// SetCurrentDate selects the day shown for a workspace and creates its page if needed.
func SetCurrentDate(db *store.DB, wsID, date string, now time.Time) (model.Diff, error) {
	e, err := beginEdit(db, wsID, date, true, now)
	if err != nil {
		return model.Diff{}, err
	}
	d := e.commit()
	if e.ws.CurrentDate == e.page.Date {
		return d, nil
	}
	e.ws.CurrentDate = e.page.Date
	e.ws.UpdatedAt = now
	cur := e.page.Date
	d.Add(model.Change{
		Kind:           model.ChangeUpdateWorkspace,
		WorkspaceID:    e.ws.ID,
		WorkspacePatch: &model.WorkspacePatch{CurrentDate: &cur, UpdatedAt: &now},
	})
	return d, nil
}

func SetPageNotes(db *store.DB, wsID, date, notes string, now time.Time) (model.Diff, error) {
	e, err := beginEdit(db, wsID, date, true, now)
	if err != nil {
		return model.Diff{}, err
	}
	d := e.commit()
	if e.page.Notes == notes {
		return d, nil
	}
	e.page.Notes = notes
	e.page.UpdatedAt = now
	d.Add(model.Change{
		Kind:        model.ChangeUpdatePage,
		WorkspaceID: e.ws.ID,
		Date:        e.page.Date,
		PagePatch:   &model.PagePatch{Notes: &notes, UpdatedAt: &now},
	})
	return d, nil
}
