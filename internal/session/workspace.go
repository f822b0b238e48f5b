package session

import (
	"strings"
	"time"

	"daylist-cli/internal/model"
	"daylist-cli/internal/mutate"
	"daylist-cli/internal/store"
)

// Workspaces lists every workspace without pages, and the id of the current one.
func (s *Session) Workspaces() ([]model.Workspace, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Workspace, 0, len(s.db.Workspaces))
	for _, ws := range s.db.Workspaces {
		out = append(out, ws.Meta())
	}
	cur := ""
	if ws, ok := s.db.CurrentWorkspace(); ok {
		cur = ws.ID
	}
	return out, cur
}

// Current returns the selected workspace without pages.
func (s *Session) Current() (model.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, err := s.current()
	if err != nil {
		return model.Workspace{}, err
	}
	return ws.Meta(), nil
}

func (s *Session) CreateWorkspace(name string) (model.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, d, err := mutate.CreateWorkspace(s.db, name, s.now())
	if err != nil {
		return model.Workspace{}, err
	}
	s.submit(d)
	return ws.Meta(), nil
}

func (s *Session) RenameWorkspace(id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := mutate.RenameWorkspace(s.db, id, name, s.now())
	if err != nil {
		return err
	}
	s.submit(d)
	return nil
}

func (s *Session) DeleteWorkspace(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := mutate.DeleteWorkspace(s.db, id)
	if err != nil {
		return err
	}
	s.submit(d)
	return nil
}

// UseWorkspace selects the workspace that later operations apply to. The selection lives in
// memory only; callers persist it themselves.
func (s *Session) UseWorkspace(id string) (model.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.db.FindWorkspace(id)
	if !ok {
		return model.Workspace{}, mutate.NotFoundError{Kind: "workspace", ID: strings.TrimSpace(id)}
	}
	s.db.CurrentWorkspaceID = ws.ID
	return ws.Meta(), nil
}

func (s *Session) SetCurrentDate(date string) error {
	return s.do(func(wsID string, now time.Time) (model.Diff, error) {
		return mutate.SetCurrentDate(s.db, wsID, date, now)
	})
}

// Date resolves the page a command acts on: the explicit date, else the workspace's current
// date, else today.
func (s *Session) Date(explicit string) string {
	if d := strings.TrimSpace(explicit); d != "" {
		return d
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ws, err := s.current(); err == nil && ws.CurrentDate != "" {
		return ws.CurrentDate
	}
	return s.now().Format(model.DateLayout)
}

// Page returns a sorted copy of the page for date. A page that does not exist yet comes back
// empty with ok=false; reading never creates it.
func (s *Session) Page(date string) (model.Page, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, err := s.current()
	if err != nil {
		return model.Page{}, false, err
	}
	date = strings.TrimSpace(date)
	if err := model.ValidateDate(date); err != nil {
		return model.Page{}, false, err
	}
	p, ok := s.db.Page(ws.ID, date)
	if !ok {
		return model.Page{Date: date, Todos: []*model.Todo{}}, false, nil
	}
	out := p.Clone()
	store.SortTodos(out.Todos)
	return out, true, nil
}

func (s *Session) SetPageNotes(date, notes string) error {
	return s.do(func(wsID string, now time.Time) (model.Diff, error) {
		return mutate.SetPageNotes(s.db, wsID, date, notes, now)
	})
}

// Pages returns sorted clones of every stored page of the current workspace, oldest first.
func (s *Session) Pages() ([]model.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, err := s.current()
	if err != nil {
		return nil, err
	}
	dates := store.PageDates(ws)
	out := make([]model.Page, 0, len(dates))
	for _, d := range dates {
		if ws.Pages[d] == nil {
			continue
		}
		p := ws.Pages[d].Clone()
		store.SortTodos(p.Todos)
		out = append(out, p)
	}
	return out, nil
}
