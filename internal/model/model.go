package model

import (
	"strings"
	"time"
)

// MaxDepth is the deepest level a todo may sit at (levels 0..MaxDepth).
const MaxDepth = 3

// DateLayout is the calendar-day key format used for pages.
const DateLayout = "2006-01-02"

type Status string

const (
	StatusTodo    Status = "todo"
	StatusDone    Status = "done"
	StatusUnknown Status = ""
)

// ParseStatus accepts todo/done in any case. Anything else is reported as StatusUnknown with ok=false.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "todo":
		return StatusTodo, true
	case "done":
		return StatusDone, true
	default:
		return StatusUnknown, false
	}
}

func (s Status) Valid() bool {
	return s == StatusTodo || s == StatusDone
}

type Todo struct {
	ID     string   `json:"id"`
	Text   string   `json:"text"`
	Status Status   `json:"status"`
	Tags   []string `json:"tags"`
	Order  string   `json:"order"`
	Level  int      `json:"level"`

	// ParentID is derived from Order+Level and recomputed after every mutation.
	ParentID *string `json:"parentId"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy (tags and parent pointer included).
func (t Todo) Clone() Todo {
	out := t
	if t.Tags != nil {
		out.Tags = append([]string(nil), t.Tags...)
	}
	if t.ParentID != nil {
		pid := *t.ParentID
		out.ParentID = &pid
	}
	return out
}

// Blank reports whether the todo is an empty placeholder row.
func (t Todo) Blank() bool {
	return strings.TrimSpace(t.Text) == ""
}

type Page struct {
	Date      string    `json:"date"`
	Todos     []*Todo   `json:"todos"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone copies the page and every todo on it.
func (p Page) Clone() Page {
	out := p
	out.Todos = make([]*Todo, 0, len(p.Todos))
	for _, t := range p.Todos {
		if t == nil {
			continue
		}
		c := t.Clone()
		out.Todos = append(out.Todos, &c)
	}
	return out
}

type Workspace struct {
	ID          string           `json:"id"`
	Name        string           `json:"name" validate:"required,max=80"`
	Pages       map[string]*Page `json:"pages"`
	CurrentDate string           `json:"currentDate,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Meta returns a copy of the workspace without its pages.
func (w Workspace) Meta() Workspace {
	out := w
	out.Pages = nil
	return out
}

type TodoPatch struct {
	Text   *string   `json:"text,omitempty"`
	Status *Status   `json:"status,omitempty"`
	Tags   *[]string `json:"tags,omitempty"`
	Order  *string   `json:"order,omitempty"`
	Level  *int      `json:"level,omitempty"`

	// ParentID pointing at "" clears the parent.
	ParentID *string `json:"parentId,omitempty"`

	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func (p TodoPatch) Empty() bool {
	return p.Text == nil && p.Status == nil && p.Tags == nil && p.Order == nil &&
		p.Level == nil && p.ParentID == nil && p.UpdatedAt == nil
}

// Apply writes the patched fields onto t.
func (p TodoPatch) Apply(t *Todo) {
	if t == nil {
		return
	}
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Tags != nil {
		t.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.Order != nil {
		t.Order = *p.Order
	}
	if p.Level != nil {
		t.Level = *p.Level
	}
	if p.ParentID != nil {
		if *p.ParentID == "" {
			t.ParentID = nil
		} else {
			pid := *p.ParentID
			t.ParentID = &pid
		}
	}
	if p.UpdatedAt != nil {
		t.UpdatedAt = *p.UpdatedAt
	}
}

type PagePatch struct {
	Notes     *string    `json:"notes,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type WorkspacePatch struct {
	Name        *string    `json:"name,omitempty"`
	CurrentDate *string    `json:"currentDate,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}
