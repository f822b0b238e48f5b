package format

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"daylist-cli/internal/model"
)

// PageView is a page together with the name of its workspace.
type PageView struct {
	Workspace string     `json:"workspace"`
	Page      model.Page `json:"page"`
}

// TodoView is a single todo with the date of the page holding it.
type TodoView struct {
	Date string     `json:"date"`
	Todo model.Todo `json:"todo"`
}

type WorkspaceRow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CurrentDate string `json:"currentDate,omitempty"`
	Current     bool   `json:"current"`
}

// WriteText renders v for people. Maps print as sorted key: value lines; unknown types fall
// back to indented JSON.
func WriteText(w io.Writer, v any) error {
	switch x := v.(type) {
	case PageView:
		return WritePage(w, x.Workspace, x.Page)
	case *PageView:
		return WritePage(w, x.Workspace, x.Page)
	case TodoView:
		return WriteTodo(w, x)
	case []WorkspaceRow:
		return WriteWorkspaces(w, x)
	case map[string]any:
		return writeFields(w, x)
	default:
		return WriteJSON(w, v, true)
	}
}

type styles struct {
	title, done, unknown, faint lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true).Underline(true),
		done:    r.NewStyle().Faint(true).Strikethrough(true),
		unknown: r.NewStyle().Italic(true),
		faint:   r.NewStyle().Faint(true),
	}
}

func box(s model.Status) string {
	switch s {
	case model.StatusDone:
		return "[x]"
	case model.StatusTodo:
		return "[ ]"
	default:
		return "[?]"
	}
}

// WritePage renders a page as an indented outline, one todo per line with its id.
func WritePage(w io.Writer, workspace string, p model.Page) error {
	st := newStyles(w)
	var b strings.Builder

	title := p.Date
	if workspace != "" {
		title = workspace + " / " + p.Date
	}
	b.WriteString(st.title.Render(title))
	b.WriteString("\n")

	if len(p.Todos) == 0 {
		b.WriteString(st.faint.Render("(no todos)"))
		b.WriteString("\n")
	}
	for _, t := range p.Todos {
		b.WriteString(todoLine(st, *t, true))
		b.WriteString("\n")
	}
	if notes := strings.TrimSpace(p.Notes); notes != "" {
		b.WriteString("\n")
		b.WriteString(notes)
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func todoLine(st styles, t model.Todo, indent bool) string {
	text := t.Text
	if t.Blank() {
		text = "..."
	}
	line := box(t.Status) + " " + text
	switch t.Status {
	case model.StatusDone:
		line = st.done.Render(line)
	case model.StatusTodo:
	default:
		line = st.unknown.Render(line)
	}
	if indent {
		line = strings.Repeat("  ", t.Level) + line
	}
	return line + "  " + st.faint.Render(t.ID)
}

func WriteTodo(w io.Writer, v TodoView) error {
	st := newStyles(w)
	meta := fmt.Sprintf("(%s, level %d)", v.Date, v.Todo.Level)
	_, err := fmt.Fprintln(w, todoLine(st, v.Todo, false)+" "+st.faint.Render(meta))
	return err
}

// WriteWorkspaces prints workspaces as a table; the current one is marked with '*'.
func WriteWorkspaces(w io.Writer, rows []WorkspaceRow) error {
	bold := color.New(color.Bold)
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("", bold.Sprint("ID"), bold.Sprint("NAME"), bold.Sprint("DATE"))
	for _, r := range rows {
		mark := ""
		name := r.Name
		if r.Current {
			mark = "*"
			name = bold.Sprint(name)
		}
		tbl.AddRow(mark, r.ID, name, r.CurrentDate)
	}
	_, err := fmt.Fprintln(w, tbl)
	return err
}

func writeFields(w io.Writer, m map[string]any) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s: %v\n", k, m[k]); err != nil {
			return err
		}
	}
	return nil
}
