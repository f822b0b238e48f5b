package publish

import (
	"bytes"
	"strings"

	"daylist-cli/internal/model"
	"daylist-cli/internal/store"
)

type RenderOptions struct {
	// SkipDone leaves finished todos (and the subtrees under them) out of the export.
	SkipDone bool
	// SkipBlank leaves todos without text out.
	SkipBlank bool
}

// RenderPageMarkdown renders a day page as a GitHub-style task list.
func RenderPageMarkdown(workspace string, p model.Page, opt RenderOptions) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	title := p.Date
	if ws := strings.TrimSpace(workspace); ws != "" {
		title = ws + " / " + p.Date
	}
	writeLn("# " + title)
	writeLn("")

	todos := make([]*model.Todo, len(p.Todos))
	copy(todos, p.Todos)
	store.SortTodos(todos)

	wrote := 0
	skipBelow := -1
	for _, t := range todos {
		if t == nil {
			continue
		}
		if skipBelow >= 0 {
			if t.Level > skipBelow {
				continue
			}
			skipBelow = -1
		}
		if opt.SkipDone && t.Status == model.StatusDone {
			skipBelow = t.Level
			continue
		}
		if opt.SkipBlank && t.Blank() {
			continue
		}
		line := strings.Repeat("  ", t.Level) + "- " + checkbox(t.Status) + " " + oneLine(t.Text)
		writeLn(strings.TrimRight(line, " "))
		wrote++
	}
	if wrote == 0 {
		writeLn("_Nothing planned._")
	}

	if notes := strings.TrimSpace(p.Notes); notes != "" {
		writeLn("")
		writeLn("## Notes")
		writeLn("")
		writeLn(notes)
	}
	return buf.String()
}

func checkbox(s model.Status) string {
	if s == model.StatusDone {
		return "[x]"
	}
	return "[ ]"
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
