package storage

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"daylist-cli/internal/model"
)

// BlobKey is the single key the Blob adapter reads and writes.
const BlobKey = "daylist"

const documentVersion = 1

//go:embed document.schema.json
var documentSchema string

var compileDocumentSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("document.schema.json", bytes.NewReader([]byte(documentSchema))); err != nil {
		return nil, err
	}
	return compiler.Compile("document.schema.json")
})

// Blob keeps every workspace in one JSON document. Each call reads, edits and writes the
// whole document under a mutex.
type Blob struct {
	mu    sync.Mutex
	store BlobStore
	now   func() time.Time
}

func NewBlob(store BlobStore) *Blob {
	return &Blob{store: store, now: time.Now}
}

// The stored document keeps timestamps and statuses as plain strings so malformed values
// degrade on load instead of failing the decode.
type document struct {
	Version    int          `json:"version"`
	Workspaces []*workspace `json:"workspaces"`
}

type workspace struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	CurrentDate string  `json:"currentDate,omitempty"`
	Pages       []*page `json:"pages"`
	CreatedAt   string  `json:"createdAt,omitempty"`
	UpdatedAt   string  `json:"updatedAt,omitempty"`
}

type page struct {
	Date      string  `json:"date"`
	Notes     string  `json:"notes,omitempty"`
	Todos     []*todo `json:"todos"`
	CreatedAt string  `json:"createdAt,omitempty"`
	UpdatedAt string  `json:"updatedAt,omitempty"`
}

type todo struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Status    string   `json:"status"`
	Tags      []string `json:"tags"`
	Order     string   `json:"order"`
	Level     int      `json:"level"`
	ParentID  *string  `json:"parentId"`
	CreatedAt string   `json:"createdAt,omitempty"`
	UpdatedAt string   `json:"updatedAt,omitempty"`
}

func (b *Blob) Initialize(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.store.Has(BlobKey) {
		_, err := b.load()
		return err
	}
	return b.save(&document{Version: documentVersion, Workspaces: []*workspace{}})
}

func (b *Blob) Close() error { return nil }

func (b *Blob) load() (*document, error) {
	if !b.store.Has(BlobKey) {
		return &document{Version: documentVersion, Workspaces: []*workspace{}}, nil
	}
	raw, err := b.store.Read(BlobKey)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	schema, err := compileDocumentSchema()
	if err != nil {
		return nil, fmt.Errorf("compile document schema: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if err := schema.Validate(generic); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

func (b *Blob) save(doc *document) error {
	doc.Version = documentVersion
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := b.store.Write(BlobKey, raw); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// edit loads the document, runs fn and writes the document back when fn succeeds.
func (b *Blob) edit(fn func(doc *document) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	doc, err := b.load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return b.save(doc)
}

func (b *Blob) view(fn func(doc *document) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	doc, err := b.load()
	if err != nil {
		return err
	}
	return fn(doc)
}

func (d *document) workspace(id string) (*workspace, error) {
	for _, ws := range d.Workspaces {
		if ws.ID == id {
			return ws, nil
		}
	}
	return nil, fmt.Errorf("workspace %s: %w", id, ErrNotFound)
}

func (w *workspace) page(date string) (*page, error) {
	for _, p := range w.Pages {
		if p.Date == date {
			return p, nil
		}
	}
	return nil, fmt.Errorf("page %s/%s: %w", w.ID, date, ErrNotFound)
}

// todo finds a todo anywhere in the document.
func (d *document) todo(id string) (*todo, *page, error) {
	for _, ws := range d.Workspaces {
		for _, p := range ws.Pages {
			for _, t := range p.Todos {
				if t.ID == id {
					return t, p, nil
				}
			}
		}
	}
	return nil, nil, fmt.Errorf("todo %s: %w", id, ErrNotFound)
}

func (b *Blob) GetWorkspaces(ctx context.Context) ([]*model.Workspace, error) {
	var out []*model.Workspace
	err := b.view(func(doc *document) error {
		for _, ws := range doc.Workspaces {
			out = append(out, b.toWorkspace(ws))
		}
		return nil
	})
	return out, err
}

func (b *Blob) GetWorkspace(ctx context.Context, id string) (*model.Workspace, error) {
	var out *model.Workspace
	err := b.view(func(doc *document) error {
		ws, err := doc.workspace(id)
		if err != nil {
			return err
		}
		out = b.toWorkspace(ws)
		return nil
	})
	return out, err
}

func (b *Blob) CreateWorkspace(ctx context.Context, in *model.Workspace) (*model.Workspace, error) {
	var out *model.Workspace
	err := b.edit(func(doc *document) error {
		if _, err := doc.workspace(in.ID); err == nil {
			return fmt.Errorf("workspace %s: %w", in.ID, ErrDuplicate)
		}
		ws := fromWorkspace(in)
		doc.Workspaces = append(doc.Workspaces, ws)
		out = b.toWorkspace(ws)
		return nil
	})
	return out, err
}

func (b *Blob) UpdateWorkspace(ctx context.Context, id string, patch model.WorkspacePatch) (*model.Workspace, error) {
	var out *model.Workspace
	err := b.edit(func(doc *document) error {
		ws, err := doc.workspace(id)
		if err != nil {
			return err
		}
		cur := b.toWorkspace(ws)
		ApplyWorkspacePatch(cur, patch)
		ws.Name, ws.CurrentDate, ws.UpdatedAt = cur.Name, cur.CurrentDate, formatTime(cur.UpdatedAt)
		out = cur
		return nil
	})
	return out, err
}

func (b *Blob) DeleteWorkspace(ctx context.Context, id string) error {
	return b.edit(func(doc *document) error {
		for i, ws := range doc.Workspaces {
			if ws.ID == id {
				doc.Workspaces = append(doc.Workspaces[:i], doc.Workspaces[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("workspace %s: %w", id, ErrNotFound)
	})
}

func (b *Blob) GetPage(ctx context.Context, wsID, date string) (*model.Page, error) {
	var out *model.Page
	err := b.view(func(doc *document) error {
		ws, err := doc.workspace(wsID)
		if err != nil {
			return err
		}
		p, err := ws.page(date)
		if err != nil {
			return err
		}
		out = b.toPage(p)
		return nil
	})
	return out, err
}

func (b *Blob) CreatePage(ctx context.Context, wsID string, in *model.Page) (*model.Page, error) {
	var out *model.Page
	err := b.edit(func(doc *document) error {
		ws, err := doc.workspace(wsID)
		if err != nil {
			return err
		}
		if _, err := ws.page(in.Date); err == nil {
			return fmt.Errorf("page %s/%s: %w", wsID, in.Date, ErrDuplicate)
		}
		p := fromPage(in)
		p.Todos = []*todo{}
		ws.Pages = append(ws.Pages, p)
		sort.Slice(ws.Pages, func(i, j int) bool { return ws.Pages[i].Date < ws.Pages[j].Date })
		out = b.toPage(p)
		return nil
	})
	return out, err
}

func (b *Blob) UpdatePage(ctx context.Context, wsID, date string, patch model.PagePatch) (*model.Page, error) {
	var out *model.Page
	err := b.edit(func(doc *document) error {
		ws, err := doc.workspace(wsID)
		if err != nil {
			return err
		}
		p, err := ws.page(date)
		if err != nil {
			return err
		}
		cur := b.toPage(p)
		ApplyPagePatch(cur, patch)
		p.Notes, p.UpdatedAt = cur.Notes, formatTime(cur.UpdatedAt)
		out = cur
		return nil
	})
	return out, err
}

func (b *Blob) GetTodos(ctx context.Context, wsID, date string) ([]*model.Todo, error) {
	p, err := b.GetPage(ctx, wsID, date)
	if err != nil {
		return nil, err
	}
	return p.Todos, nil
}

func (b *Blob) CreateTodo(ctx context.Context, wsID, date string, in *model.Todo) (*model.Todo, error) {
	var out *model.Todo
	err := b.edit(func(doc *document) error {
		ws, err := doc.workspace(wsID)
		if err != nil {
			return err
		}
		p, err := ws.page(date)
		if err != nil {
			return err
		}
		if _, _, err := doc.todo(in.ID); err == nil {
			return fmt.Errorf("todo %s: %w", in.ID, ErrDuplicate)
		}
		t := fromTodo(in)
		p.Todos = append(p.Todos, t)
		out = b.toTodo(t)
		return nil
	})
	return out, err
}

func (b *Blob) UpdateTodo(ctx context.Context, id string, patch model.TodoPatch) (*model.Todo, error) {
	var out *model.Todo
	err := b.edit(func(doc *document) error {
		t, _, err := doc.todo(id)
		if err != nil {
			return err
		}
		cur := b.toTodo(t)
		patch.Apply(cur)
		*t = *fromTodo(cur)
		out = cur
		return nil
	})
	return out, err
}

func (b *Blob) DeleteTodo(ctx context.Context, id string) error {
	return b.edit(func(doc *document) error {
		_, p, err := doc.todo(id)
		if err != nil {
			return err
		}
		for i, t := range p.Todos {
			if t.ID == id {
				p.Todos = append(p.Todos[:i], p.Todos[i+1:]...)
				break
			}
		}
		return nil
	})
}

func (b *Blob) SavePage(ctx context.Context, wsID string, in *model.Page) error {
	return b.edit(func(doc *document) error {
		ws, err := doc.workspace(wsID)
		if err != nil {
			return err
		}
		next := fromPage(in)
		// Todos saved here leave whatever page held them before.
		moving := make(map[string]bool, len(next.Todos))
		for _, t := range next.Todos {
			moving[t.ID] = true
		}
		for _, w := range doc.Workspaces {
			for _, p := range w.Pages {
				if w == ws && p.Date == in.Date {
					continue
				}
				kept := p.Todos[:0]
				for _, t := range p.Todos {
					if !moving[t.ID] {
						kept = append(kept, t)
					}
				}
				p.Todos = kept
			}
		}
		for i, p := range ws.Pages {
			if p.Date == in.Date {
				next.CreatedAt = p.CreatedAt
				ws.Pages[i] = next
				return nil
			}
		}
		ws.Pages = append(ws.Pages, next)
		sort.Slice(ws.Pages, func(i, j int) bool { return ws.Pages[i].Date < ws.Pages[j].Date })
		return nil
	})
}

func (b *Blob) toWorkspace(ws *workspace) *model.Workspace {
	out := &model.Workspace{
		ID:          ws.ID,
		Name:        ws.Name,
		CurrentDate: ws.CurrentDate,
		Pages:       make(map[string]*model.Page, len(ws.Pages)),
		CreatedAt:   b.parseTime(ws.CreatedAt),
		UpdatedAt:   b.parseTime(ws.UpdatedAt),
	}
	for _, p := range ws.Pages {
		out.Pages[p.Date] = b.toPage(p)
	}
	return out
}

func (b *Blob) toPage(p *page) *model.Page {
	out := &model.Page{
		Date:      p.Date,
		Notes:     p.Notes,
		Todos:     make([]*model.Todo, 0, len(p.Todos)),
		CreatedAt: b.parseTime(p.CreatedAt),
		UpdatedAt: b.parseTime(p.UpdatedAt),
	}
	for _, t := range p.Todos {
		out.Todos = append(out.Todos, b.toTodo(t))
	}
	return out
}

func (b *Blob) toTodo(t *todo) *model.Todo {
	status, _ := model.ParseStatus(t.Status)
	tags := append([]string(nil), t.Tags...)
	if t.Tags == nil {
		tags = model.ParseTags(t.Text)
	}
	out := &model.Todo{
		ID:        t.ID,
		Text:      t.Text,
		Status:    status,
		Tags:      tags,
		Order:     t.Order,
		Level:     t.Level,
		CreatedAt: b.parseTime(t.CreatedAt),
		UpdatedAt: b.parseTime(t.UpdatedAt),
	}
	if t.ParentID != nil && *t.ParentID != "" {
		pid := *t.ParentID
		out.ParentID = &pid
	}
	return out
}

func fromWorkspace(ws *model.Workspace) *workspace {
	out := &workspace{
		ID:          ws.ID,
		Name:        ws.Name,
		CurrentDate: ws.CurrentDate,
		Pages:       []*page{},
		CreatedAt:   formatTime(ws.CreatedAt),
		UpdatedAt:   formatTime(ws.UpdatedAt),
	}
	for _, p := range ws.Pages {
		if p != nil {
			out.Pages = append(out.Pages, fromPage(p))
		}
	}
	sort.Slice(out.Pages, func(i, j int) bool { return out.Pages[i].Date < out.Pages[j].Date })
	return out
}

func fromPage(p *model.Page) *page {
	out := &page{
		Date:      p.Date,
		Notes:     p.Notes,
		Todos:     make([]*todo, 0, len(p.Todos)),
		CreatedAt: formatTime(p.CreatedAt),
		UpdatedAt: formatTime(p.UpdatedAt),
	}
	for _, t := range p.Todos {
		if t != nil {
			out.Todos = append(out.Todos, fromTodo(t))
		}
	}
	return out
}

func fromTodo(t *model.Todo) *todo {
	c := t.Clone()
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return &todo{
		ID:        c.ID,
		Text:      c.Text,
		Status:    string(c.Status),
		Tags:      tags,
		Order:     c.Order,
		Level:     c.Level,
		ParentID:  c.ParentID,
		CreatedAt: formatTime(c.CreatedAt),
		UpdatedAt: formatTime(c.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime treats missing or malformed timestamps as the current time.
func (b *Blob) parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return b.now().UTC()
	}
	return t
}

var _ Adapter = (*Blob)(nil)
var _ Adapter = (*SQLite)(nil)

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
