package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"daylist-cli/internal/model"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// SQLite stores one row per workspace, page and todo.
type SQLite struct {
	path string
	db   *sqlx.DB
	now  func() time.Time
}

func NewSQLite(path string) *SQLite {
	return &SQLite{path: path, now: time.Now}
}

type workspaceRow struct {
	ID          string        `db:"id"`
	Name        string        `db:"name"`
	CurrentDate string        `db:"cur_date"`
	CreatedAt   sql.NullInt64 `db:"created_at_unixms"`
	UpdatedAt   sql.NullInt64 `db:"updated_at_unixms"`
}

type pageRow struct {
	WorkspaceID string        `db:"workspace_id"`
	Date        string        `db:"date"`
	Notes       string        `db:"notes"`
	CreatedAt   sql.NullInt64 `db:"created_at_unixms"`
	UpdatedAt   sql.NullInt64 `db:"updated_at_unixms"`
}

type todoRow struct {
	ID          string         `db:"id"`
	WorkspaceID string         `db:"workspace_id"`
	Date        string         `db:"page_date"`
	Text        string         `db:"text"`
	Status      string         `db:"status"`
	TagsJSON    string         `db:"tags_json"`
	Order       string         `db:"ord"`
	Level       int            `db:"level"`
	ParentID    sql.NullString `db:"parent_id"`
	CreatedAt   sql.NullInt64  `db:"created_at_unixms"`
	UpdatedAt   sql.NullInt64  `db:"updated_at_unixms"`
}

const todoColumns = `id, workspace_id, page_date, text, status, tags_json, ord, level, parent_id, created_at_unixms, updated_at_unixms`

// Initialize opens the database and applies pending migrations.
func (s *SQLite) Initialize(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	if s.path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	// Pragmas go in the DSN so every pooled connection gets them. WAL allows one writer
	// with many readers; busy_timeout avoids "database is locked" under concurrent writes.
	dsn := "file:" + s.path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("open sqlite: %w", err)
	}
	if err := migrateUp(db.DB); err != nil {
		_ = db.Close()
		return err
	}
	s.db = db
	return nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	defer src.Close()
	drv, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	// m.Close would close db as well; the adapter owns it.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLite) ready() error {
	if s.db == nil {
		return errors.New("sqlite adapter not initialized")
	}
	return nil
}

func (s *SQLite) GetWorkspaces(ctx context.Context) ([]*model.Workspace, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var wsRows []workspaceRow
	if err := s.db.SelectContext(ctx, &wsRows, `SELECT id, name, cur_date, created_at_unixms, updated_at_unixms FROM workspaces ORDER BY created_at_unixms, id`); err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	var pageRows []pageRow
	if err := s.db.SelectContext(ctx, &pageRows, `SELECT workspace_id, date, notes, created_at_unixms, updated_at_unixms FROM pages ORDER BY workspace_id, date`); err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	var todoRows []todoRow
	if err := s.db.SelectContext(ctx, &todoRows, `SELECT `+todoColumns+` FROM todos ORDER BY workspace_id, page_date, ord, created_at_unixms, id`); err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}

	byID := map[string]*model.Workspace{}
	out := make([]*model.Workspace, 0, len(wsRows))
	for _, r := range wsRows {
		ws := s.workspaceFromRow(r)
		byID[ws.ID] = ws
		out = append(out, ws)
	}
	for _, r := range pageRows {
		if ws, ok := byID[r.WorkspaceID]; ok {
			ws.Pages[r.Date] = s.pageFromRow(r)
		}
	}
	for _, r := range todoRows {
		ws, ok := byID[r.WorkspaceID]
		if !ok {
			continue
		}
		p, ok := ws.Pages[r.Date]
		if !ok {
			continue
		}
		p.Todos = append(p.Todos, s.todoFromRow(r))
	}
	return out, nil
}

func (s *SQLite) GetWorkspace(ctx context.Context, id string) (*model.Workspace, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var r workspaceRow
	err := s.db.GetContext(ctx, &r, `SELECT id, name, cur_date, created_at_unixms, updated_at_unixms FROM workspaces WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("workspace %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get workspace: %w", err)
	}
	ws := s.workspaceFromRow(r)

	var pageRows []pageRow
	if err := s.db.SelectContext(ctx, &pageRows, `SELECT workspace_id, date, notes, created_at_unixms, updated_at_unixms FROM pages WHERE workspace_id = ?`, id); err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	for _, pr := range pageRows {
		p := s.pageFromRow(pr)
		todos, err := s.GetTodos(ctx, id, p.Date)
		if err != nil {
			return nil, err
		}
		p.Todos = todos
		ws.Pages[p.Date] = p
	}
	return ws, nil
}

func (s *SQLite) CreateWorkspace(ctx context.Context, ws *model.Workspace) (*model.Workspace, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workspaces (id, name, cur_date, created_at_unixms, updated_at_unixms) VALUES (?, ?, ?, ?, ?)`,
		ws.ID, ws.Name, ws.CurrentDate, unixMillis(ws.CreatedAt), unixMillis(ws.UpdatedAt))
	if err != nil {
		return nil, classify(fmt.Sprintf("create workspace %s", ws.ID), err)
	}
	out := ws.Meta()
	out.Pages = map[string]*model.Page{}
	return &out, nil
}

func (s *SQLite) UpdateWorkspace(ctx context.Context, id string, patch model.WorkspacePatch) (*model.Workspace, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	sets, args := []string{}, []any{}
	if patch.Name != nil {
		sets, args = append(sets, "name = ?"), append(args, *patch.Name)
	}
	if patch.CurrentDate != nil {
		sets, args = append(sets, "cur_date = ?"), append(args, *patch.CurrentDate)
	}
	if patch.UpdatedAt != nil {
		sets, args = append(sets, "updated_at_unixms = ?"), append(args, unixMillis(*patch.UpdatedAt))
	}
	if err := s.execUpdate(ctx, "workspaces", "id = ?", sets, args, id); err != nil {
		return nil, fmt.Errorf("update workspace %s: %w", id, err)
	}
	var r workspaceRow
	if err := s.db.GetContext(ctx, &r, `SELECT id, name, cur_date, created_at_unixms, updated_at_unixms FROM workspaces WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("update workspace %s: %w", id, notFound(err))
	}
	return s.workspaceFromRow(r), nil
}

func (s *SQLite) DeleteWorkspace(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM workspaces WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete workspace %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("workspace %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLite) GetPage(ctx context.Context, wsID, date string) (*model.Page, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var r pageRow
	err := s.db.GetContext(ctx, &r, `SELECT workspace_id, date, notes, created_at_unixms, updated_at_unixms FROM pages WHERE workspace_id = ? AND date = ?`, wsID, date)
	if err != nil {
		return nil, fmt.Errorf("page %s/%s: %w", wsID, date, notFound(err))
	}
	p := s.pageFromRow(r)
	todos, err := s.GetTodos(ctx, wsID, date)
	if err != nil {
		return nil, err
	}
	p.Todos = todos
	return p, nil
}

func (s *SQLite) CreatePage(ctx context.Context, wsID string, p *model.Page) (*model.Page, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pages (workspace_id, date, notes, created_at_unixms, updated_at_unixms) VALUES (?, ?, ?, ?, ?)`,
		wsID, p.Date, p.Notes, unixMillis(p.CreatedAt), unixMillis(p.UpdatedAt))
	if err != nil {
		return nil, classify(fmt.Sprintf("create page %s/%s", wsID, p.Date), err)
	}
	out := *p
	out.Todos = []*model.Todo{}
	return &out, nil
}

func (s *SQLite) UpdatePage(ctx context.Context, wsID, date string, patch model.PagePatch) (*model.Page, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	sets, args := []string{}, []any{}
	if patch.Notes != nil {
		sets, args = append(sets, "notes = ?"), append(args, *patch.Notes)
	}
	if patch.UpdatedAt != nil {
		sets, args = append(sets, "updated_at_unixms = ?"), append(args, unixMillis(*patch.UpdatedAt))
	}
	if err := s.execUpdate(ctx, "pages", "workspace_id = ? AND date = ?", sets, args, wsID, date); err != nil {
		return nil, fmt.Errorf("update page %s/%s: %w", wsID, date, err)
	}
	return s.GetPage(ctx, wsID, date)
}

func (s *SQLite) GetTodos(ctx context.Context, wsID, date string) ([]*model.Todo, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var rows []todoRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+todoColumns+` FROM todos WHERE workspace_id = ? AND page_date = ? ORDER BY ord, created_at_unixms, id`, wsID, date); err != nil {
		return nil, fmt.Errorf("list todos %s/%s: %w", wsID, date, err)
	}
	out := make([]*model.Todo, 0, len(rows))
	for _, r := range rows {
		out = append(out, s.todoFromRow(r))
	}
	return out, nil
}

func (s *SQLite) CreateTodo(ctx context.Context, wsID, date string, t *model.Todo) (*model.Todo, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	r := rowFromTodo(wsID, date, t)
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO todos (`+todoColumns+`) VALUES
		(:id, :workspace_id, :page_date, :text, :status, :tags_json, :ord, :level, :parent_id, :created_at_unixms, :updated_at_unixms)`, r)
	if err != nil {
		return nil, classify(fmt.Sprintf("create todo %s", t.ID), err)
	}
	c := t.Clone()
	return &c, nil
}

func (s *SQLite) UpdateTodo(ctx context.Context, id string, patch model.TodoPatch) (*model.Todo, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	sets, args := []string{}, []any{}
	if patch.Text != nil {
		sets, args = append(sets, "text = ?"), append(args, *patch.Text)
	}
	if patch.Status != nil {
		sets, args = append(sets, "status = ?"), append(args, string(*patch.Status))
	}
	if patch.Tags != nil {
		sets, args = append(sets, "tags_json = ?"), append(args, tagsJSON(*patch.Tags))
	}
	if patch.Order != nil {
		sets, args = append(sets, "ord = ?"), append(args, *patch.Order)
	}
	if patch.Level != nil {
		sets, args = append(sets, "level = ?"), append(args, *patch.Level)
	}
	if patch.ParentID != nil {
		var pid sql.NullString
		if *patch.ParentID != "" {
			pid = sql.NullString{String: *patch.ParentID, Valid: true}
		}
		sets, args = append(sets, "parent_id = ?"), append(args, pid)
	}
	if patch.UpdatedAt != nil {
		sets, args = append(sets, "updated_at_unixms = ?"), append(args, unixMillis(*patch.UpdatedAt))
	}
	if err := s.execUpdate(ctx, "todos", "id = ?", sets, args, id); err != nil {
		return nil, fmt.Errorf("update todo %s: %w", id, err)
	}
	var r todoRow
	if err := s.db.GetContext(ctx, &r, `SELECT `+todoColumns+` FROM todos WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("update todo %s: %w", id, notFound(err))
	}
	return s.todoFromRow(r), nil
}

func (s *SQLite) DeleteTodo(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete todo %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("todo %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLite) SavePage(ctx context.Context, wsID string, p *model.Page) error {
	if err := s.ready(); err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save page: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO pages (workspace_id, date, notes, created_at_unixms, updated_at_unixms)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (workspace_id, date) DO UPDATE SET notes = excluded.notes, updated_at_unixms = excluded.updated_at_unixms`,
		wsID, p.Date, p.Notes, unixMillis(p.CreatedAt), unixMillis(p.UpdatedAt)); err != nil {
		return fmt.Errorf("save page %s/%s: %w", wsID, p.Date, err)
	}

	var stored []string
	if err := tx.SelectContext(ctx, &stored, `SELECT id FROM todos WHERE workspace_id = ? AND page_date = ?`, wsID, p.Date); err != nil {
		return fmt.Errorf("save page %s/%s: %w", wsID, p.Date, err)
	}
	keep := map[string]bool{}
	for _, t := range p.Todos {
		if t != nil {
			keep[t.ID] = true
		}
	}
	for _, id := range stored {
		if keep[id] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id); err != nil {
			return fmt.Errorf("save page %s/%s: delete %s: %w", wsID, p.Date, id, err)
		}
	}
	for _, t := range p.Todos {
		if t == nil {
			continue
		}
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO todos (`+todoColumns+`) VALUES
			(:id, :workspace_id, :page_date, :text, :status, :tags_json, :ord, :level, :parent_id, :created_at_unixms, :updated_at_unixms)
			ON CONFLICT (id) DO UPDATE SET
				workspace_id = excluded.workspace_id,
				page_date = excluded.page_date,
				text = excluded.text,
				status = excluded.status,
				tags_json = excluded.tags_json,
				ord = excluded.ord,
				level = excluded.level,
				parent_id = excluded.parent_id,
				updated_at_unixms = excluded.updated_at_unixms`, rowFromTodo(wsID, p.Date, t)); err != nil {
			return fmt.Errorf("save page %s/%s: upsert %s: %w", wsID, p.Date, t.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save page %s/%s: %w", wsID, p.Date, err)
	}
	return nil
}

// execUpdate runs UPDATE table SET sets WHERE where; zero affected rows is ErrNotFound.
// An empty patch only checks existence.
func (s *SQLite) execUpdate(ctx context.Context, table, where string, sets []string, args []any, keys ...any) error {
	if len(sets) == 0 {
		var n int
		if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM `+table+` WHERE `+where, keys...); err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	}
	q := s.db.Rebind(`UPDATE ` + table + ` SET ` + strings.Join(sets, ", ") + ` WHERE ` + where)
	res, err := s.db.ExecContext(ctx, q, append(args, keys...)...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) workspaceFromRow(r workspaceRow) *model.Workspace {
	return &model.Workspace{
		ID:          r.ID,
		Name:        r.Name,
		CurrentDate: r.CurrentDate,
		Pages:       map[string]*model.Page{},
		CreatedAt:   s.fromMillis(r.CreatedAt),
		UpdatedAt:   s.fromMillis(r.UpdatedAt),
	}
}

func (s *SQLite) pageFromRow(r pageRow) *model.Page {
	return &model.Page{
		Date:      r.Date,
		Notes:     r.Notes,
		Todos:     []*model.Todo{},
		CreatedAt: s.fromMillis(r.CreatedAt),
		UpdatedAt: s.fromMillis(r.UpdatedAt),
	}
}

// todoFromRow degrades malformed values: unknown statuses load as StatusUnknown, bad tag
// JSON is re-derived from the text and missing timestamps become the current time.
func (s *SQLite) todoFromRow(r todoRow) *model.Todo {
	status, _ := model.ParseStatus(r.Status)
	var tags []string
	if err := json.Unmarshal([]byte(r.TagsJSON), &tags); err != nil || tags == nil {
		tags = model.ParseTags(r.Text)
	}
	t := &model.Todo{
		ID:        r.ID,
		Text:      r.Text,
		Status:    status,
		Tags:      tags,
		Order:     r.Order,
		Level:     r.Level,
		CreatedAt: s.fromMillis(r.CreatedAt),
		UpdatedAt: s.fromMillis(r.UpdatedAt),
	}
	if r.ParentID.Valid && r.ParentID.String != "" {
		pid := r.ParentID.String
		t.ParentID = &pid
	}
	return t
}

func rowFromTodo(wsID, date string, t *model.Todo) todoRow {
	r := todoRow{
		ID:          t.ID,
		WorkspaceID: wsID,
		Date:        date,
		Text:        t.Text,
		Status:      string(t.Status),
		TagsJSON:    tagsJSON(t.Tags),
		Order:       t.Order,
		Level:       t.Level,
		CreatedAt:   sql.NullInt64{Int64: unixMillis(t.CreatedAt), Valid: true},
		UpdatedAt:   sql.NullInt64{Int64: unixMillis(t.UpdatedAt), Valid: true},
	}
	if t.ParentID != nil && *t.ParentID != "" {
		r.ParentID = sql.NullString{String: *t.ParentID, Valid: true}
	}
	return r
}

func tagsJSON(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

func unixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func (s *SQLite) fromMillis(v sql.NullInt64) time.Time {
	if !v.Valid || v.Int64 <= 0 {
		return s.now().UTC()
	}
	return time.UnixMilli(v.Int64).UTC()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// classify maps unique and primary key violations to ErrDuplicate.
func classify(op string, err error) error {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return fmt.Errorf("%s: %w", op, ErrDuplicate)
		}
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}
