package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pagesync/internal/database/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Draft is locally persisted page content that never reached the store:
// either a save failed on a conflict or the operator quit with unsaved
// edits. base_token records the revision the edits were made against.
type Draft struct {
	Path      string
	Content   []byte
	BaseToken string
	UpdatedAt time.Time
}

// Operation records one CLI or API operation for the history command.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Status     string
}

// DB is the local persistence boundary for drafts and operation history.
type DB interface {
	SaveDraft(draft *Draft) error
	FindDraft(path string) (*Draft, error)
	ListDrafts() ([]*Draft, error)
	DeleteDraft(path string) error

	CreateOperation(operation, parameters string) (*Operation, error)
	FinishOperation(id int64, status string) error
	ListOperations(limit int) ([]*Operation, error)

	MigrateUp() error
	CheckMigrations() error
	Close() error
}

// SQLiteDB implements DB using SQLite.
type SQLiteDB struct {
	db   *sql.DB
	path string
}

var _ DB = (*SQLiteDB)(nil)

// NewSQLiteDB opens a SQLite drafts database. path can be a file path or
// ":memory:" for an in-memory database.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteDB{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection with the PRAGMAs
// the drafts database needs.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite ships with foreign keys off for backward compatibility.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Draft operations

func (s *SQLiteDB) SaveDraft(draft *Draft) error {
	_, err := s.db.Exec(`
		INSERT INTO drafts (path, content, base_token, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content = excluded.content,
			base_token = excluded.base_token,
			updated_at = excluded.updated_at`,
		draft.Path, draft.Content, draft.BaseToken, draft.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving draft for %s: %w", draft.Path, err)
	}
	return nil
}

func (s *SQLiteDB) FindDraft(path string) (*Draft, error) {
	row := s.db.QueryRow(`
		SELECT path, content, base_token, updated_at
		FROM drafts WHERE path = ?`, path)

	var d Draft
	if err := row.Scan(&d.Path, &d.Content, &d.BaseToken, &d.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // no draft
		}
		return nil, fmt.Errorf("finding draft for %s: %w", path, err)
	}
	return &d, nil
}

func (s *SQLiteDB) ListDrafts() ([]*Draft, error) {
	rows, err := s.db.Query(`
		SELECT path, content, base_token, updated_at
		FROM drafts ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("listing drafts: %w", err)
	}
	defer rows.Close()

	var drafts []*Draft
	for rows.Next() {
		var d Draft
		if err := rows.Scan(&d.Path, &d.Content, &d.BaseToken, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning draft: %w", err)
		}
		drafts = append(drafts, &d)
	}
	return drafts, rows.Err()
}

func (s *SQLiteDB) DeleteDraft(path string) error {
	if _, err := s.db.Exec(`DELETE FROM drafts WHERE path = ?`, path); err != nil {
		return fmt.Errorf("deleting draft for %s: %w", path, err)
	}
	return nil
}

// Operation history

func (s *SQLiteDB) CreateOperation(operation, parameters string) (*Operation, error) {
	startedAt := time.Now().UTC()
	res, err := s.db.Exec(`
		INSERT INTO operations (operation, parameters, started_at, status)
		VALUES (?, ?, ?, 'running')`,
		operation, parameters, startedAt)
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting operation id: %w", err)
	}

	return &Operation{
		ID:         id,
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  startedAt,
		Status:     "running",
	}, nil
}

func (s *SQLiteDB) FinishOperation(id int64, status string) error {
	_, err := s.db.Exec(`
		UPDATE operations SET finished_at = ?, status = ? WHERE id = ?`,
		time.Now().UTC(), status, id)
	if err != nil {
		return fmt.Errorf("finishing operation %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteDB) ListOperations(limit int) ([]*Operation, error) {
	rows, err := s.db.Query(`
		SELECT id, operation, parameters, started_at, finished_at, status
		FROM operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*Operation
	for rows.Next() {
		var op Operation
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.StartedAt, &op.FinishedAt, &op.Status); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		ops = append(ops, &op)
	}
	return ops, rows.Err()
}

// Lifecycle

func (s *SQLiteDB) MigrateUp() error {
	return migrations.Up(s.db)
}

func (s *SQLiteDB) CheckMigrations() error {
	return migrations.Check(s.db)
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
