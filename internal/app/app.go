package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"pagesync/internal/auth"
	"pagesync/internal/cms"
	"pagesync/internal/config"
	"pagesync/internal/database"
	"pagesync/internal/jsondoc"
	"pagesync/internal/schema"
	"pagesync/internal/server"
	"pagesync/internal/store"
)

// App is the application layer between the CLI (or HTTP server) and the
// core editing types. It constructs all dependencies from config, exposes
// high-level operations, and manages the drafts DB lifecycle on Close.
type App struct {
	cfg      *config.Config
	db       database.DB
	store    cms.Store
	gate     cms.AuthGate
	sync     *cms.Synchronizer
	disc     *cms.Discovery
	media    *cms.MediaReplacer
	registry *schema.Registry
	logger   cms.Logger
	op       *EditOperation
	logFile  *os.File
}

// NewApp creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "SavePage", "UploadMedia").
// passphrase unlocks the stored credentials; backends that need no bearer
// token ignore it. The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, operation, passphrase string) (*App, error) {
	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	gate := auth.NewFileGate(cfg.Auth)

	token := ""
	if cfg.Store.Type == "github" {
		session, err := gate.Unlock(passphrase)
		if err != nil {
			logFile.Close()
			return nil, fmt.Errorf("unlocking credentials: %w", err)
		}
		token = session.Token
	}

	st, err := store.NewStoreFromConfig(ctx, cfg.Store, token)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating store: %w", err)
	}

	db, err := database.NewDBFromConfig(cfg.Database)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	return &App{
		cfg:      cfg,
		db:       db,
		store:    st,
		gate:     gate,
		sync:     cms.NewSynchronizer(st, logger),
		disc:     cms.NewDiscovery(st, logger),
		media:    cms.NewMediaReplacer(st, cms.RealClock{}, logger),
		registry: schema.DefaultRegistry(),
		logger:   logger,
		op:       NewEditOperation(operation, ""),
		logFile:  logFile,
	}, nil
}

// persistOperation saves the edit operation to the database, giving it an
// auto-increment ID. This should only be called for mutating commands.
func (a *App) persistOperation(parameters string) error {
	if a.op.Persisted() {
		return nil // already persisted
	}
	a.op.Parameters = parameters
	dbOp, err := a.db.CreateOperation(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting edit operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// ListPages returns the editable pages at the repository root.
func (a *App) ListPages(ctx context.Context) ([]cms.Entry, error) {
	return a.disc.Pages(ctx)
}

// GetPage opens the page at path and reports any local draft recorded for
// it, so the operator can decide whether to reconcile before editing.
func (a *App) GetPage(ctx context.Context, path string) (cms.Page, *database.Draft, error) {
	page, err := a.sync.Open(ctx, path)
	if err != nil {
		return cms.Page{}, nil, err
	}

	draft, err := a.db.FindDraft(path)
	if err != nil {
		return cms.Page{}, nil, err
	}
	return page, draft, nil
}

// SavePage opens path, applies content as a local edit, and commits it
// with the held revision token. JSON pages are validated against the
// schema registry before anything touches the store.
//
// On a revision conflict the edited content is persisted as a local draft
// so it survives the session, and the conflict is returned to the operator
// verbatim — never auto-retried or merged.
func (a *App) SavePage(ctx context.Context, path string, content []byte, message string) error {
	if err := a.persistOperation(path); err != nil {
		return err
	}

	if cms.KindForPath(path) == cms.KindJSON {
		if err := a.registry.Validate(content); err != nil {
			return err
		}
	}

	page, err := a.sync.Open(ctx, path)
	if err != nil {
		return err
	}
	return a.commitEdit(ctx, path, content, page.Token, message)
}

// commitEdit applies content to the already-open page and commits it with
// the synchronizer. A save that loses the revision race persists the edit
// as a local draft against baseToken; a committed save clears any stale
// draft for the path.
func (a *App) commitEdit(ctx context.Context, path string, content []byte, baseToken, message string) error {
	if err := a.sync.Edit(content); err != nil {
		return err
	}

	if message == "" {
		message = "update " + path
	}

	if err := a.sync.Save(ctx, message); err != nil {
		if errors.Is(err, cms.ErrConflict) {
			draft := &database.Draft{
				Path:      path,
				Content:   content,
				BaseToken: baseToken,
				UpdatedAt: time.Now().UTC(),
			}
			if draftErr := a.db.SaveDraft(draft); draftErr != nil {
				a.logger.Error("persisting conflict draft failed", "path", path, "err", draftErr)
			} else {
				a.logger.Info("conflicting edit kept as draft", "path", path)
			}
		}
		return err
	}

	// The content is committed; any stale draft for this path is obsolete.
	if err := a.db.DeleteDraft(path); err != nil {
		a.logger.Warn("removing stale draft failed", "path", path, "err", err)
	}
	return nil
}

// SetPageValue replaces a single field of a JSON page: the page is opened,
// the value at the given path segments is set, and the result is validated
// and committed like any other save. Fields off the edited path keep their
// stored values.
func (a *App) SetPageValue(ctx context.Context, path string, segments []string, value any, message string) error {
	if err := a.persistOperation(path + ":" + strings.Join(segments, ".")); err != nil {
		return err
	}

	if cms.KindForPath(path) != cms.KindJSON {
		return fmt.Errorf("%s is not a JSON page: %w", path, cms.ErrInvalidContent)
	}

	page, err := a.sync.Open(ctx, path)
	if err != nil {
		return err
	}

	doc, err := jsondoc.Parse(page.Content)
	if err != nil {
		return fmt.Errorf("%w: %v", cms.ErrInvalidContent, err)
	}
	updated, err := jsondoc.Set(doc, value, segments...)
	if err != nil {
		return fmt.Errorf("%w: %v", cms.ErrInvalidContent, err)
	}
	content, err := jsondoc.Encode(updated)
	if err != nil {
		return err
	}

	if err := a.registry.Validate(content); err != nil {
		return err
	}

	if message == "" {
		message = "set " + strings.Join(segments, ".") + " in " + path
	}
	return a.commitEdit(ctx, path, content, page.Token, message)
}

// CreatePage commits content to a path that must not already exist.
func (a *App) CreatePage(ctx context.Context, path string, content []byte, message string) error {
	if err := a.persistOperation(path); err != nil {
		return err
	}

	if cms.KindForPath(path) == cms.KindJSON {
		if err := a.registry.Validate(content); err != nil {
			return err
		}
	}

	if message == "" {
		message = "create " + path
	}
	if _, err := a.store.Write(ctx, path, content, message, ""); err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	return nil
}

// UploadMedia uploads the named local file into folder and retires the
// asset oldRef points at, returning the new relative path.
func (a *App) UploadMedia(ctx context.Context, folder, filePath, oldRef string) (string, error) {
	if err := a.persistOperation(folder + "/" + filePath); err != nil {
		return "", err
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", filePath, err)
	}
	return a.media.Replace(ctx, folder, baseName(filePath), content, oldRef)
}

// DeleteMedia removes folder/name from the store.
func (a *App) DeleteMedia(ctx context.Context, folder, name string) error {
	if err := a.persistOperation(folder + "/" + name); err != nil {
		return err
	}
	return a.media.Delete(ctx, folder, name)
}

// Drafts lists the locally persisted drafts.
func (a *App) Drafts() ([]*database.Draft, error) {
	return a.db.ListDrafts()
}

// DeleteDraft discards the draft for path.
func (a *App) DeleteDraft(path string) error {
	if err := a.persistOperation(path); err != nil {
		return err
	}
	return a.db.DeleteDraft(path)
}

// ApplyDraft retries the draft for path. It only succeeds when the store
// still holds the revision the draft was edited against; otherwise the
// conflict stands and the operator must reconcile by hand.
func (a *App) ApplyDraft(ctx context.Context, path, message string) error {
	if err := a.persistOperation(path); err != nil {
		return err
	}

	draft, err := a.db.FindDraft(path)
	if err != nil {
		return err
	}
	if draft == nil {
		return fmt.Errorf("no draft for %s: %w", path, cms.ErrNotFound)
	}

	page, err := a.sync.Open(ctx, path)
	if err != nil {
		return err
	}
	if page.Token != draft.BaseToken {
		return fmt.Errorf("draft for %s was edited against revision %s but store is at %s: %w",
			path, draft.BaseToken, page.Token, cms.ErrConflict)
	}

	if err := a.sync.Edit(draft.Content); err != nil {
		return err
	}
	if message == "" {
		message = "apply draft for " + path
	}
	if err := a.sync.Save(ctx, message); err != nil {
		return err
	}
	return a.db.DeleteDraft(path)
}

// History returns the most recent edit operations.
func (a *App) History(limit int) ([]*database.Operation, error) {
	return a.db.ListOperations(limit)
}

// Serve runs the HTTP API for the browser UI until the listener fails.
func (a *App) Serve(addr string) error {
	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	srv := server.New(a.store, a.disc, a.media, a.registry, a.logger, a.cfg.Media.Folders)
	a.logger.Info("serving editor API", "addr", addr)
	return http.ListenAndServe(addr, srv)
}

// Close finalizes the operation record and closes all resources.
func (a *App) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.db.FinishOperation(a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing edit operation: %w", err)
		}
	}

	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// SetStatus marks the operation outcome recorded on Close.
func (a *App) SetStatus(status string) {
	a.op.Status = status
}

// baseName returns the final path segment of a local file path, tolerating
// both separators so Windows-style drops still get a sane name.
func baseName(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' || p[i] == '\\' {
			return p[i+1:]
		}
	}
	return p
}
