// Package sqlite stores notes in an embedded SQLite database through the
// pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ld/ainote/internal/notify"
	"github.com/ld/ainote/pkg/core"
)

// timeLayout is what strftime('%Y-%m-%dT%H:%M:%fZ') produces.
const timeLayout = "2006-01-02T15:04:05.000Z"

const schema = `
CREATE TABLE IF NOT EXISTS notes (
    owner_id TEXT NOT NULL,
    note_id  TEXT NOT NULL,
    title    TEXT NOT NULL DEFAULT '',
    content  TEXT NOT NULL DEFAULT '',
    stack    TEXT NOT NULL DEFAULT '',
    chapter  INTEGER NOT NULL DEFAULT 0,
    section  INTEGER NOT NULL DEFAULT 0,
    ts       TEXT,
    PRIMARY KEY (owner_id, note_id)
);
CREATE TABLE IF NOT EXISTS note_collaborators (
    owner_id TEXT NOT NULL,
    note_id  TEXT NOT NULL,
    user_id  TEXT NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (owner_id, note_id, user_id)
);
CREATE TABLE IF NOT EXISTS friends (
    user_id      TEXT NOT NULL,
    friend_uid   TEXT NOT NULL,
    display_name TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (user_id, friend_uid)
);
CREATE INDEX IF NOT EXISTS idx_notes_owner_ts ON notes(owner_id, ts DESC);
CREATE INDEX IF NOT EXISTS idx_collaborators_user ON note_collaborators(user_id);
`

const noteColumns = `n.owner_id, n.note_id, n.title, n.content, n.stack, n.chapter, n.section, n.ts`

// newestFirst keeps untimed notes last and breaks ties by insertion order.
const newestFirst = ` ORDER BY n.ts IS NULL, n.ts DESC, n.rowid DESC`

// Store implements core.Store on SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	hub    *notify.Hub[core.Snapshot]
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open opens (or creates) the database at dsn, e.g. a file path or
// "file::memory:".
func Open(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection serializes writers and keeps in-memory databases
	// alive across calls.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = notify.NewHub(s.snapshot)
	return s, nil
}

// Initialize creates the schema.
func (s *Store) Initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, ownerID, noteID string) (core.Note, error) {
	notes, err := s.query(ctx,
		`SELECT `+noteColumns+` FROM notes n WHERE n.owner_id = ? AND n.note_id = ?`,
		`SELECT owner_id, note_id, user_id FROM note_collaborators WHERE owner_id = ? AND note_id = ? ORDER BY position`,
		[]any{ownerID, noteID}, []any{ownerID, noteID})
	if err != nil {
		return core.Note{}, err
	}
	if len(notes) == 0 {
		return core.Note{}, fmt.Errorf("%w: %s/%s", core.ErrNotFound, ownerID, noteID)
	}
	return notes[0], nil
}

func (s *Store) List(ctx context.Context, ownerID string) ([]core.Note, error) {
	return s.query(ctx,
		`SELECT `+noteColumns+` FROM notes n WHERE n.owner_id = ?`+newestFirst,
		`SELECT owner_id, note_id, user_id FROM note_collaborators WHERE owner_id = ? ORDER BY position`,
		[]any{ownerID}, []any{ownerID})
}

func (s *Store) QueryByCollaborator(ctx context.Context, userID string) ([]core.Note, error) {
	return s.query(ctx,
		`SELECT `+noteColumns+` FROM notes n
		 JOIN note_collaborators m ON m.owner_id = n.owner_id AND m.note_id = n.note_id
		 WHERE m.user_id = ?`+newestFirst,
		`SELECT c.owner_id, c.note_id, c.user_id FROM note_collaborators c
		 WHERE EXISTS (SELECT 1 FROM note_collaborators m
		               WHERE m.owner_id = c.owner_id AND m.note_id = c.note_id AND m.user_id = ?)
		 ORDER BY c.position`,
		[]any{userID}, []any{userID})
}

func (s *Store) Create(ctx context.Context, n core.Note) (string, error) {
	id := uuid.NewString()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO notes (owner_id, note_id, title, content, stack, chapter, section, ts)
			VALUES (?, ?, ?, ?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))`,
			n.OwnerID, id, n.Title, n.Content, n.Stack, n.Chapter, n.Section)
		if err != nil {
			return fmt.Errorf("insert note: %w", err)
		}
		return replaceCollaborators(ctx, tx, n.OwnerID, id, core.NormalizeCollaborators(n.OwnerID, n.Collaborators))
	})
	if err != nil {
		return "", err
	}
	s.hub.Notify(n.OwnerID)
	return id, nil
}

func (s *Store) Update(ctx context.Context, ownerID, noteID string, f core.Fields) error {
	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if f.Title != nil {
		add("title", *f.Title)
	}
	if f.Content != nil {
		add("content", *f.Content)
	}
	if f.Stack != nil {
		add("stack", *f.Stack)
	}
	if f.Chapter != nil {
		add("chapter", *f.Chapter)
	}
	if f.Section != nil {
		add("section", *f.Section)
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := requireNote(ctx, tx, ownerID, noteID); err != nil {
			return err
		}
		if len(sets) > 0 {
			q := `UPDATE notes SET ` + strings.Join(sets, ", ") + ` WHERE owner_id = ? AND note_id = ?`
			if _, err := tx.ExecContext(ctx, q, append(args, ownerID, noteID)...); err != nil {
				return fmt.Errorf("update note: %w", err)
			}
		}
		if f.Collaborators != nil {
			return replaceCollaborators(ctx, tx, ownerID, noteID, core.NormalizeCollaborators(ownerID, *f.Collaborators))
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.hub.Notify(ownerID)
	return nil
}

func (s *Store) Delete(ctx context.Context, ownerID, noteID string) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE owner_id = ? AND note_id = ?`, ownerID, noteID)
		if err != nil {
			return fmt.Errorf("delete note: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s/%s", core.ErrNotFound, ownerID, noteID)
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM note_collaborators WHERE owner_id = ? AND note_id = ?`, ownerID, noteID)
		return err
	})
	if err != nil {
		return err
	}
	s.hub.Notify(ownerID)
	return nil
}

func (s *Store) GetCollaborators(ctx context.Context, ownerID, noteID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM note_collaborators WHERE owner_id = ? AND note_id = ? ORDER BY position`,
		ownerID, noteID)
	if err != nil {
		return nil, fmt.Errorf("query collaborators: %w", err)
	}
	defer rows.Close()

	uids := []string{}
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		uids = append(uids, uid)
	}
	return uids, rows.Err()
}

func (s *Store) SetCollaborators(ctx context.Context, ownerID, noteID string, uids []string) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := requireNote(ctx, tx, ownerID, noteID); err != nil {
			return err
		}
		return replaceCollaborators(ctx, tx, ownerID, noteID, core.NormalizeCollaborators(ownerID, uids))
	})
	if err != nil {
		return err
	}
	s.hub.Notify(ownerID)
	return nil
}

// Subscribe delivers the owner's notes now and after every write made
// through this Store. Writes by other processes are not observed.
func (s *Store) Subscribe(ctx context.Context, ownerID string) (<-chan core.Snapshot, error) {
	return s.hub.Subscribe(ctx, ownerID), nil
}

// Subscribers returns the number of live subscriptions.
func (s *Store) Subscribers() int {
	return s.hub.Len()
}

func (s *Store) snapshot(ctx context.Context, ownerID string) core.Snapshot {
	notes, err := s.List(ctx, ownerID)
	if err != nil {
		s.logger.Warn("snapshot failed", "owner", ownerID, "error", err)
		return core.Snapshot{Err: err}
	}
	return core.Snapshot{Notes: notes}
}

// query runs a note query and a matching collaborator query and stitches
// the results together.
func (s *Store) query(ctx context.Context, noteQuery, collabQuery string, noteArgs, collabArgs []any) ([]core.Note, error) {
	rows, err := s.db.QueryContext(ctx, noteQuery, noteArgs...)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	notes := []core.Note{}
	index := make(map[string]int)
	for rows.Next() {
		var n core.Note
		var ts sql.NullString
		if err := rows.Scan(&n.OwnerID, &n.ID, &n.Title, &n.Content, &n.Stack, &n.Chapter, &n.Section, &ts); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		if ts.Valid {
			t, err := time.Parse(timeLayout, ts.String)
			if err != nil {
				return nil, fmt.Errorf("parse timestamp %q: %w", ts.String, err)
			}
			n.Timestamp = &t
		}
		index[n.Key()] = len(notes)
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()
	if len(notes) == 0 {
		return notes, nil
	}

	crows, err := s.db.QueryContext(ctx, collabQuery, collabArgs...)
	if err != nil {
		return nil, fmt.Errorf("query collaborators: %w", err)
	}
	defer crows.Close()
	for crows.Next() {
		var owner, id, uid string
		if err := crows.Scan(&owner, &id, &uid); err != nil {
			return nil, fmt.Errorf("scan collaborator: %w", err)
		}
		if i, ok := index[owner+"/"+id]; ok {
			notes[i].Collaborators = append(notes[i].Collaborators, uid)
		}
	}
	return notes, crows.Err()
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func requireNote(ctx context.Context, tx *sql.Tx, ownerID, noteID string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM notes WHERE owner_id = ? AND note_id = ?`, ownerID, noteID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s/%s", core.ErrNotFound, ownerID, noteID)
	}
	return err
}

func replaceCollaborators(ctx context.Context, tx *sql.Tx, ownerID, noteID string, uids []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM note_collaborators WHERE owner_id = ? AND note_id = ?`, ownerID, noteID); err != nil {
		return fmt.Errorf("clear collaborators: %w", err)
	}
	for i, uid := range uids {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO note_collaborators (owner_id, note_id, user_id, position) VALUES (?, ?, ?, ?)`,
			ownerID, noteID, uid, i); err != nil {
			return fmt.Errorf("insert collaborator: %w", err)
		}
	}
	return nil
}

var _ core.Store = (*Store)(nil)
var _ core.Subscribable = (*Store)(nil)
var _ core.Closer = (*Store)(nil)
