package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/ld/ainote/internal/notify"
	"github.com/ld/ainote/pkg/core"
)

const (
	usersDir = "users"
	notesDir = "notes"
	noteExt  = ".md"
)

// Repository implements core.Store on a directory tree:
//
//	<root>/users/<owner>/notes/<id>.md
//
// Each file holds YAML frontmatter followed by the note content.
type Repository struct {
	Path   string
	config Config
	cache  *cache
	hub    *notify.Hub[core.Snapshot]

	// writeMu serializes read-modify-write cycles.
	writeMu sync.Mutex

	mu            sync.RWMutex
	watcherActive bool
	lastEvent     *time.Time
	watchCancel   context.CancelFunc
	watchDone     chan struct{}
}

// Config holds the configuration for the filesystem repository.
type Config struct {
	Path      string
	MustExist bool
	Logger    *slog.Logger
	// ErrorHandler receives watcher failures. Defaults to logging them.
	ErrorHandler func(error)
	// SystemDir holds the parse cache, e.g. ".ainote".
	SystemDir string
	// Debounce coalesces bursts of file events. Defaults to 50ms.
	Debounce time.Duration
	// Now stamps new notes. Defaults to time.Now.
	Now func() time.Time
}

// NewRepository creates a new filesystem-backed repository.
func NewRepository(config Config) *Repository {
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if config.SystemDir == "" {
		config.SystemDir = ".ainote"
	}
	if config.Debounce <= 0 {
		config.Debounce = 50 * time.Millisecond
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	r := &Repository{
		Path:   config.Path,
		config: config,
		cache:  newCache(config.Path, config.SystemDir),
	}
	r.hub = notify.NewHub(r.snapshot)
	return r
}

// Initialize creates the root directory (unless MustExist) and loads the
// parse cache.
func (r *Repository) Initialize(ctx context.Context) error {
	if r.config.MustExist {
		info, err := os.Stat(r.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("notes path does not exist: %s", r.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("notes path is not a directory: %s", r.Path)
		}
	}
	if err := os.MkdirAll(filepath.Join(r.Path, usersDir), dirPerm); err != nil {
		return fmt.Errorf("failed to create notes directory: %w", err)
	}
	return r.cache.Load()
}

// Close stops the watcher, if running, and flushes the parse cache. Live
// subscriptions end with their own contexts.
func (r *Repository) Close() error {
	r.mu.Lock()
	cancel, done := r.watchCancel, r.watchDone
	r.watchCancel, r.watchDone = nil, nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return r.cache.Save()
}

func (r *Repository) Get(ctx context.Context, ownerID, noteID string) (core.Note, error) {
	rel, err := notePath(ownerID, noteID)
	if err != nil {
		return core.Note{}, err
	}
	return r.read(rel)
}

// List returns the owner's notes, newest first.
func (r *Repository) List(ctx context.Context, ownerID string) ([]core.Note, error) {
	if err := checkSegment("owner", ownerID); err != nil {
		return nil, err
	}
	return r.scan(ctx, path.Join(usersDir, ownerID, notesDir, "*"+noteExt), nil)
}

func (r *Repository) Create(ctx context.Context, n core.Note) (string, error) {
	if err := checkSegment("owner", n.OwnerID); err != nil {
		return "", err
	}
	n = n.Clone()
	n.ID = uuid.NewString()
	ts := r.config.Now().UTC()
	n.Timestamp = &ts
	n.Collaborators = core.NormalizeCollaborators(n.OwnerID, n.Collaborators)

	r.writeMu.Lock()
	err := r.write(n)
	r.writeMu.Unlock()
	if err != nil {
		return "", err
	}
	r.hub.Notify(n.OwnerID)
	return n.ID, nil
}

func (r *Repository) Update(ctx context.Context, ownerID, noteID string, f core.Fields) error {
	return r.modify(ownerID, noteID, f.Apply)
}

func (r *Repository) Delete(ctx context.Context, ownerID, noteID string) error {
	rel, err := notePath(ownerID, noteID)
	if err != nil {
		return err
	}

	r.writeMu.Lock()
	err = os.Remove(filepath.Join(r.Path, filepath.FromSlash(rel)))
	r.writeMu.Unlock()
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s/%s", core.ErrNotFound, ownerID, noteID)
	}
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	r.cache.Delete(rel)
	r.hub.Notify(ownerID)
	return nil
}

// QueryByCollaborator scans every owner's notes for userID.
func (r *Repository) QueryByCollaborator(ctx context.Context, userID string) ([]core.Note, error) {
	notes, err := r.scan(ctx, path.Join(usersDir, "*", notesDir, "*"+noteExt), func(n core.Note) bool {
		return n.HasCollaborator(userID)
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].Key() < notes[j].Key() })
	return notes, nil
}

func (r *Repository) GetCollaborators(ctx context.Context, ownerID, noteID string) ([]string, error) {
	n, err := r.Get(ctx, ownerID, noteID)
	if errors.Is(err, core.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return append([]string{}, n.Collaborators...), nil
}

func (r *Repository) SetCollaborators(ctx context.Context, ownerID, noteID string, uids []string) error {
	return r.modify(ownerID, noteID, func(n core.Note) core.Note {
		n.Collaborators = core.NormalizeCollaborators(n.OwnerID, uids)
		return n
	})
}

// modify applies fn to the stored note under the write lock.
func (r *Repository) modify(ownerID, noteID string, fn func(core.Note) core.Note) error {
	rel, err := notePath(ownerID, noteID)
	if err != nil {
		return err
	}

	r.writeMu.Lock()
	n, err := r.read(rel)
	if err == nil {
		n = fn(n)
		n.OwnerID, n.ID = ownerID, noteID
		err = r.write(n)
	}
	r.writeMu.Unlock()
	if err != nil {
		return err
	}
	r.hub.Notify(ownerID)
	return nil
}

func (r *Repository) write(n core.Note) error {
	rel, err := notePath(n.OwnerID, n.ID)
	if err != nil {
		return err
	}
	data, err := encodeNote(n)
	if err != nil {
		return fmt.Errorf("failed to serialize note: %w", err)
	}
	full := filepath.Join(r.Path, filepath.FromSlash(rel))
	if err := writeFileAtomic(full, data); err != nil {
		return fmt.Errorf("failed to write note: %w", err)
	}
	if info, err := os.Stat(full); err == nil {
		r.cache.Set(rel, info, n)
	}
	return nil
}

// read loads one note by relative path, going through the parse cache.
func (r *Repository) read(rel string) (core.Note, error) {
	full := filepath.Join(r.Path, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if errors.Is(err, os.ErrNotExist) {
		return core.Note{}, fmt.Errorf("%w: %s", core.ErrNotFound, strings.TrimSuffix(rel, noteExt))
	}
	if err != nil {
		return core.Note{}, fmt.Errorf("failed to stat note: %w", err)
	}

	owner, id := splitNotePath(rel)
	if n, ok := r.cache.Get(rel, info); ok {
		return n, nil
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return core.Note{}, fmt.Errorf("failed to read note: %w", err)
	}
	n, err := decodeNote(data)
	if err != nil {
		return core.Note{}, fmt.Errorf("%s: %w", rel, err)
	}
	n.ID = id
	if n.OwnerID == "" {
		n.OwnerID = owner
	}
	r.cache.Set(rel, info, n)
	return n, nil
}

// scan reads every note matching pattern, keeps those accepted by keep (nil
// keeps all) and returns them newest first. Unreadable files are logged and
// skipped.
func (r *Repository) scan(ctx context.Context, pattern string, keep func(core.Note) bool) ([]core.Note, error) {
	matches, err := doublestar.Glob(os.DirFS(r.Path), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to scan notes: %w", err)
	}
	sort.Strings(matches)

	notes := make([]core.Note, 0, len(matches))
	for _, rel := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.HasPrefix(path.Base(rel), TempFilePrefix) {
			continue
		}
		n, err := r.read(rel)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
				continue // removed mid-scan
			}
			r.config.Logger.Warn("skipping unreadable note", "path", rel, "error", err)
			continue
		}
		if keep == nil || keep(n) {
			notes = append(notes, n)
		}
	}
	core.SortNewestFirst(notes)
	return notes, nil
}

func (r *Repository) snapshot(ctx context.Context, ownerID string) core.Snapshot {
	notes, err := r.List(ctx, ownerID)
	if err != nil {
		return core.Snapshot{Err: err}
	}
	return core.Snapshot{Notes: notes}
}

// notePath returns the slash-separated path of a note relative to the root.
func notePath(ownerID, noteID string) (string, error) {
	if err := checkSegment("owner", ownerID); err != nil {
		return "", err
	}
	if err := checkSegment("note id", noteID); err != nil {
		return "", err
	}
	return path.Join(usersDir, ownerID, notesDir, noteID+noteExt), nil
}

func splitNotePath(rel string) (owner, id string) {
	parts := strings.Split(rel, "/")
	if len(parts) != 4 {
		return "", strings.TrimSuffix(path.Base(rel), noteExt)
	}
	return parts[1], strings.TrimSuffix(parts[3], noteExt)
}

// checkSegment rejects values that would escape their directory or act as
// glob metacharacters.
func checkSegment(what, s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\*?[]{}`) {
		return fmt.Errorf("%w: invalid %s %q", core.ErrValidation, what, s)
	}
	return nil
}

var _ core.Store = (*Repository)(nil)
var _ core.Subscribable = (*Repository)(nil)
var _ core.Closer = (*Repository)(nil)
