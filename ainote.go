package ainote

import (
	"log/slog"

	"github.com/ld/ainote/internal/platform"
	"github.com/ld/ainote/pkg/core"
	"github.com/ld/ainote/pkg/view"
)

// --- Types ---

// Service is the note service.
type Service = core.Service

// Note is a single note.
type Note = core.Note

// Fields is a partial note update.
type Fields = core.Fields

// Session edits a single note.
type Session = core.Session

// Friend is someone notes can be shared with.
type Friend = core.Friend

// ShareOption is one entry of the share picker.
type ShareOption = core.ShareOption

// Projector turns notes into list rows.
type Projector = view.Projector

// Config is the project configuration file.
type Config = platform.Config

// --- Configuration ---

// Option defines a functional option for configuring the service.
type Option = platform.Option

// Adapter names.
const (
	AdapterMemory = platform.AdapterMemory
	AdapterFS     = platform.AdapterFS
	AdapterSQLite = platform.AdapterSQLite
	AdapterMongo  = platform.AdapterMongo
)

// WithLogger sets the logger for the service and the store.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithStore injects a ready store.
func WithStore(store core.Store) Option {
	return platform.WithStore(store)
}

// WithAdapter selects the storage adapter by name.
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithDatabase names the mongo database.
func WithDatabase(name string) Option {
	return platform.WithDatabase(name)
}

// WithMustExist makes the fs adapter refuse a missing directory.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithSystemDir sets the fs adapter's hidden cache directory.
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithWatcherErrorHandler receives fs watcher failures.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// WithSharedErrorHandler receives shared-notes query failures.
func WithSharedErrorHandler(fn func(error)) Option {
	return platform.WithSharedErrorHandler(fn)
}

// WithAssistant plugs in an AI collaborator.
func WithAssistant(a core.Assistant) Option {
	return platform.WithAssistant(a)
}

// WithGemini builds a Gemini assistant from an API key and model.
func WithGemini(apiKey, model string) Option {
	return platform.WithGemini(apiKey, model)
}

// --- Constructors ---

// New opens the selected store and returns the service. The uri is a
// directory (fs), a database file (sqlite) or a connection string (mongo).
func New(uri string, opts ...Option) (*Service, error) {
	return platform.New(uri, opts...)
}

// Init opens and initializes the selected store without building a service.
func Init(uri string, opts ...Option) (core.Store, error) {
	return platform.Init(uri, opts...)
}

// NewProjector creates an empty, flat projector.
func NewProjector() *Projector {
	return view.NewProjector()
}

// LoadConfig reads an ainote.yaml file; an empty path searches upwards
// from the working directory.
func LoadConfig(path string) (Config, error) {
	return platform.LoadConfig(path)
}

// FindRoot looks upwards for the project directory.
func FindRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}
