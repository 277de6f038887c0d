package platform

import (
	"log/slog"

	"github.com/ld/ainote/pkg/core"
)

// Adapter names accepted by WithAdapter.
const (
	AdapterMemory = "memory"
	AdapterFS     = "fs"
	AdapterSQLite = "sqlite"
	AdapterMongo  = "mongo"
)

// options holds the internal configuration for the ainote service.
type options struct {
	store     core.Store
	logger    *slog.Logger
	adapter   string
	database  string
	mustExist bool
	systemDir string

	watcherErrorHandler func(error)
	sharedErrorHandler  func(error)

	assistant    core.Assistant
	geminiAPIKey string
	geminiModel  string
}

// Option defines a functional option for configuring the service.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		adapter: AdapterFS,
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger for the service and the store.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStore injects a ready store (e.g. an in-memory one). The adapter
// selection is skipped.
func WithStore(store core.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithAdapter selects the storage adapter by name: "memory", "fs", "sqlite"
// or "mongo". Defaults to "fs".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithDatabase names the database for the mongo adapter.
func WithDatabase(name string) Option {
	return func(o *options) {
		o.database = name
	}
}

// WithMustExist makes the fs adapter fail instead of creating a missing
// notes directory.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithSystemDir sets the hidden directory the fs adapter keeps its cache in.
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.systemDir = name
	}
}

// WithWatcherErrorHandler receives runtime failures of the fs watcher,
// which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.watcherErrorHandler = fn
	}
}

// WithSharedErrorHandler receives failures of the shared-notes query, which
// degrade the merged list to the caller's own notes.
func WithSharedErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.sharedErrorHandler = fn
	}
}

// WithAssistant plugs in an AI collaborator.
func WithAssistant(a core.Assistant) Option {
	return func(o *options) {
		o.assistant = a
	}
}

// WithGemini builds a Gemini assistant when the service is created. An
// empty key leaves the service without an assistant.
func WithGemini(apiKey, model string) Option {
	return func(o *options) {
		o.geminiAPIKey = apiKey
		o.geminiModel = model
	}
}
