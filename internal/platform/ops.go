package platform

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ld/ainote/pkg/adapters/fs"
	"github.com/ld/ainote/pkg/adapters/memory"
	"github.com/ld/ainote/pkg/adapters/mongo"
	"github.com/ld/ainote/pkg/adapters/sqlite"
	"github.com/ld/ainote/pkg/core"
)

// connectTimeout bounds connecting to and preparing a remote store.
const connectTimeout = 15 * time.Second

// Init opens and initializes the store selected by the options.
// The uri is adapter-specific (see New).
func Init(uri string, opts ...Option) (core.Store, error) {
	o := applyOptions(opts)

	if o.store != nil {
		return o.store, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	var store core.Store
	var err error
	switch o.adapter {
	case AdapterMemory:
		store = memory.New()
	case AdapterFS:
		store, err = initFS(uri, o)
	case AdapterSQLite:
		store, err = initSQLite(uri, o)
	case AdapterMongo:
		store, err = mongo.Connect(ctx, mongo.Config{URI: uri, Database: o.database, Logger: o.logger})
	default:
		return nil, fmt.Errorf("%w: unknown adapter %q", core.ErrValidation, o.adapter)
	}
	if err != nil {
		return nil, err
	}

	if err := store.Initialize(ctx); err != nil {
		closeStore(store)
		return nil, err
	}
	if o.logger != nil {
		o.logger.Debug("store ready", "adapter", o.adapter, "uri", uri)
	}
	return store, nil
}

func initFS(path string, o *options) (core.Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: fs adapter needs a directory", core.ErrValidation)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return fs.NewRepository(fs.Config{
		Path:         abs,
		MustExist:    o.mustExist,
		Logger:       o.logger,
		ErrorHandler: o.watcherErrorHandler,
		SystemDir:    o.systemDir,
	}), nil
}

func initSQLite(dsn string, o *options) (core.Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: sqlite adapter needs a database path", core.ErrValidation)
	}
	return sqlite.Open(dsn, sqlite.WithLogger(o.logger))
}
