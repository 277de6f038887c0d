package platform

import (
	"context"

	"github.com/ld/ainote/pkg/adapters/genai"
	"github.com/ld/ainote/pkg/core"
)

// New opens the store selected by the options and wires the service.
// The uri is adapter-specific: a directory for fs, a database file for
// sqlite, a connection string for mongo, ignored for memory.
//
//	svc, err := ainote.New("./notes", ainote.WithAdapter("fs"))
func New(uri string, opts ...Option) (*core.Service, error) {
	o := applyOptions(opts)

	store, err := Init(uri, opts...)
	if err != nil {
		return nil, err
	}

	svcOpts := []core.ServiceOption{core.WithLogger(o.logger)}
	if o.sharedErrorHandler != nil {
		svcOpts = append(svcOpts, core.WithSharedErrorHandler(o.sharedErrorHandler))
	}

	assistant := o.assistant
	if assistant == nil && o.geminiAPIKey != "" {
		assistant, err = genai.New(context.Background(), genai.Config{
			APIKey: o.geminiAPIKey,
			Model:  o.geminiModel,
			Logger: o.logger,
		})
		if err != nil {
			closeStore(store)
			return nil, err
		}
	}
	if assistant != nil {
		svcOpts = append(svcOpts, core.WithAssistant(assistant))
	}

	return core.NewService(store, svcOpts...), nil
}

func closeStore(store core.Store) {
	if c, ok := store.(core.Closer); ok {
		_ = c.Close()
	}
}
