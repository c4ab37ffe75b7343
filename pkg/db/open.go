package db

import (
	"fmt"

	"transcription-editor/pkg/config"
)

// Open returns the document store selected by cfg.Database.Driver.
func Open(cfg *config.Config) (IDocumentStore, error) {
	switch cfg.Database.Driver {
	case "postgres", "":
		return NewPostgresDocumentStore(cfg.GetDatabaseConnectionString())
	case "sqlite":
		return NewSQLiteDocumentStore(cfg.GetDatabaseConnectionString())
	case "memory":
		return NewMemoryDocumentStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Database.Driver)
	}
}
