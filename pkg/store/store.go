// Package store defines the target content store contract for gathersync.
//
// This package contains the public contract that all store backends must
// implement. Concrete backend implementations are in pkg/stores/ subdirectories.
package store

import (
	"context"
)

// Config holds store backend configuration.
type Config struct {
	Type string `koanf:"type"` // sqlite, postgres

	// File-based backends (SQLite); ":memory:" is supported.
	Path string `koanf:"path"`

	// Network backends
	Database string `koanf:"database"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`
}

// Store is the adapter interface consumed by the importer. Lookups that find
// nothing return (nil, nil); errors are reserved for backend failures.
type Store interface {
	// Connect establishes a connection to the content store.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error

	// Migrate brings the backing schema up to date.
	Migrate(ctx context.Context) error

	// FindByField returns the object of the given class whose scalar field
	// holds value, or nil when no such object exists.
	FindByField(ctx context.Context, class, field, value string) (*Object, error)

	// Create returns a new unsaved object of the given class with a fresh
	// identifier. The object only exists in the store after Write.
	Create(class string) *Object

	// Write persists the object's current draft state, creating or replacing
	// its stored fields and relations.
	Write(ctx context.Context, obj *Object) error

	// Publish copies the object's stored draft state to the live tables.
	// The draft copy is left untouched.
	Publish(ctx context.Context, obj *Object) error

	// Delete removes the object and its fields and relations, draft and live.
	Delete(ctx context.Context, obj *Object) error
}
