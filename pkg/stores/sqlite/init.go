// Package sqlite provides the SQLite content store backend for gathersync.
//
// This file registers the backend with the store registry. Import this
// package with a blank identifier to register it:
//
//	import _ "github.com/contentforge/gathersync/pkg/stores/sqlite"
package sqlite

import (
	"log/slog"

	"github.com/contentforge/gathersync/pkg/store"
)

func init() {
	store.Register("sqlite", func(logger *slog.Logger) store.Store { return New(logger) })
}
