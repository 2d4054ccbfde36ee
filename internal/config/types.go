// Package config provides gathersync's typed configuration: loaded once,
// normalized and validated once, and passed explicitly to every component.
package config

import (
	"strings"

	"github.com/contentforge/gathersync/internal/mapping"
	"github.com/contentforge/gathersync/pkg/store"
)

// Existing-item policies (handling of a previously imported item).
const (
	PolicyNew     = "new"
	PolicySkip    = "skip"
	PolicyUpdate  = "update"
	PolicyReplace = "replace"
)

// APIConfig holds the standard source API credentials.
type APIConfig struct {
	URL      string `koanf:"url"`
	Username string `koanf:"username"`
	Key      string `koanf:"key"`
}

// PluginAPIConfig holds the legacy plugin API credentials. The URL may carry
// a %%ACCOUNTNAME%% placeholder substituted during normalization.
type PluginAPIConfig struct {
	URL         string `koanf:"url"`
	AccountName string `koanf:"accountname"`
	Key         string `koanf:"key"`
	Password    string `koanf:"password"`
}

// StatusesConfig divides source workflow statuses into three groups.
// A status in none of them defaults to draft.
type StatusesConfig struct {
	Skip    []string `koanf:"skip"`
	Draft   []string `koanf:"draft"`
	Publish []string `koanf:"publish"`
}

// ClassConfig is the wire shape of a target class schema descriptor.
// Field kinds are "scalar", "enum", "ref:Class" or "refs:Class".
type ClassConfig struct {
	Fields       map[string]string `koanf:"fields"`
	Hierarchical bool              `koanf:"hierarchical"`
	Publishable  bool              `koanf:"publishable"`
}

// Config holds all gathersync configuration. The koanf-tagged fields come
// from file, environment and flags; the derived fields are filled in by
// Normalize.
type Config struct {
	API       APIConfig       `koanf:"api"`
	PluginAPI PluginAPIConfig `koanf:"plugin_api"`

	Project      string `koanf:"project"`
	FileStoreURL string `koanf:"file_store_url"`

	AssetsDir         string `koanf:"assets_dir"`
	SnapshotDir       string `koanf:"snapshot_dir"`
	SaveSnapshots     bool   `koanf:"save_snapshots"`
	UseSavedSnapshots bool   `koanf:"use_saved_snapshots"`
	DownloadFiles     bool   `koanf:"download_files"`
	OverwriteFiles    bool   `koanf:"overwrite_files"`
	AllowPublish      bool   `koanf:"allow_publish"`

	ExistingItems string `koanf:"existing_items"`
	UniqueIDField string `koanf:"unique_id_field"`
	ParentIDField string `koanf:"parent_id_field"`
	FileClass     string `koanf:"file_class"`

	Statuses     StatusesConfig         `koanf:"statuses"`
	Processors   map[string][]any       `koanf:"processors"`
	Translations map[string]string      `koanf:"translations"`
	Mappings     map[string]any         `koanf:"mappings"`
	Classes      map[string]ClassConfig `koanf:"classes"`

	Target store.Config `koanf:"target"`

	Verbose   bool   `koanf:"verbose"`
	LogFormat string `koanf:"log_format"`

	// Derived by Normalize.
	Spec       *mapping.Spec     `koanf:"-"`
	Schemas    store.Schemas     `koanf:"-"`
	Generic    mapping.Pipelines `koanf:"-"`
	StatusSets StatusSets        `koanf:"-"`
}

// StatusClass is the import treatment of a workflow status.
type StatusClass int

const (
	// StatusDraft items are imported unpublished. The default class.
	StatusDraft StatusClass = iota
	// StatusSkip items are disregarded entirely.
	StatusSkip
	// StatusPublish items are published after import when allowed.
	StatusPublish
)

// StatusSets classifies status names case-insensitively.
type StatusSets struct {
	skip    map[string]struct{}
	publish map[string]struct{}
}

// NewStatusSets builds the status sets from config lists. The draft list
// needs no set of its own: draft is the default classification.
func NewStatusSets(cfg StatusesConfig) StatusSets {
	toSet := func(names []string) map[string]struct{} {
		set := make(map[string]struct{}, len(names))
		for _, n := range names {
			set[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
		}
		return set
	}
	return StatusSets{
		skip:    toSet(cfg.Skip),
		publish: toSet(cfg.Publish),
	}
}

// Classify returns the import treatment for a status name. Statuses absent
// from all sets default to draft.
func (s StatusSets) Classify(name string) StatusClass {
	key := strings.ToLower(strings.TrimSpace(name))
	if _, ok := s.skip[key]; ok {
		return StatusSkip
	}
	if _, ok := s.publish[key]; ok {
		return StatusPublish
	}
	return StatusDraft
}
