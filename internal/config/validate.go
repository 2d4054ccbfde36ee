package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/contentforge/gathersync/internal/mapping"
	"github.com/contentforge/gathersync/internal/pipeline"
	"github.com/contentforge/gathersync/pkg/store"
)

// AccountPlaceholder is replaced by the plugin API account name during
// normalization.
const AccountPlaceholder = "%%ACCOUNTNAME%%"

// Defaults applied by Normalize.
const (
	DefaultUniqueIDField = "GCID"
	DefaultParentIDField = "GCParentID"
	DefaultFileClass     = "File"
	DefaultAssetsDir     = "assets/gathercontent"
	DefaultSnapshotDir   = "assets/gathercontent/json"
)

// ValidationError is a fatal configuration problem detected before any
// network call is made.
type ValidationError struct {
	Setting string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Setting, e.Reason)
}

// Normalize validates and normalizes the loaded configuration in place,
// filling the derived fields. It is run exactly once; afterwards the config
// is treated as immutable.
func Normalize(cfg *Config) error {
	cfg.API.URL = strings.TrimSpace(cfg.API.URL)
	cfg.API.Username = strings.TrimSpace(cfg.API.Username)
	cfg.API.Key = strings.TrimSpace(expandEnvVars(cfg.API.Key))
	cfg.PluginAPI.URL = strings.TrimSpace(cfg.PluginAPI.URL)
	cfg.PluginAPI.AccountName = strings.TrimSpace(cfg.PluginAPI.AccountName)
	cfg.PluginAPI.Key = strings.TrimSpace(expandEnvVars(cfg.PluginAPI.Key))
	cfg.PluginAPI.Password = expandEnvVars(cfg.PluginAPI.Password)
	cfg.Target.Password = expandEnvVars(cfg.Target.Password)
	cfg.Target.User = expandEnvVars(cfg.Target.User)
	cfg.Project = strings.TrimSpace(cfg.Project)

	if cfg.API.URL == "" || cfg.API.Username == "" || cfg.API.Key == "" {
		return &ValidationError{Setting: "api", Reason: "url, username or key is missing or empty"}
	}
	if cfg.PluginAPI.AccountName == "" || cfg.PluginAPI.Key == "" {
		return &ValidationError{Setting: "plugin_api", Reason: "accountname or key is missing or empty"}
	}
	if cfg.Project == "" {
		return &ValidationError{Setting: "project", Reason: "source project name is not configured"}
	}

	if !strings.HasSuffix(cfg.API.URL, "/") {
		cfg.API.URL += "/"
	}
	if cfg.PluginAPI.URL != "" && !strings.HasSuffix(cfg.PluginAPI.URL, "/") {
		cfg.PluginAPI.URL += "/"
	}
	cfg.PluginAPI.URL = strings.ReplaceAll(cfg.PluginAPI.URL, AccountPlaceholder, cfg.PluginAPI.AccountName)
	if cfg.FileStoreURL != "" && !strings.HasSuffix(cfg.FileStoreURL, "/") {
		cfg.FileStoreURL += "/"
	}

	// Unknown policy values degrade to "new" rather than aborting.
	switch cfg.ExistingItems {
	case PolicyNew, PolicySkip, PolicyUpdate, PolicyReplace:
	default:
		cfg.ExistingItems = PolicyNew
	}

	if cfg.UniqueIDField == "" {
		cfg.UniqueIDField = DefaultUniqueIDField
	}
	if cfg.ParentIDField == "" {
		cfg.ParentIDField = DefaultParentIDField
	}
	if cfg.FileClass == "" {
		cfg.FileClass = DefaultFileClass
	}
	if cfg.AssetsDir == "" {
		cfg.AssetsDir = DefaultAssetsDir
	}
	if cfg.SnapshotDir == "" {
		cfg.SnapshotDir = DefaultSnapshotDir
	}

	cfg.StatusSets = NewStatusSets(cfg.Statuses)

	var err error
	if cfg.Generic.Field, err = pipeline.ParseCalls(cfg.Processors["field"]); err != nil {
		return &ValidationError{Setting: "processors.field", Reason: err.Error()}
	}
	if cfg.Generic.Value, err = pipeline.ParseCalls(cfg.Processors["value"]); err != nil {
		return &ValidationError{Setting: "processors.value", Reason: err.Error()}
	}

	if cfg.Spec, err = mapping.Decode(cfg.Mappings); err != nil {
		return &ValidationError{Setting: "mappings", Reason: err.Error()}
	}

	if cfg.Schemas, err = buildSchemas(cfg.Classes); err != nil {
		return &ValidationError{Setting: "classes", Reason: err.Error()}
	}

	if err := checkMappedClasses(cfg.Spec, cfg.Schemas); err != nil {
		return &ValidationError{Setting: "mappings", Reason: err.Error()}
	}

	if cfg.Target.Type == "" {
		cfg.Target.Type = "sqlite"
	}
	if !store.IsRegistered(strings.ToLower(cfg.Target.Type)) {
		return &ValidationError{
			Setting: "target.type",
			Reason:  (&store.UnknownBackendError{Type: cfg.Target.Type, Available: store.ListBackends()}).Error(),
		}
	}

	return nil
}

// buildSchemas parses class configs into schema descriptors.
func buildSchemas(classes map[string]ClassConfig) (store.Schemas, error) {
	schemas := make(store.Schemas, len(classes))
	for name, cc := range classes {
		schema := &store.ClassSchema{
			Name:         name,
			Fields:       make(map[string]store.FieldKind, len(cc.Fields)),
			RefTargets:   make(map[string]string),
			Hierarchical: cc.Hierarchical,
			Publishable:  cc.Publishable,
		}
		for field, kindSpec := range cc.Fields {
			kind, target, err := store.ParseFieldKind(kindSpec)
			if err != nil {
				return nil, fmt.Errorf("class %q field %q: %w", name, field, err)
			}
			schema.Fields[field] = kind
			if target != "" {
				schema.RefTargets[field] = target
			}
		}
		schemas[name] = schema
	}
	return schemas, nil
}

// checkMappedClasses verifies every mapped target class has a schema.
func checkMappedClasses(spec *mapping.Spec, schemas store.Schemas) error {
	check := func(cm *mapping.ClassMapping) error {
		if cm == nil {
			return nil
		}
		if _, ok := schemas.Class(cm.Class); !ok {
			return fmt.Errorf("target class %q has no schema under classes", cm.Class)
		}
		if cm.Parent != nil {
			if _, ok := schemas.Class(cm.Parent.Class); !ok {
				return fmt.Errorf("parent class %q has no schema under classes", cm.Parent.Class)
			}
		}
		return nil
	}
	for _, cm := range spec.Classes {
		if err := check(cm); err != nil {
			return err
		}
	}
	return check(spec.Default)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}
