package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/contentforge/gathersync/pkg/stores/sqlite"
)

func validConfig() *Config {
	return &Config{
		API: APIConfig{
			URL:      "https://api.example.com",
			Username: "editor@example.com",
			Key:      "api-key",
		},
		PluginAPI: PluginAPIConfig{
			URL:         "https://%%ACCOUNTNAME%%.example.com/api",
			AccountName: "acme",
			Key:         "plugin-key",
			Password:    "x",
		},
		Project:      "Website Relaunch",
		FileStoreURL: "https://files.example.com/download",
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, Normalize(cfg))

	assert.Equal(t, DefaultUniqueIDField, cfg.UniqueIDField)
	assert.Equal(t, DefaultParentIDField, cfg.ParentIDField)
	assert.Equal(t, DefaultFileClass, cfg.FileClass)
	assert.Equal(t, DefaultAssetsDir, cfg.AssetsDir)
	assert.Equal(t, DefaultSnapshotDir, cfg.SnapshotDir)
	assert.Equal(t, PolicyNew, cfg.ExistingItems)
	assert.Equal(t, "sqlite", cfg.Target.Type)
	require.NotNil(t, cfg.Spec)
	require.NotNil(t, cfg.Schemas)
}

func TestNormalizeTrailingSlashes(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, Normalize(cfg))

	assert.Equal(t, "https://api.example.com/", cfg.API.URL)
	assert.Equal(t, "https://files.example.com/download/", cfg.FileStoreURL)
}

func TestNormalizeAccountPlaceholder(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, Normalize(cfg))

	assert.Equal(t, "https://acme.example.com/api/", cfg.PluginAPI.URL)
}

func TestNormalizeInvalidPolicyFallsBackToNew(t *testing.T) {
	cfg := validConfig()
	cfg.ExistingItems = "overwrite"
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, PolicyNew, cfg.ExistingItems)
}

func TestNormalizeMissingCredentials(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		setting string
	}{
		{"missing api url", func(c *Config) { c.API.URL = "" }, "api"},
		{"missing api key", func(c *Config) { c.API.Key = "  " }, "api"},
		{"missing plugin account", func(c *Config) { c.PluginAPI.AccountName = "" }, "plugin_api"},
		{"missing project", func(c *Config) { c.Project = "" }, "project"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Normalize(cfg)
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.setting, verr.Setting)
		})
	}
}

func TestNormalizeExpandsEnvVars(t *testing.T) {
	t.Setenv("GC_TEST_KEY", "secret-from-env")
	cfg := validConfig()
	cfg.API.Key = "${GC_TEST_KEY}"
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, "secret-from-env", cfg.API.Key)
}

func TestNormalizeKeepsUnsetEnvVarPattern(t *testing.T) {
	cfg := validConfig()
	cfg.API.Key = "${GC_DEFINITELY_NOT_SET}"
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, "${GC_DEFINITELY_NOT_SET}", cfg.API.Key)
}

func TestNormalizeMappedClassNeedsSchema(t *testing.T) {
	cfg := validConfig()
	cfg.Mappings = map[string]any{
		"classes": map[string]map[string]any{
			"Article": {"ArticlePage": map[string]any{}},
		},
	}
	err := Normalize(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ArticlePage")
}

func TestNormalizeBuildsSchemas(t *testing.T) {
	cfg := validConfig()
	cfg.Classes = map[string]ClassConfig{
		"ArticlePage": {
			Fields: map[string]string{
				"Title":   "scalar",
				"Color":   "enum",
				"Author":  "ref:AuthorProfile",
				"Gallery": "refs:File",
			},
			Hierarchical: true,
			Publishable:  true,
		},
		"AuthorProfile": {Fields: map[string]string{"Name": "scalar"}},
		"File":          {Fields: map[string]string{"Title": "scalar"}},
	}
	cfg.Mappings = map[string]any{
		"classes": map[string]map[string]any{
			"Article": {"ArticlePage": map[string]any{}},
		},
	}
	require.NoError(t, Normalize(cfg))

	schema, ok := cfg.Schemas.Class("ArticlePage")
	require.True(t, ok)
	assert.True(t, schema.Publishable)
	assert.Equal(t, "AuthorProfile", schema.RefTarget("Author"))
	assert.Equal(t, "File", schema.RefTarget("Gallery"))
}

func TestNormalizeUnknownBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Target.Type = "oracle"
	err := Normalize(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target.type")
}

func TestStatusSetsClassify(t *testing.T) {
	sets := NewStatusSets(StatusesConfig{
		Skip:    []string{"Discarded"},
		Draft:   []string{"In Review"},
		Publish: []string{"Approved"},
	})

	assert.Equal(t, StatusSkip, sets.Classify("Discarded"))
	assert.Equal(t, StatusSkip, sets.Classify("  discarded "))
	assert.Equal(t, StatusPublish, sets.Classify("APPROVED"))
	assert.Equal(t, StatusDraft, sets.Classify("In Review"))
	assert.Equal(t, StatusDraft, sets.Classify("Brand New Status"))
	assert.Equal(t, StatusDraft, sets.Classify(""))
}
