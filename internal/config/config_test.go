package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dyluth/micra/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "micra.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
redis:
  url: "redis://cache:6379/2"
commands_key: "ops_commands"
retry:
  initial_interval: 10ms
  max_interval: 500ms
  max_elapsed_time: 3s
forwards:
  almacen: almacen_commands
content_types:
  - identifier: job_identifier
    title: Job Identifier
    description: Unique identifier for a job.
    converter: string
    tags: [job]
structures:
  - identifier: jobs_scored
    title: Scored Jobs
    key: scored_jobs
    structure_type: ordered_set
    content_type: job_identifier
  - identifier: top_jobs
    title: Top Jobs
    structure_type: list
    content_type: job_identifier
    joins:
      - structure: jobs_scored
        sort:
          - [ordered_set_score, false]
        ranges:
          - [0, 9]
`)

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, "redis://cache:6379/2", config.Redis.URL)
	assert.Equal(t, "ops_commands", config.CommandsKey)
	assert.Equal(t, 10*time.Millisecond, config.Retry.InitialInterval)
	assert.Equal(t, 3*time.Second, config.Retry.MaxElapsedTime)
	assert.Equal(t, map[string]string{"almacen": "almacen_commands"}, config.Forwards)

	require.Len(t, config.ContentTypes, 1)
	assert.Equal(t, store.ConverterString, config.ContentTypes[0].Converter)
	assert.Equal(t, []string{"job"}, config.ContentTypes[0].Tags)

	require.Len(t, config.Structures, 2)
	assert.Equal(t, store.StructureOrderedSet, config.Structures[0].StructureType)
	top := config.Structures[1]
	assert.Empty(t, top.Key)
	require.Len(t, top.Joins, 1)
	assert.Equal(t, []store.SortKey{{Column: "ordered_set_score", Ascending: false}}, top.Joins[0].Sort)
	require.Len(t, top.Joins[0].Ranges, 1)
	assert.Equal(t, 9, *top.Joins[0].Ranges[0].End)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	config, err := Load(writeConfig(t, `version: "1.0"`))
	require.NoError(t, err)
	assert.Equal(t, store.CommandsKey, config.CommandsKey)
	assert.Equal(t, 50*time.Millisecond, config.Retry.InitialInterval)
	assert.Equal(t, time.Second, config.Retry.MaxInterval)
	assert.Equal(t, 10*time.Second, config.Retry.MaxElapsedTime)
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/micra.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoadOrDefault(t *testing.T) {
	config, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, store.CommandsKey, config.CommandsKey)

	_, err = LoadOrDefault(writeConfig(t, `version: "2.0"`))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	config, err := Load(writeConfig(t, `version: "1.0"
structures:
  - this is invalid
    yaml syntax
`))
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  MicraConfig
		wantErr string
	}{
		{
			name:    "unsupported version",
			config:  MicraConfig{Version: "2.0"},
			wantErr: "unsupported version: 2.0",
		},
		{
			name:    "bad redis url",
			config:  MicraConfig{Version: "1.0", Redis: &RedisConfig{URL: "http://nope"}},
			wantErr: "redis.url",
		},
		{
			name:    "initial interval above max",
			config:  MicraConfig{Version: "1.0", Retry: &RetryConfig{InitialInterval: 2 * time.Second, MaxInterval: time.Second}},
			wantErr: "exceeds retry.max_interval",
		},
		{
			name:    "negative interval",
			config:  MicraConfig{Version: "1.0", Retry: &RetryConfig{MaxElapsedTime: -time.Second}},
			wantErr: "must be >= 0",
		},
		{
			name:    "empty forward key",
			config:  MicraConfig{Version: "1.0", Forwards: map[string]string{"almacen": ""}},
			wantErr: "forwards",
		},
		{
			name: "invalid converter",
			config: MicraConfig{Version: "1.0", ContentTypes: []*store.ContentType{
				{Element: store.Element{Identifier: "x"}, Converter: "xml"},
			}},
			wantErr: "content_types[0]",
		},
		{
			name: "shadows built-in content type",
			config: MicraConfig{Version: "1.0", ContentTypes: []*store.ContentType{
				{Element: store.Element{Identifier: "json"}, Converter: store.ConverterJSON},
			}},
			wantErr: "duplicate identifier 'json'",
		},
		{
			name: "duplicate structure",
			config: MicraConfig{Version: "1.0", Structures: []*store.Structure{
				store.NewSet(store.Element{Identifier: "a"}, "a", "json"),
				store.NewList(store.Element{Identifier: "a"}, "b", "json"),
			}},
			wantErr: "structures[1]: duplicate identifier 'a'",
		},
		{
			name: "invalid structure type",
			config: MicraConfig{Version: "1.0", Structures: []*store.Structure{
				{Element: store.Element{Identifier: "a"}, StructureType: "tree", ContentType: "json"},
			}},
			wantErr: "structures[0]",
		},
		{
			name: "join without structure",
			config: MicraConfig{Version: "1.0", Structures: []*store.Structure{
				{Element: store.Element{Identifier: "a"}, StructureType: store.StructureList, ContentType: "json", Joins: []store.Join{{}}},
			}},
			wantErr: "join 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRedisURL(t *testing.T) {
	config := Default()

	t.Setenv(RedisURLEnv, "")
	assert.Equal(t, DefaultRedisURL, config.RedisURL(""))

	config.Redis.URL = "redis://from-config:6379/0"
	assert.Equal(t, "redis://from-config:6379/0", config.RedisURL(""))

	t.Setenv(RedisURLEnv, "redis://from-env:6379/0")
	assert.Equal(t, "redis://from-env:6379/0", config.RedisURL(""))

	assert.Equal(t, "redis://from-flag:6379/0", config.RedisURL("redis://from-flag:6379/0"))
}
