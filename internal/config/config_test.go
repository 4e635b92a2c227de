package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENROUTER_API_KEY",
		"FIRECIRCLE_OUTPUT_DIR",
		"FIRECIRCLE_ARCHIVE",
		"FIRECIRCLE_VOICES",
		"FIRECIRCLE_MAX_ROUNDS",
		"FIRECIRCLE_MIN_VIABLE",
		"FIRECIRCLE_POLICY",
		"FIRECIRCLE_TIMEOUT_SECONDS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadMissingAPIKey(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	require.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, "firecircle.db", cfg.ArchivePath)
	assert.Equal(t, 5, cfg.VoiceCount)
	assert.Equal(t, 3, cfg.MaxRounds)
	assert.Equal(t, 2, cfg.MinimumViable)
	assert.Equal(t, "resilient", cfg.Policy)
	assert.Equal(t, 60*time.Second, cfg.CallTimeout)
}

func TestLoadCustomEnvVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "my-key")
	t.Setenv("FIRECIRCLE_OUTPUT_DIR", "results")
	t.Setenv("FIRECIRCLE_VOICES", "7")
	t.Setenv("FIRECIRCLE_MAX_ROUNDS", "5")
	t.Setenv("FIRECIRCLE_MIN_VIABLE", "3")
	t.Setenv("FIRECIRCLE_POLICY", "strict")
	t.Setenv("FIRECIRCLE_TIMEOUT_SECONDS", "30")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "my-key", cfg.APIKey)
	assert.Equal(t, "results", cfg.OutputDir)
	assert.Equal(t, 7, cfg.VoiceCount)
	assert.Equal(t, 5, cfg.MaxRounds)
	assert.Equal(t, 3, cfg.MinimumViable)
	assert.Equal(t, "strict", cfg.Policy)
	assert.Equal(t, 30*time.Second, cfg.CallTimeout)
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"voices below two", map[string]string{"FIRECIRCLE_VOICES": "1"}},
		{"zero rounds", map[string]string{"FIRECIRCLE_MAX_ROUNDS": "0"}},
		{"minimum viable below two", map[string]string{"FIRECIRCLE_MIN_VIABLE": "1"}},
		{"minimum viable above voices", map[string]string{"FIRECIRCLE_VOICES": "3", "FIRECIRCLE_MIN_VIABLE": "4"}},
		{"unknown policy", map[string]string{"FIRECIRCLE_POLICY": "lenient"}},
		{"zero timeout", map[string]string{"FIRECIRCLE_TIMEOUT_SECONDS": "0"}},
		{"non-numeric voices", map[string]string{"FIRECIRCLE_VOICES": "notanumber"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("OPENROUTER_API_KEY", "test-key")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoadDotEnvSetsVarsFromFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("OPENROUTER_API_KEY=from-dotenv\nFIRECIRCLE_OUTPUT_DIR=dotenv-output\n"), 0644))

	require.NoError(t, LoadDotEnv(envFile))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.APIKey)
	assert.Equal(t, "dotenv-output", cfg.OutputDir)
}

func TestLoadDotEnvEnvVarsTakePrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "from-env")

	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("OPENROUTER_API_KEY=from-dotenv\n"), 0644))

	require.NoError(t, LoadDotEnv(envFile))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.APIKey)
}

func TestLoadDotEnvMissingFileIsNotError(t *testing.T) {
	require.NoError(t, LoadDotEnv("/nonexistent/.env"))
}

func TestLoadCircle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "circle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: launch-review
instructions: Evaluate the proposal for hidden failure modes.
context: Internal launch review, Q3.
voices:
  - id: openai/gpt-4o-mini
    structured: true
  - id: meta-llama/llama-3.1-8b-instruct
  - id: mistralai/mistral-7b-instruct
    structured: true
`), 0644))

	c, err := LoadCircle(path)
	require.NoError(t, err)
	assert.Equal(t, "launch-review", c.Name)
	assert.Equal(t, "Internal launch review, Q3.", c.Context)
	require.Len(t, c.Voices, 3)
	assert.Equal(t, "openai/gpt-4o-mini", c.Voices[0].ID)
	assert.True(t, c.Voices[0].Structured)
	assert.False(t, c.Voices[1].Structured)
}

func TestLoadCircleRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadCircle(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("name: hollow\nvoices: []\n"), 0644))
	_, err = LoadCircle(empty)
	require.Error(t, err)

	dup := filepath.Join(dir, "dup.yaml")
	require.NoError(t, os.WriteFile(dup, []byte("voices:\n  - id: a\n  - id: a\n"), 0644))
	_, err = LoadCircle(dup)
	require.Error(t, err)
}
