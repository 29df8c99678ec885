package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stake-plus/legal-agent/src/data"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("AZURE_AI_AGENT_MODEL_DEPLOYMENT_NAME", "gpt-4o")
	t.Setenv("AZURE_AI_AGENT_PROJECT_CONNECTION_STRING", "eastus.api.azureml.ms;sub;rg;proj")
	t.Setenv("AZURE_TestUserAgent_ID", "asst_legal")
	t.Setenv("QUERY_TIMEOUT_SECONDS", "45")
	t.Setenv("RUN_POLL_INTERVAL_MS", "250")
	t.Setenv("CLEANUP_TIMEOUT_SECONDS", "not-a-number")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://teams.example.com, http://localhost:3978")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "azure", cfg.Agent.Platform)
	assert.Equal(t, "gpt-4o", cfg.Agent.ModelDeploymentName)
	assert.Equal(t, "asst_legal", cfg.Agent.AgentID)
	assert.Equal(t, 45*time.Second, cfg.Agent.QueryTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Agent.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.Agent.CleanupTimeout)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	assert.Equal(t, []string{"https://teams.example.com", "http://localhost:3978"}, cfg.Server.CORSAllowOrigins)
	assert.Empty(t, cfg.Warnings())

	fc := cfg.Agent.Factory()
	assert.Equal(t, "eastus.api.azureml.ms;sub;rg;proj", fc.ProjectConnectionString)
	assert.Equal(t, 250*time.Millisecond, fc.PollInterval)
}

func TestLoadAgentIDFallbackAndWarnings(t *testing.T) {
	t.Setenv("AZURE_TestUserAgent_ID", "")
	t.Setenv("AZURE_AI_AGENT_ID", "asst_fallback")
	t.Setenv("AZURE_AI_AGENT_PROJECT_CONNECTION_STRING", "")
	t.Setenv("AZURE_AI_AGENT_ENDPOINT", "")
	t.Setenv("AZURE_AI_AGENT_MODEL_DEPLOYMENT_NAME", "")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "asst_fallback", cfg.Agent.AgentID)
	assert.Len(t, cfg.Warnings(), 2)
}

func TestSettingsOverrideEnv(t *testing.T) {
	t.Setenv("AZURE_TestUserAgent_ID", "asst_env")
	t.Setenv("PORT", "9000")
	data.ReplaceSettings(map[string]string{"agent_id": "asst_db"})
	t.Cleanup(func() { data.ReplaceSettings(nil) })

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "asst_db", cfg.Agent.AgentID)
	assert.Equal(t, "9000", cfg.Server.Port)
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LEGAL_AGENT_TEST_VALUE=from-file\n"), 0o600))
	t.Setenv("LEGAL_AGENT_TEST_VALUE", "")
	os.Unsetenv("LEGAL_AGENT_TEST_VALUE")

	require.NoError(t, LoadEnvFiles(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("LEGAL_AGENT_TEST_VALUE"))
}
