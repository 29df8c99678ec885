package config

import (
	"net"
	"strings"
	"time"

	"github.com/stake-plus/legal-agent/src/agents/core"
	"github.com/stake-plus/legal-agent/src/data"
	"gorm.io/gorm"
)

// Config is read once at startup and passed by value afterwards.
type Config struct {
	Agent  AgentConfig
	Server ServerConfig

	RedisURL            string
	OrphanSweepInterval time.Duration

	LogLevel  string
	LogFormat string
}

// AgentConfig holds everything needed to reach the hosted agent.
type AgentConfig struct {
	Platform                string
	ModelDeploymentName     string
	ProjectConnectionString string
	AgentID                 string
	Endpoint                string
	APIVersion              string
	TokenScope              string

	PollInterval   time.Duration
	HTTPTimeout    time.Duration
	QueryTimeout   time.Duration
	CleanupTimeout time.Duration
}

type ServerConfig struct {
	Host             string
	Port             string
	CORSAllowOrigins []string
}

func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// Factory converts the agent settings into platform factory input.
func (a AgentConfig) Factory() core.FactoryConfig {
	return core.FactoryConfig{
		Platform:                a.Platform,
		ModelDeploymentName:     a.ModelDeploymentName,
		ProjectConnectionString: a.ProjectConnectionString,
		Endpoint:                a.Endpoint,
		APIVersion:              a.APIVersion,
		TokenScope:              a.TokenScope,
		PollInterval:            a.PollInterval,
		HTTPTimeout:             a.HTTPTimeout,
	}
}

// Load reads configuration. When db is non-nil its settings table takes
// precedence over the environment; a failed settings read falls back to env.
func Load(db *gorm.DB) (Config, error) {
	var settingsErr error
	if db != nil {
		settingsErr = data.LoadSettings(db)
	}

	agentID := GetSetting("agent_id", "AZURE_TestUserAgent_ID", "")
	if agentID == "" {
		agentID = GetSetting("agent_id", "AZURE_AI_AGENT_ID", "")
	}

	cfg := Config{
		Agent: AgentConfig{
			Platform:                GetSetting("agent_platform", "AGENT_PLATFORM", "azure"),
			ModelDeploymentName:     GetSetting("agent_model_deployment_name", "AZURE_AI_AGENT_MODEL_DEPLOYMENT_NAME", ""),
			ProjectConnectionString: GetSetting("agent_project_connection_string", "AZURE_AI_AGENT_PROJECT_CONNECTION_STRING", ""),
			AgentID:                 agentID,
			Endpoint:                GetSetting("agent_endpoint", "AZURE_AI_AGENT_ENDPOINT", ""),
			APIVersion:              GetSetting("agent_api_version", "AZURE_AI_AGENT_API_VERSION", "2024-12-01-preview"),
			TokenScope:              GetSetting("agent_token_scope", "AZURE_AI_AGENT_TOKEN_SCOPE", "https://management.azure.com/.default"),
			PollInterval:            getMillisSetting("agent_run_poll_interval_ms", "RUN_POLL_INTERVAL_MS", 500*time.Millisecond),
			HTTPTimeout:             getSecondsSetting("agent_http_timeout_seconds", "AGENT_HTTP_TIMEOUT_SECONDS", 120*time.Second),
			QueryTimeout:            getSecondsSetting("query_timeout_seconds", "QUERY_TIMEOUT_SECONDS", 180*time.Second),
			CleanupTimeout:          getSecondsSetting("cleanup_timeout_seconds", "CLEANUP_TIMEOUT_SECONDS", 30*time.Second),
		},
		Server: ServerConfig{
			Host:             GetSetting("http_host", "HOST", "0.0.0.0"),
			Port:             GetSetting("http_port", "PORT", "8000"),
			CORSAllowOrigins: parseCSV(GetSetting("cors_allow_origins", "CORS_ALLOW_ORIGINS", "")),
		},
		RedisURL:            GetSetting("redis_url", "REDIS_URL", ""),
		OrphanSweepInterval: getSecondsSetting("orphan_sweep_interval_seconds", "ORPHAN_SWEEP_INTERVAL_SECONDS", 5*time.Minute),
		LogLevel:            GetSetting("log_level", "LOG_LEVEL", "info"),
		LogFormat:           GetSetting("log_format", "LOG_FORMAT", "json"),
	}
	return cfg, settingsErr
}

// Warnings lists missing values that will make every query fail.
func (c Config) Warnings() []string {
	var out []string
	if c.Agent.AgentID == "" {
		out = append(out, "agent id not configured (AZURE_TestUserAgent_ID)")
	}
	if c.Agent.Endpoint == "" && c.Agent.ProjectConnectionString == "" {
		out = append(out, "project connection string not configured (AZURE_AI_AGENT_PROJECT_CONNECTION_STRING)")
	}
	if strings.EqualFold(c.Agent.Platform, "azure") && c.Agent.ModelDeploymentName == "" {
		out = append(out, "model deployment name not configured; the agent's own model is used")
	}
	return out
}
