package azure

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/stake-plus/legal-agent/src/agents/core"
)

// ProjectConnection is a parsed project connection string:
// "<host>;<subscription id>;<resource group>;<project name>".
type ProjectConnection struct {
	Host           string
	SubscriptionID string
	ResourceGroup  string
	ProjectName    string
}

// ParseConnectionString splits and validates a project connection string.
func ParseConnectionString(raw string) (ProjectConnection, error) {
	parts := strings.Split(strings.TrimSpace(raw), ";")
	if len(parts) != 4 {
		return ProjectConnection{}, fmt.Errorf("azure: project connection string must have 4 ';'-separated parts, got %d", len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return ProjectConnection{}, fmt.Errorf("azure: project connection string part %d is empty", i+1)
		}
	}
	host := strings.TrimPrefix(strings.TrimPrefix(parts[0], "https://"), "http://")
	host = strings.TrimRight(host, "/")
	return ProjectConnection{
		Host:           host,
		SubscriptionID: parts[1],
		ResourceGroup:  parts[2],
		ProjectName:    parts[3],
	}, nil
}

// BaseURL is the agents API root for the project.
func (p ProjectConnection) BaseURL() string {
	return fmt.Sprintf("https://%s/agents/v1.0/subscriptions/%s/resourceGroups/%s/providers/Microsoft.MachineLearningServices/workspaces/%s",
		p.Host,
		url.PathEscape(p.SubscriptionID),
		url.PathEscape(p.ResourceGroup),
		url.PathEscape(p.ProjectName))
}

// resolveBaseURL prefers an explicit endpoint over the connection string.
func resolveBaseURL(cfg core.FactoryConfig) (string, error) {
	if ep := strings.TrimSpace(cfg.Endpoint); ep != "" {
		return strings.TrimRight(ep, "/"), nil
	}
	if strings.TrimSpace(cfg.ProjectConnectionString) == "" {
		return "", fmt.Errorf("azure: project connection string not configured")
	}
	conn, err := ParseConnectionString(cfg.ProjectConnectionString)
	if err != nil {
		return "", err
	}
	return conn.BaseURL(), nil
}
