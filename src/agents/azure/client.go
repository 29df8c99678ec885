package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stake-plus/legal-agent/src/agents/core"
	"github.com/stake-plus/legal-agent/src/webclient"
)

const (
	defaultAPIVersion   = "2024-12-01-preview"
	defaultPollInterval = 500 * time.Millisecond
	defaultHTTPTimeout  = 120 * time.Second
	messagePageSize     = 20
)

func init() {
	core.RegisterPlatform("azure", core.PlatformFactory{
		NewCredential: NewCredential,
		NewClient:     NewClient,
	}, "azure-ai-agent")
}

type client struct {
	baseURL    string
	apiVersion string
	model      string
	poll       time.Duration
	cred       core.Credential
	httpClient *http.Client
}

// NewClient binds an Azure AI Agent Service client to cred. The client does
// not own cred; the caller closes both.
func NewClient(cfg core.FactoryConfig, cred core.Credential) (core.Client, error) {
	if cred == nil {
		return nil, fmt.Errorf("azure: credential required")
	}
	baseURL, err := resolveBaseURL(cfg)
	if err != nil {
		return nil, err
	}
	return &client{
		baseURL:    baseURL,
		apiVersion: valueOrDefault(cfg.APIVersion, defaultAPIVersion),
		model:      strings.TrimSpace(cfg.ModelDeploymentName),
		poll:       orDuration(cfg.PollInterval, defaultPollInterval),
		cred:       cred,
		httpClient: webclient.NewDefault(orDuration(cfg.HTTPTimeout, defaultHTTPTimeout)),
	}, nil
}

func (c *client) GetAgent(ctx context.Context, agentID string) (core.AgentDefinition, error) {
	if strings.TrimSpace(agentID) == "" {
		return core.AgentDefinition{}, fmt.Errorf("azure: agent id is empty")
	}
	var out agentResponse
	if err := c.call(ctx, http.MethodGet, "/assistants/"+url.PathEscape(agentID), nil, nil, &out); err != nil {
		if webclient.IsStatus(err, http.StatusNotFound) {
			return core.AgentDefinition{}, fmt.Errorf("azure: agent %s not found: %w", agentID, err)
		}
		return core.AgentDefinition{}, fmt.Errorf("azure: get agent %s: %w", agentID, err)
	}
	return core.AgentDefinition{
		ID:           out.ID,
		Name:         out.Name,
		Model:        out.Model,
		Instructions: out.Instructions,
	}, nil
}

func (c *client) CreateThread(ctx context.Context) (core.Thread, error) {
	var out threadResponse
	if err := c.call(ctx, http.MethodPost, "/threads", nil, map[string]any{}, &out); err != nil {
		return core.Thread{}, fmt.Errorf("azure: create thread: %w", err)
	}
	if out.ID == "" {
		return core.Thread{}, fmt.Errorf("azure: create thread: empty thread id")
	}
	return core.Thread{ID: out.ID}, nil
}

func (c *client) DeleteThread(ctx context.Context, threadID string) error {
	if err := c.call(ctx, http.MethodDelete, "/threads/"+url.PathEscape(threadID), nil, nil, nil); err != nil {
		return fmt.Errorf("azure: delete thread %s: %w", threadID, err)
	}
	return nil
}

func (c *client) AddMessage(ctx context.Context, threadID string, text string) error {
	body := map[string]any{
		"role":    "user",
		"content": text,
	}
	if err := c.call(ctx, http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/messages", nil, body, nil); err != nil {
		return fmt.Errorf("azure: add message: %w", err)
	}
	return nil
}

// GetResponse starts a run for the agent, waits for it to settle and returns
// the newest assistant message the run produced.
func (c *client) GetResponse(ctx context.Context, threadID string, agent core.AgentDefinition) (core.Reply, error) {
	run, err := c.createRun(ctx, threadID, agent)
	if err != nil {
		return core.Reply{}, err
	}
	run, err = c.waitRun(ctx, run)
	if err != nil {
		return core.Reply{}, err
	}
	return c.latestAssistantReply(ctx, threadID, run.ID)
}

func (c *client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *client) createRun(ctx context.Context, threadID string, agent core.AgentDefinition) (runResponse, error) {
	body := map[string]any{"assistant_id": agent.ID}
	if model := valueOrDefault(c.model, agent.Model); model != "" {
		body["model"] = model
	}
	var out runResponse
	if err := c.call(ctx, http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/runs", nil, body, &out); err != nil {
		return runResponse{}, fmt.Errorf("azure: create run: %w", err)
	}
	if out.ThreadID == "" {
		out.ThreadID = threadID
	}
	return out, nil
}

func (c *client) waitRun(ctx context.Context, run runResponse) (runResponse, error) {
	for {
		switch run.Status {
		case "completed":
			return run, nil
		case "queued", "in_progress", "cancelling", "":
		case "requires_action":
			return run, fmt.Errorf("azure: run %s requires tool outputs, which this gateway does not provide", run.ID)
		default:
			return run, fmt.Errorf("azure: run %s ended with status %s%s", run.ID, run.Status, run.lastErrorSuffix())
		}

		t := time.NewTimer(c.poll)
		select {
		case <-ctx.Done():
			t.Stop()
			return run, fmt.Errorf("azure: waiting for run %s: %w", run.ID, ctx.Err())
		case <-t.C:
		}

		var next runResponse
		path := fmt.Sprintf("/threads/%s/runs/%s", url.PathEscape(run.ThreadID), url.PathEscape(run.ID))
		if err := c.call(ctx, http.MethodGet, path, nil, nil, &next); err != nil {
			return run, fmt.Errorf("azure: poll run %s: %w", run.ID, err)
		}
		if next.ThreadID == "" {
			next.ThreadID = run.ThreadID
		}
		run = next
	}
}

func (c *client) latestAssistantReply(ctx context.Context, threadID, runID string) (core.Reply, error) {
	q := url.Values{}
	q.Set("order", "desc")
	q.Set("limit", fmt.Sprint(messagePageSize))
	if runID != "" {
		q.Set("run_id", runID)
	}
	var page messageList
	if err := c.call(ctx, http.MethodGet, "/threads/"+url.PathEscape(threadID)+"/messages", q, nil, &page); err != nil {
		return core.Reply{}, fmt.Errorf("azure: list messages: %w", err)
	}
	for _, raw := range page.Data {
		var head struct {
			Role string `json:"role"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			continue
		}
		if strings.EqualFold(head.Role, "assistant") {
			return core.DecodeReply(raw), nil
		}
	}
	return core.Reply{}, fmt.Errorf("azure: no assistant message on thread %s", threadID)
}

func (c *client) call(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	token, err := c.cred.Token(ctx)
	if err != nil {
		return err
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("api-version", c.apiVersion)
	return webclient.DoJSON(ctx, c.httpClient, webclient.Request{
		Method: method,
		URL:    c.baseURL + path + "?" + query.Encode(),
		Header: map[string]string{"Authorization": "Bearer " + token},
		Body:   body,
	}, out)
}

type agentResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Model        string `json:"model"`
	Instructions string `json:"instructions"`
}

type threadResponse struct {
	ID string `json:"id"`
}

type runResponse struct {
	ID        string `json:"id"`
	ThreadID  string `json:"thread_id"`
	Status    string `json:"status"`
	LastError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_error"`
}

func (r runResponse) lastErrorSuffix() string {
	if r.LastError == nil || (r.LastError.Code == "" && r.LastError.Message == "") {
		return ""
	}
	return fmt.Sprintf(": %s %s", r.LastError.Code, r.LastError.Message)
}

type messageList struct {
	Data []json.RawMessage `json:"data"`
}

func valueOrDefault(val, def string) string {
	if strings.TrimSpace(val) != "" {
		return val
	}
	return def
}

func orDuration(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
}
