package query

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stake-plus/legal-agent/src/agents/core"
	"github.com/stake-plus/legal-agent/src/config"
	"github.com/stake-plus/legal-agent/src/webclient"
)

// fakePlatform records every call made by the clients it hands out.
type fakePlatform struct {
	mu       sync.Mutex
	nextID   atomic.Int64
	created  []string
	deleted  []string
	prompts  map[string]string
	credOpen int
	cliOpen  int

	getAgentErr error
	createErr   error
	addErr      error
	responseErr error
	deleteErr   error
	reply       core.Reply
	// block makes GetResponse wait for ctx to end
	block bool
	// deleteCtxErr captures the cleanup context state at delete time
	deleteCtxErr []error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		prompts: map[string]string{},
		reply:   core.DecodeReply(map[string]any{"items": []any{map[string]any{"text": "A"}, map[string]any{"text": "B"}}}),
	}
}

type fakeCredential struct{ p *fakePlatform }

func (c fakeCredential) Token(context.Context) (string, error) { return "tok", nil }

func (c fakeCredential) Close() error {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	c.p.credOpen--
	return nil
}

type fakeClient struct{ p *fakePlatform }

func (c fakeClient) GetAgent(ctx context.Context, id string) (core.AgentDefinition, error) {
	if c.p.getAgentErr != nil {
		return core.AgentDefinition{}, c.p.getAgentErr
	}
	return core.AgentDefinition{ID: id}, nil
}

func (c fakeClient) CreateThread(ctx context.Context) (core.Thread, error) {
	if c.p.createErr != nil {
		return core.Thread{}, c.p.createErr
	}
	id := fmt.Sprintf("thread_%d", c.p.nextID.Add(1))
	c.p.mu.Lock()
	c.p.created = append(c.p.created, id)
	c.p.mu.Unlock()
	return core.Thread{ID: id}, nil
}

func (c fakeClient) DeleteThread(ctx context.Context, threadID string) error {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	c.p.deleteCtxErr = append(c.p.deleteCtxErr, ctx.Err())
	if c.p.deleteErr != nil {
		return c.p.deleteErr
	}
	c.p.deleted = append(c.p.deleted, threadID)
	return nil
}

func (c fakeClient) AddMessage(ctx context.Context, threadID, text string) error {
	if c.p.addErr != nil {
		return c.p.addErr
	}
	c.p.mu.Lock()
	c.p.prompts[threadID] = text
	c.p.mu.Unlock()
	return nil
}

func (c fakeClient) GetResponse(ctx context.Context, threadID string, agent core.AgentDefinition) (core.Reply, error) {
	if c.p.block {
		<-ctx.Done()
		return core.Reply{}, ctx.Err()
	}
	if c.p.responseErr != nil {
		return core.Reply{}, c.p.responseErr
	}
	return c.p.reply, nil
}

func (c fakeClient) Close() error {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	c.p.cliOpen--
	return nil
}

func (p *fakePlatform) options() []Option {
	return []Option{
		WithCredentialSource(func(ctx context.Context) (core.Credential, error) {
			p.mu.Lock()
			p.credOpen++
			p.mu.Unlock()
			return fakeCredential{p}, nil
		}),
		WithConnector(func(cfg core.FactoryConfig, cred core.Credential) (core.Client, error) {
			p.mu.Lock()
			p.cliOpen++
			p.mu.Unlock()
			return fakeClient{p}, nil
		}),
	}
}

func testAgentConfig() config.AgentConfig {
	return config.AgentConfig{
		AgentID:        "asst_legal",
		QueryTimeout:   time.Second,
		CleanupTimeout: time.Second,
	}
}

func newTestService(p *fakePlatform, cfg config.AgentConfig, extra ...Option) *Service {
	return NewService(cfg, zerolog.Nop(), append(p.options(), extra...)...)
}

type memLedger struct {
	mu  sync.Mutex
	ids []string
}

func (m *memLedger) Record(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append(m.ids, id)
	return nil
}

func (m *memLedger) Pending(ctx context.Context, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ids...), nil
}

func (m *memLedger) Resolve(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, v := range m.ids {
		if v == id {
			m.ids = append(m.ids[:i], m.ids[i+1:]...)
			break
		}
	}
	return nil
}

func TestProcessSuccess(t *testing.T) {
	p := newFakePlatform()
	svc := newTestService(p, testAgentConfig())

	res := svc.Process(context.Background(), Request{Query: "q", Details: core.StringDetails("k1", "v1", "k2", "v2")})
	require.True(t, res.OK(), res.Message())
	assert.Equal(t, "AB", res.Text)

	require.Len(t, p.created, 1)
	assert.Equal(t, p.created, p.deleted)
	assert.Equal(t, "q\n\nAdditional details:\nk1: v1\nk2: v2", p.prompts[p.created[0]])
	assert.Zero(t, p.credOpen)
	assert.Zero(t, p.cliOpen)
}

func TestProcessRawQueryWithoutDetails(t *testing.T) {
	p := newFakePlatform()
	svc := newTestService(p, testAgentConfig())

	res := svc.Process(context.Background(), Request{Query: "What is adverse possession?"})
	require.True(t, res.OK())
	assert.Equal(t, "What is adverse possession?", p.prompts[p.created[0]])
}

func TestProcessFailures(t *testing.T) {
	cases := []struct {
		name        string
		mutate      func(p *fakePlatform, cfg *config.AgentConfig)
		wantMsg     string
		wantCreated int
	}{
		{
			name:    "agent lookup fails",
			mutate:  func(p *fakePlatform, _ *config.AgentConfig) { p.getAgentErr = errors.New("agent asst_legal not found") },
			wantMsg: "Error processing query: agent asst_legal not found",
		},
		{
			name:    "agent id missing",
			mutate:  func(_ *fakePlatform, cfg *config.AgentConfig) { cfg.AgentID = " " },
			wantMsg: "Error processing query: agent id not configured",
		},
		{
			name:    "thread create fails",
			mutate:  func(p *fakePlatform, _ *config.AgentConfig) { p.createErr = errors.New("quota exceeded") },
			wantMsg: "Error processing query: quota exceeded",
		},
		{
			name:        "message send fails",
			mutate:      func(p *fakePlatform, _ *config.AgentConfig) { p.addErr = errors.New("message rejected") },
			wantMsg:     "Error processing query: message rejected",
			wantCreated: 1,
		},
		{
			name:        "response retrieval fails",
			mutate:      func(p *fakePlatform, _ *config.AgentConfig) { p.responseErr = errors.New("run failed: server_error") },
			wantMsg:     "Error processing query: run failed: server_error",
			wantCreated: 1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newFakePlatform()
			cfg := testAgentConfig()
			tc.mutate(p, &cfg)
			svc := newTestService(p, cfg)

			res := svc.Process(context.Background(), Request{Query: "q"})
			require.False(t, res.OK())
			assert.True(t, errors.Is(res.Err, core.ErrRemoteOperation))
			assert.Equal(t, tc.wantMsg, res.Message())
			assert.Len(t, p.created, tc.wantCreated)
			assert.Equal(t, p.created, p.deleted)
			assert.Zero(t, p.credOpen)
			assert.Zero(t, p.cliOpen)
		})
	}
}

func TestProcessCredentialFailure(t *testing.T) {
	p := newFakePlatform()
	svc := newTestService(p, testAgentConfig(), WithCredentialSource(func(ctx context.Context) (core.Credential, error) {
		return nil, errors.New("DefaultAzureCredential: no credential available")
	}))

	res := svc.Process(context.Background(), Request{Query: "q"})
	require.False(t, res.OK())
	assert.Contains(t, res.Message(), "no credential available")
	assert.Empty(t, p.created)
}

func TestProcessDeleteFailureFailsRequestAndRecordsOrphan(t *testing.T) {
	p := newFakePlatform()
	p.deleteErr = &webclient.APIError{Method: http.MethodDelete, URL: "/threads/x", Status: http.StatusServiceUnavailable}
	ledger := &memLedger{}
	svc := newTestService(p, testAgentConfig(), WithOrphanLedger(ledger))

	res := svc.Process(context.Background(), Request{Query: "q"})
	require.False(t, res.OK())
	assert.Empty(t, res.Text)
	assert.Contains(t, res.Message(), "status 503")
	assert.Equal(t, p.created, ledger.ids)
}

func TestProcessDeleteFailureKeepsPrimaryError(t *testing.T) {
	p := newFakePlatform()
	p.responseErr = errors.New("retrieval broke")
	p.deleteErr = errors.New("delete broke")
	svc := newTestService(p, testAgentConfig())

	res := svc.Process(context.Background(), Request{Query: "q"})
	assert.Equal(t, "Error processing query: retrieval broke", res.Message())
}

func TestProcessDeadlineStillDeletesThread(t *testing.T) {
	p := newFakePlatform()
	p.block = true
	cfg := testAgentConfig()
	cfg.QueryTimeout = 20 * time.Millisecond
	svc := newTestService(p, cfg)

	res := svc.Process(context.Background(), Request{Query: "q"})
	require.False(t, res.OK())
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	require.Len(t, p.deleted, 1)
	assert.Equal(t, p.created, p.deleted)
	assert.NoError(t, p.deleteCtxErr[0], "cleanup must not inherit the expired request context")
}

func TestProcessCallerCancelStillDeletesThread(t *testing.T) {
	p := newFakePlatform()
	p.block = true
	svc := newTestService(p, testAgentConfig())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	res := svc.Process(ctx, Request{Query: "q"})
	require.False(t, res.OK())
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, p.created, p.deleted)
}

func TestProcessConcurrentRequestsUseDistinctThreads(t *testing.T) {
	p := newFakePlatform()
	svc := newTestService(p, testAgentConfig())

	const n = 16
	var wg sync.WaitGroup
	results := make([]core.Result, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.Process(context.Background(), Request{Query: fmt.Sprintf("q%d", i)})
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.True(t, r.OK())
	}
	assert.Len(t, p.created, n)
	assert.ElementsMatch(t, p.created, p.deleted)

	seen := map[string]bool{}
	for _, id := range p.created {
		assert.False(t, seen[id], "thread %s reused", id)
		seen[id] = true
	}
	prompts := map[string]bool{}
	for _, q := range p.prompts {
		prompts[q] = true
	}
	assert.Len(t, prompts, n)
}
