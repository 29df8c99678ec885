package azure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/stake-plus/legal-agent/src/agents/core"
)

const defaultTokenScope = "https://management.azure.com/.default"

// tokens are refreshed this long before they expire
const expiryMargin = 2 * time.Minute

var errCredentialClosed = errors.New("azure: credential closed")

type credential struct {
	mu     sync.Mutex
	source azcore.TokenCredential
	scope  string
	token  azcore.AccessToken
	closed bool
}

// NewCredential builds a DefaultAzureCredential-backed token source
// (environment, workload identity, managed identity, Azure CLI, ...).
func NewCredential(ctx context.Context, cfg core.FactoryConfig) (core.Credential, error) {
	source, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("azure: default credential: %w", err)
	}
	return newTokenCredential(source, cfg.TokenScope), nil
}

func newTokenCredential(source azcore.TokenCredential, scope string) *credential {
	if strings.TrimSpace(scope) == "" {
		scope = defaultTokenScope
	}
	return &credential{source: source, scope: scope}
}

func (c *credential) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", errCredentialClosed
	}
	if c.token.Token != "" && time.Until(c.token.ExpiresOn) > expiryMargin {
		return c.token.Token, nil
	}
	tok, err := c.source.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{c.scope}})
	if err != nil {
		return "", fmt.Errorf("azure: acquire token: %w", err)
	}
	c.token = tok
	return tok.Token, nil
}

// Close drops the cached token. The credential is unusable afterwards.
func (c *credential) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.token = azcore.AccessToken{}
	return nil
}
