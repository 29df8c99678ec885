package core

import (
	"context"
	"errors"
)

// ErrRemoteOperation marks every failure surfaced by the query path. Callers
// never see a finer-grained kind.
var ErrRemoteOperation = errors.New("remote operation failed")

// AgentDefinition is the pre-provisioned agent as returned by the platform.
type AgentDefinition struct {
	ID           string
	Name         string
	Model        string
	Instructions string
}

// Thread is an ephemeral conversation owned by the platform.
type Thread struct {
	ID string
}

// Credential is a scoped token source. Whoever acquires one closes it.
type Credential interface {
	Token(ctx context.Context) (string, error)
	Close() error
}

// CredentialSource acquires a fresh credential.
type CredentialSource func(ctx context.Context) (Credential, error)

// Client is the subset of a hosted agent platform the gateway needs.
type Client interface {
	GetAgent(ctx context.Context, agentID string) (AgentDefinition, error)
	CreateThread(ctx context.Context) (Thread, error)
	DeleteThread(ctx context.Context, threadID string) error
	AddMessage(ctx context.Context, threadID string, text string) error
	// GetResponse runs the agent on the thread and returns its reply payload.
	GetResponse(ctx context.Context, threadID string, agent AgentDefinition) (Reply, error)
	Close() error
}
