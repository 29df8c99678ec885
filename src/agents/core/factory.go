package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// FactoryConfig captures the inputs required to reach an agent platform.
type FactoryConfig struct {
	Platform string

	ModelDeploymentName     string
	ProjectConnectionString string
	Endpoint                string
	APIVersion              string
	TokenScope              string

	PollInterval time.Duration
	HTTPTimeout  time.Duration

	Extra map[string]string
}

// PlatformFactory implements platform-specific credential and client creation.
type PlatformFactory struct {
	NewCredential func(ctx context.Context, cfg FactoryConfig) (Credential, error)
	NewClient     func(cfg FactoryConfig, cred Credential) (Client, error)
}

var (
	mu         sync.RWMutex
	platforms  = map[string]PlatformFactory{}
	defaultKey = "azure"
)

// RegisterPlatform registers a platform factory under one or more names.
func RegisterPlatform(name string, factory PlatformFactory, aliases ...string) {
	mu.Lock()
	defer mu.Unlock()

	all := append([]string{name}, aliases...)
	for _, n := range all {
		platforms[strings.ToLower(n)] = factory
	}
}

func lookup(cfg FactoryConfig) (PlatformFactory, string, error) {
	name := cfg.Platform
	if strings.TrimSpace(name) == "" {
		name = defaultKey
	}

	mu.RLock()
	factory, ok := platforms[strings.ToLower(name)]
	mu.RUnlock()

	if !ok {
		return PlatformFactory{}, name, fmt.Errorf("agents: platform %q not registered", name)
	}
	return factory, name, nil
}

// NewCredential acquires a credential for the configured platform.
func NewCredential(ctx context.Context, cfg FactoryConfig) (Credential, error) {
	factory, name, err := lookup(cfg)
	if err != nil {
		return nil, err
	}
	if factory.NewCredential == nil {
		return nil, fmt.Errorf("agents: platform %q has no credential provider", name)
	}
	return factory.NewCredential(ctx, cfg)
}

// NewClient returns a platform-agnostic agent client bound to cred.
func NewClient(cfg FactoryConfig, cred Credential) (Client, error) {
	factory, name, err := lookup(cfg)
	if err != nil {
		return nil, err
	}
	if factory.NewClient == nil {
		return nil, fmt.Errorf("agents: platform %q has no client", name)
	}
	return factory.NewClient(cfg, cred)
}
