package query

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stake-plus/legal-agent/src/agents/core"
	"github.com/stake-plus/legal-agent/src/config"
	"github.com/stake-plus/legal-agent/src/logging"
	"github.com/stake-plus/legal-agent/src/webclient"
)

var errAgentIDMissing = errors.New("agent id not configured")

// Request is one caller query.
type Request struct {
	Query     string
	Details   core.Details
	RequestID string
}

// OrphanLedger remembers threads whose deletion failed so they can be swept later.
type OrphanLedger interface {
	Record(ctx context.Context, threadID string) error
	Pending(ctx context.Context, limit int) ([]string, error)
	Resolve(ctx context.Context, threadID string) error
}

// Connector builds a platform client bound to a credential.
type Connector func(cfg core.FactoryConfig, cred core.Credential) (core.Client, error)

// Service forwards queries to the configured agent. It holds no per-request
// state; every call acquires its own credential, client and thread.
type Service struct {
	cfg         config.AgentConfig
	credentials core.CredentialSource
	connect     Connector
	orphans     OrphanLedger
	log         zerolog.Logger
}

type Option func(*Service)

func WithCredentialSource(src core.CredentialSource) Option {
	return func(s *Service) { s.credentials = src }
}

func WithConnector(fn Connector) Option {
	return func(s *Service) { s.connect = fn }
}

func WithOrphanLedger(l OrphanLedger) Option {
	return func(s *Service) { s.orphans = l }
}

func NewService(cfg config.AgentConfig, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		cfg:     cfg,
		connect: core.NewClient,
		log:     log.With().Str("component", "query").Logger(),
	}
	factory := cfg.Factory()
	s.credentials = func(ctx context.Context) (core.Credential, error) {
		return core.NewCredential(ctx, factory)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process runs the whole exchange for one query. Any failure comes back as a
// single failure result carrying the original error text.
func (s *Service) Process(ctx context.Context, req Request) core.Result {
	start := time.Now()
	log := s.log.With().Str("request_id", req.RequestID).Logger()

	text, threadID, err := s.process(ctx, req, log)

	if err != nil {
		log.Error().Err(err).
			Str("kind", logging.Kind(err)).
			Str("thread_id", threadID).
			Dur("duration", time.Since(start)).
			Msg("query failed")
		return core.Fail(err)
	}
	log.Info().
		Str("thread_id", threadID).
		Int("response_chars", len(text)).
		Dur("duration", time.Since(start)).
		Msg("query answered")
	return core.Ok(text)
}

func (s *Service) process(ctx context.Context, req Request, log zerolog.Logger) (text string, threadID string, err error) {
	if s.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
	}

	client, release, err := s.open(ctx)
	if err != nil {
		return "", "", err
	}
	defer release()

	agentID := strings.TrimSpace(s.cfg.AgentID)
	if agentID == "" {
		return "", "", errAgentIDMissing
	}
	agent, err := client.GetAgent(ctx, agentID)
	if err != nil {
		return "", "", err
	}

	thread, err := client.CreateThread(ctx)
	if err != nil {
		return "", "", err
	}
	threadID = thread.ID

	defer func() {
		delErr := s.releaseThread(ctx, client, thread.ID, log)
		if delErr != nil && err == nil {
			text, err = "", delErr
		}
	}()

	if err = client.AddMessage(ctx, thread.ID, core.BuildPrompt(req.Query, req.Details)); err != nil {
		return "", threadID, err
	}
	reply, err := client.GetResponse(ctx, thread.ID, agent)
	if err != nil {
		return "", threadID, err
	}
	log.Debug().Str("thread_id", threadID).Str("reply_kind", reply.Kind.String()).Msg("reply decoded")
	return reply.String(), threadID, nil
}

// open acquires a credential and a client. release closes both, client first.
func (s *Service) open(ctx context.Context) (core.Client, func(), error) {
	cred, err := s.credentials(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("acquire credential: %w", err)
	}
	client, err := s.connect(s.cfg.Factory(), cred)
	if err != nil {
		_ = cred.Close()
		return nil, nil, err
	}
	release := func() {
		if err := client.Close(); err != nil {
			s.log.Warn().Err(err).Msg("close agent client")
		}
		if err := cred.Close(); err != nil {
			s.log.Warn().Err(err).Msg("close credential")
		}
	}
	return client, release, nil
}

// releaseThread deletes the thread on a context detached from the request's
// cancellation, so a fired deadline or a dropped caller still gets cleanup.
func (s *Service) releaseThread(ctx context.Context, client core.Client, threadID string, log zerolog.Logger) error {
	cleanupCtx := context.WithoutCancel(ctx)
	if s.cfg.CleanupTimeout > 0 {
		var cancel context.CancelFunc
		cleanupCtx, cancel = context.WithTimeout(cleanupCtx, s.cfg.CleanupTimeout)
		defer cancel()
	}

	err := client.DeleteThread(cleanupCtx, threadID)
	if err == nil {
		return nil
	}

	log.Warn().Err(err).Str("thread_id", threadID).Str("kind", logging.Kind(err)).Msg("thread delete failed")
	if s.orphans != nil && !webclient.IsStatus(err, http.StatusNotFound) {
		if recErr := s.orphans.Record(cleanupCtx, threadID); recErr != nil {
			log.Error().Err(recErr).Str("thread_id", threadID).Msg("record orphan thread")
		}
	}
	return err
}
